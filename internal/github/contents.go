package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"repograph/internal/graph"
)

// Tree depth limits.
const (
	DefaultTreeDepth = 4
	MaxTreeDepth     = 10
)

// ErrNotAFile is returned by FileContent when path names a directory.
var ErrNotAFile = errors.New("path is not a file")

// FetchTree lists the repository at branch (default branch when empty) down
// to depth levels. Directories on the same level are listed concurrently.
// A failing subdirectory gets an empty child list; only a failure at the
// top level is returned.
func (c *Client) FetchTree(ctx context.Context, owner, repo, branch string, depth int) ([]graph.RepoFile, error) {
	if depth <= 0 {
		depth = DefaultTreeDepth
	}
	if depth > MaxTreeDepth {
		depth = MaxTreeDepth
	}

	top, dirs, err := c.listDir(ctx, owner, repo, branch, "")
	if err != nil {
		return nil, err
	}

	level := make([]*graph.RepoFile, 0, len(dirs))
	for _, i := range dirs {
		level = append(level, &top[i])
	}

	for d := 1; d < depth && len(level) > 0; d++ {
		children := make([][]graph.RepoFile, len(level))
		childDirs := make([][]int, len(level))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.maxConcurrency)
		for i, dir := range level {
			g.Go(func() error {
				entries, idx, err := c.listDir(gctx, owner, repo, branch, dir.Path)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					c.logger.Warn("Failed to list directory", "owner", owner, "repo", repo, "path", dir.Path, "error", err)
					entries, idx = []graph.RepoFile{}, nil
				}
				children[i] = entries
				childDirs[i] = idx
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		next := make([]*graph.RepoFile, 0)
		for i, dir := range level {
			dir.Children = children[i]
			for _, j := range childDirs[i] {
				next = append(next, &dir.Children[j])
			}
		}
		level = next
	}

	return top, nil
}

// listDir lists one directory. The second result holds the indexes of the
// entries that should be descended into.
func (c *Client) listDir(ctx context.Context, owner, repo, branch, p string) ([]graph.RepoFile, []int, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "contents", contentsPath(owner, repo, p), refQuery(branch), &raw); err != nil {
		return nil, nil, err
	}

	var entries []contentEntry
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		var single contentEntry
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, nil, fmt.Errorf("failed to parse contents of %q: %w", p, err)
		}
		entries = []contentEntry{single}
	} else if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, nil, fmt.Errorf("failed to parse contents of %q: %w", p, err)
	}

	files := make([]graph.RepoFile, 0, len(entries))
	var dirs []int
	for _, e := range entries {
		f := graph.RepoFile{
			Name:    e.Name,
			Path:    e.Path,
			Size:    e.Size,
			SHA:     e.SHA,
			HTMLURL: e.HTMLURL,
		}
		if e.DownloadURL != nil {
			f.DownloadURL = *e.DownloadURL
		}
		switch e.Type {
		case "dir":
			f.Type = graph.TypeDir
			dirs = append(dirs, len(files))
		case "submodule":
			// Submodules live in another repository; show them as leaves.
			f.Type = graph.TypeDir
		default:
			f.Type = graph.TypeFile
		}
		files = append(files, f)
	}
	return files, dirs, nil
}

// Readme returns the decoded README at branch.
func (c *Client) Readme(ctx context.Context, owner, repo, branch string) (string, error) {
	var e contentEntry
	if err := c.get(ctx, "readme", repoPath(owner, repo)+"/readme", refQuery(branch), &e); err != nil {
		return "", err
	}
	return decodeContent(e)
}

// FileContent returns the decoded content of the file at path.
func (c *Client) FileContent(ctx context.Context, owner, repo, path, branch string) (string, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "contents", contentsPath(owner, repo, path), refQuery(branch), &raw); err != nil {
		return "", err
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '{' {
		return "", fmt.Errorf("%s: %w", path, ErrNotAFile)
	}

	var e contentEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return "", fmt.Errorf("failed to parse contents of %q: %w", path, err)
	}
	if e.Type != "" && e.Type != "file" {
		return "", fmt.Errorf("%s is a %s: %w", path, e.Type, ErrNotAFile)
	}
	return decodeContent(e)
}

func decodeContent(e contentEntry) (string, error) {
	if e.Encoding != "" && e.Encoding != "base64" {
		return "", fmt.Errorf("unsupported content encoding %q", e.Encoding)
	}
	// The API wraps base64 at 60 columns.
	clean := strings.NewReplacer("\n", "", "\r", "").Replace(e.Content)
	data, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return "", fmt.Errorf("failed to decode content of %q: %w", e.Path, err)
	}
	return string(data), nil
}
