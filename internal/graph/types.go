// Package graph turns a nested repository listing into the flat node/link
// form consumed by force-directed renderers.
package graph

// NodeType distinguishes files from directories.
type NodeType string

const (
	// TypeFile is a regular file entry
	TypeFile NodeType = "file"
	// TypeDir is a directory entry
	TypeDir NodeType = "dir"
)

// RootID is the id of the synthetic repository node.
const RootID = "root"

// RepoFile is one entry of a repository listing as returned by the tree fetcher.
// Children is only meaningful when Type is TypeDir.
type RepoFile struct {
	Name     string     `json:"name"`
	Path     string     `json:"path"`
	Size     int64      `json:"size"`
	Type     NodeType   `json:"type"`
	Children []RepoFile `json:"children,omitempty"`

	// Upstream metadata, passed through to clients untouched.
	SHA         string `json:"sha,omitempty"`
	HTMLURL     string `json:"html_url,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

// GraphNode is a vertex of the rendered graph.
type GraphNode struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Path  string   `json:"path"`
	Type  NodeType `json:"type"`
	Size  int64    `json:"size"`
	Color string   `json:"color"`
	Val   float64  `json:"val"`
}

// GraphLink is a parent -> child containment edge.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// GraphData is the complete output of Build.
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// CountEntries returns the number of entries in files, nested children
// included. Levels deeper than DefaultMaxDepth are not descended into, so a
// listing whose children refer back to an ancestor still terminates.
func CountEntries(files []RepoFile) int {
	type item struct {
		f     *RepoFile
		depth int
	}
	n := 0
	stack := make([]item, 0, len(files))
	for i := range files {
		stack = append(stack, item{&files[i], 1})
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n++
		if it.depth >= DefaultMaxDepth {
			continue
		}
		for i := range it.f.Children {
			stack = append(stack, item{&it.f.Children[i], it.depth + 1})
		}
	}
	return n
}
