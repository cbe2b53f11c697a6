package graph

import (
	"errors"
	"fmt"
)

// DefaultMaxDepth bounds how deeply nested a listing may be before Build
// refuses it.
const DefaultMaxDepth = 64

var (
	// ErrUnknownType is returned for entries whose type is neither file nor dir
	ErrUnknownType = errors.New("unknown entry type")
	// ErrDepthExceeded is returned when nesting exceeds the configured bound
	ErrDepthExceeded = errors.New("nesting depth exceeded")
	// ErrDuplicateID is returned when two entries share a path, or a path
	// collides with the root id
	ErrDuplicateID = errors.New("duplicate node id")
)

// StructureError describes a malformed listing. It wraps one of the
// sentinel errors above so callers can use errors.Is.
type StructureError struct {
	Path  string
	Depth int
	Err   error
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("malformed repository tree at %q (depth %d): %v", e.Path, e.Depth, e.Err)
}

func (e *StructureError) Unwrap() error {
	return e.Err
}

// Options configures Build.
type Options struct {
	MaxDepth int
}

// Option mutates Options.
type Option func(*Options)

// WithMaxDepth overrides DefaultMaxDepth. Values <= 0 are ignored.
func WithMaxDepth(depth int) Option {
	return func(o *Options) {
		if depth > 0 {
			o.MaxDepth = depth
		}
	}
}

// workItem is one pending entry of the traversal.
type workItem struct {
	file     *RepoFile
	parentID string
	depth    int
}

// RootNode returns the synthetic node representing the repository itself.
func RootNode() GraphNode {
	return GraphNode{
		ID:    RootID,
		Name:  "Repository Root",
		Path:  "/",
		Type:  TypeDir,
		Size:  0,
		Color: DirColor,
		Val:   DirMagnitude,
	}
}

// Build converts a repository listing into graph form.
//
// The walk is pre-order depth-first and keeps the sibling order of the
// input: a directory's node and link are emitted before anything beneath
// it. It uses an explicit stack, so Go stack usage does not grow with the
// nesting depth of the repository. The input is never modified and the
// output holds no references into it.
func Build(files []RepoFile, opts ...Option) (*GraphData, error) {
	o := Options{MaxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&o)
	}

	// Top-level size is only a capacity hint. The input is not walked ahead
	// of the bounded traversal below, which is what stops cyclic listings.
	data := &GraphData{
		Nodes: make([]GraphNode, 0, len(files)+1),
		Links: make([]GraphLink, 0, len(files)),
	}
	data.Nodes = append(data.Nodes, RootNode())

	seen := make(map[string]struct{}, len(files)+1)
	seen[RootID] = struct{}{}

	stack := make([]workItem, 0, len(files))
	stack = pushReversed(stack, files, RootID, 1)

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		f := item.file

		if item.depth > o.MaxDepth {
			return nil, &StructureError{Path: f.Path, Depth: item.depth, Err: ErrDepthExceeded}
		}
		if f.Type != TypeFile && f.Type != TypeDir {
			return nil, &StructureError{
				Path:  f.Path,
				Depth: item.depth,
				Err:   fmt.Errorf("%w: %q", ErrUnknownType, f.Type),
			}
		}
		if _, dup := seen[f.Path]; dup {
			return nil, &StructureError{Path: f.Path, Depth: item.depth, Err: ErrDuplicateID}
		}
		seen[f.Path] = struct{}{}

		data.Nodes = append(data.Nodes, GraphNode{
			ID:    f.Path,
			Name:  f.Name,
			Path:  f.Path,
			Type:  f.Type,
			Size:  f.Size,
			Color: Color(f.Name, f.Type),
			Val:   Magnitude(f.Size, f.Type),
		})
		data.Links = append(data.Links, GraphLink{Source: item.parentID, Target: f.Path})

		if f.Type == TypeDir && len(f.Children) > 0 {
			stack = pushReversed(stack, f.Children, f.Path, item.depth+1)
		}
	}

	return data, nil
}

// pushReversed pushes siblings so the first one is popped first.
func pushReversed(stack []workItem, files []RepoFile, parentID string, depth int) []workItem {
	for i := len(files) - 1; i >= 0; i-- {
		stack = append(stack, workItem{file: &files[i], parentID: parentID, depth: depth})
	}
	return stack
}
