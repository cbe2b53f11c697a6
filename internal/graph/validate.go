package graph

import (
	"errors"
	"fmt"
)

// ErrNotTree is returned by Validate when the links do not form a tree
// rooted at RootID.
var ErrNotTree = errors.New("graph is not a tree rooted at " + RootID)

// Validate checks that data is well formed: exactly one root node, unique
// ids, every non-root node with exactly one incoming link from an existing
// node, and every node reachable from the root.
func Validate(data *GraphData) error {
	if data == nil {
		return fmt.Errorf("%w: nil graph", ErrNotTree)
	}

	ids := make(map[string]struct{}, len(data.Nodes))
	for _, n := range data.Nodes {
		if _, dup := ids[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node %q", ErrNotTree, n.ID)
		}
		ids[n.ID] = struct{}{}
	}
	if _, ok := ids[RootID]; !ok {
		return fmt.Errorf("%w: missing root node", ErrNotTree)
	}
	if len(data.Links) != len(data.Nodes)-1 {
		return fmt.Errorf("%w: %d nodes but %d links", ErrNotTree, len(data.Nodes), len(data.Links))
	}

	children := make(map[string][]string, len(data.Nodes))
	incoming := make(map[string]int, len(data.Nodes))
	for _, l := range data.Links {
		if _, ok := ids[l.Source]; !ok {
			return fmt.Errorf("%w: link source %q is not a node", ErrNotTree, l.Source)
		}
		if _, ok := ids[l.Target]; !ok {
			return fmt.Errorf("%w: link target %q is not a node", ErrNotTree, l.Target)
		}
		if l.Target == RootID {
			return fmt.Errorf("%w: root has an incoming link", ErrNotTree)
		}
		incoming[l.Target]++
		if incoming[l.Target] > 1 {
			return fmt.Errorf("%w: %q has more than one parent", ErrNotTree, l.Target)
		}
		children[l.Source] = append(children[l.Source], l.Target)
	}

	visited := make(map[string]struct{}, len(data.Nodes))
	stack := []string{RootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[id]; ok {
			return fmt.Errorf("%w: cycle through %q", ErrNotTree, id)
		}
		visited[id] = struct{}{}
		stack = append(stack, children[id]...)
	}
	if len(visited) != len(data.Nodes) {
		return fmt.Errorf("%w: %d of %d nodes unreachable from root", ErrNotTree, len(data.Nodes)-len(visited), len(data.Nodes))
	}

	return nil
}
