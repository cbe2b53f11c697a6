package graph

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"
)

func scenarioTree() []RepoFile {
	return []RepoFile{
		{Name: "a.ts", Path: "a.ts", Size: 120, Type: TypeFile},
		{Name: "src", Path: "src", Size: 0, Type: TypeDir, Children: []RepoFile{
			{Name: "b.py", Path: "src/b.py", Size: 0, Type: TypeFile},
		}},
	}
}

func TestBuildScenario(t *testing.T) {
	data, err := Build(scenarioTree())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	wantIDs := []string{"root", "a.ts", "src", "src/b.py"}
	if len(data.Nodes) != len(wantIDs) {
		t.Fatalf("got %d nodes, want %d", len(data.Nodes), len(wantIDs))
	}
	for i, id := range wantIDs {
		if data.Nodes[i].ID != id {
			t.Errorf("node[%d].ID = %q, want %q", i, data.Nodes[i].ID, id)
		}
	}

	wantLinks := []GraphLink{
		{Source: "root", Target: "a.ts"},
		{Source: "root", Target: "src"},
		{Source: "src", Target: "src/b.py"},
	}
	if !reflect.DeepEqual(data.Links, wantLinks) {
		t.Errorf("links = %v, want %v", data.Links, wantLinks)
	}

	if c := data.Nodes[1].Color; c != "#3178c6" {
		t.Errorf("a.ts color = %q, want TypeScript color", c)
	}
	if c := data.Nodes[3].Color; c != "#3572A5" {
		t.Errorf("src/b.py color = %q, want Python color", c)
	}
	if v := data.Nodes[3].Val; v != 2 {
		t.Errorf("src/b.py val = %v, want 2", v)
	}
	if v := data.Nodes[2].Val; v != DirMagnitude {
		t.Errorf("src val = %v, want %v", v, DirMagnitude)
	}
}

func TestBuildRootNode(t *testing.T) {
	data, err := Build(nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(data.Nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(data.Nodes))
	}
	if len(data.Links) != 0 {
		t.Errorf("got %d links, want 0", len(data.Links))
	}
	root := data.Nodes[0]
	if root != RootNode() {
		t.Errorf("root = %+v, want %+v", root, RootNode())
	}
	if root.Type != TypeDir || root.Size != 0 || root.Color != DirColor || root.Val != 6 {
		t.Errorf("unexpected root encoding: %+v", root)
	}
}

func TestBuildEmptyDirectory(t *testing.T) {
	files := []RepoFile{
		{Name: "empty", Path: "empty", Type: TypeDir},
		{Name: "also-empty", Path: "also-empty", Type: TypeDir, Children: []RepoFile{}},
	}
	data, err := Build(files)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(data.Nodes) != 3 || len(data.Links) != 2 {
		t.Errorf("got %d nodes / %d links, want 3 / 2", len(data.Nodes), len(data.Links))
	}
}

func TestBuildPreOrder(t *testing.T) {
	files := []RepoFile{
		{Name: "a", Path: "a", Type: TypeDir, Children: []RepoFile{
			{Name: "x", Path: "a/x", Type: TypeDir, Children: []RepoFile{
				{Name: "deep.go", Path: "a/x/deep.go", Size: 10, Type: TypeFile},
			}},
			{Name: "y.go", Path: "a/y.go", Size: 10, Type: TypeFile},
		}},
		{Name: "b.md", Path: "b.md", Size: 10, Type: TypeFile},
	}
	data, err := Build(files)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var got []string
	for _, n := range data.Nodes {
		got = append(got, n.ID)
	}
	want := []string{"root", "a", "a/x", "a/x/deep.go", "a/y.go", "b.md"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("node order = %v, want %v", got, want)
	}

	var targets []string
	for _, l := range data.Links {
		targets = append(targets, l.Target)
	}
	if !reflect.DeepEqual(targets, want[1:]) {
		t.Errorf("link order = %v, want %v", targets, want[1:])
	}
}

func TestBuildIdempotent(t *testing.T) {
	files := generateTree(4, 3)
	first, err := Build(files)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	second, err := Build(files)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("two builds of the same input differ")
	}
}

func TestBuildTreeShape(t *testing.T) {
	tests := []struct {
		name   string
		depth  int
		fanout int
	}{
		{"flat", 1, 10},
		{"narrow deep", 8, 1},
		{"bushy", 4, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := generateTree(tt.depth, tt.fanout)
			n := CountEntries(files)

			data, err := Build(files)
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			if len(data.Nodes) != n+1 {
				t.Errorf("nodes = %d, want %d", len(data.Nodes), n+1)
			}
			if len(data.Links) != n {
				t.Errorf("links = %d, want %d", len(data.Links), n)
			}
			if err := Validate(data); err != nil {
				t.Errorf("Validate: %v", err)
			}
		})
	}
}

func TestBuildParentLinkage(t *testing.T) {
	files := generateTree(3, 3)
	data, err := Build(files)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	parent := make(map[string]string)
	for _, l := range data.Links {
		if _, dup := parent[l.Target]; dup {
			t.Fatalf("%q has two incoming links", l.Target)
		}
		parent[l.Target] = l.Source
	}

	var walk func(fs []RepoFile, parentID string)
	walk = func(fs []RepoFile, parentID string) {
		for _, f := range fs {
			if got := parent[f.Path]; got != parentID {
				t.Errorf("parent of %q = %q, want %q", f.Path, got, parentID)
			}
			walk(f.Children, f.Path)
		}
	}
	walk(files, RootID)
}

func TestBuildDoesNotShareInput(t *testing.T) {
	files := scenarioTree()
	data, err := Build(files)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	files[0].Name = "changed.rs"
	if data.Nodes[1].Name != "a.ts" {
		t.Error("graph node changed after mutating input")
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		files []RepoFile
		opts  []Option
		want  error
	}{
		{
			name:  "unknown type",
			files: []RepoFile{{Name: "link", Path: "link", Type: "symlink"}},
			want:  ErrUnknownType,
		},
		{
			name: "nested unknown type",
			files: []RepoFile{{Name: "d", Path: "d", Type: TypeDir, Children: []RepoFile{
				{Name: "m", Path: "d/m", Type: ""},
			}}},
			want: ErrUnknownType,
		},
		{
			name: "duplicate path",
			files: []RepoFile{
				{Name: "a", Path: "a", Type: TypeFile},
				{Name: "a", Path: "a", Type: TypeFile},
			},
			want: ErrDuplicateID,
		},
		{
			name:  "path collides with root",
			files: []RepoFile{{Name: "root", Path: "root", Type: TypeFile}},
			want:  ErrDuplicateID,
		},
		{
			name:  "depth bound",
			files: generateTree(5, 1),
			opts:  []Option{WithMaxDepth(4)},
			want:  ErrDepthExceeded,
		},
		{
			name:  "directory containing itself",
			files: selfContainingListing("loop", TypeDir),
			opts:  []Option{WithMaxDepth(8)},
			want:  ErrDuplicateID,
		},
		{
			name:  "untyped entry containing itself",
			files: selfContainingListing("", ""),
			opts:  []Option{WithMaxDepth(8)},
			want:  ErrUnknownType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Build(tt.files, tt.opts...)
			if err == nil {
				t.Fatalf("expected error, got graph with %d nodes", len(data.Nodes))
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			var se *StructureError
			if !errors.As(err, &se) {
				t.Errorf("error %T is not a *StructureError", err)
			}
		})
	}
}

// selfContainingListing returns a one-entry listing whose children slice is
// the listing itself.
func selfContainingListing(path string, typ NodeType) []RepoFile {
	files := make([]RepoFile, 1)
	files[0] = RepoFile{Name: path, Path: path, Type: typ}
	files[0].Children = files
	return files
}

func TestBuildCyclicListingTerminates(t *testing.T) {
	done := make(chan error, 1)
	go func() {
		_, err := Build(selfContainingListing("loop", TypeDir), WithMaxDepth(8))
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected a structure error for a cyclic listing")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Build did not return on a cyclic listing")
	}
}

func TestCountEntriesCyclicListing(t *testing.T) {
	if n := CountEntries(selfContainingListing("loop", TypeDir)); n != DefaultMaxDepth {
		t.Errorf("CountEntries = %d, want %d", n, DefaultMaxDepth)
	}
}

func TestBuildDepthWithinBound(t *testing.T) {
	if _, err := Build(generateTree(4, 1), WithMaxDepth(4)); err != nil {
		t.Errorf("depth 4 with bound 4 should build: %v", err)
	}
}

func TestBuildDeepTreeIsIterative(t *testing.T) {
	const depth = 2000
	files := generateTree(depth, 1)
	data, err := Build(files, WithMaxDepth(depth))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(data.Nodes) != depth+1 {
		t.Errorf("nodes = %d, want %d", len(data.Nodes), depth+1)
	}
}

// generateTree builds a listing where every directory has fanout children:
// fanout-1 files and one subdirectory, down to depth levels.
func generateTree(depth, fanout int) []RepoFile {
	var build func(prefix string, level int) []RepoFile
	build = func(prefix string, level int) []RepoFile {
		if level > depth {
			return nil
		}
		var out []RepoFile
		for i := 0; i < fanout-1; i++ {
			name := fmt.Sprintf("f%d.go", i)
			out = append(out, RepoFile{Name: name, Path: join(prefix, name), Size: int64(i * 100), Type: TypeFile})
		}
		name := fmt.Sprintf("d%d", level)
		dir := RepoFile{Name: name, Path: join(prefix, name), Type: TypeDir}
		dir.Children = build(dir.Path, level+1)
		return append(out, dir)
	}
	return build("", 1)
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
