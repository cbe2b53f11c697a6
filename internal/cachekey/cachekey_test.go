package cachekey

import "testing"

func TestMakeOrderIndependent(t *testing.T) {
	a := map[string]string{}
	a["a"] = "1"
	a["b"] = "2"

	b := map[string]string{}
	b["b"] = "2"
	b["a"] = "1"

	if Make(Summary, a) != Make(Summary, b) {
		t.Errorf("keys differ: %q vs %q", Make(Summary, a), Make(Summary, b))
	}
}

func TestMakeLiteral(t *testing.T) {
	params := map[string]string{
		"owner":   "octo",
		"repo":    "widgets",
		"path":    "src/app.ts",
		"branch":  "main",
		"version": "1",
	}
	want := "summary-branch:main|owner:octo|path:src/app.ts|repo:widgets|version:1"

	for i := 0; i < 20; i++ {
		if got := Make(Summary, params); got != want {
			t.Fatalf("Make() = %q, want %q", got, want)
		}
	}

	built := Params{}.Set("version", "1").Set("branch", "main").Set("path", "src/app.ts").
		Set("repo", "widgets").Set("owner", "octo")
	if got := built.Key(Summary); got != want {
		t.Errorf("Params.Key() = %q, want %q", got, want)
	}
}

func TestMakeDistinguishes(t *testing.T) {
	base := map[string]string{"owner": "o", "repo": "r", "path": "x", "branch": "main", "version": "1"}

	tests := []struct {
		name   string
		kind   Kind
		params map[string]string
	}{
		{"different kind", Graph, base},
		{"different value", Summary, map[string]string{"owner": "o", "repo": "r", "path": "y", "branch": "main", "version": "1"}},
		{"value casing kept", Summary, map[string]string{"owner": "o", "repo": "r", "path": "x", "branch": "Main", "version": "1"}},
		{"missing pair", Summary, map[string]string{"owner": "o", "repo": "r", "path": "x", "version": "1"}},
		{"empty value is a pair", Summary, map[string]string{"owner": "o", "repo": "r", "path": "x", "branch": "", "version": "1"}},
	}

	ref := Make(Summary, base)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Make(tt.kind, tt.params); got == ref {
				t.Errorf("Make() = %q, should differ from %q", got, ref)
			}
		})
	}
}

func TestMakeEmpty(t *testing.T) {
	if got := Make(Graph, nil); got != "graph-" {
		t.Errorf("Make(nil) = %q, want %q", got, "graph-")
	}
	if got := Make(Summary, map[string]string{"k": ""}); got != "summary-k:" {
		t.Errorf("Make() = %q, want %q", got, "summary-k:")
	}
}

func TestParamsOpt(t *testing.T) {
	p := Params{}.Set("owner", "o").Opt("branch", "").Opt("path", "x")
	if _, ok := p["branch"]; ok {
		t.Error("empty optional value should be omitted")
	}
	if got, want := p.Key(Summary), "summary-owner:o|path:x"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}
