package explorer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"repograph/internal/cache"
	"repograph/internal/cachekey"
	apperrors "repograph/internal/errors"
	"repograph/internal/github"
	"repograph/internal/graph"
	"repograph/internal/storage"
	"repograph/internal/summarize"
)

// fakeSource is an in-memory RepoSource.
type fakeSource struct {
	files      []graph.RepoFile
	readme     string
	readmeErr  error
	treeErr    error
	content    map[string]string
	contentErr error
	listErr    error

	treeCalls    atomic.Int32
	contentCalls atomic.Int32
	gotDepth     atomic.Int32

	// release, when set, blocks FileContent until closed.
	release chan struct{}
}

func (f *fakeSource) FetchTree(_ context.Context, _, _, _ string, depth int) ([]graph.RepoFile, error) {
	f.treeCalls.Add(1)
	f.gotDepth.Store(int32(depth))
	return f.files, f.treeErr
}

func (f *fakeSource) Readme(context.Context, string, string, string) (string, error) {
	return f.readme, f.readmeErr
}

func (f *fakeSource) FileContent(_ context.Context, _, _, path, _ string) (string, error) {
	f.contentCalls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.contentErr != nil {
		return "", f.contentErr
	}
	return f.content[path], nil
}

func (f *fakeSource) ListCommits(_ context.Context, _, _, _ string, opts github.PageOptions) (*github.CommitPage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &github.CommitPage{Commits: []github.Commit{{SHA: "a1"}}, Page: opts.Page, PerPage: opts.PerPage}, nil
}

func (f *fakeSource) ListContributors(context.Context, string, string) ([]github.Contributor, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return []github.Contributor{{Login: "ada", Contributions: 3}}, nil
}

func (f *fakeSource) ListIssues(_ context.Context, _, _, state string, _ github.PageOptions) ([]github.Issue, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return []github.Issue{{Number: 1, State: state}}, nil
}

func (f *fakeSource) ListPullRequests(_ context.Context, _, _, state string, _ github.PageOptions) ([]github.PullRequest, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return []github.PullRequest{{Number: 2, State: state}}, nil
}

type fakeSummarizer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSummarizer) Summarize(_ context.Context, content, branch string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	if branch == "" {
		branch = "default"
	}
	return "summary of " + content + " on " + branch, nil
}

// flakyStore fails writes.
type flakyStore struct {
	*storage.MemoryStore
	failSet bool
	failGet bool
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.failGet {
		return nil, false, errors.New("read refused")
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	if s.failSet {
		return errors.New("disk full")
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func sampleFiles() []graph.RepoFile {
	return []graph.RepoFile{
		{Name: "README.md", Path: "README.md", Size: 100, Type: graph.TypeFile},
		{Name: "src", Path: "src", Type: graph.TypeDir, Children: []graph.RepoFile{
			{Name: "app.ts", Path: "src/app.ts", Size: 1000, Type: graph.TypeFile},
		}},
	}
}

type fixture struct {
	svc        *Service
	source     *fakeSource
	summarizer *fakeSummarizer
	store      *flakyStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	source := &fakeSource{
		files:   sampleFiles(),
		readme:  "# widgets",
		content: map[string]string{"src/app.ts": "export const x = 1"},
	}
	summarizer := &fakeSummarizer{}
	store := &flakyStore{MemoryStore: storage.NewMemoryStore()}
	summaries := cache.New[string](store, cachekey.Summary, 24*time.Hour)
	trees := cache.New[RepoData](store, cachekey.Graph, time.Hour)

	svc := New(source, summarizer, summaries, WithTreeCache(trees), WithDepthLimits(4, 10))
	return &fixture{svc: svc, source: source, summarizer: summarizer, store: store}
}

func TestSummaryKey(t *testing.T) {
	got := SummaryKey(SummaryRequest{Owner: "octo", Repo: "widgets", Path: "src/app.ts", Branch: "main"})
	want := "summary-branch:main|owner:octo|path:src/app.ts|repo:widgets|version:" + SummaryVersion
	if got != want {
		t.Errorf("SummaryKey() = %q, want %q", got, want)
	}

	noBranch := SummaryKey(SummaryRequest{Owner: "octo", Repo: "widgets", Path: "src/app.ts"})
	if !strings.HasPrefix(noBranch, "summary-branch:|owner:octo") {
		t.Errorf("empty branch should be kept as a pair, got %q", noBranch)
	}
	if noBranch == got {
		t.Error("branch must distinguish keys")
	}
}

func TestTreeKey(t *testing.T) {
	f := newFixture(t)
	got := f.svc.TreeKey(RepoRequest{Owner: "octo", Repo: "widgets"})
	if got != "graph-branch:|depth:4|owner:octo|repo:widgets" {
		t.Errorf("TreeKey() = %q", got)
	}
	if f.svc.TreeKey(RepoRequest{Owner: "octo", Repo: "widgets", Depth: 99}) != "graph-branch:|depth:10|owner:octo|repo:widgets" {
		t.Error("depth should be clamped before keying")
	}
}

func TestLoadRepo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	data, err := f.svc.LoadRepo(ctx, RepoRequest{Owner: "octo", Repo: "widgets"})
	if err != nil {
		t.Fatalf("LoadRepo failed: %v", err)
	}
	if data.Readme != "# widgets" || data.Branch != DefaultBranchLabel || len(data.Files) != 2 {
		t.Errorf("LoadRepo() = %+v", data)
	}
	if f.source.gotDepth.Load() != 4 {
		t.Errorf("depth = %d, want default 4", f.source.gotDepth.Load())
	}

	again, err := f.svc.LoadRepo(ctx, RepoRequest{Owner: "octo", Repo: "widgets"})
	if err != nil {
		t.Fatalf("second LoadRepo failed: %v", err)
	}
	if f.source.treeCalls.Load() != 1 {
		t.Errorf("tree fetched %d times, want 1 (second call cached)", f.source.treeCalls.Load())
	}
	if len(again.Files[1].Children) != 1 {
		t.Errorf("cached tree lost children: %+v", again.Files)
	}
}

func TestLoadRepoReadmeFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.source.readmeErr = &github.APIError{StatusCode: 404, Message: "Not Found"}

	data, err := f.svc.LoadRepo(context.Background(), RepoRequest{Owner: "o", Repo: "r", Branch: "dev"})
	if err != nil {
		t.Fatalf("LoadRepo failed: %v", err)
	}
	if data.Readme != "" || data.Branch != "dev" {
		t.Errorf("LoadRepo() = %+v", data)
	}
}

func TestLoadRepoErrors(t *testing.T) {
	tests := []struct {
		name    string
		req     RepoRequest
		treeErr error
		want    apperrors.ErrorCode
	}{
		{"missing owner", RepoRequest{Repo: "r"}, nil, apperrors.InvalidParams},
		{"missing repo", RepoRequest{Owner: "o", Repo: "  "}, nil, apperrors.InvalidParams},
		{"not found", RepoRequest{Owner: "o", Repo: "r"}, &github.APIError{StatusCode: 404}, apperrors.NotFound},
		{"rate limited", RepoRequest{Owner: "o", Repo: "r"}, &github.APIError{StatusCode: 403, RateLimited: true}, apperrors.RateLimited},
		{"server error", RepoRequest{Owner: "o", Repo: "r"}, &github.APIError{StatusCode: 502}, apperrors.UpstreamUnavailable},
		{"breaker open", RepoRequest{Owner: "o", Repo: "r"}, gobreaker.ErrOpenState, apperrors.UpstreamUnavailable},
		{"transport", RepoRequest{Owner: "o", Repo: "r"}, errors.New("dial tcp: refused"), apperrors.UpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.source.treeErr = tt.treeErr

			_, err := f.svc.LoadRepo(context.Background(), tt.req)
			if got := apperrors.CodeOf(err); got != tt.want {
				t.Errorf("code = %v, want %v (err %v)", got, tt.want, err)
			}
		})
	}
}

func TestLoadGraph(t *testing.T) {
	f := newFixture(t)

	g, err := f.svc.LoadGraph(context.Background(), RepoRequest{Owner: "o", Repo: "r"})
	if err != nil {
		t.Fatalf("LoadGraph failed: %v", err)
	}
	if len(g.Nodes) != 4 || len(g.Links) != 3 {
		t.Errorf("graph has %d nodes / %d links, want 4/3", len(g.Nodes), len(g.Links))
	}
	if err := graph.Validate(g); err != nil {
		t.Errorf("graph invalid: %v", err)
	}

	g2, _ := f.svc.LoadGraph(context.Background(), RepoRequest{Owner: "o", Repo: "r"})
	if &g.Nodes[0] == &g2.Nodes[0] {
		t.Error("graphs must not be shared between calls")
	}
}

func TestLoadGraphMalformedTree(t *testing.T) {
	f := newFixture(t)
	f.source.files = []graph.RepoFile{{Name: "x", Path: "x", Type: "symlink"}}

	_, err := f.svc.LoadGraph(context.Background(), RepoRequest{Owner: "o", Repo: "r"})
	if apperrors.CodeOf(err) != apperrors.MalformedTree {
		t.Fatalf("err = %v, want MALFORMED_TREE", err)
	}
	if !errors.Is(err, graph.ErrUnknownType) {
		t.Errorf("err should wrap ErrUnknownType: %v", err)
	}
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := SummaryRequest{Owner: "octo", Repo: "widgets", Path: "src/app.ts", Branch: "main"}

	first, err := f.svc.Summary(ctx, req)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if first.Cached || first.Summary != "summary of export const x = 1 on main" {
		t.Errorf("first = %+v", first)
	}

	second, err := f.svc.Summary(ctx, req)
	if err != nil {
		t.Fatalf("second Summary failed: %v", err)
	}
	if !second.Cached || second.Summary != first.Summary {
		t.Errorf("second = %+v, want cached copy", second)
	}
	if f.summarizer.calls.Load() != 1 || f.source.contentCalls.Load() != 1 {
		t.Errorf("upstream calls summarizer=%d content=%d, want 1/1",
			f.summarizer.calls.Load(), f.source.contentCalls.Load())
	}

	other := req
	other.Branch = "dev"
	if r, _ := f.svc.Summary(ctx, other); r == nil || r.Cached {
		t.Error("a different branch must not hit the main-branch entry")
	}
}

func TestSummaryCacheWriteFailureStillReturns(t *testing.T) {
	f := newFixture(t)
	f.store.failSet = true

	res, err := f.svc.Summary(context.Background(), SummaryRequest{Owner: "o", Repo: "r", Path: "src/app.ts"})
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if res.Summary == "" {
		t.Error("summary should be returned even when caching fails")
	}
}

func TestSummaryCacheReadFailureRegenerates(t *testing.T) {
	f := newFixture(t)
	f.store.failGet = true

	res, err := f.svc.Summary(context.Background(), SummaryRequest{Owner: "o", Repo: "r", Path: "src/app.ts"})
	if err != nil || res.Cached {
		t.Fatalf("Summary() = %+v, %v", res, err)
	}
}

func TestSummaryErrors(t *testing.T) {
	tests := []struct {
		name       string
		req        SummaryRequest
		contentErr error
		sumErr     error
		want       apperrors.ErrorCode
	}{
		{"missing path", SummaryRequest{Owner: "o", Repo: "r"}, nil, nil, apperrors.InvalidParams},
		{"missing owner", SummaryRequest{Repo: "r", Path: "p"}, nil, nil, apperrors.InvalidParams},
		{"not a file", SummaryRequest{Owner: "o", Repo: "r", Path: "src"}, github.ErrNotAFile, nil, apperrors.InvalidParams},
		{"no such file", SummaryRequest{Owner: "o", Repo: "r", Path: "nope"}, &github.APIError{StatusCode: 404}, nil, apperrors.NotFound},
		{"summarizer down", SummaryRequest{Owner: "o", Repo: "r", Path: "src/app.ts"}, nil, &summarize.APIError{StatusCode: 500}, apperrors.SummaryUnavailable},
		{"no api key", SummaryRequest{Owner: "o", Repo: "r", Path: "src/app.ts"}, nil, summarize.ErrMissingAPIKey, apperrors.SummaryUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.source.contentErr = tt.contentErr
			f.summarizer.err = tt.sumErr

			_, err := f.svc.Summary(context.Background(), tt.req)
			if got := apperrors.CodeOf(err); got != tt.want {
				t.Errorf("code = %v, want %v (err %v)", got, tt.want, err)
			}
		})
	}
}

func TestSummaryFailureIsNotCached(t *testing.T) {
	f := newFixture(t)
	f.summarizer.err = errors.New("boom")
	req := SummaryRequest{Owner: "o", Repo: "r", Path: "src/app.ts"}

	if _, err := f.svc.Summary(context.Background(), req); err == nil {
		t.Fatal("expected error")
	}
	if _, found, _ := f.store.Get(context.Background(), SummaryKey(req)); found {
		t.Error("failed summary must not be stored")
	}
}

func TestSummaryConcurrentMissesCollapse(t *testing.T) {
	f := newFixture(t)
	f.source.release = make(chan struct{})
	req := SummaryRequest{Owner: "o", Repo: "r", Path: "src/app.ts"}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*SummaryResult, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = f.svc.Summary(context.Background(), req)
		}()
	}

	// Let every caller reach the in-flight fetch before releasing it.
	deadline := time.Now().Add(2 * time.Second)
	for f.source.contentCalls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(f.source.release)
	wg.Wait()

	for i, r := range results {
		if r == nil || r.Summary == "" {
			t.Errorf("caller %d got %+v", i, r)
		}
	}
	if n := f.summarizer.calls.Load(); n != 1 {
		t.Errorf("summarizer called %d times, want 1", n)
	}
}

func TestSummarizeContent(t *testing.T) {
	f := newFixture(t)

	got, err := f.svc.SummarizeContent(context.Background(), "x := 1", "")
	if err != nil || got != "summary of x := 1 on default" {
		t.Errorf("SummarizeContent() = %q, %v", got, err)
	}
	if _, err := f.svc.SummarizeContent(context.Background(), "   ", ""); apperrors.CodeOf(err) != apperrors.InvalidParams {
		t.Errorf("blank content err = %v", err)
	}
}

func TestPassThroughs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := ListRequest{Owner: "o", Repo: "r", State: "open", Page: 2, PerPage: 5}

	page, err := f.svc.Commits(ctx, req)
	if err != nil || page.Page != 2 || page.PerPage != 5 {
		t.Errorf("Commits() = %+v, %v", page, err)
	}
	if c, err := f.svc.Contributors(ctx, "o", "r"); err != nil || len(c) != 1 {
		t.Errorf("Contributors() = %+v, %v", c, err)
	}
	if is, err := f.svc.Issues(ctx, req); err != nil || is[0].State != "open" {
		t.Errorf("Issues() = %+v, %v", is, err)
	}
	if prs, err := f.svc.PullRequests(ctx, req); err != nil || prs[0].State != "open" {
		t.Errorf("PullRequests() = %+v, %v", prs, err)
	}

	f.source.listErr = &github.APIError{StatusCode: 429}
	if _, err := f.svc.Issues(ctx, req); apperrors.CodeOf(err) != apperrors.RateLimited {
		t.Errorf("Issues() err = %v, want RATE_LIMITED", err)
	}
	if _, err := f.svc.Contributors(ctx, "", "r"); apperrors.CodeOf(err) != apperrors.InvalidParams {
		t.Errorf("Contributors() err = %v, want INVALID_PARAMS", err)
	}
}
