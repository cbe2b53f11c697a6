package explorer

import (
	"context"

	"repograph/internal/github"
	"repograph/internal/graph"
)

// DefaultBranchLabel stands in for an unspecified branch in responses.
const DefaultBranchLabel = "default"

// RepoSource is the upstream repository host.
type RepoSource interface {
	FetchTree(ctx context.Context, owner, repo, branch string, depth int) ([]graph.RepoFile, error)
	Readme(ctx context.Context, owner, repo, branch string) (string, error)
	FileContent(ctx context.Context, owner, repo, path, branch string) (string, error)
	ListCommits(ctx context.Context, owner, repo, branch string, opts github.PageOptions) (*github.CommitPage, error)
	ListContributors(ctx context.Context, owner, repo string) ([]github.Contributor, error)
	ListIssues(ctx context.Context, owner, repo, state string, opts github.PageOptions) ([]github.Issue, error)
	ListPullRequests(ctx context.Context, owner, repo, state string, opts github.PageOptions) ([]github.PullRequest, error)
}

// RepoRequest identifies a repository listing.
type RepoRequest struct {
	Owner  string
	Repo   string
	Branch string
	Depth  int
}

// RepoData is a fetched repository listing. It is what the graph cache stores.
type RepoData struct {
	Readme string           `json:"readme"`
	Files  []graph.RepoFile `json:"files"`
	Branch string           `json:"branch"`
}

// SummaryRequest identifies one file to summarize.
type SummaryRequest struct {
	Owner  string
	Repo   string
	Path   string
	Branch string
}

// SummaryResult is a summary and whether it came from the cache.
type SummaryResult struct {
	Summary string `json:"summary"`
	Cached  bool   `json:"cached"`
}

// ListRequest selects a page of commits, issues or pull requests.
type ListRequest struct {
	Owner   string
	Repo    string
	Branch  string
	State   string
	Page    int
	PerPage int
}

func (r ListRequest) pageOptions() github.PageOptions {
	return github.PageOptions{Page: r.Page, PerPage: r.PerPage}
}
