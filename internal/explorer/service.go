// Package explorer implements the repository explorer operations: loading
// trees and graphs, summarizing files and proxying repository activity.
package explorer

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"repograph/internal/cache"
	"repograph/internal/cachekey"
	apperrors "repograph/internal/errors"
	"repograph/internal/github"
	"repograph/internal/graph"
	"repograph/internal/summarize"
)

// SummaryVersion is part of every summary key. Bump it when the prompt
// changes so old summaries stop matching.
const SummaryVersion = "1"

// Service coordinates the upstream source, the summarizer and the caches.
type Service struct {
	source     RepoSource
	summarizer summarize.Summarizer
	summaries  *cache.Cache[string]
	trees      *cache.Cache[RepoData]
	logger     *slog.Logger

	defaultDepth  int
	maxDepth      int
	graphMaxDepth int

	flight singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithTreeCache caches fetched listings. Without it every LoadRepo goes upstream.
func WithTreeCache(c *cache.Cache[RepoData]) Option {
	return func(s *Service) { s.trees = c }
}

// WithDepthLimits sets the default and maximum fetch depth.
func WithDepthLimits(defaultDepth, maxDepth int) Option {
	return func(s *Service) {
		s.defaultDepth = defaultDepth
		s.maxDepth = maxDepth
	}
}

// WithGraphMaxDepth bounds the nesting accepted by graph.Build.
func WithGraphMaxDepth(depth int) Option {
	return func(s *Service) { s.graphMaxDepth = depth }
}

// New creates a service. summaries must not be nil.
func New(source RepoSource, summarizer summarize.Summarizer, summaries *cache.Cache[string], opts ...Option) *Service {
	s := &Service{
		source:        source,
		summarizer:    summarizer,
		summaries:     summaries,
		defaultDepth:  github.DefaultTreeDepth,
		maxDepth:      github.MaxTreeDepth,
		graphMaxDepth: graph.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

func missingOwnerOrRepo(owner, repo string) error {
	if strings.TrimSpace(owner) == "" || strings.TrimSpace(repo) == "" {
		return apperrors.New(apperrors.InvalidParams, "Missing owner or repo", nil)
	}
	return nil
}

func (s *Service) depth(requested int) int {
	if requested <= 0 {
		return s.defaultDepth
	}
	if requested > s.maxDepth {
		return s.maxDepth
	}
	return requested
}

// TreeKey is the graph cache key of a listing.
func (s *Service) TreeKey(req RepoRequest) string {
	return cachekey.Params{}.
		Set("owner", req.Owner).
		Set("repo", req.Repo).
		Set("branch", req.Branch).
		Set("depth", strconv.Itoa(s.depth(req.Depth))).
		Key(cachekey.Graph)
}

// SummaryKey is the summary cache key of a file.
func SummaryKey(req SummaryRequest) string {
	return cachekey.Params{}.
		Set("owner", req.Owner).
		Set("repo", req.Repo).
		Set("path", req.Path).
		Set("branch", req.Branch).
		Set("version", SummaryVersion).
		Key(cachekey.Summary)
}

// LoadRepo returns the listing and README of a repository. A missing
// README is not an error.
func (s *Service) LoadRepo(ctx context.Context, req RepoRequest) (*RepoData, error) {
	if err := missingOwnerOrRepo(req.Owner, req.Repo); err != nil {
		return nil, err
	}
	key := s.TreeKey(req)

	if s.trees != nil {
		data, found, err := s.trees.Get(ctx, key)
		if err != nil {
			s.logger.Warn("Tree cache read failed, fetching upstream", "key", key, "error", err)
		} else if found {
			s.logger.Debug("Tree cache hit", "key", key)
			return &data, nil
		}
	}

	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		fctx := context.WithoutCancel(ctx)
		files, err := s.source.FetchTree(fctx, req.Owner, req.Repo, req.Branch, s.depth(req.Depth))
		if err != nil {
			return nil, upstreamError("fetching repository contents", err)
		}

		readme, err := s.source.Readme(fctx, req.Owner, req.Repo, req.Branch)
		if err != nil {
			s.logger.Info("README unavailable", "owner", req.Owner, "repo", req.Repo, "error", err)
			readme = ""
		}

		branch := req.Branch
		if branch == "" {
			branch = DefaultBranchLabel
		}
		if files == nil {
			files = []graph.RepoFile{}
		}
		data := RepoData{Readme: readme, Files: files, Branch: branch}

		if s.trees != nil {
			if err := s.trees.Set(fctx, key, data); err != nil {
				s.logger.Warn("Failed to cache repository tree", "key", key, "error", err)
			}
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	data := v.(RepoData)
	return &data, nil
}

// LoadGraph loads the repository and builds a fresh graph from it. Graphs
// are never cached or shared between calls.
func (s *Service) LoadGraph(ctx context.Context, req RepoRequest) (*graph.GraphData, error) {
	data, err := s.LoadRepo(ctx, req)
	if err != nil {
		return nil, err
	}
	g, err := graph.Build(data.Files, graph.WithMaxDepth(s.graphMaxDepth))
	if err != nil {
		return nil, treeError(err)
	}
	return g, nil
}

// Summary returns the summary of one file, from the cache when a live
// entry exists. Concurrent misses for the same key share one upstream
// round trip. A failed cache write is logged and the summary still returned.
func (s *Service) Summary(ctx context.Context, req SummaryRequest) (*SummaryResult, error) {
	if err := missingOwnerOrRepo(req.Owner, req.Repo); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Path) == "" {
		return nil, apperrors.New(apperrors.InvalidParams, "Missing required params", nil)
	}
	key := SummaryKey(req)

	text, found, err := s.summaries.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Summary cache read failed, regenerating", "key", key, "error", err)
	} else if found {
		return &SummaryResult{Summary: text, Cached: true}, nil
	}

	v, err, shared := s.flight.Do(key, func() (interface{}, error) {
		fctx := context.WithoutCancel(ctx)
		content, err := s.source.FileContent(fctx, req.Owner, req.Repo, req.Path, req.Branch)
		if err != nil {
			return nil, upstreamError("fetching file content", err)
		}

		summary, err := s.summarizer.Summarize(fctx, content, req.Branch)
		if err != nil {
			return nil, summaryError(err)
		}

		if err := s.summaries.Set(fctx, key, summary); err != nil {
			s.logger.Warn("Failed to cache summary", "key", key, "error", err)
		}
		return summary, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("Summary request joined an in-flight fetch", "key", key)
	}
	return &SummaryResult{Summary: v.(string)}, nil
}

// SummarizeContent summarizes caller-supplied content. Nothing is cached.
func (s *Service) SummarizeContent(ctx context.Context, content, branch string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", apperrors.New(apperrors.InvalidParams, "Missing content", nil)
	}
	summary, err := s.summarizer.Summarize(ctx, content, branch)
	if err != nil {
		return "", summaryError(err)
	}
	return summary, nil
}

// Commits returns one page of commit history.
func (s *Service) Commits(ctx context.Context, req ListRequest) (*github.CommitPage, error) {
	if err := missingOwnerOrRepo(req.Owner, req.Repo); err != nil {
		return nil, err
	}
	page, err := s.source.ListCommits(ctx, req.Owner, req.Repo, req.Branch, req.pageOptions())
	if err != nil {
		return nil, upstreamError("fetching commits", err)
	}
	return page, nil
}

// Contributors returns the top contributors.
func (s *Service) Contributors(ctx context.Context, owner, repo string) ([]github.Contributor, error) {
	if err := missingOwnerOrRepo(owner, repo); err != nil {
		return nil, err
	}
	list, err := s.source.ListContributors(ctx, owner, repo)
	if err != nil {
		return nil, upstreamError("fetching contributors", err)
	}
	return list, nil
}

// Issues returns one page of issues.
func (s *Service) Issues(ctx context.Context, req ListRequest) ([]github.Issue, error) {
	if err := missingOwnerOrRepo(req.Owner, req.Repo); err != nil {
		return nil, err
	}
	list, err := s.source.ListIssues(ctx, req.Owner, req.Repo, req.State, req.pageOptions())
	if err != nil {
		return nil, upstreamError("fetching issues", err)
	}
	return list, nil
}

// PullRequests returns one page of pull requests.
func (s *Service) PullRequests(ctx context.Context, req ListRequest) ([]github.PullRequest, error) {
	if err := missingOwnerOrRepo(req.Owner, req.Repo); err != nil {
		return nil, err
	}
	list, err := s.source.ListPullRequests(ctx, req.Owner, req.Repo, req.State, req.pageOptions())
	if err != nil {
		return nil, upstreamError("fetching pull requests", err)
	}
	return list, nil
}
