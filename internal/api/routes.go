package api

import (
	"net/http"
	"strings"
)

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.handle("GET /health", s.handleHealth)

	// Repository listing and graph
	s.handle("GET /api/fetchRepo", s.handleFetchRepo)
	s.handle("GET /api/graph", s.handleGraph)

	// Pass-through listings
	s.handle("GET /api/fetchCommits", s.handleFetchCommits)
	s.handle("GET /api/fetchContributors", s.handleFetchContributors)
	s.handle("GET /api/fetchIssues", s.handleFetchIssues)
	s.handle("GET /api/fetchPullRequests", s.handleFetchPullRequests)

	// Summaries
	s.handle("POST /api/fileContents", s.handleFileContents)
	s.handle("POST /api/summarize", s.handleSummarize)

	if s.opts.Metrics != nil {
		s.router.Handle("GET "+s.opts.MetricsPath, s.opts.Metrics.Handler())
		s.routes[s.opts.MetricsPath] = true
	}
}

// handle registers a method-qualified pattern and remembers its path as a
// metrics route label.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.router.HandleFunc(pattern, h)
	if _, path, ok := strings.Cut(pattern, " "); ok {
		s.routes[path] = true
	}
}
