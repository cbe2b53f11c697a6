// Package api serves the repository explorer over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"repograph/internal/explorer"
	"repograph/internal/github"
	"repograph/internal/graph"
)

// Explorer is the application service behind the handlers.
type Explorer interface {
	LoadRepo(ctx context.Context, req explorer.RepoRequest) (*explorer.RepoData, error)
	LoadGraph(ctx context.Context, req explorer.RepoRequest) (*graph.GraphData, error)
	Summary(ctx context.Context, req explorer.SummaryRequest) (*explorer.SummaryResult, error)
	SummarizeContent(ctx context.Context, content, branch string) (string, error)
	Commits(ctx context.Context, req explorer.ListRequest) (*github.CommitPage, error)
	Contributors(ctx context.Context, owner, repo string) ([]github.Contributor, error)
	Issues(ctx context.Context, req explorer.ListRequest) ([]github.Issue, error)
	PullRequests(ctx context.Context, req explorer.ListRequest) ([]github.PullRequest, error)
}

// ServerOptions tune the HTTP server. Zero values fall back to defaults.
type ServerOptions struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	Gzip           bool
	// Metrics enables request metrics and serves them at MetricsPath.
	Metrics     *Metrics
	MetricsPath string
}

// Server represents the HTTP API server
type Server struct {
	router   *http.ServeMux
	server   *http.Server
	addr     string
	logger   *slog.Logger
	explorer Explorer
	validate *requestValidator
	opts     ServerOptions
	routes   map[string]bool
}

// NewServer creates a new HTTP server instance
func NewServer(exp Explorer, opts ServerOptions, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		// Summaries wait on the language model, which is slow.
		opts.WriteTimeout = 90 * time.Second
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	s := &Server{
		addr:     opts.Addr,
		logger:   logger,
		explorer: exp,
		router:   http.NewServeMux(),
		validate: newRequestValidator(),
		opts:     opts,
		routes:   make(map[string]bool),
	}

	s.registerRoutes()

	handler := s.applyMiddleware(s.router)
	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server shut down successfully")
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

// applyMiddleware wraps the handler with middleware in the correct order
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	// Apply middleware in reverse order (last one wraps first)
	handler = RecoveryMiddleware(s.logger)(handler)
	if s.opts.Gzip {
		handler = GzipMiddleware()(handler)
	}
	if s.opts.Metrics != nil {
		handler = MetricsMiddleware(s.opts.Metrics, s.routes)(handler)
	}
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware()(handler)
	handler = CORSMiddleware(s.opts.AllowedOrigins)(handler)
	return handler
}
