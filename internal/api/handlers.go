package api

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	apperrors "repograph/internal/errors"
	"repograph/internal/explorer"
	"repograph/internal/github"
	"repograph/internal/version"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// ContributorsResponse wraps the contributor list.
type ContributorsResponse struct {
	Contributors []github.Contributor `json:"contributors"`
}

// IssuesResponse wraps one page of issues.
type IssuesResponse struct {
	Issues []github.Issue `json:"issues"`
}

// PullRequestsResponse wraps one page of pull requests.
type PullRequestsResponse struct {
	PullRequests []github.PullRequest `json:"pullRequests"`
}

// SummarizeResponse is the answer to a raw-content summary.
type SummarizeResponse struct {
	Summary string `json:"summary"`
}

// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Info(),
	}, http.StatusOK)
}

// GET /api/fetchRepo?owner=&repo=&branch=&depth=
func (s *Server) handleFetchRepo(w http.ResponseWriter, r *http.Request) {
	q, err := s.validate.parseRepoQuery(r.URL.Query())
	if err != nil {
		WriteError(w, err)
		return
	}

	data, err := s.explorer.LoadRepo(r.Context(), explorer.RepoRequest{
		Owner:  q.Owner,
		Repo:   q.Repo,
		Branch: q.Branch,
		Depth:  q.Depth,
	})
	if err != nil {
		s.writeServiceError(w, r, "fetchRepo", err)
		return
	}
	WriteJSON(w, data, http.StatusOK)
}

// GET /api/graph?owner=&repo=&branch=&depth=
//
// The body is fingerprinted with BLAKE2b; a matching If-None-Match gets 304.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	q, err := s.validate.parseRepoQuery(r.URL.Query())
	if err != nil {
		WriteError(w, err)
		return
	}

	g, err := s.explorer.LoadGraph(r.Context(), explorer.RepoRequest{
		Owner:  q.Owner,
		Repo:   q.Repo,
		Branch: q.Branch,
		Depth:  q.Depth,
	})
	if err != nil {
		s.writeServiceError(w, r, "graph", err)
		return
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(g); err != nil {
		WriteError(w, apperrors.New(apperrors.InternalError, "Internal server error", err))
		return
	}

	etag := graphETag(buf.Bytes())
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// GET /api/fetchCommits?owner=&repo=&branch=&page=&per_page=
func (s *Server) handleFetchCommits(w http.ResponseWriter, r *http.Request) {
	q, err := s.validate.parseListQuery(r.URL.Query())
	if err != nil {
		WriteError(w, err)
		return
	}

	page, err := s.explorer.Commits(r.Context(), q.request())
	if err != nil {
		s.writeServiceError(w, r, "fetchCommits", err)
		return
	}
	WriteJSON(w, page, http.StatusOK)
}

// GET /api/fetchContributors?owner=&repo=
func (s *Server) handleFetchContributors(w http.ResponseWriter, r *http.Request) {
	q, err := s.validate.parseListQuery(r.URL.Query())
	if err != nil {
		WriteError(w, err)
		return
	}

	list, err := s.explorer.Contributors(r.Context(), q.Owner, q.Repo)
	if err != nil {
		s.writeServiceError(w, r, "fetchContributors", err)
		return
	}
	WriteJSON(w, ContributorsResponse{Contributors: list}, http.StatusOK)
}

// GET /api/fetchIssues?owner=&repo=&state=&page=&per_page=
func (s *Server) handleFetchIssues(w http.ResponseWriter, r *http.Request) {
	q, err := s.validate.parseListQuery(r.URL.Query())
	if err != nil {
		WriteError(w, err)
		return
	}

	list, err := s.explorer.Issues(r.Context(), q.request())
	if err != nil {
		s.writeServiceError(w, r, "fetchIssues", err)
		return
	}
	WriteJSON(w, IssuesResponse{Issues: list}, http.StatusOK)
}

// GET /api/fetchPullRequests?owner=&repo=&state=&page=&per_page=
func (s *Server) handleFetchPullRequests(w http.ResponseWriter, r *http.Request) {
	q, err := s.validate.parseListQuery(r.URL.Query())
	if err != nil {
		WriteError(w, err)
		return
	}

	list, err := s.explorer.PullRequests(r.Context(), q.request())
	if err != nil {
		s.writeServiceError(w, r, "fetchPullRequests", err)
		return
	}
	WriteJSON(w, PullRequestsResponse{PullRequests: list}, http.StatusOK)
}

// POST /api/fileContents {owner, repo, path, branch}
func (s *Server) handleFileContents(w http.ResponseWriter, r *http.Request) {
	var body fileContentsBody
	if err := s.validate.decodeBody(w, r, &body); err != nil {
		WriteError(w, err)
		return
	}

	res, err := s.explorer.Summary(r.Context(), explorer.SummaryRequest{
		Owner:  body.Owner,
		Repo:   body.Repo,
		Path:   body.Path,
		Branch: body.Branch,
	})
	if err != nil {
		s.writeServiceError(w, r, "fileContents", err)
		return
	}
	WriteJSON(w, res, http.StatusOK)
}

// POST /api/summarize {content, branch}
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var body summarizeBody
	if err := s.validate.decodeBody(w, r, &body); err != nil {
		WriteError(w, err)
		return
	}

	summary, err := s.explorer.SummarizeContent(r.Context(), body.Content, body.Branch)
	if err != nil {
		s.writeServiceError(w, r, "summarize", err)
		return
	}
	WriteJSON(w, SummarizeResponse{Summary: summary}, http.StatusOK)
}

// writeServiceError logs server-side failures before writing them. Client
// errors are not logged; the request log already has their status.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if status := MapErrorToStatus(apperrors.CodeOf(err)); status >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			"op", op,
			"code", string(apperrors.CodeOf(err)),
			"error", err.Error(),
			"requestID", GetRequestID(r.Context()),
		)
	}
	WriteError(w, err)
}

func (q *listQuery) request() explorer.ListRequest {
	return explorer.ListRequest{
		Owner:   q.Owner,
		Repo:    q.Repo,
		Branch:  q.Branch,
		State:   q.State,
		Page:    q.Page,
		PerPage: q.PerPage,
	}
}

// graphETag is a strong validator over the encoded graph.
func graphETag(body []byte) string {
	sum := blake2b.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// etagMatches reports whether an If-None-Match header names etag.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
