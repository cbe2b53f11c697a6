package github

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// contentEntry is one element of a /contents listing.
type contentEntry struct {
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	SHA         string  `json:"sha"`
	Size        int64   `json:"size"`
	HTMLURL     string  `json:"html_url"`
	DownloadURL *string `json:"download_url"`
	Content     string  `json:"content,omitempty"`
	Encoding    string  `json:"encoding,omitempty"`
}

// User is the trimmed author of an issue or pull request.
type User struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// Label is an issue or pull request label.
type Label struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
}

// Commit is one entry of a commit history page.
type Commit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	Author  string `json:"author,omitempty"`
	Date    string `json:"date,omitempty"`
	URL     string `json:"url"`
	Avatar  string `json:"avatar,omitempty"`
}

// CommitPage is a page of history plus a next-page hint. HasNextPage is
// true when the page came back full, so the last page may be followed by
// one empty page.
type CommitPage struct {
	Commits     []Commit `json:"commits"`
	Page        int      `json:"page"`
	PerPage     int      `json:"per_page"`
	HasNextPage bool     `json:"hasNextPage"`
}

// Contributor is a repository contributor with a contribution count.
type Contributor struct {
	Login         string `json:"login"`
	AvatarURL     string `json:"avatar_url"`
	Contributions int    `json:"contributions"`
	HTMLURL       string `json:"html_url"`
}

// Issue is a trimmed issue.
type Issue struct {
	ID        int64   `json:"id"`
	Number    int     `json:"number"`
	Title     string  `json:"title"`
	State     string  `json:"state"`
	CreatedAt string  `json:"created_at"`
	User      User    `json:"user"`
	Comments  int     `json:"comments"`
	URL       string  `json:"url"`
	Labels    []Label `json:"labels"`
}

// PullRequest is a trimmed pull request.
type PullRequest struct {
	ID        int64   `json:"id"`
	Number    int     `json:"number"`
	Title     string  `json:"title"`
	State     string  `json:"state"`
	CreatedAt string  `json:"created_at"`
	User      User    `json:"user"`
	URL       string  `json:"url"`
	Merged    bool    `json:"merged"`
	Labels    []Label `json:"labels"`
	Draft     bool    `json:"draft"`
}

// Issue and pull request state filters.
const (
	StateAll    = "all"
	StateOpen   = "open"
	StateClosed = "closed"
)

// NormalizeState maps anything other than open or closed to all.
func NormalizeState(s string) string {
	switch s {
	case StateOpen, StateClosed:
		return s
	default:
		return StateAll
	}
}

// APIError represents a non-2xx response from the GitHub API.
type APIError struct {
	StatusCode int
	Message    string
	// RateLimited is set for 429s and for 403s with an exhausted quota.
	RateLimited bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if the error is a 404 not found error.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized returns true if the error is a 401 unauthorized error.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsRateLimited returns true when the request was rejected for quota reasons.
func (e *APIError) IsRateLimited() bool {
	return e.RateLimited || e.StatusCode == http.StatusTooManyRequests
}

// IsServerError returns true for 5xx responses.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	var msg string
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		msg = payload.Message
	} else {
		msg = strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
	}
	limited := resp.StatusCode == http.StatusTooManyRequests ||
		(resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0")
	return &APIError{StatusCode: resp.StatusCode, Message: msg, RateLimited: limited}
}
