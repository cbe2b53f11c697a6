// Package github is a small client for the parts of the GitHub REST API
// that repograph proxies: repository contents, README, commits,
// contributors, issues and pull requests.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"repograph/internal/version"
)

// Defaults applied by NewClient for zero Config fields.
const (
	DefaultBaseURL        = "https://api.github.com"
	DefaultTimeout        = 15 * time.Second
	DefaultMaxConcurrency = 8
	DefaultMaxRetries     = 2
	DefaultRetryBaseDelay = 250 * time.Millisecond
	DefaultMaxBodySize    = 10 * 1024 * 1024
)

// RequestObserver is notified once per upstream call. outcome is the HTTP
// status code, "error" for transport failures or "rejected" when the
// circuit breaker refused the call.
type RequestObserver interface {
	ObserveUpstream(endpoint, outcome string, elapsed time.Duration)
}

// Config configures a Client.
type Config struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxConcurrency int
	MaxRetries     int
	RetryBaseDelay time.Duration

	// Breaker settings. Zero values select the defaults in breakerSettings.
	BreakerMinRequests uint32
	BreakerFailRatio   float64
	BreakerOpenTimeout time.Duration

	Observer   RequestObserver
	HTTPClient *http.Client
}

// Client talks to the GitHub REST API through a circuit breaker.
type Client struct {
	baseURL        string
	token          string
	http           *http.Client
	breaker        *gobreaker.CircuitBreaker
	logger         *slog.Logger
	observer       RequestObserver
	maxConcurrency int
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewClient creates a new client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		token:          cfg.Token,
		http:           httpClient,
		breaker:        gobreaker.NewCircuitBreaker(breakerSettings(cfg, logger)),
		logger:         logger,
		observer:       cfg.Observer,
		maxConcurrency: cfg.MaxConcurrency,
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
	}
}

func breakerSettings(cfg Config, logger *slog.Logger) gobreaker.Settings {
	minRequests := cfg.BreakerMinRequests
	if minRequests == 0 {
		minRequests = 5
	}
	ratio := cfg.BreakerFailRatio
	if ratio <= 0 {
		ratio = 0.6
	}
	timeout := cfg.BreakerOpenTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return gobreaker.Settings{
		Name:        "github",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		// 4xx answers mean the upstream is healthy.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if errors.Is(err, context.Canceled) {
				return true
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return !apiErr.IsServerError()
			}
			return false
		},
	}
}

// BreakerState reports the current circuit breaker state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// get fetches path and decodes the JSON body into out. The whole call,
// retries included, counts as one breaker request.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	start := time.Now()
	body, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doWithRetry(ctx, path, query)
	})
	c.observe(endpoint, err, start)
	if err != nil {
		return err
	}

	data := body.([]byte)
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) observe(endpoint string, err error, start time.Time) {
	if c.observer == nil {
		return
	}
	outcome := "200"
	var apiErr *APIError
	switch {
	case err == nil:
	case errors.As(err, &apiErr):
		outcome = strconv.Itoa(apiErr.StatusCode)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "rejected"
	default:
		outcome = "error"
	}
	c.observer.ObserveUpstream(endpoint, outcome, time.Since(start))
}

// doWithRetry performs a GET, retrying transport errors and 5xx responses
// with exponential backoff. 4xx responses are returned immediately.
func (c *Client) doWithRetry(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryBaseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			c.logger.Debug("Retrying GitHub request", "attempt", attempt+1, "path", path)
		}

		data, err := c.do(ctx, u)
		if err == nil {
			return data, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.IsServerError() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", version.UserAgent())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, DefaultMaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, newAPIError(resp, data)
	}
	return data, nil
}

func repoPath(owner, repo string) string {
	return "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
}

// contentsPath escapes each segment of a repository path separately so
// the slashes survive.
func contentsPath(owner, repo, p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return repoPath(owner, repo) + "/contents/"
	}
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return repoPath(owner, repo) + "/contents/" + strings.Join(segs, "/")
}

func refQuery(branch string) url.Values {
	q := url.Values{}
	if branch != "" {
		q.Set("ref", branch)
	}
	return q
}
