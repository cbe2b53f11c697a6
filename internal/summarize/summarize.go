// Package summarize produces short natural-language explanations of source
// files using the Gemini generateContent API.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"repograph/internal/version"
)

// Defaults applied by NewGeminiClient for zero Config fields.
const (
	DefaultBaseURL         = "https://generativelanguage.googleapis.com"
	DefaultModel           = "gemini-2.0-flash"
	DefaultTimeout         = 60 * time.Second
	DefaultMaxContentBytes = 200_000
)

var (
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("missing GEMINI_API_KEY")
	// ErrUnexpectedResponse is returned when the reply has no candidate text.
	ErrUnexpectedResponse = errors.New("unexpected Gemini response format")
	// ErrEmptyContent is returned for blank input.
	ErrEmptyContent = errors.New("missing content")
)

const truncationMarker = "\n\n[... file truncated ...]"

// Summarizer turns file content into a summary.
type Summarizer interface {
	Summarize(ctx context.Context, content, branch string) (string, error)
}

// Config configures a GeminiClient.
type Config struct {
	BaseURL         string
	Model           string
	APIKey          string
	Timeout         time.Duration
	MaxContentBytes int
	HTTPClient      *http.Client
}

// GeminiClient implements Summarizer against the Gemini REST API.
type GeminiClient struct {
	baseURL  string
	model    string
	apiKey   string
	maxBytes int
	http     *http.Client
	logger   *slog.Logger
}

// NewGeminiClient creates a new client.
func NewGeminiClient(cfg Config, logger *slog.Logger) *GeminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxContentBytes <= 0 {
		cfg.MaxContentBytes = DefaultMaxContentBytes
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &GeminiClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		maxBytes: cfg.MaxContentBytes,
		http:     httpClient,
		logger:   logger,
	}
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string { return c.model }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Summarize asks the model for a summary of src. Input longer than the
// configured limit is cut on a rune boundary and marked as truncated.
func (c *GeminiClient) Summarize(ctx context.Context, src, branch string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	if strings.TrimSpace(src) == "" {
		return "", ErrEmptyContent
	}

	if truncated, ok := Truncate(src, c.maxBytes); ok {
		c.logger.Debug("Truncating content for summary", "bytes", len(src), "limit", c.maxBytes)
		src = truncated + truncationMarker
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: Prompt(src, branch)}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		// The URL carries the key; keep it out of the error.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return "", fmt.Errorf("failed to read gemini response: %w", err)
	}

	var parsed generateResponse
	jsonErr := json.Unmarshal(data, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		if jsonErr == nil && parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if jsonErr != nil {
		return "", fmt.Errorf("%w: %v", ErrUnexpectedResponse, jsonErr)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 ||
		parsed.Candidates[0].Content.Parts[0].Text == "" {
		return "", ErrUnexpectedResponse
	}

	c.logger.Debug("Summary generated", "model", c.model, "duration", time.Since(start))
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// APIError is a non-2xx answer from the model API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini error %d: %s", e.StatusCode, e.Message)
}

// Truncate cuts s to at most max bytes without splitting a rune. The bool
// reports whether anything was removed.
func Truncate(s string, max int) (string, bool) {
	if max <= 0 || len(s) <= max {
		return s, false
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}

// Prompt renders the instruction sent with every file.
func Prompt(src, branch string) string {
	if branch == "" {
		branch = "default"
	}
	var b strings.Builder
	b.WriteString("You are an expert senior software engineer. Summarize this code file clearly and briefly, ")
	b.WriteString("like you are explaining it to a junior developer who is new to the project and the codebase ")
	b.WriteString("is large and complex and they are not familiar with the code.\n\n")
	b.WriteString("Keep the tone of your response friendly and subtle, like you are helping a friend.\n\n")
	b.WriteString("1. What is the purpose of this file?\n")
	b.WriteString("2. What are the main functions/classes/components?\n")
	b.WriteString("3. What modules/libraries does it depend on?\n")
	b.WriteString("4. Mention any tricky logic or patterns used.\n")
	b.WriteString("5. The file is from the branch: ")
	b.WriteString(branch)
	b.WriteString(".\n")
	b.WriteString("Here is the code:\n\n")
	b.WriteString(src)
	return b.String()
}
