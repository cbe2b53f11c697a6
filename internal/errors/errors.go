package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// InvalidParams indicates a missing or malformed request parameter
	InvalidParams ErrorCode = "INVALID_PARAMS"
	// NotFound indicates the repository, branch or path does not exist upstream
	NotFound ErrorCode = "NOT_FOUND"
	// UpstreamUnavailable indicates the repository host could not be reached or its breaker is open
	UpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	// RateLimited indicates the repository host rejected the request for quota reasons
	RateLimited ErrorCode = "RATE_LIMITED"
	// SummaryUnavailable indicates the summarization service failed
	SummaryUnavailable ErrorCode = "SUMMARY_UNAVAILABLE"
	// MalformedTree indicates a file listing that cannot be turned into a graph
	MalformedTree ErrorCode = "MALFORMED_TREE"
	// StorageError indicates the cache store failed
	StorageError ErrorCode = "STORAGE_ERROR"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// SetEnv suggests exporting an environment variable
	SetEnv FixActionType = "set-env"
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// Retry suggests retrying later
	Retry FixActionType = "retry"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Variable    string        `json:"variable,omitempty"`
	Description string        `json:"description,omitempty"`
}

// AppError represents an error with a stable code, message, and suggestions
type AppError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new AppError with the default suggestions for code
func New(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first AppError in err's chain, or
// InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return InternalError
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	RateLimited: {
		{
			Type:        SetEnv,
			Variable:    "GITHUB_TOKEN",
			Description: "Authenticated requests get a higher rate limit",
		},
		{
			Type:        Retry,
			Description: "Retry after the rate limit window resets",
		},
	},
	UpstreamUnavailable: {
		{
			Type:        Retry,
			Description: "The circuit breaker closes again after its timeout",
		},
	},
	SummaryUnavailable: {
		{
			Type:        SetEnv,
			Variable:    "GEMINI_API_KEY",
			Description: "Summaries need an API key for the summarization service",
		},
	},
	StorageError: {
		{
			Type:        RunCommand,
			Command:     "repograph config show",
			Description: "Check the cache backend settings",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
