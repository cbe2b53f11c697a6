package explorer

import (
	"context"
	"errors"

	"github.com/sony/gobreaker"

	apperrors "repograph/internal/errors"
	"repograph/internal/github"
	"repograph/internal/graph"
	"repograph/internal/summarize"
)

// upstreamError classifies a repository host failure.
func upstreamError(what string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, github.ErrNotAFile) {
		return apperrors.New(apperrors.InvalidParams, what+": path is not a file", err)
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.New(apperrors.UpstreamUnavailable, what+": GitHub is temporarily unavailable", err)
	}

	var apiErr *github.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsNotFound():
			return apperrors.New(apperrors.NotFound, what+": not found", err)
		case apiErr.IsRateLimited():
			return apperrors.New(apperrors.RateLimited, what+": GitHub rate limit exceeded", err)
		case apiErr.IsServerError(), apiErr.IsUnauthorized():
			return apperrors.New(apperrors.UpstreamUnavailable, what+": GitHub request failed", err)
		default:
			return apperrors.New(apperrors.InvalidParams, what+": "+apiErr.Message, err)
		}
	}
	return apperrors.New(apperrors.UpstreamUnavailable, what+": GitHub unreachable", err)
}

// summaryError classifies a summarizer failure.
func summaryError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, summarize.ErrEmptyContent) {
		return apperrors.New(apperrors.InvalidParams, "Missing content", err)
	}
	return apperrors.New(apperrors.SummaryUnavailable, "summary could not be generated", err)
}

// treeError reports a listing that cannot be turned into a graph.
func treeError(err error) error {
	appErr := apperrors.New(apperrors.MalformedTree, "repository listing is not a tree", err)
	var se *graph.StructureError
	if errors.As(err, &se) {
		appErr.WithDetails(map[string]any{"path": se.Path, "depth": se.Depth})
	}
	return appErr
}
