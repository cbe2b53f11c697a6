package api

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "repograph/internal/errors"
)

// ErrorResponse represents an HTTP error response
type ErrorResponse struct {
	Error          string                `json:"error"`
	Code           string                `json:"code"`
	Details        interface{}           `json:"details,omitempty"`
	SuggestedFixes []apperrors.FixAction `json:"suggestedFixes,omitempty"`
}

// WriteError writes err with the status derived from its code. Errors
// without a code are reported as a generic internal error.
func WriteError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{
		Error: "Internal server error",
		Code:  string(apperrors.InternalError),
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Error = appErr.Message
		resp.Code = string(appErr.Code)
		resp.Details = appErr.Details
		resp.SuggestedFixes = appErr.SuggestedFixes
	}

	WriteJSON(w, resp, MapErrorToStatus(apperrors.ErrorCode(resp.Code)))
}

// MapErrorToStatus maps error codes to HTTP status codes
func MapErrorToStatus(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.InvalidParams:
		return http.StatusBadRequest // 400
	case apperrors.NotFound:
		return http.StatusNotFound // 404
	case apperrors.MalformedTree:
		return http.StatusUnprocessableEntity // 422
	case apperrors.RateLimited:
		return http.StatusTooManyRequests // 429
	case apperrors.SummaryUnavailable:
		return http.StatusBadGateway // 502
	case apperrors.UpstreamUnavailable:
		return http.StatusServiceUnavailable // 503
	case apperrors.StorageError, apperrors.InternalError:
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// BadRequest writes a 400 INVALID_PARAMS error
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, apperrors.New(apperrors.InvalidParams, message, nil))
}
