package handler

// Every error response has the same shape:
//
//	{"error": "not_found", "message": "portfolio not found: octocat"}
//
// writeError is the only place a domain error becomes an HTTP status.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/gitfolio/internal/apperror"
)

// maxBodyBytes bounds request bodies; every payload here is a handful of fields.
const maxBodyBytes = 64 << 10

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable type, e.g. "not_found"
	Message string `json:"message"` // human-readable description
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status and writes the envelope.
// Store and unknown errors are logged and answered with a generic message so
// SQL or driver details never reach the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		slog.Error("unhandled error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status := http.StatusInternalServerError
	errorType := "internal_error"
	message := appErr.Message

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
		errorType = "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		status = http.StatusUnauthorized
		errorType = "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
		errorType = "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
		errorType = "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
		errorType = "conflict"
	case errors.Is(err, apperror.ErrUpstream):
		status = http.StatusBadGateway
		errorType = "upstream_error"
	case errors.Is(err, apperror.ErrStore):
		errorType = "store_error"
		message = "A storage error occurred"
		slog.Error("store error", slog.String("error", err.Error()))
	default:
		message = "An internal error occurred"
		slog.Error("unhandled application error", slog.String("error", err.Error()))
	}

	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: message,
	})
}

// decodeJSON reads a JSON body into dst. Malformed or oversized bodies are a
// validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed("body", "request body is required")
		}
		return apperror.ValidationFailed("body", "request body is not valid JSON")
	}
	return nil
}
