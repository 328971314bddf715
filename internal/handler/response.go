package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError, so success bodies and
// error bodies have one shape across the API:
//
//	{"error": "validation_error", "message": "...", "fields": [{"field": "password", "message": "..."}]}

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/blog-platform/internal/apperror"
)

// maxJSONBody bounds JSON request bodies. Post content travels as multipart.
const maxJSONBody = 1 << 20

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string                `json:"error"`             // machine-readable kind, e.g. "not_found"
	Message string                `json:"message"`           // human-readable description
	Fields  []apperror.FieldError `json:"fields,omitempty"` // violated input rules, validation only
}

// MessageResponse is the body of operations that return no resource.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends data with the given status. Headers must be set before the
// status is written, and the status before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are already sent, only logging is left
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps an error kind to its status code and sends it. Errors that
// carry no kind are logged and answered with a generic 500, so storage details
// never reach the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("internal error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status, kind := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, kind = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		status, kind = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status, kind = http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrUnavailable):
		status, kind = http.StatusServiceUnavailable, "unavailable"
	}

	resp := ErrorResponse{Error: kind, Message: appErr.Message}
	if status == http.StatusBadRequest {
		resp.Fields = appErr.Fields
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads a bounded JSON body into dst. Malformed bodies become
// validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apperror.ValidationFailed("body", "request body is too large")
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("body", "request body is empty")
		default:
			return apperror.ValidationFailed("body", "invalid JSON in request body")
		}
	}
	return nil
}
