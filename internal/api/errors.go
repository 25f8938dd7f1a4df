package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/tunerd/internal/tuner"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeUnavailable    = "unavailable"
	ErrCodeNotImplemented = "not_implemented"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeTunerError maps a tuner package error to a response.
func writeTunerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tuner.ErrDeviceNotFound):
		writeNotFound(w, "tuner not found")
	case errors.Is(err, tuner.ErrFrontendNotFound):
		writeNotFound(w, "frontend not found")
	case errors.Is(err, tuner.ErrInvalidSignalType),
		errors.Is(err, tuner.ErrReadOnlyProperty),
		errors.Is(err, tuner.ErrUnknownProperty):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, tuner.ErrStatusUnsupported):
		writeError(w, http.StatusNotImplemented, ErrCodeNotImplemented, "frontend cannot report status")
	default:
		writeInternalError(w, err.Error())
	}
}
