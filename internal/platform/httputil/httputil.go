// Package httputil writes JSON responses and maps sentinel errors to HTTP
// status codes for the development audit sink.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/sentinel"
)

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status and an error code. Internal errors never
// leak their description.
func WriteError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	body := map[string]string{"error": code}
	if status != http.StatusInternalServerError {
		body["error_description"] = err.Error()
	}
	WriteJSON(w, status, body)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, sentinel.ErrInvalidInput):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, sentinel.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, sentinel.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, sentinel.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
