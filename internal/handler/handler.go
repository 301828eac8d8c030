// Package handler provides the HTTP handlers, the error translator and the
// router of the API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fieldmgr/fieldmgr/internal/handler/dto"
	"github.com/fieldmgr/fieldmgr/internal/middleware"
)

// Client-facing messages owned by the HTTP layer.
const (
	MsgInvalidBody      = "Invalid request body."
	MsgBodyTooLarge     = middleware.MsgBodyTooLarge
	MsgRouteNotFound    = "resource not found"
	MsgMethodNotAllowed = "method not allowed"
)

// NotFound handles requests for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, MsgRouteNotFound)
}

// MethodNotAllowed handles requests with an unsupported method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Error("encode response", slog.String("error", err.Error()))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}

// decodeJSON decodes the request body into dst, writing a 400 (or 413 when
// the body limit was hit) and returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, MsgBodyTooLarge)
			return false
		}
		writeError(w, http.StatusBadRequest, MsgInvalidBody)
		return false
	}
	return true
}
