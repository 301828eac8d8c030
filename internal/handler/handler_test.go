package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fieldmgr/fieldmgr/internal/apperror"
	"github.com/fieldmgr/fieldmgr/internal/handler/dto"
	"github.com/fieldmgr/fieldmgr/internal/middleware"
)

func TestHandler_NotFound(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	rec := httptest.NewRecorder()

	NotFound(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response["error"] != "resource not found" {
		t.Errorf("unexpected error message: %s", response["error"])
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()

	MethodNotAllowed(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var response map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response["error"] != "method not allowed" {
		t.Errorf("unexpected error message: %s", response["error"])
	}
}

func TestErrorTranslator(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"invalid argument", apperror.InvalidArgument("Field name is required."), http.StatusBadRequest, "Field name is required."},
		{"unauthenticated", apperror.Unauthenticated(middleware.MsgMissingIdentity), http.StatusUnauthorized, middleware.MsgMissingIdentity},
		{"not found", fmt.Errorf("wrapped: %w", apperror.NotFound("Device not found.")), http.StatusNotFound, "Device not found."},
		{"conflict", apperror.Conflict("User already exists.", nil), http.StatusConflict, "User already exists."},
		{"unclassified unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), http.StatusConflict, MsgDatabaseConflict},
		{"other database error", &pgconn.PgError{Code: "57014", Message: "canceling statement"}, http.StatusInternalServerError, MsgInternal},
		{"unknown", errors.New("pool exhausted at 10.0.0.5"), http.StatusInternalServerError, MsgInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs strings.Builder
			tr := errorTranslator{logger: slog.New(slog.NewTextHandler(&logs, nil))}

			rec := httptest.NewRecorder()
			tr.write(rec, httptest.NewRequest(http.MethodGet, "/api/fields", nil), tt.err)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			var body dto.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tt.msg {
				t.Errorf("error = %q, want %q", body.Error, tt.msg)
			}
			if tt.status == http.StatusInternalServerError && !strings.Contains(logs.String(), "internal_error") {
				t.Errorf("expected internal error to be logged, got %q", logs.String())
			}
		})
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	handler := middleware.MaxBodySize(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req dto.NameRequest
		if decodeJSON(w, r, &req) {
			w.WriteHeader(http.StatusOK)
		}
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/fields", strings.NewReader(`{"name":"`+strings.Repeat("x", 64)+`"}`))
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
}
