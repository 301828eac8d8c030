package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fieldmgr/fieldmgr/internal/identity"
	"github.com/fieldmgr/fieldmgr/internal/metrics"
)

func TestRequiresIdentity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		method string
		path   string
		want   bool
	}{
		{http.MethodPost, "/api/users", false},
		{http.MethodPost, "/api/users/", false},
		{http.MethodPost, "/API/Users", false},
		{http.MethodGet, "/api/users/me", true},
		{http.MethodGet, "/api/fields", true},
		{http.MethodDelete, "/api/devices/7", true},
		{http.MethodPost, "/api/fields", true},
		{http.MethodPost, "/api/usersx", true},
		{http.MethodGet, "/api", true},
		{http.MethodGet, "/apix", false},
		{http.MethodGet, "/healthz", false},
		{http.MethodGet, "/metrics", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, tt.path, nil)
			if got := RequiresIdentity(req); got != tt.want {
				t.Errorf("RequiresIdentity(%s %s) = %v, want %v", tt.method, tt.path, got, tt.want)
			}
		})
	}
}

func TestIdentity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		method     string
		path       string
		header     *string
		wantStatus int
		wantError  string
		wantCaller string
		wantReason string
	}{
		{
			name:       "missing header",
			method:     http.MethodGet,
			path:       "/api/fields",
			wantStatus: http.StatusUnauthorized,
			wantError:  MsgMissingIdentity,
			wantReason: metrics.ReasonMissingHeader,
		},
		{
			name:       "empty header",
			method:     http.MethodGet,
			path:       "/api/fields",
			header:     strPtr(""),
			wantStatus: http.StatusUnauthorized,
			wantError:  MsgMissingIdentity,
			wantReason: metrics.ReasonMissingHeader,
		},
		{
			name:       "whitespace header",
			method:     http.MethodGet,
			path:       "/api/fields",
			header:     strPtr("   "),
			wantStatus: http.StatusBadRequest,
			wantError:  "Email is required.",
			wantReason: metrics.ReasonInvalidEmail,
		},
		{
			name:       "malformed header",
			method:     http.MethodGet,
			path:       "/api/fields",
			header:     strPtr("invalid-email-format"),
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid email format.",
			wantReason: metrics.ReasonInvalidEmail,
		},
		{
			name:       "valid header is normalized",
			method:     http.MethodGet,
			path:       "/api/fields",
			header:     strPtr("  Test_1@Example.COM "),
			wantStatus: http.StatusOK,
			wantCaller: "test_1@example.com",
		},
		{
			name:       "user registration bypasses gate",
			method:     http.MethodPost,
			path:       "/api/users",
			wantStatus: http.StatusOK,
		},
		{
			name:       "health bypasses gate",
			method:     http.MethodGet,
			path:       "/healthz",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			recorder := metrics.NewInMemory()
			var caller string
			handler := Identity(IdentityConfig{
				Logger:  slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
				Metrics: recorder,
			})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				caller = identity.EmailFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != nil {
				req.Header.Set(EmailHeader, *tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if caller != tt.wantCaller {
				t.Errorf("caller = %q, want %q", caller, tt.wantCaller)
			}

			if tt.wantError != "" {
				var body errorBody
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
					t.Fatalf("decode body: %v", err)
				}
				if body.Error != tt.wantError {
					t.Errorf("error = %q, want %q", body.Error, tt.wantError)
				}
				if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
					t.Errorf("Content-Type = %q, want application/json", ct)
				}
			}

			if tt.wantReason != "" {
				if n := recorder.Snapshot().GateRejections[tt.wantReason]; n != 1 {
					t.Errorf("rejections[%s] = %d, want 1", tt.wantReason, n)
				}
			}
		})
	}
}

func TestIdentityRecordsCallerForLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := Logger(logger, nil)(Identity(IdentityConfig{Logger: logger})(inner))

	req := httptest.NewRequest(http.MethodGet, "/api/devices", nil)
	req.Header.Set(EmailHeader, "Owner@X.io")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), `"caller":"owner@x.io"`) {
		t.Errorf("expected normalized caller in log, got %s", buf.String())
	}
}

func strPtr(s string) *string {
	return &s
}
