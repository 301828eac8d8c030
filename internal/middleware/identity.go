package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/fieldmgr/fieldmgr/internal/apperror"
	"github.com/fieldmgr/fieldmgr/internal/email"
	"github.com/fieldmgr/fieldmgr/internal/identity"
	"github.com/fieldmgr/fieldmgr/internal/metrics"
)

// EmailHeader carries the caller identity.
const EmailHeader = "X-User-Email"

// MsgMissingIdentity is returned when EmailHeader is absent or empty.
const MsgMissingIdentity = "Missing X-User-Email header. Access denied."

// IdentityConfig holds dependencies for the Identity middleware.
type IdentityConfig struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// RequiresIdentity reports whether r must carry a valid EmailHeader.
// Everything under /api is gated except user registration.
func RequiresIdentity(r *http.Request) bool {
	if !hasPathSegments(r.URL.Path, "/api") {
		return false
	}
	if r.Method == http.MethodPost && hasPathSegments(r.URL.Path, "/api/users") {
		return false
	}
	return true
}

// hasPathSegments reports whether path equals prefix or continues it with a
// new segment. Comparison ignores case.
func hasPathSegments(path, prefix string) bool {
	if len(path) < len(prefix) || !strings.EqualFold(path[:len(prefix)], prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

// Identity returns middleware that admits only requests carrying a valid
// EmailHeader and stores the normalized email in the request context.
// Requests for which RequiresIdentity is false pass through untouched.
func Identity(cfg IdentityConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !RequiresIdentity(r) {
				next.ServeHTTP(w, r)
				return
			}

			raw := r.Header.Get(EmailHeader)
			if raw == "" {
				recorder.IncGateRejected(metrics.ReasonMissingHeader)
				logger.WarnContext(r.Context(), "identity rejected",
					slog.String("reason", metrics.ReasonMissingHeader),
					slog.String("path", r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusUnauthorized, MsgMissingIdentity)
				return
			}

			if err := email.Validate(raw); err != nil {
				recorder.IncGateRejected(metrics.ReasonInvalidEmail)
				logger.WarnContext(r.Context(), "identity rejected",
					slog.String("reason", metrics.ReasonInvalidEmail),
					slog.String("path", r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusBadRequest, apperror.MessageOf(err))
				return
			}

			addr := email.Normalize(raw)
			setCaller(r.Context(), addr)
			ctx := identity.WithEmail(r.Context(), addr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
