package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// MsgInternal is the body of every 500 response.
const MsgInternal = "An unexpected error occurred."

// Recoverer returns a middleware that turns a handler panic into a logged
// 500 response. http.ErrAbortHandler is re-panicked so the server can abort
// the connection.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				logger.ErrorContext(r.Context(), "panic recovered",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.Any("panic", rvr),
					slog.String("stack", string(debug.Stack())),
				)

				writeError(w, http.StatusInternalServerError, MsgInternal)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
