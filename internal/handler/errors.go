package handler

import (
	"log/slog"
	"net/http"

	"github.com/fieldmgr/fieldmgr/internal/apperror"
	"github.com/fieldmgr/fieldmgr/internal/middleware"
	"github.com/fieldmgr/fieldmgr/internal/repository"
)

// Messages for failures the services did not classify.
const (
	MsgDatabaseConflict = "Database conflict occurred."
	MsgInternal         = middleware.MsgInternal
)

// errorTranslator turns service errors into HTTP responses. Classified
// errors carry their own client message; anything else is logged with
// full detail and answered with a generic body.
type errorTranslator struct {
	logger *slog.Logger
}

func (t errorTranslator) write(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperror.KindOf(err)

	switch kind {
	case apperror.KindInvalidArgument:
		writeError(w, http.StatusBadRequest, apperror.MessageOf(err))
		return
	case apperror.KindUnauthenticated:
		writeError(w, http.StatusUnauthorized, apperror.MessageOf(err))
		return
	case apperror.KindNotFound:
		writeError(w, http.StatusNotFound, apperror.MessageOf(err))
		return
	case apperror.KindConflict:
		writeError(w, http.StatusConflict, apperror.MessageOf(err))
		return
	}

	attrs := []any{
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	}

	if repository.IsUniqueViolation(err) {
		t.logger.WarnContext(r.Context(), "unclassified conflict", attrs...)
		writeError(w, http.StatusConflict, MsgDatabaseConflict)
		return
	}

	t.logger.ErrorContext(r.Context(), "internal_error", attrs...)
	writeError(w, http.StatusInternalServerError, MsgInternal)
}
