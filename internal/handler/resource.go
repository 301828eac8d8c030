package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fieldmgr/fieldmgr/internal/handler/dto"
	"github.com/fieldmgr/fieldmgr/internal/identity"
	"github.com/fieldmgr/fieldmgr/internal/model"
	"github.com/fieldmgr/fieldmgr/internal/service"
)

// ResourceHandler serves the CRUD routes of one resource kind. Every
// operation is scoped to the caller resolved by the identity gate.
type ResourceHandler[T model.Resource] struct {
	svc  *service.ResourceService[T]
	kind model.Kind
	errs errorTranslator
}

// NewResourceHandler creates a ResourceHandler for the service's kind.
func NewResourceHandler[T model.Resource](svc *service.ResourceService[T], logger *slog.Logger) *ResourceHandler[T] {
	return &ResourceHandler[T]{
		svc:  svc,
		kind: svc.Kind(),
		errs: errorTranslator{logger: logger},
	}
}

// Routes registers the handler under r.
func (h *ResourceHandler[T]) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// List handles GET /api/{kind}.
func (h *ResourceHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context(), identity.MustEmailFromContext(r.Context()))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToResourceList(items))
}

// Get handles GET /api/{kind}/{id}.
func (h *ResourceHandler[T]) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	item, err := h.svc.Get(r.Context(), identity.MustEmailFromContext(r.Context()), id)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToResourceResponse(item))
}

// Create handles POST /api/{kind}.
func (h *ResourceHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.NameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.svc.Create(r.Context(), identity.MustEmailFromContext(r.Context()), req.Name)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	resp := dto.ToResourceResponse(item)
	w.Header().Set("Location", fmt.Sprintf("/api/%s/%d", h.kind.Table, resp.ID))
	writeJSON(w, http.StatusCreated, resp)
}

// Update handles PUT /api/{kind}/{id}.
func (h *ResourceHandler[T]) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req dto.NameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.svc.Update(r.Context(), identity.MustEmailFromContext(r.Context()), id, req.Name)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	if !updated {
		writeError(w, http.StatusNotFound, service.NotFoundMessage(h.kind))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/{kind}/{id}.
func (h *ResourceHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	deleted, err := h.svc.Delete(r.Context(), identity.MustEmailFromContext(r.Context()), id)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s not found or you don't have permission.", h.kind.Label))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseID reads the {id} URL parameter. Ids that are not positive integers
// can never match a row, so they answer 404 like a missing resource.
func (h *ResourceHandler[T]) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, service.NotFoundMessage(h.kind))
		return 0, false
	}
	return id, true
}
