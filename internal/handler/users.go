package handler

import (
	"log/slog"
	"net/http"

	"github.com/fieldmgr/fieldmgr/internal/handler/dto"
	"github.com/fieldmgr/fieldmgr/internal/identity"
	"github.com/fieldmgr/fieldmgr/internal/service"
)

// MsgCallerNotRegistered is returned by GET /api/users/me for an unknown caller.
const MsgCallerNotRegistered = "User not found. Create via POST /api/users."

// UserHandler handles user registration and lookup.
type UserHandler struct {
	svc  *service.UserService
	errs errorTranslator
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, errs: errorTranslator{logger: logger}}
}

// Create handles POST /api/users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.svc.Create(r.Context(), req.Email)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/users/me")
	writeJSON(w, http.StatusCreated, dto.ToUserResponse(user))
}

// Me handles GET /api/users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller := identity.MustEmailFromContext(r.Context())

	user, err := h.svc.GetByEmail(r.Context(), caller)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, MsgCallerNotRegistered)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}
