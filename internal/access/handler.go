package access

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-gov/meridian/internal/platform/httpx"
)

// Handler exposes role administration endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	guard    Middleware
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		guard:    Middleware{Service: service, Logger: logger},
		validate: validator.New(),
	}
}

// MountRoutes registers role administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny("manage:roles", PermAdmin))
		r.Post("/roles", h.createRole)
		r.Get("/roles/{name}", h.getRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny("manage:users", PermAdmin))
		r.Get("/users/{userID}/roles", h.listUserRoles)
		r.Post("/users/{userID}/roles", h.assignRole)
		r.Delete("/users/{userID}/roles/{role}", h.removeRole)
	})
}

type createRoleRequest struct {
	Name        string   `json:"name" validate:"required"`
	Permissions []string `json:"permissions" validate:"required,min=1,dive,required"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	h.service.CreateRole(req.Name, req.Permissions)
	role, _ := h.service.GetRole(req.Name)
	httpx.JSON(w, http.StatusCreated, roleResponse(role))
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	role, ok := h.service.GetRole(chi.URLParam(r, "name"))
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "role does not exist")
		return
	}
	httpx.JSON(w, http.StatusOK, roleResponse(role))
}

func (h *Handler) listUserRoles(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user":  userID,
		"roles": h.service.GetUserRoles(userID),
		"admin": h.service.IsAdmin(userID),
	})
}

type assignRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	userID := chi.URLParam(r, "userID")
	if _, ok := h.service.GetRole(req.Role); !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "role does not exist")
		return
	}
	h.service.AssignRole(userID, req.Role)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user":  userID,
		"roles": h.service.GetUserRoles(userID),
	})
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	h.service.RemoveRole(userID, chi.URLParam(r, "role"))
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user":  userID,
		"roles": h.service.GetUserRoles(userID),
	})
}

func roleResponse(role Role) map[string]any {
	return map[string]any{
		"name":        role.Name,
		"permissions": role.Permissions(),
	}
}
