package prefs

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-gov/meridian/internal/platform/httpx"
	"github.com/meridian-gov/meridian/internal/shared"
)

// Handler exposes preference endpoints scoped to the acting user.
type Handler struct {
	logger *slog.Logger
	store  *Store
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, store *Store) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, store: store}
}

// MountRoutes registers preference routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/preferences", h.list)
	r.Get("/preferences/{name}", h.get)
	r.Put("/preferences/{name}", h.put)
	r.Delete("/preferences/{name}", h.remove)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserFromContext(r.Context())
	if userID == "" {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "no acting user")
		return
	}
	all, err := h.store.All(r.Context(), userID)
	if err != nil {
		h.logger.Error("list preferences", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"preferences": all})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserFromContext(r.Context())
	if userID == "" {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "no acting user")
		return
	}
	var value json.RawMessage
	if err := h.store.Get(r.Context(), userID, chi.URLParam(r, "name"), &value); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"value": value})
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserFromContext(r.Context())
	if userID == "" {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "no acting user")
		return
	}
	var value json.RawMessage
	if err := httpx.DecodeJSON(r, &value); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.store.Set(r.Context(), userID, chi.URLParam(r, "name"), value); err != nil {
		h.logger.Error("store preference", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "saved"})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserFromContext(r.Context())
	if userID == "" {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "no acting user")
		return
	}
	if err := h.store.Delete(r.Context(), userID, chi.URLParam(r, "name")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}
