package state

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/exportpro/exportpro/internal/shared"
)

// Handler exposes the owner's mirror: the app fetches one consistent
// snapshot of everything on sign-in and drops it on sign-out.
type Handler struct {
	logger  *slog.Logger
	mirrors *Manager
}

// NewHandler constructs the state handler.
func NewHandler(logger *slog.Logger, mirrors *Manager) *Handler {
	return &Handler{logger: logger, mirrors: mirrors}
}

// MountRoutes attaches state routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.Refresh)
	r.Delete("/", h.Release)
}

// Refresh re-fetches every collection and returns the new snapshot.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	snapshot, err := h.mirrors.Acquire(owner).Refresh(r.Context())
	if err != nil {
		h.logger.Error("mirror refresh failed", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusOK, snapshot)
}

// Release drops the owner's mirror on sign-out.
func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	h.mirrors.Release(owner)
	shared.RespondJSON(w, http.StatusNoContent, nil)
}
