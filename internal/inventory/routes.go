package inventory

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches product ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/receive", h.Receive)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/invoices", h.ListLinks)
	r.Get("/{id}/average-rate", h.AverageRate)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}
