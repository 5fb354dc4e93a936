package invoices

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/from-extraction", h.CreateFromExtraction)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/payments", h.RecordPayment)
	r.Delete("/{id}", h.Delete)
}
