package shipments

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches shipment and box routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/boxes", h.ListBoxes)
	r.Post("/{id}/boxes", h.AddBox)
	r.Put("/boxes/{boxID}/products", h.SetBoxProducts)
	r.Delete("/boxes/{boxID}", h.RemoveBox)
}
