package documents

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/exportpro/exportpro/internal/shared"
	"github.com/exportpro/exportpro/internal/state"
)

// Handler serves generated documents. Every endpoint refreshes the owner's
// mirror first so the output reflects the latest committed state, and none
// of them write anything.
type Handler struct {
	logger   *slog.Logger
	mirrors  *state.Manager
	renderer *Renderer
	rates    RateSource
}

// NewHandler constructs the documents handler.
func NewHandler(logger *slog.Logger, mirrors *state.Manager, renderer *Renderer, rates RateSource) *Handler {
	return &Handler{logger: logger, mirrors: mirrors, renderer: renderer, rates: rates}
}

// MountRoutes attaches document generation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/shipments/{id}/labels", h.BoxLabels)
	r.Get("/shipments/{id}/packing-list", h.PackingList)
	r.Get("/shipments/{id}/commercial-invoice", h.CommercialInvoice)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) (state.Snapshot, int64, bool) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return state.Snapshot{}, 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid shipment id")
		return state.Snapshot{}, 0, false
	}
	snapshot, err := h.mirrors.Acquire(owner).Refresh(r.Context())
	if err != nil {
		h.logger.Error("mirror refresh failed", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return state.Snapshot{}, 0, false
	}
	return snapshot, id, true
}

func (h *Handler) BoxLabels(w http.ResponseWriter, r *http.Request) {
	snapshot, shipmentID, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	html, err := BuildBoxLabelsHTML(snapshot, shipmentID)
	if err != nil {
		shared.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	pdf, err := h.renderer.RenderHTML(r.Context(), html, LabelPage)
	if err != nil {
		h.logger.Error("render labels failed", slog.Any("error", err), slog.Int64("shipment_id", shipmentID))
		shared.RespondError(w, http.StatusBadGateway, shared.UserSafeMessage(err))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="labels-%d.pdf"`, shipmentID))
	_, _ = w.Write(pdf)
}

func (h *Handler) PackingList(w http.ResponseWriter, r *http.Request) {
	snapshot, shipmentID, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	f, err := BuildPackingList(snapshot, shipmentID)
	if err != nil {
		shared.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="packing-list-%d.xlsx"`, shipmentID))
	if _, err := f.WriteTo(w); err != nil {
		h.logger.Error("write packing list failed", slog.Any("error", err))
	}
}

func (h *Handler) CommercialInvoice(w http.ResponseWriter, r *http.Request) {
	snapshot, shipmentID, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	owner, _ := shared.OwnerFromContext(r.Context())
	f, err := BuildCommercialInvoice(r.Context(), snapshot, owner, shipmentID, h.rates)
	if err != nil {
		h.logger.Error("build commercial invoice failed", slog.Any("error", err), slog.Int64("shipment_id", shipmentID))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="commercial-invoice-%d.xlsx"`, shipmentID))
	if _, err := f.WriteTo(w); err != nil {
		h.logger.Error("write commercial invoice failed", slog.Any("error", err))
	}
}
