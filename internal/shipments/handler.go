package shipments

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/exportpro/exportpro/internal/shared"
)

var validate = validator.New()

// Handler serves shipment and box endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the shipments handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	list, err := h.service.List(r.Context(), owner)
	if err != nil {
		h.logger.Error("list shipments failed", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"shipments": list})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		shared.RespondError(w, http.StatusBadRequest, "invalid shipment id")
		return
	}
	summary, err := h.service.Summarize(r.Context(), owner, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.RespondError(w, http.StatusNotFound, "shipment not found")
			return
		}
		h.logger.Error("get shipment failed", slog.Any("error", err), slog.Int64("id", id))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusOK, summary)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	var req CreateShipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	shipment, decision, err := h.service.CreateShipment(r.Context(), owner, req)
	if err != nil {
		if errors.Is(err, shared.ErrLimitExceeded) {
			shared.RespondErrorMeta(w, http.StatusForbidden, decision.Message, map[string]any{
				"current": decision.Current,
				"limit":   decision.Limit,
			})
			return
		}
		h.logger.Error("create shipment failed", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusCreated, shipment)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		shared.RespondError(w, http.StatusBadRequest, "invalid shipment id")
		return
	}
	var req UpdateShipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	shipment, err := h.service.UpdateShipment(r.Context(), owner, id, req)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.RespondError(w, http.StatusNotFound, "shipment not found")
			return
		}
		h.logger.Error("update shipment failed", slog.Any("error", err), slog.Int64("id", id))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusOK, shipment)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		shared.RespondError(w, http.StatusBadRequest, "invalid shipment id")
		return
	}
	if err := h.service.DeleteShipment(r.Context(), owner, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.RespondError(w, http.StatusNotFound, "shipment not found")
			return
		}
		h.logger.Error("delete shipment failed", slog.Any("error", err), slog.Int64("id", id))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) ListBoxes(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		shared.RespondError(w, http.StatusBadRequest, "invalid shipment id")
		return
	}
	boxes, err := h.service.Boxes(r.Context(), owner, id)
	if err != nil {
		h.logger.Error("list boxes failed", slog.Any("error", err), slog.Int64("shipment_id", id))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"boxes": boxes})
}

func (h *Handler) AddBox(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		shared.RespondError(w, http.StatusBadRequest, "invalid shipment id")
		return
	}
	var req AddBoxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	box, err := h.service.AddBox(r.Context(), owner, id, req)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrNotFound):
			shared.RespondError(w, http.StatusNotFound, "shipment not found")
		case errors.Is(err, shared.ErrInsufficientStock):
			shared.RespondError(w, http.StatusUnprocessableEntity, shared.UserSafeMessage(err))
		default:
			h.logger.Error("add box failed", slog.Any("error", err), slog.Int64("shipment_id", id))
			shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		}
		return
	}
	shared.RespondJSON(w, http.StatusCreated, box)
}

func (h *Handler) SetBoxProducts(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	boxID, ok := pathID(r, "boxID")
	if !ok {
		shared.RespondError(w, http.StatusBadRequest, "invalid box id")
		return
	}
	var req struct {
		Products []BoxProductInput `json:"products" validate:"dive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	contents, err := h.service.SetBoxProducts(r.Context(), owner, boxID, req.Products)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrNotFound):
			shared.RespondError(w, http.StatusNotFound, "box not found")
		case errors.Is(err, shared.ErrInsufficientStock):
			shared.RespondError(w, http.StatusUnprocessableEntity, shared.UserSafeMessage(err))
		default:
			h.logger.Error("set box products failed", slog.Any("error", err), slog.Int64("box_id", boxID))
			shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		}
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"products": contents})
}

func (h *Handler) RemoveBox(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	boxID, ok := pathID(r, "boxID")
	if !ok {
		shared.RespondError(w, http.StatusBadRequest, "invalid box id")
		return
	}
	if err := h.service.RemoveBox(r.Context(), owner, boxID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.RespondError(w, http.StatusNotFound, "box not found")
			return
		}
		h.logger.Error("remove box failed", slog.Any("error", err), slog.Int64("box_id", boxID))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusNoContent, nil)
}
