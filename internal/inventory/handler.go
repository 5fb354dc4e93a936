package inventory

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

// Handler serves product ledger endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	list, err := h.service.List(r.Context(), owner)
	if err != nil {
		h.logger.Error("list products failed", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"products": list})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	product, err := h.service.Get(r.Context(), owner, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.RespondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("get product failed", slog.Any("error", err), slog.Int64("id", id))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusOK, product)
}

func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	links, err := h.service.Links(r.Context(), owner, id)
	if err != nil {
		h.logger.Error("list invoice links failed", slog.Any("error", err), slog.Int64("id", id))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"links": links})
}

func (h *Handler) AverageRate(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	rate, err := h.service.AverageRate(r.Context(), owner, id)
	if err != nil {
		h.logger.Error("average rate failed", slog.Any("error", err), slog.Int64("id", id))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"average_rate": rate})
}

func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	var req ReceiveLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, decision, err := h.service.ReceiveLine(r.Context(), owner, req)
	if err != nil {
		if errors.Is(err, shared.ErrLimitExceeded) {
			shared.RespondErrorMeta(w, http.StatusForbidden, decision.Message, map[string]any{
				"current": decision.Current,
				"limit":   decision.Limit,
			})
			return
		}
		h.logger.Error("receive line failed", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	shared.RespondJSON(w, status, result)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	product, err := h.service.Update(r.Context(), owner, id, req)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.RespondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("update product failed", slog.Any("error", err), slog.Int64("id", id))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusOK, product)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := h.service.Delete(r.Context(), owner, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.RespondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("delete product failed", slog.Any("error", err), slog.Int64("id", id))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusNoContent, nil)
}
