package suppliers

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

// Handler serves supplier endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the supplier handler.
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
		h.logger.Error("list suppliers failed", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"suppliers": list})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	supplier, err := h.service.Get(r.Context(), owner, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.RespondError(w, http.StatusNotFound, "supplier not found")
			return
		}
		h.logger.Error("get supplier failed", slog.Any("error", err), slog.Int64("id", id))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusOK, supplier)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	var req CreateSupplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Advisory near-duplicate warning; creation proceeds regardless.
	similar, err := h.service.FindSimilar(r.Context(), owner, req.Name)
	if err != nil {
		h.logger.Warn("similar supplier lookup failed", slog.Any("error", err))
	}

	supplier, decision, err := h.service.Create(r.Context(), owner, req)
	if err != nil {
		if errors.Is(err, shared.ErrLimitExceeded) {
			shared.RespondErrorMeta(w, http.StatusForbidden, decision.Message, map[string]any{
				"current": decision.Current,
				"limit":   decision.Limit,
			})
			return
		}
		h.logger.Error("create supplier failed", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}

	body := map[string]any{"supplier": supplier}
	if similar != nil {
		body["similar_to"] = similar
	}
	shared.RespondJSON(w, http.StatusCreated, body)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	var req UpdateSupplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	supplier, err := h.service.Update(r.Context(), owner, id, req)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.RespondError(w, http.StatusNotFound, "supplier not found")
			return
		}
		h.logger.Error("update supplier failed", slog.Any("error", err), slog.Int64("id", id))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusOK, supplier)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	if err := h.service.Delete(r.Context(), owner, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.RespondError(w, http.StatusNotFound, "supplier not found")
			return
		}
		h.logger.Error("delete supplier failed", slog.Any("error", err), slog.Int64("id", id))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusNoContent, nil)
}
