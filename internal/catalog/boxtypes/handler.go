package boxtypes

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

// Handler serves box type endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the box type handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	activeOnly := r.URL.Query().Get("include_inactive") != "true"
	list, err := h.service.List(r.Context(), owner, activeOnly)
	if err != nil {
		h.logger.Error("list box types failed", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"box_types": list})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid box type id")
		return
	}
	bt, err := h.service.Get(r.Context(), owner, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.RespondError(w, http.StatusNotFound, "box type not found")
			return
		}
		h.logger.Error("get box type failed", slog.Any("error", err), slog.Int64("id", id))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusOK, bt)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	var req CreateBoxTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	bt, err := h.service.Create(r.Context(), owner, req)
	if err != nil {
		h.logger.Error("create box type failed", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusCreated, bt)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid box type id")
		return
	}
	var req UpdateBoxTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	bt, err := h.service.Update(r.Context(), owner, id, req)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.RespondError(w, http.StatusNotFound, "box type not found")
			return
		}
		h.logger.Error("update box type failed", slog.Any("error", err), slog.Int64("id", id))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusOK, bt)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid box type id")
		return
	}
	if err := h.service.Deactivate(r.Context(), owner, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.RespondError(w, http.StatusNotFound, "box type not found")
			return
		}
		h.logger.Error("deactivate box type failed", slog.Any("error", err), slog.Int64("id", id))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusNoContent, nil)
}
