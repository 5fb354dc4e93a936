package invoices

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

// Handler serves invoice endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	idempotency *shared.IdempotencyStore
}

// NewHandler constructs the invoice handler. idempotency may be nil; the
// extraction import then runs unguarded.
func NewHandler(logger *slog.Logger, service *Service, idempotency *shared.IdempotencyStore) *Handler {
	return &Handler{logger: logger, service: service, idempotency: idempotency}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	list, err := h.service.List(r.Context(), owner)
	if err != nil {
		h.logger.Error("list invoices failed", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"invoices": list})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid invoice id")
		return
	}
	detail, err := h.service.Detail(r.Context(), owner, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.RespondError(w, http.StatusNotFound, "invoice not found")
			return
		}
		h.logger.Error("get invoice failed", slog.Any("error", err), slog.Int64("id", id))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusOK, detail)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	var req CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	invoice, decision, err := h.service.Create(r.Context(), owner, req)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrLimitExceeded):
			shared.RespondErrorMeta(w, http.StatusForbidden, decision.Message, map[string]any{
				"current": decision.Current,
				"limit":   decision.Limit,
			})
		case errors.Is(err, shared.ErrDuplicateNumber):
			// Resubmitting with acknowledge_duplicate set bypasses the check.
			shared.RespondErrorMeta(w, http.StatusConflict, shared.UserSafeMessage(err), map[string]any{
				"acknowledge_duplicate": true,
			})
		default:
			h.logger.Error("create invoice failed", slog.Any("error", err))
			shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		}
		return
	}
	shared.RespondJSON(w, http.StatusCreated, invoice)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid invoice id")
		return
	}
	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	detail, err := h.service.RecordPayment(r.Context(), owner, id, req)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.RespondError(w, http.StatusNotFound, "invoice not found")
			return
		}
		h.logger.Error("record payment failed", slog.Any("error", err), slog.Int64("id", id))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusOK, detail)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid invoice id")
		return
	}
	if err := h.service.Delete(r.Context(), owner, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.RespondError(w, http.StatusNotFound, "invoice not found")
			return
		}
		h.logger.Error("delete invoice failed", slog.Any("error", err), slog.Int64("id", id))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	shared.RespondJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) CreateFromExtraction(w http.ResponseWriter, r *http.Request) {
	owner, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	var req CreateFromExtractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Extraction imports are expensive to double-apply: lines merge into the
	// product ledger. Clients send an Idempotency-Key per reviewed document.
	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), idemKey, "invoices"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				shared.RespondError(w, http.StatusConflict, "import already processed")
				return
			}
			h.logger.Error("idempotency check failed", slog.Any("error", err))
			shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
			return
		}
	}

	result, decision, err := h.service.CreateFromExtraction(r.Context(), owner, req)
	if err != nil {
		if idemKey != "" && h.idempotency != nil {
			if delErr := h.idempotency.Delete(r.Context(), idemKey); delErr != nil {
				h.logger.Warn("release idempotency key failed", slog.Any("error", delErr))
			}
		}
		switch {
		case errors.Is(err, shared.ErrLimitExceeded):
			shared.RespondErrorMeta(w, http.StatusForbidden, decision.Message, map[string]any{
				"current": decision.Current,
				"limit":   decision.Limit,
			})
		case errors.Is(err, shared.ErrDuplicateNumber):
			shared.RespondErrorMeta(w, http.StatusConflict, shared.UserSafeMessage(err), map[string]any{
				"acknowledge_duplicate": true,
			})
		default:
			h.logger.Error("create from extraction failed", slog.Any("error", err))
			shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		}
		return
	}
	shared.RespondJSON(w, http.StatusCreated, result)
}
