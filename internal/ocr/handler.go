package ocr

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/exportpro/exportpro/internal/shared"
)

// Handler serves the extraction endpoint.
type Handler struct {
	logger *slog.Logger
	client *Client
}

// NewHandler constructs the OCR handler.
func NewHandler(logger *slog.Logger, client *Client) *Handler {
	return &Handler{logger: logger, client: client}
}

// MountRoutes attaches extraction routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/extract", h.Extract)
}

type extractBody struct {
	Document string `json:"document"`
	MimeType string `json:"mime_type"`
}

// Extract runs the hosted extraction on a base64 document and returns the
// structured result for user review. Nothing is persisted here; the
// reviewed result goes to the invoice import endpoint.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	if _, ok := shared.OwnerFromContext(r.Context()); !ok {
		shared.RespondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	var body extractBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	payload, err := base64.StdEncoding.DecodeString(body.Document)
	if err != nil || len(payload) == 0 {
		shared.RespondError(w, http.StatusBadRequest, "document must be non-empty base64")
		return
	}
	result, err := h.client.Extract(r.Context(), payload, body.MimeType)
	if err != nil {
		h.logger.Error("extraction failed", slog.Any("error", err))
		// Upstream message passed through so the user sees what the
		// function rejected.
		shared.RespondError(w, http.StatusBadGateway, err.Error())
		return
	}
	shared.RespondJSON(w, http.StatusOK, result)
}
