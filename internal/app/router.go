package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/exportpro/exportpro/internal/auth"
	"github.com/exportpro/exportpro/internal/catalog/boxtypes"
	"github.com/exportpro/exportpro/internal/catalog/customers"
	"github.com/exportpro/exportpro/internal/catalog/suppliers"
	"github.com/exportpro/exportpro/internal/documents"
	"github.com/exportpro/exportpro/internal/inventory"
	"github.com/exportpro/exportpro/internal/invoices"
	"github.com/exportpro/exportpro/internal/observability"
	"github.com/exportpro/exportpro/internal/ocr"
	"github.com/exportpro/exportpro/internal/settings"
	"github.com/exportpro/exportpro/internal/shipments"
	"github.com/exportpro/exportpro/internal/state"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger   *slog.Logger
	Config   *Config
	Verifier *auth.Verifier
	Pool     *pgxpool.Pool

	SettingsHandler  *settings.Handler
	SuppliersHandler *suppliers.Handler
	CustomersHandler *customers.Handler
	BoxTypesHandler  *boxtypes.Handler
	InventoryHandler *inventory.Handler
	InvoicesHandler  *invoices.Handler
	ShipmentsHandler *shipments.Handler
	OCRHandler       *ocr.Handler
	DocumentsHandler *documents.Handler
	StateHandler     *state.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with ExportPro defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Middleware(params.Verifier, params.Logger))

		r.Route("/settings", params.SettingsHandler.MountRoutes)
		r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
		r.Route("/customers", params.CustomersHandler.MountRoutes)
		r.Route("/box-types", params.BoxTypesHandler.MountRoutes)
		r.Route("/products", params.InventoryHandler.MountRoutes)
		r.Route("/invoices", params.InvoicesHandler.MountRoutes)
		r.Route("/shipments", params.ShipmentsHandler.MountRoutes)
		r.Route("/ocr", params.OCRHandler.MountRoutes)
		r.Route("/documents", params.DocumentsHandler.MountRoutes)
		r.Route("/state", params.StateHandler.MountRoutes)
	})

	return r
}
