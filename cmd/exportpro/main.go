package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/exportpro/exportpro/internal/app"
	"github.com/exportpro/exportpro/internal/auth"
	"github.com/exportpro/exportpro/internal/catalog/boxtypes"
	"github.com/exportpro/exportpro/internal/catalog/customers"
	"github.com/exportpro/exportpro/internal/catalog/suppliers"
	"github.com/exportpro/exportpro/internal/documents"
	"github.com/exportpro/exportpro/internal/inventory"
	"github.com/exportpro/exportpro/internal/invoices"
	"github.com/exportpro/exportpro/internal/observability"
	"github.com/exportpro/exportpro/internal/ocr"
	"github.com/exportpro/exportpro/internal/plan"
	"github.com/exportpro/exportpro/internal/settings"
	"github.com/exportpro/exportpro/internal/shared"
	"github.com/exportpro/exportpro/internal/shipments"
	"github.com/exportpro/exportpro/internal/state"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	verifier := auth.NewVerifier(cfg.AuthJWTSecret)
	metrics := observability.NewMetrics()
	gate := plan.NewGate(cfg.FreeLimits())

	settingsRepo := settings.NewRepository(dbpool)
	settingsService := settings.NewService(settingsRepo)
	settingsHandler := settings.NewHandler(logger, settingsService)

	suppliersRepo := suppliers.NewRepository(dbpool)
	suppliersService := suppliers.NewService(suppliersRepo, gate, settingsService)
	suppliersHandler := suppliers.NewHandler(logger, suppliersService)

	customersRepo := customers.NewRepository(dbpool)
	customersService := customers.NewService(customersRepo)
	customersHandler := customers.NewHandler(logger, customersService)

	boxTypesRepo := boxtypes.NewRepository(dbpool)
	boxTypesService := boxtypes.NewService(boxTypesRepo)
	boxTypesHandler := boxtypes.NewHandler(logger, boxTypesService)

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(logger, inventoryRepo, gate, settingsService, metrics)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	invoicesRepo := invoices.NewRepository(dbpool)
	invoicesService := invoices.NewService(logger, invoicesRepo, gate, settingsService, suppliersService, inventoryService)
	invoicesHandler := invoices.NewHandler(logger, invoicesService, idempotencyStore)

	shipmentsRepo := shipments.NewRepository(dbpool)
	shipmentsService := shipments.NewService(logger, shipmentsRepo, gate, settingsService, boxTypesService, metrics)
	shipmentsHandler := shipments.NewHandler(logger, shipmentsService)

	ocrClient := ocr.NewClient(logger, cfg.OCRFunctionURL, cfg.OCRFunctionKey, redisClient, cfg.OCRCacheTTL)
	ocrHandler := ocr.NewHandler(logger, ocrClient)

	stateSources := state.Sources{
		Settings:  settingsService,
		Suppliers: suppliersService,
		Customers: customersService,
		BoxTypes:  boxTypesService,
		Inventory: inventoryService,
		Invoices:  invoicesService,
		Shipments: shipmentsService,
	}
	mirrors := state.NewManager(stateSources)
	stateHandler := state.NewHandler(logger, mirrors)

	renderer := documents.NewRenderer(cfg.GotenbergURL)
	if err := renderer.Ping(ctx); err != nil {
		logger.Warn("gotenberg ping", slog.Any("error", err))
	}
	documentsHandler := documents.NewHandler(logger, mirrors, renderer, inventoryService)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Verifier:         verifier,
		Pool:             dbpool,
		SettingsHandler:  settingsHandler,
		SuppliersHandler: suppliersHandler,
		CustomersHandler: customersHandler,
		BoxTypesHandler:  boxTypesHandler,
		InventoryHandler: inventoryHandler,
		InvoicesHandler:  invoicesHandler,
		ShipmentsHandler: shipmentsHandler,
		OCRHandler:       ocrHandler,
		DocumentsHandler: documentsHandler,
		StateHandler:     stateHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
