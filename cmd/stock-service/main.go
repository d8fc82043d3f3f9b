package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agritrack/agritrack-backend/internal/stock/events"
	"github.com/agritrack/agritrack-backend/internal/stock/handler"
	"github.com/agritrack/agritrack-backend/internal/stock/repository"
	"github.com/agritrack/agritrack-backend/internal/stock/service"
	"github.com/agritrack/agritrack-backend/pkg/config"
	"github.com/agritrack/agritrack-backend/pkg/database"
	"github.com/agritrack/agritrack-backend/pkg/httputil"
	"github.com/agritrack/agritrack-backend/pkg/logger"
	"github.com/agritrack/agritrack-backend/pkg/messaging"
	"github.com/agritrack/agritrack-backend/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const serviceName = "stock-service"

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Msg("starting Stock Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Stock.AutoMigrate {
		if err := repository.EnsureSchema(context.Background(), db); err != nil {
			log.Fatal().Err(err).Msg("failed to apply schema")
		}
		log.Info().Msg("schema up to date")
	}

	// Events are optional: without a broker the services run with a nil publisher
	var publisher *events.StockEventPublisher
	var rmq *messaging.RabbitMQ
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err = events.NewStockEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New(cfg.Metrics.Namespace)
	}

	// Initialize repositories
	batchRepo := repository.NewBatchRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	shipmentRepo := repository.NewShipmentRepository(db)
	referenceRepo := repository.NewReferenceRepository(db)

	// Initialize services
	ledger := service.NewLedger(db, batchRepo, allocationRepo, publisher, collector, log, cfg.Stock.ShelfLifeMonths)
	allocator := service.NewAllocator(db, batchRepo, allocationRepo, log)
	guard := service.NewGuard(db, batchRepo, referenceRepo, publisher, collector, log)
	orders := service.NewOrderService(db, orderRepo, allocator, publisher, collector, log)
	shipments := service.NewShipmentService(db, shipmentRepo, batchRepo, referenceRepo, publisher, collector, log)
	view := service.NewInventoryView(batchRepo, collector)

	// Initialize handlers
	handlers := handler.Handlers{
		Batches:     handler.NewBatchHandler(ledger, view, allocator, log),
		Allocations: handler.NewAllocationHandler(allocator, log),
		Orders:      handler.NewOrderHandler(orders, log),
		Shipments:   handler.NewShipmentHandler(shipments, log),
		Entities:    handler.NewEntityHandler(guard, log),
		Dashboard:   handler.NewDashboardHandler(view, log),
	}

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", httputil.WarehouseHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(httputil.WarehouseScope)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status":   "healthy",
			"service":  serviceName,
			"database": db.Health(r.Context()),
		}
		if rmq != nil {
			status["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, status)
	})

	if collector != nil {
		r.Handle(cfg.Metrics.Path, collector.Handler())
	}

	// API routes
	r.Route("/api/v1/stock", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(httputil.NewAccessGate(cfg.Auth.Secret, cfg.Auth.Issuer).Middleware)
		}
		handlers.Routes(r)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
