package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/ridegate/be-commute-permits/internal/client"
	"github.com/ridegate/be-commute-permits/internal/config"
	"github.com/ridegate/be-commute-permits/internal/database"
	"github.com/ridegate/be-commute-permits/internal/handler"
	"github.com/ridegate/be-commute-permits/internal/logger"
	"github.com/ridegate/be-commute-permits/internal/middleware"
	"github.com/ridegate/be-commute-permits/internal/repository"
	"github.com/ridegate/be-commute-permits/internal/service"
)

func main() {
	// Load .env for local development; ignored when absent.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Commute Permits Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Repositories
	docRepo := repository.NewDocumentRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	permitRepo := repository.NewPermitRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// External collaborators
	messenger, err := client.NewNATSMessenger(cfg.NATS.URL, cfg.NATS.SubjectPrefix, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer messenger.Close()

	renderer := client.NewRendererClient(cfg.Renderer.BaseURL, cfg.Renderer.Timeout)

	log.Info().
		Str("nats_url", cfg.NATS.URL).
		Str("renderer_url", cfg.Renderer.BaseURL).
		Msg("External collaborators initialized")

	// Services
	limiter := rate.NewLimiter(rate.Limit(cfg.Notify.RatePerSecond), cfg.Notify.Burst)
	dispatcher := service.NewDispatcher(notifRepo, messenger, limiter, nil, log)
	approvalService := service.NewApprovalService(docRepo, historyRepo, log)
	eligibilityService := service.NewEligibilityService(
		docRepo, permitRepo, employeeRepo, renderer, nil, cfg.PublicBaseURL, log)
	bulkService := service.NewBulkService(
		approvalService, eligibilityService, dispatcher,
		cfg.Bulk.MaxItems, cfg.Bulk.BatchSize, log)
	monitorService := service.NewMonitorService(
		docRepo, permitRepo, employeeRepo, settingsRepo, dispatcher,
		nil, cfg.Monitor.Interval, log)

	if cfg.Monitor.Enabled {
		go monitorService.Run(ctx)
	}

	// HTTP routes
	httpHandler := handler.NewHTTPHandler(
		approvalService, eligibilityService, bulkService, monitorService, permitRepo, log)
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	mux.HandleFunc("/api/v1/documents/approve", httpHandler.ApproveDocument)
	mux.HandleFunc("/api/v1/documents/reject", httpHandler.RejectDocument)
	mux.HandleFunc("/api/v1/documents/bulk-approve", httpHandler.BulkApprove)
	mux.HandleFunc("/api/v1/documents/history", httpHandler.DocumentHistory)
	mux.HandleFunc("/api/v1/permits", httpHandler.ListPermits)
	mux.HandleFunc("/api/v1/permits/regenerate", httpHandler.RegeneratePermitArtifact)
	mux.HandleFunc("/api/v1/monitor/run", httpHandler.RunMonitor)

	// Apply middleware
	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.CORS([]string{"*"})(h)
	h = middleware.Timeout(30 * time.Second)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
