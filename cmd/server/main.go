package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/pickline/backend/docs"
	"github.com/pickline/backend/internal/audit"
	"github.com/pickline/backend/internal/config"
	"github.com/pickline/backend/internal/database"
	"github.com/pickline/backend/internal/handlers"
	mW "github.com/pickline/backend/internal/middleware"
	"github.com/pickline/backend/internal/services"
	"github.com/pickline/backend/internal/store/postgres"
	"github.com/pickline/backend/internal/worker"
)

const (
	envDev  = "dev"
	envProd = "prod"
)

// @title Pickline Ledger API
// @version 1.0
// @description Wallet, entry and settlement API for the Pickline contest app
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := setupLogger(cfg.Env)
	log.Info("starting ledger service", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(ctx, log)
	if err != nil {
		log.Error("failed to init database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	redisClient := database.InitRedis(ctx, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	st := postgres.New(db, log)
	auditLogger := audit.NewAuditLogger(log)

	authService := services.NewAuthService(st, redisClient, cfg, auditLogger, log)
	payoutService := services.NewPayoutService(redisClient, cfg.Payout, log)
	ledgerService := services.NewLedgerService(st, payoutService, auditLogger, cfg.Ledger, log)
	contestService := services.NewContestService(st)
	voucherService := services.NewVoucherService(ledgerService)

	// Settlement jobs need Redis; without it only the synchronous admin
	// settle endpoints are available.
	var queue handlers.SettlementEnqueuer
	var wg sync.WaitGroup
	if redisClient != nil {
		queue = worker.NewSettlementQueue(redisClient, cfg.Settlement)
		settlementWorker := worker.NewSettlementWorker(redisClient, ledgerService, cfg.Settlement, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			settlementWorker.Run(ctx)
		}()
	}

	api := &handlers.API{
		Auth:     handlers.NewAuthHandler(authService, log),
		Ledger:   handlers.NewLedgerHandler(ledgerService, log),
		Contests: handlers.NewContestHandler(contestService),
		QR:       handlers.NewQRHandler(voucherService),
		Admin:    handlers.NewAdminHandler(ledgerService, queue, log),
	}
	health := handlers.NewHealthHandler(st, redisClient)

	docs.SwaggerInfo.Host = "localhost:" + cfg.HTTP.Port

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(mW.Metrics)
	r.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handlers.IdempotencyKeyHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	r.Get("/health", health.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		api.Routes(r, authService)
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", slog.String("error", err.Error()))
	}
	wg.Wait()

	log.Info("server stopped")
}

func setupLogger(env string) *slog.Logger {
	var handler slog.Handler
	switch env {
	case envDev:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	case envProd:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	default: // local
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(handler)
}
