package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clubledger/clubledger/internal/app"
	"github.com/clubledger/clubledger/internal/members"
	"github.com/clubledger/clubledger/internal/observability"
	"github.com/clubledger/clubledger/internal/payments"
	"github.com/clubledger/clubledger/internal/periods"
	"github.com/clubledger/clubledger/internal/platform/cache"
	"github.com/clubledger/clubledger/internal/platform/db"
	"github.com/clubledger/clubledger/internal/productsales"
	"github.com/clubledger/clubledger/internal/revenue"
	"github.com/clubledger/clubledger/internal/shared"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool, logger)
	reportCache := revenue.NewCache(redisClient, cfg.ReportCacheTTL)

	memberDirectory := members.NewRepository(pool)

	periodsRepo := periods.NewRepository(pool)
	periodsService := periods.NewService(periodsRepo, auditLogger, reportCache)
	periodsHandler := periods.NewHandler(logger, periodsService)

	paymentsRepo := payments.NewRepository(pool)
	paymentsService := payments.NewService(paymentsRepo, memberDirectory, periodsService, auditLogger, reportCache, metrics)
	paymentsHandler := payments.NewHandler(logger, paymentsService)

	revenueRepo := revenue.NewRepository(pool)
	productSales := productsales.NewRepository(pool)
	revenueService := revenue.NewService(revenueRepo, productSales, periodsService, reportCache)
	revenueHandler := revenue.NewHandler(logger, revenueService)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		PaymentsHandler: paymentsHandler,
		RevenueHandler:  revenueHandler,
		PeriodsHandler:  periodsHandler,
		Metrics:         metrics,
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
