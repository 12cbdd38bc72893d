package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/clubledger/clubledger/internal/app"
	jobmetrics "github.com/clubledger/clubledger/internal/jobs"
	"github.com/clubledger/clubledger/internal/periods"
	"github.com/clubledger/clubledger/internal/platform/cache"
	"github.com/clubledger/clubledger/internal/platform/db"
	"github.com/clubledger/clubledger/internal/productsales"
	"github.com/clubledger/clubledger/internal/revenue"
	"github.com/clubledger/clubledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	reportCache := revenue.NewCache(redisClient, cfg.ReportCacheTTL)
	periodsService := periods.NewService(periods.NewRepository(pool), nil, nil)
	revenueService := revenue.NewService(revenue.NewRepository(pool), productsales.NewRepository(pool), periodsService, reportCache)

	warmupJob := jobs.NewRevenueWarmupJob(revenueService, pool, logger, jobmetrics.NewMetrics(nil))
	warmupTask, err := jobs.NewRevenueWarmupTask(jobs.RevenueWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	minutes := int(cfg.WarmupInterval.Minutes())
	if minutes < 1 {
		minutes = 30
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRevenueWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: fmt.Sprintf("@every %dm", minutes), Task: warmupTask},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker")
	if err := worker.Run(ctx); err != nil {
		logger.Error("worker", slog.Any("error", err))
		os.Exit(1)
	}
}
