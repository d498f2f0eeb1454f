package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-pricing/internal/app"
	"github.com/noah-isme/backend-pricing/internal/catalog"
	"github.com/noah-isme/backend-pricing/internal/config"
	"github.com/noah-isme/backend-pricing/internal/lock"
	"github.com/noah-isme/backend-pricing/internal/obs"
	"github.com/noah-isme/backend-pricing/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Str("component", "worker").Logger()
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := app.NewPool(startCtx, cfg, cfg.ServiceName+"-worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	redisClient, err := app.NewRedis(startCtx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect redis")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	redisOpt, err := app.TaskRedis(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("task redis")
	}
	client := asynq.NewClient(redisOpt)
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues:      map[string]int{tasks.Queue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Error().Err(err).Str("task", task.Type()).Msg("task failed")
		}),
	})
	mux := tasks.NewMux(tasks.Handler{Versions: catalog.NewVersioner(redisClient), Logger: logger})
	if err := server.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start task server")
	}

	enqueuer := tasks.Enqueuer{Client: client}
	listener := tasks.Listener{Pool: pool, Enqueue: enqueuer.OffersChanged, Logger: logger}

	lease := lock.Lease{Client: redisClient, Key: "pricing:catalog-listener", TTL: 15 * time.Second}

	logger.Info().Msg("worker starting")
	for ctx.Err() == nil {
		err := lease.Hold(ctx, listener.Run)
		switch {
		case errors.Is(err, lock.ErrLeaseLost):
			logger.Warn().Msg("catalog listener lease lost")
		case err != nil && !errors.Is(err, context.Canceled):
			logger.Error().Err(err).Msg("catalog listener stopped")
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
		}
	}
	server.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}
