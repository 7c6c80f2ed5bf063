package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/selasar/cart-service/internal/cleanup"
	"github.com/selasar/cart-service/internal/config"
	"github.com/selasar/cart-service/internal/obs"
	"github.com/selasar/cart-service/internal/repo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()
	obs.MustRegisterDomainMetrics("cart", prometheus.NewRegistry())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustConnectDB(ctx, cfg, logger)
	defer pool.Close()

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	defaults := cleanup.Params{
		AgeThresholdDays: cfg.CleanupAgeDays,
		BatchSize:        cfg.CleanupBatchSize,
	}
	handler := &cleanup.TaskHandler{
		Svc:      &cleanup.Service{Store: &repo.CartItems{Pool: pool}, Logger: &logger},
		Defaults: defaults,
		Lock:     cleanup.RunLock{R: redisClient},
	}

	mux := asynq.NewServeMux()
	mux.Handle(cleanup.TaskTypeCartCleanup, handler)

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
	})

	task, err := cleanup.NewTask(defaults)
	if err != nil {
		logger.Fatal().Err(err).Msg("build cleanup task")
	}
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
	if _, err := scheduler.Register("@every "+cfg.CleanupInterval.String(), task); err != nil {
		logger.Fatal().Err(err).Msg("schedule cleanup task")
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error().Err(err).Msg("scheduler stopped")
		}
	}()

	logger.Info().Dur("interval", cfg.CleanupInterval).Msg("worker starting")
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}

	<-ctx.Done()
	scheduler.Shutdown()
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

func mustConnectDB(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(connectCtx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}
