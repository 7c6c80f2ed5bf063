package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/selasar/cart-service/internal/app"
	"github.com/selasar/cart-service/internal/audit"
	"github.com/selasar/cart-service/internal/cart"
	"github.com/selasar/cart-service/internal/catalog"
	"github.com/selasar/cart-service/internal/cleanup"
	"github.com/selasar/cart-service/internal/common"
	"github.com/selasar/cart-service/internal/config"
	"github.com/selasar/cart-service/internal/decorate"
	"github.com/selasar/cart-service/internal/events"
	"github.com/selasar/cart-service/internal/health"
	"github.com/selasar/cart-service/internal/money"
	"github.com/selasar/cart-service/internal/obs"
	"github.com/selasar/cart-service/internal/pricing"
	"github.com/selasar/cart-service/internal/repo"
	"github.com/selasar/cart-service/internal/rules"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	obs.MustRegisterDomainMetrics("cart", registry)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	deps := app.Dependencies{
		DB:              mustConnectDB(ctx, cfg, logger),
		Redis:           mustConnectRedis(ctx, cfg, logger),
		Validator:       app.NewValidator(),
		MetricsRegistry: registry,
	}
	defer deps.DB.Close()
	defer func() {
		if err := deps.Redis.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	catalogStore := &catalog.Store{Pool: deps.DB}
	products := &catalog.CachedLookup{
		Next:  catalogStore,
		Cache: catalog.NewCache(deps.Redis, cfg.ProductCacheTTL),
	}

	ruleChain := &rules.Chain{}
	ruleChain.Add(rules.NewQuantityBounds())
	ruleChain.Add(rules.NewStockAvailability(products, catalogStore))

	decorators := &decorate.Chain{}
	if promo, err := money.Parse(cfg.PromoPercent); err == nil && !promo.IsZero() {
		decorators.Add(decorate.PromoStage{Percent: promo, Prio: 100})
	}

	eventStore := &repo.Events{Pool: deps.DB}
	bus := &events.Bus{
		Store: eventStore,
		Notifiers: []events.Notifier{
			events.LogNotifier{Logger: &logger},
			events.MetricsNotifier{},
		},
	}
	auditSvc := audit.Service{
		Store:   &repo.AuditEntries{Pool: deps.DB},
		Enabled: cfg.AuditEnabled,
	}

	cartSvc := &cart.Service{
		Repo:          &repo.CartItems{Pool: deps.DB},
		Rules:         ruleChain,
		Calc:          &pricing.Calculator{Products: products},
		Decorators:    decorators,
		Products:      products,
		Bus:           bus,
		Audit:         auditSvc,
		Logger:        &logger,
		MaxItems:      cfg.CartMaxItems,
		MaxQtyPerLine: cfg.CartMaxQtyPerLine,
	}
	cartHandler := &cart.Handler{Svc: cartSvc, Validate: deps.Validator, Currency: cfg.Currency}
	auditHandler := &audit.Handler{Svc: auditSvc}
	eventsHandler := &events.Handler{Store: eventStore}
	priceHandler := &pricing.Handler{Invalidator: products, Validate: deps.Validator, Logger: &logger}
	cleanupHandler := &cleanup.Handler{
		Svc: &cleanup.Service{Store: &repo.CartItems{Pool: deps.DB}, Logger: &logger},
		Defaults: cleanup.Params{
			AgeThresholdDays: cfg.CleanupAgeDays,
			BatchSize:        cfg.CleanupBatchSize,
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.HandlerFor(deps.MetricsRegistry, promhttp.HandlerOpts{}))

	healthHandler := health.Handler{Checker: health.Probes{Pool: deps.DB, Redis: deps.Redis}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Group(func(g chi.Router) {
			g.Use(common.UserIdentity)
			cartHandler.Routes(g)
		})
		v.Route("/admin", func(admin chi.Router) {
			auditHandler.Routes(admin)
			eventsHandler.Routes(admin)
			cleanupHandler.Routes(admin)
		})
		v.Route("/internal", func(in chi.Router) {
			priceHandler.Routes(in)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-runCtx.Done()
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server shutdown complete")
}

func mustConnectDB(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "cart-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustConnectRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
