package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vetclinic/vetclinic/internal/config"
	"github.com/vetclinic/vetclinic/internal/domain/inventory"
	"github.com/vetclinic/vetclinic/internal/domain/medrecord"
	"github.com/vetclinic/vetclinic/internal/domain/reminder"
	"github.com/vetclinic/vetclinic/internal/domain/scheduling"
	"github.com/vetclinic/vetclinic/internal/platform/auth"
	"github.com/vetclinic/vetclinic/internal/platform/db"
	"github.com/vetclinic/vetclinic/internal/platform/metrics"
	"github.com/vetclinic/vetclinic/internal/platform/middleware"
	"github.com/vetclinic/vetclinic/internal/platform/notification"
)

// database is what the server needs from the pool: queries, transactions
// and a health ping. *pgxpool.Pool satisfies it.
type database interface {
	db.Beginner
	db.Pinger
}

// app holds the wired server and the background reminder worker.
type app struct {
	echo       *echo.Echo
	scheduling *scheduling.Service
	worker     *reminder.Worker
	dispatcher *notification.Dispatcher
	closers    []func() error
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c()
	}
}

// newSender always logs notifications and also publishes them to Kafka when
// brokers are configured.
func newSender(cfg *config.Config, logger zerolog.Logger) (notification.Sender, func() error) {
	logSender := notification.NewLogSender(logger)
	if len(cfg.KafkaBrokers) == 0 {
		return logSender, nil
	}
	kafka := notification.NewKafkaSender(cfg.KafkaBrokers, cfg.KafkaAlertTopic)
	return notification.MultiSender{logSender, kafka}, kafka.Close
}

// newFlagStore uses Redis for reminder flags when REDIS_URL is set so that
// several workers share one set; otherwise flags live in memory.
func newFlagStore(ctx context.Context, cfg *config.Config) (reminder.FlagStore, func() error, error) {
	if cfg.RedisURL == "" {
		return reminder.NewMemoryFlags(), nil, nil
	}
	client, err := reminder.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return reminder.NewRedisFlags(client, cfg.ReminderFlagTTL), client.Close, nil
}

func buildApp(ctx context.Context, cfg *config.Config, pool database, logger zerolog.Logger, reg *prometheus.Registry) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	closed, err := cfg.ClosedWeekdays()
	if err != nil {
		return nil, err
	}
	a := &app{}

	m := metrics.NewSchedulingMetrics(reg)

	sender, closeSender := newSender(cfg, logger)
	if closeSender != nil {
		a.closers = append(a.closers, closeSender)
	}
	a.dispatcher = notification.NewDispatcher(sender, notification.NewTemplateEngine(), 1000)

	flags, closeFlags, err := newFlagStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("reminder flags: %w", err)
	}
	if closeFlags != nil {
		a.closers = append(a.closers, closeFlags)
	}

	records := medrecord.NewService(medrecord.NewRepoPG(pool), logger)
	stock := inventory.NewService(inventory.NewRepoPG(pool), logger)

	svc := scheduling.NewService(
		scheduling.NewAppointmentRepoPG(pool),
		records,
		inventory.NewConsultationAdjuster(stock),
		scheduling.Policy{Location: loc, ClosedDays: closed},
	)
	svc.SetTransactor(db.NewTxRunner(pool))
	svc.SetNotifier(reminder.NewStatusNotifier(a.dispatcher, m))
	svc.SetMetrics(m)
	svc.SetLogger(logger.With().Str("component", "scheduling").Logger())
	a.scheduling = svc

	a.worker = reminder.NewWorker(svc, flags, a.dispatcher, logger, reminder.WorkerConfig{
		Interval: cfg.ReminderEvery,
		Location: loc,
	})
	a.worker.SetMetrics(m)

	a.echo = newEcho(cfg, pool, logger, reg)
	apiV1 := a.echo.Group("/api/v1")
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}
	// Runs after auth so authenticated callers are limited per user.
	rl := middleware.DefaultRateLimitConfig()
	rl.RequestsPerSecond = cfg.RateLimitRPS
	rl.BurstSize = cfg.RateLimitBurst
	apiV1.Use(middleware.RateLimit(rl))

	scheduling.NewHandler(svc).RegisterRoutes(apiV1)
	reminder.NewHandler(svc).RegisterRoutes(apiV1)
	medrecord.NewHandler(records).RegisterRoutes(apiV1)
	inventory.NewHandler(stock).RegisterRoutes(apiV1)
	notification.NewHandler(a.dispatcher).RegisterRoutes(apiV1, auth.RequireRole(auth.RoleStaff))

	return a, nil
}

// newEcho builds the server with global middleware and the unauthenticated
// health and metrics routes.
func newEcho(cfg *config.Config, pool database, logger zerolog.Logger, reg *prometheus.Registry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(!cfg.IsDev()))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))

	var stats func() *db.PoolStats
	if p, ok := pool.(*pgxpool.Pool); ok {
		stats = func() *db.PoolStats { return db.GetPoolStats(p) }
	}
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool, stats))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	return e
}

// newRegistry returns a registry carrying the runtime and process
// collectors alongside the application metrics.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
