// Command medvault serves the MedVault REST API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/medvault"
	"github.com/MrEthical07/medvault/api"
	"github.com/MrEthical07/medvault/internal/audit"
	"github.com/MrEthical07/medvault/internal/config"
	"github.com/MrEthical07/medvault/internal/logger"
	"github.com/MrEthical07/medvault/internal/tracer"
	otelexport "github.com/MrEthical07/medvault/metrics/export/otel"
	promexport "github.com/MrEthical07/medvault/metrics/export/prometheus"
	"github.com/MrEthical07/medvault/middleware"
	"github.com/MrEthical07/medvault/records"
	"github.com/MrEthical07/medvault/store/mongostore"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "medvault: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("service", cfg.App.Name), zap.String("env", cfg.App.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App.Version)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	store, err := mongostore.Connect(mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.ConnectTimeout,
	}, log.Named("mongo"))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("mongo disconnect failed", zap.Error(err))
		}
	}()

	builder := medvault.New().
		WithConfig(engineConfig(cfg)).
		WithIdentityStore(store).
		WithChartStore(store).
		WithAuditSink(audit.MultiSink{store.AuditSink(), audit.NewZapSink(log.Named("audit"))}).
		WithNotifier(medvault.NewLogNotifier(log.Named("notifier"), cfg.App.BaseURL)).
		WithLogger(log)

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		builder = builder.WithRedis(rdb)
		log.Info("rate limit windows backed by redis", zap.String("addr", cfg.Redis.Addr))
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	report := engine.SecurityReport()
	log.Info("security posture",
		zap.Bool("production", report.ProductionMode),
		zap.String("signing", report.SigningAlgorithm),
		zap.Duration("token_ttl", report.TokenTTL),
		zap.Bool("lockout", report.LockoutActive),
		zap.Bool("rate_limiting", report.RateLimitingActive),
		zap.Bool("audit", report.AuditActive),
	)
	for _, w := range report.Warnings {
		log.Warn("security posture warning", zap.String("warning", w))
	}

	svc, err := records.NewService(records.Deps{
		Patients:  store,
		Records:   store,
		Directory: store,
		Evaluator: engine.Access(),
		Auditor:   engine,
		Logger:    log.Named("records"),
		Now:       engine.Now,
	})
	if err != nil {
		return fmt.Errorf("build records service: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		promexport.NewCollector(engine),
	)

	// Picks up whatever MeterProvider the host installs; a no-op otherwise.
	meterExport, err := otelexport.NewExporter(otel.Meter(cfg.Tracing.ServiceName), engine)
	if err != nil {
		return fmt.Errorf("register otel metrics: %w", err)
	}
	defer func() { _ = meterExport.Close() }()

	if cfg.App.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	opts := api.Options{
		Engine:         engine,
		Records:        svc,
		Logger:         log.Named("http"),
		Metrics:        middleware.NewHTTPMetrics(reg, "medvault"),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Health:         store.Ping,
		TracerName:     cfg.Tracing.ServiceName,
		TrustedProxies: cfg.Server.TrustedProxies,
		HSTS:           cfg.App.Production(),
	}
	if cfg.RateLimit.Enabled {
		opts.Throttle = middleware.NewThrottle(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize)
	}
	router, err := api.NewRouter(opts)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown failed", zap.Error(err))
	}
	log.Info("goodbye")
	return nil
}

// engineConfig maps process settings onto the engine defaults.
func engineConfig(cfg *config.Config) medvault.Config {
	ec := medvault.DefaultConfig()
	ec.ProductionMode = cfg.App.Production()

	ec.JWT.PrivateKey = []byte(cfg.JWT.Secret)
	ec.JWT.TTL = cfg.JWT.TTL
	ec.JWT.Issuer = cfg.JWT.Issuer

	ec.Cookie.Name = cfg.Cookie.Name
	ec.Cookie.Secure = cfg.Cookie.Secure
	ec.Cookie.Domain = cfg.Cookie.Domain

	ec.RateLimit.Enabled = cfg.RateLimit.Enabled
	ec.RateLimit.Auth = medvault.WindowConfig{Limit: cfg.RateLimit.AuthLimit, Window: cfg.RateLimit.AuthWindow}
	ec.RateLimit.Sensitive = medvault.WindowConfig{Limit: cfg.RateLimit.SensitiveLimit, Window: cfg.RateLimit.SensitiveWindow}
	ec.RateLimit.PasswordReset = medvault.WindowConfig{Limit: cfg.RateLimit.PasswordResetLimit, Window: cfg.RateLimit.PasswordResetWindow}
	return ec
}
