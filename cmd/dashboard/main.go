package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/bike-rental-dashboard/internal/cache"
	"github.com/kjstillabower/bike-rental-dashboard/internal/config"
	"github.com/kjstillabower/bike-rental-dashboard/internal/dashboard"
	"github.com/kjstillabower/bike-rental-dashboard/internal/dataset"
	httphandler "github.com/kjstillabower/bike-rental-dashboard/internal/http"
	"github.com/kjstillabower/bike-rental-dashboard/internal/lifecycle"
	"github.com/kjstillabower/bike-rental-dashboard/internal/observability"
	"github.com/kjstillabower/bike-rental-dashboard/internal/render"
	"github.com/kjstillabower/bike-rental-dashboard/internal/traffic"
)

// pinger is implemented by the networked cache backends.
type pinger interface {
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	loadStart := time.Now()
	ds, err := dataset.Load(cfg.DayDataPath, cfg.HourDataPath)
	if err != nil {
		logger.Fatal("load datasets", zap.Error(err))
	}
	logger.Info("datasets loaded",
		zap.Int("daily_records", len(ds.Daily)),
		zap.Int("hourly_records", len(ds.Hourly)),
		zap.Time("min_date", ds.MinDate),
		zap.Time("max_date", ds.MaxDate),
		zap.Duration("duration", time.Since(loadStart)))
	observability.RegisterDatasetGauges(len(ds.Daily), len(ds.Hourly))

	var chartCache cache.Cache
	var remote pinger
	switch cfg.CacheBackend {
	case config.CacheNone:
		chartCache = cache.NopCache{}
		logger.Info("cache backend: none")
	case config.CacheMemcached:
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		chartCache, remote = mc, mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTimeout)
		if err != nil {
			logger.Fatal("redis cache", zap.Error(err))
		}
		chartCache, remote = rc, rc
		logger.Info("cache backend: redis", zap.String("addr", cfg.RedisAddr))
	default:
		chartCache = cache.NewInMemoryCache(cfg.CacheMaxEntries)
		logger.Info("cache backend: in_memory", zap.Int("max_entries", cfg.CacheMaxEntries))
	}

	svc := dashboard.NewService(ds)
	charts := dashboard.NewCharts(svc, chartCache, cfg.CacheTTL, render.Size{Width: cfg.ChartWidth, Height: cfg.ChartHeight})

	if cfg.CacheWarm && cfg.CacheBackend != config.CacheNone {
		warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := cache.NewChartWarmer(charts, logger).Warm(warmCtx, dashboard.ChartKinds, cache.DefaultWarmSpecs()); err != nil {
			logger.Warn("chart cache warming failed", zap.Error(err))
		}
		warmCancel()
	}

	healthConfig := &httphandler.HealthConfig{
		Window:               cfg.HealthWindow,
		RateLimitRPS:         cfg.RateLimitRPS,
		OverloadThresholdPct: cfg.OverloadThresholdPct,
		DegradedErrorPct:     cfg.DegradedErrorPct,
	}
	if remote != nil {
		healthConfig.CachePing = remote.Ping
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(svc, charts, traffic.NewTracker(cfg.HealthWindow), healthConfig, logger)
	router := httphandler.NewRouter(handler, logger, httphandler.RouterConfig{
		Limiter:        limiter,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	lifecycle.SetReady(true)
	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if remote != nil {
		if err := remote.Close(); err != nil {
			logger.Error("cache close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}
