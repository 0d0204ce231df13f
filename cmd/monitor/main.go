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

	"github.com/cherrryana/temperature-monitor/internal/analysis"
	"github.com/cherrryana/temperature-monitor/internal/cache"
	"github.com/cherrryana/temperature-monitor/internal/circuitbreaker"
	"github.com/cherrryana/temperature-monitor/internal/client"
	"github.com/cherrryana/temperature-monitor/internal/config"
	"github.com/cherrryana/temperature-monitor/internal/fetch"
	"github.com/cherrryana/temperature-monitor/internal/httpapi"
	"github.com/cherrryana/temperature-monitor/internal/ingest"
	"github.com/cherrryana/temperature-monitor/internal/live"
	"github.com/cherrryana/temperature-monitor/internal/observability"
	"github.com/cherrryana/temperature-monitor/internal/rolling"
	"github.com/cherrryana/temperature-monitor/internal/scheduler"
)

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

	dataset, err := ingest.LoadCSV(cfg.DatasetPath, logger)
	if err != nil {
		logger.Fatal("dataset", zap.Error(err))
	}

	cities := cfg.Cities
	if len(cities) == 0 {
		cities = dataset.Cities()
	}

	// Time both rolling strategies once so their trade-off is observable,
	// then run the configured one for the report.
	comparison := analysis.CompareStrategies(dataset, cfg.WindowSize, logger)

	strategy, err := rolling.NewStrategy(cfg.RollingStrategy)
	if err != nil {
		logger.Fatal("rolling strategy", zap.Error(err))
	}
	if p, ok := strategy.(rolling.Parallel); ok && cfg.RollingWorkers > 0 {
		p.Workers = cfg.RollingWorkers
		strategy = p
	}

	pipeline := analysis.NewPipeline(strategy, cfg.WindowSize, cfg.BandMultiplier, logger)
	report := pipeline.Run(dataset)
	for _, city := range dataset.Cities() {
		cr := report.Cities[city]
		pct := 0.0
		if len(cr.Points) > 0 {
			pct = float64(cr.AnomalyCount) / float64(len(cr.Points)) * 100
		}
		logger.Info("city analyzed",
			zap.String("city", city),
			zap.Int("anomalies", cr.AnomalyCount),
			zap.String("anomaly_pct", fmt.Sprintf("%.2f%%", pct)))
	}

	checker := live.NewChecker(report.Profiles, cfg.BandMultiplier, logger)

	var (
		source         *fetch.Source
		liveChecker    *live.Checker
		memcacheCloser *cache.MemcachedCache
		sched          *scheduler.Scheduler
	)
	if cfg.WeatherAPIKey == "" {
		logger.Warn("WEATHER_API_KEY not set; live anomaly checks disabled")
	} else {
		weatherClient, err := client.NewOpenWeatherClientWithRetry(
			cfg.WeatherAPIKey,
			cfg.WeatherAPIURL,
			cfg.WeatherAPITimeout,
			cfg.RetryAttempts,
			cfg.RetryBaseDelay,
			cfg.RetryMaxDelay,
		)
		if err != nil {
			logger.Fatal("weather client", zap.Error(err))
		}

		if cfg.CircuitBreakerEnabled {
			cb := circuitbreaker.New(circuitbreaker.Config{
				FailureThreshold: cfg.CircuitBreakerFailureThreshold,
				SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
				Timeout:          cfg.CircuitBreakerTimeout,
				Component:        "weather_api",
				OnStateChange: func(from, to circuitbreaker.State) {
					observability.RecordCircuitBreakerTransition("weather_api", from.String(), to.String())
				},
			})
			weatherClient.SetBreaker(cb)
			logger.Info("circuit breaker enabled",
				zap.Int("failure_threshold", cfg.CircuitBreakerFailureThreshold),
				zap.Duration("timeout", cfg.CircuitBreakerTimeout))
		}

		var liveCache cache.Cache
		switch cfg.CacheBackend {
		case "memcached":
			mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
			if err != nil {
				logger.Fatal("memcached cache", zap.Error(err))
			}
			memcacheCloser = mc
			liveCache = mc
			logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
		default:
			liveCache = cache.NewInMemoryCache()
			logger.Info("cache backend: in_memory")
		}

		source = fetch.NewSource(weatherClient, liveCache, cfg.CacheTTL, logger)
		liveChecker = checker

		fetcher, err := fetch.New(cfg.FetchStrategy, source)
		if err != nil {
			logger.Fatal("fetch strategy", zap.Error(err))
		}

		if cfg.MonitorInterval > 0 {
			sched = scheduler.New(fetcher, checker, cities, cfg.MonitorInterval, cfg.RequestTimeout*2, logger)
			if err := sched.Start(); err != nil {
				logger.Fatal("scheduler", zap.Error(err))
			}
		}
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httpapi.NewHandler(report, &comparison, source, liveChecker, logger)
	if memcacheCloser != nil {
		handler.SetCachePing(memcacheCloser.Ping)
	}
	router := handler.Router(
		observability.MetricsHandler(),
		httpapi.CorrelationIDMiddleware(logger),
		httpapi.MetricsMiddleware,
		httpapi.RateLimitMiddleware(limiter),
		httpapi.TimeoutMiddleware(cfg.RequestTimeout),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

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
	if sched != nil {
		sched.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}
