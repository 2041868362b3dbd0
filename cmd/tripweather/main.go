package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/trip-weather-service/internal/cache"
	"github.com/kjstillabower/trip-weather-service/internal/circuitbreaker"
	"github.com/kjstillabower/trip-weather-service/internal/client"
	"github.com/kjstillabower/trip-weather-service/internal/config"
	httphandler "github.com/kjstillabower/trip-weather-service/internal/http"
	"github.com/kjstillabower/trip-weather-service/internal/lifecycle"
	"github.com/kjstillabower/trip-weather-service/internal/observability"
	"github.com/kjstillabower/trip-weather-service/internal/service"
	"github.com/kjstillabower/trip-weather-service/internal/validation"
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

	breakers := map[string]*circuitbreaker.Breaker{}
	newBreaker := func(provider string) *circuitbreaker.Breaker {
		if !cfg.CircuitBreakerEnabled {
			return nil
		}
		b := circuitbreaker.New(circuitbreaker.Config{
			MaxFailures: cfg.CircuitBreakerMaxFailures,
			Timeout:     cfg.CircuitBreakerTimeout,
			Component:   provider,
			OnStateChange: func(from, to string) {
				observability.RecordCircuitBreakerTransition(provider, from, to)
				logger.Warn("circuit breaker state change", zap.String("provider", provider), zap.String("from", from), zap.String("to", to))
			},
		})
		observability.CircuitBreakerState.WithLabelValues(provider).Set(0)
		breakers[provider] = b
		return b
	}

	google := client.NewGoogleMapsClient(client.GoogleMapsConfig{
		APIKey:        cfg.GoogleAPIKey,
		DirectionsURL: cfg.DirectionsURL,
		GeocodeURL:    cfg.GeocodeURL,
		Timeout:       cfg.GoogleAPITimeout,
		PlaceTypes:    cfg.PlaceTypes,
		Breaker:       newBreaker("google"),
	})

	var forecaster service.Forecaster
	switch cfg.ForecastProvider {
	case config.ForecastProviderMetNo:
		forecaster = client.NewMetNoClient(cfg.MetNoURL, cfg.MetNoUserAgent, cfg.ForecastTimeout, newBreaker("forecast"))
	default:
		forecaster = client.NewWeatherAPIClient(cfg.WeatherAPIKey, cfg.WeatherAPIURL, cfg.ForecastTimeout, newBreaker("forecast"))
	}
	logger.Info("forecast provider", zap.String("provider", cfg.ForecastProvider))

	var summarizer service.Summarizer
	if cfg.SummaryEnabled {
		summarizer = client.NewOpenAISummarizer(client.OpenAIConfig{
			APIKey:    cfg.OpenAIAPIKey,
			BaseURL:   cfg.OpenAIBaseURL,
			Model:     cfg.OpenAIModel,
			MaxTokens: cfg.SummaryMaxTokens,
			Timeout:   cfg.SummaryTimeout,
			Breaker:   newBreaker("openai"),
		})
	}

	healthConfig := &httphandler.HealthConfig{
		OverloadWindow:       cfg.OverloadWindow,
		OverloadThresholdPct: cfg.OverloadThresholdPct,
		RateLimitRPS:         cfg.RateLimitRPS,
		DegradedWindow:       cfg.DegradedWindow,
		DegradedErrorPct:     cfg.DegradedErrorPct,
		BreakerStates:        map[string]func() string{},
	}
	for provider, b := range breakers {
		healthConfig.BreakerStates[provider] = b.State
	}

	var places service.PlaceResolver = google
	var cacheCloser io.Closer
	var backend cache.Cache
	switch cfg.CacheBackend {
	case "none":
		logger.Info("cache backend: none")
	case "memcached":
		mc := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		backend, cacheCloser = mc, mc
		healthConfig.CachePing = mc.Ping
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	case "redis":
		rc := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisDB)
		backend, cacheCloser = rc, rc
		healthConfig.CachePing = rc.Ping
		logger.Info("cache backend: redis", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
	default:
		backend = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}
	if backend != nil {
		places = service.NewCachedPlaceResolver(places, backend, cfg.CacheTTL)
		forecaster = service.NewCachedForecaster(forecaster, backend, cfg.CacheTTL)
	}

	tripService := service.NewTripService(google, places, forecaster, summarizer, cfg.StopCount, cfg.SegmentConcurrency)

	validator := validation.New(cfg.LocationMinLength, cfg.LocationMaxLength)
	handler := httphandler.NewHandler(tripService, validator, cfg.Timezone, healthConfig, logger)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	router := httphandler.NewRouter(handler, logger, limiter, cfg.RequestTimeout)

	lifecycle.MarkStarted(time.Now(), cfg.ReadyDelay)
	observability.RegisterRateLimitGauges(cfg.OverloadWindow)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", ":"+cfg.ServerPort),
			zap.Int("stop_count", cfg.StopCount),
			zap.String("timezone", cfg.Timezone.String()),
			zap.Bool("summary_enabled", cfg.SummaryEnabled),
		)
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

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if cacheCloser != nil {
		if err := cacheCloser.Close(); err != nil {
			logger.Error("cache close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}
