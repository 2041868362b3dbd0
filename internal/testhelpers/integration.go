//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"testing"
	"time"

	"github.com/kjstillabower/trip-weather-service/internal/cache"
	"github.com/kjstillabower/trip-weather-service/internal/client"
	"github.com/kjstillabower/trip-weather-service/internal/service"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	GoogleAPIKey  string
	WeatherAPIKey string
	CacheBackend  string // "in_memory", "memcached" or "redis"
	MemcachedAddr string
	RedisAddr     string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips the test unless GOOGLE_API_KEY and WEATHERAPI_API_KEY are set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	googleKey := os.Getenv("GOOGLE_API_KEY")
	weatherKey := os.Getenv("WEATHERAPI_API_KEY")
	if googleKey == "" || weatherKey == "" {
		t.Skip("GOOGLE_API_KEY or WEATHERAPI_API_KEY not set, skipping integration test")
	}

	memcachedAddr := os.Getenv("MEMCACHED_ADDRS")
	if memcachedAddr == "" {
		memcachedAddr = "localhost:11211"
	}
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	return IntegrationTestConfig{
		GoogleAPIKey:  googleKey,
		WeatherAPIKey: weatherKey,
		CacheBackend:  os.Getenv("INTEGRATION_CACHE_BACKEND"),
		MemcachedAddr: memcachedAddr,
		RedisAddr:     redisAddr,
	}
}

// SetupIntegrationService creates a TripService against the real providers,
// with place and forecast lookups cached on the configured backend.
// Returns the service, the cache and a cleanup function.
func SetupIntegrationService(t *testing.T, cfg IntegrationTestConfig) (*service.TripService, cache.Cache, func()) {
	google := client.NewGoogleMapsClient(client.GoogleMapsConfig{
		APIKey:        cfg.GoogleAPIKey,
		DirectionsURL: "https://maps.googleapis.com/maps/api/directions/json",
		GeocodeURL:    "https://maps.googleapis.com/maps/api/geocode/json",
		Timeout:       5 * time.Second,
	})
	weather := client.NewWeatherAPIClient(cfg.WeatherAPIKey, "https://api.weatherapi.com/v1/forecast.json", 5*time.Second, nil)

	var cacheSvc cache.Cache
	cleanup := func() {}
	switch cfg.CacheBackend {
	case "memcached":
		mc := cache.NewMemcachedCache(cfg.MemcachedAddr, 500*time.Millisecond, 2)
		cacheSvc = mc
		cleanup = func() { _ = mc.Close() }
		t.Logf("Using Memcached cache at %s", cfg.MemcachedAddr)
	case "redis":
		rc := cache.NewRedisCache(cfg.RedisAddr, 0)
		cacheSvc = rc
		cleanup = func() { _ = rc.Close() }
		t.Logf("Using Redis cache at %s", cfg.RedisAddr)
	default:
		cacheSvc = cache.NewInMemoryCache()
	}

	svc := service.NewTripService(
		google,
		service.NewCachedPlaceResolver(google, cacheSvc, 5*time.Minute),
		service.NewCachedForecaster(weather, cacheSvc, 5*time.Minute),
		nil,
		service.DefaultStopCount,
		1,
	)
	return svc, cacheSvc, cleanup
}
