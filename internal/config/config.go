package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/trip-weather-service/internal/traffic"
)

const (
	ForecastProviderWeatherAPI = "weatherapi"
	ForecastProviderMetNo      = "metno"
)

// Config holds service configuration loaded from YAML, secrets and env.
// Built once in main and passed to constructors; never mutated afterwards.
type Config struct {
	ServerPort string

	GoogleAPIKey     string
	DirectionsURL    string
	GeocodeURL       string
	GoogleAPITimeout time.Duration
	PlaceTypes       []string

	ForecastProvider string
	WeatherAPIKey    string
	WeatherAPIURL    string
	MetNoURL         string
	MetNoUserAgent   string
	ForecastTimeout  time.Duration

	SummaryEnabled   bool
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	SummaryTimeout   time.Duration
	SummaryMaxTokens int

	StopCount          int
	Timezone           *time.Location
	SegmentConcurrency int

	// RequestTimeout bounds a whole trip, which makes about three sequential
	// upstream calls per sampled stop.
	RequestTimeout time.Duration

	CacheBackend          string // "none", "in_memory", "memcached" or "redis"
	CacheTTL              time.Duration
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int
	RedisAddr             string
	RedisDB               int

	CircuitBreakerEnabled     bool
	CircuitBreakerMaxFailures int
	CircuitBreakerTimeout     time.Duration

	RateLimitRPS   int
	RateLimitBurst int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	ReadyDelay           time.Duration
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	DegradedWindow       time.Duration
	DegradedErrorPct     int

	LocationMinLength int
	LocationMaxLength int
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Google struct {
		DirectionsURL string   `yaml:"directions_url"`
		GeocodeURL    string   `yaml:"geocode_url"`
		Timeout       string   `yaml:"timeout"`
		PlaceTypes    []string `yaml:"place_types"`
	} `yaml:"google"`

	Forecast struct {
		Provider       string `yaml:"provider"`
		WeatherAPIURL  string `yaml:"weatherapi_url"`
		MetNoURL       string `yaml:"metno_url"`
		MetNoUserAgent string `yaml:"metno_user_agent"`
		Timeout        string `yaml:"timeout"`
	} `yaml:"forecast"`

	Summary struct {
		Enabled   *bool  `yaml:"enabled"`
		BaseURL   string `yaml:"base_url"`
		Model     string `yaml:"model"`
		Timeout   string `yaml:"timeout"`
		MaxTokens int    `yaml:"max_tokens"`
	} `yaml:"summary"`

	Trip struct {
		StopCount          int    `yaml:"stop_count"`
		Timezone           string `yaml:"timezone"`
		SegmentConcurrency int    `yaml:"segment_concurrency"`
	} `yaml:"trip"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		Redis struct {
			Addr string `yaml:"addr"`
			DB   int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	CircuitBreaker struct {
		Enabled     *bool  `yaml:"enabled"`
		MaxFailures int    `yaml:"max_failures"`
		Timeout     string `yaml:"timeout"`
	} `yaml:"circuit_breaker"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Lifecycle struct {
		ReadyDelay           string `yaml:"ready_delay"`
		OverloadWindow       string `yaml:"overload_window"`
		OverloadThresholdPct int    `yaml:"overload_threshold_pct"`
		DegradedWindow       string `yaml:"degraded_window"`
		DegradedErrorPct     int    `yaml:"degraded_error_pct"`
	} `yaml:"lifecycle"`

	Validation struct {
		LocationMinLength int `yaml:"location_min_length"`
		LocationMaxLength int `yaml:"location_max_length"`
	} `yaml:"validation"`
}

type secretsFile struct {
	GoogleAPIKey  string `yaml:"google_api_key"`
	WeatherAPIKey string `yaml:"weatherapi_api_key"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml.
// A .env file in the working directory is loaded first if present; variables already set
// in the environment win. Credentials come from env or the secrets file. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	if err := godotenv.Load(filepath.Join(cwd, ".env")); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	sec, err := loadSecrets(filepath.Join(cwd, "config", "secrets.yaml"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.GoogleAPIKey = firstNonEmpty(os.Getenv("GOOGLE_API_KEY"), sec.GoogleAPIKey)
	cfg.DirectionsURL = firstNonEmpty(fc.Google.DirectionsURL, "https://maps.googleapis.com/maps/api/directions/json")
	cfg.GeocodeURL = firstNonEmpty(fc.Google.GeocodeURL, "https://maps.googleapis.com/maps/api/geocode/json")
	cfg.GoogleAPITimeout = parseDurationOrZero(fc.Google.Timeout, 5*time.Second)
	cfg.PlaceTypes = fc.Google.PlaceTypes
	if len(cfg.PlaceTypes) == 0 {
		cfg.PlaceTypes = []string{"postal_town", "locality"}
	}

	cfg.ForecastProvider = strings.TrimSpace(strings.ToLower(os.Getenv("FORECAST_PROVIDER")))
	if cfg.ForecastProvider == "" {
		cfg.ForecastProvider = strings.TrimSpace(strings.ToLower(fc.Forecast.Provider))
	}
	if cfg.ForecastProvider == "" {
		cfg.ForecastProvider = ForecastProviderWeatherAPI
	}
	cfg.WeatherAPIKey = firstNonEmpty(os.Getenv("WEATHERAPI_API_KEY"), sec.WeatherAPIKey)
	cfg.WeatherAPIURL = firstNonEmpty(fc.Forecast.WeatherAPIURL, "https://api.weatherapi.com/v1/forecast.json")
	cfg.MetNoURL = firstNonEmpty(fc.Forecast.MetNoURL, "https://api.met.no/weatherapi/locationforecast/2.0/compact")
	cfg.MetNoUserAgent = firstNonEmpty(os.Getenv("MET_NO_USER_AGENT"), fc.Forecast.MetNoUserAgent)
	cfg.ForecastTimeout = parseDurationOrZero(fc.Forecast.Timeout, 5*time.Second)

	cfg.SummaryEnabled = true
	if fc.Summary.Enabled != nil {
		cfg.SummaryEnabled = *fc.Summary.Enabled
	}
	cfg.OpenAIAPIKey = firstNonEmpty(os.Getenv("OPENAI_API_KEY"), sec.OpenAIAPIKey)
	cfg.OpenAIBaseURL = strings.TrimSpace(fc.Summary.BaseURL)
	cfg.OpenAIModel = firstNonEmpty(fc.Summary.Model, "gpt-4o-mini")
	cfg.SummaryTimeout = parseDuration(fc.Summary.Timeout, 15*time.Second)
	cfg.SummaryMaxTokens = fc.Summary.MaxTokens
	if cfg.SummaryMaxTokens <= 0 {
		cfg.SummaryMaxTokens = 300
	}

	cfg.StopCount = fc.Trip.StopCount
	if cfg.StopCount == 0 {
		cfg.StopCount = 10
	}
	tz := firstNonEmpty(os.Getenv("TRIP_TIMEZONE"), fc.Trip.Timezone, "UTC")
	cfg.Timezone, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("trip.timezone %q: %w", tz, err)
	}
	cfg.SegmentConcurrency = fc.Trip.SegmentConcurrency
	if cfg.SegmentConcurrency <= 0 {
		cfg.SegmentConcurrency = 1
	}

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 60*time.Second)

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 30*time.Minute)
	cfg.MemcachedAddrs = firstNonEmpty(strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS")), strings.TrimSpace(fc.Cache.Memcached.Addrs), "localhost:11211")
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}
	cfg.RedisAddr = firstNonEmpty(strings.TrimSpace(os.Getenv("REDIS_ADDR")), strings.TrimSpace(fc.Cache.Redis.Addr), "localhost:6379")
	cfg.RedisDB = fc.Cache.Redis.DB

	cfg.CircuitBreakerEnabled = true
	if fc.CircuitBreaker.Enabled != nil {
		cfg.CircuitBreakerEnabled = *fc.CircuitBreaker.Enabled
	}
	cfg.CircuitBreakerMaxFailures = fc.CircuitBreaker.MaxFailures
	if cfg.CircuitBreakerMaxFailures <= 0 {
		cfg.CircuitBreakerMaxFailures = 5
	}
	cfg.CircuitBreakerTimeout = parseDuration(fc.CircuitBreaker.Timeout, 30*time.Second)

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 5
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 10
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 60*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 250*time.Millisecond)

	cfg.ReadyDelay = parseDurationOrZero(fc.Lifecycle.ReadyDelay, 0)
	cfg.OverloadWindow = parseDuration(fc.Lifecycle.OverloadWindow, 60*time.Second)
	cfg.OverloadThresholdPct = fc.Lifecycle.OverloadThresholdPct
	if cfg.OverloadThresholdPct <= 0 {
		cfg.OverloadThresholdPct = 80
	}
	cfg.DegradedWindow = parseDuration(fc.Lifecycle.DegradedWindow, 5*time.Minute)
	cfg.DegradedErrorPct = fc.Lifecycle.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 25
	}

	cfg.LocationMinLength = fc.Validation.LocationMinLength
	if cfg.LocationMinLength <= 0 {
		cfg.LocationMinLength = 2
	}
	cfg.LocationMaxLength = fc.Validation.LocationMaxLength
	if cfg.LocationMaxLength <= 0 {
		cfg.LocationMaxLength = 200
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadSecrets(path string) (secretsFile, error) {
	var sec secretsFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sec, nil
		}
		return sec, fmt.Errorf("read secrets file: %w", err)
	}
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return sec, fmt.Errorf("parse secrets file: %w", err)
	}
	return sec, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate checks required credentials for the selected providers and value ranges.
func validate(cfg *Config) error {
	if cfg.GoogleAPIKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY required (set env or config/secrets.yaml google_api_key)")
	}
	switch cfg.ForecastProvider {
	case ForecastProviderWeatherAPI:
		if cfg.WeatherAPIKey == "" {
			return fmt.Errorf("WEATHERAPI_API_KEY required for forecast.provider weatherapi (set env or config/secrets.yaml weatherapi_api_key)")
		}
	case ForecastProviderMetNo:
		if cfg.MetNoUserAgent == "" {
			return fmt.Errorf("MET_NO_USER_AGENT required for forecast.provider metno (set env or forecast.metno_user_agent)")
		}
	default:
		return fmt.Errorf("forecast.provider must be weatherapi or metno, got %q", cfg.ForecastProvider)
	}
	if cfg.SummaryEnabled && cfg.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY required when summary.enabled (set env or config/secrets.yaml openai_api_key)")
	}
	if cfg.GoogleAPITimeout <= 0 || cfg.ForecastTimeout <= 0 {
		return fmt.Errorf("google.timeout and forecast.timeout must be positive")
	}
	if cfg.StopCount < 2 {
		return fmt.Errorf("trip.stop_count must be at least 2, got %d", cfg.StopCount)
	}
	if cfg.LocationMinLength > cfg.LocationMaxLength {
		return fmt.Errorf("validation.location_min_length %d exceeds location_max_length %d", cfg.LocationMinLength, cfg.LocationMaxLength)
	}
	upstream := cfg.GoogleAPITimeout
	if cfg.ForecastTimeout > upstream {
		upstream = cfg.ForecastTimeout
	}
	if cfg.RequestTimeout <= upstream {
		return fmt.Errorf("request.timeout %v must exceed google.timeout and forecast.timeout (%v); it covers the whole trip", cfg.RequestTimeout, upstream)
	}
	for name, window := range map[string]time.Duration{
		"lifecycle.overload_window": cfg.OverloadWindow,
		"lifecycle.degraded_window": cfg.DegradedWindow,
	} {
		if window > traffic.Retention {
			return fmt.Errorf("%s %v exceeds traffic retention %v", name, window, traffic.Retention)
		}
	}
	switch cfg.CacheBackend {
	case "none", "in_memory", "memcached", "redis":
	default:
		return fmt.Errorf("cache.backend must be none, in_memory, memcached or redis, got %q", cfg.CacheBackend)
	}
	return nil
}
