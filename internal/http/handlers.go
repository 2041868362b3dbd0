package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/trip-weather-service/internal/lifecycle"
	"github.com/kjstillabower/trip-weather-service/internal/models"
	"github.com/kjstillabower/trip-weather-service/internal/observability"
	"github.com/kjstillabower/trip-weather-service/internal/service"
	"github.com/kjstillabower/trip-weather-service/internal/traffic"
	"github.com/kjstillabower/trip-weather-service/internal/validation"
)

// TripPlanner is the service operation behind the trip endpoints.
type TripPlanner interface {
	PlanTrip(ctx context.Context, req service.TripRequest) (models.Trip, error)
}

// HealthConfig holds lifecycle thresholds for the health handler.
type HealthConfig struct {
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	RateLimitRPS         int // 0 when rate limiter disabled
	DegradedWindow       time.Duration
	DegradedErrorPct     int
	// CachePing, when set, is called to check cache reachability (memcached, redis).
	CachePing func(ctx context.Context) error
	// BreakerStates reports circuit breaker state per provider.
	BreakerStates map[string]func() string
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	trips            TripPlanner
	validator        *validation.Validator
	location         *time.Location
	healthConfig     *HealthConfig
	logger           *zap.Logger
	now              func() time.Time
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. location is used for start times given
// without a zone.
func NewHandler(
	trips TripPlanner,
	validator *validation.Validator,
	location *time.Location,
	healthConfig *HealthConfig,
	logger *zap.Logger,
) *Handler {
	if location == nil {
		location = time.UTC
	}
	return &Handler{
		trips:        trips,
		validator:    validator,
		location:     location,
		healthConfig: healthConfig,
		logger:       logger,
		now:          time.Now,
	}
}

// tripInput is the raw query shared by the JSON and form endpoints.
type tripInput struct {
	Origin      string
	Destination string
	Start       string
	Summarize   bool
}

// inputError is a 400 with a stable code.
type inputError struct {
	code    string
	message string
}

func (e *inputError) Error() string { return e.message }

// parseTripInput validates raw input into a service request.
func (h *Handler) parseTripInput(in tripInput) (service.TripRequest, error) {
	origin, err := h.validator.Location(in.Origin)
	if err != nil {
		return service.TripRequest{}, &inputError{"INVALID_LOCATION", "origin: " + err.Error()}
	}
	destination, err := h.validator.Location(in.Destination)
	if err != nil {
		return service.TripRequest{}, &inputError{"INVALID_LOCATION", "destination: " + err.Error()}
	}
	start, err := validation.StartTime(in.Start, h.location, h.now())
	if err != nil {
		return service.TripRequest{}, &inputError{"INVALID_START_TIME", err.Error()}
	}
	return service.TripRequest{
		Origin:      origin,
		Destination: destination,
		StartTime:   start,
		Summarize:   in.Summarize,
	}, nil
}

// planTrip runs the trip and records the outcome for health tracking.
func (h *Handler) planTrip(ctx context.Context, req service.TripRequest) (models.Trip, error) {
	trip, err := h.trips.PlanTrip(ctx, req)
	if err != nil {
		traffic.RecordError()
		return models.Trip{}, err
	}
	traffic.RecordSuccess()
	return trip, nil
}

// GetTrip handles GET /api/trip?origin=&destination=&start=[&summary=false].
func (h *Handler) GetTrip(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	summarize := true
	if v := q.Get("summary"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_SUMMARY", "summary must be true or false")
			return
		}
		summarize = b
	}

	req, err := h.parseTripInput(tripInput{
		Origin:      q.Get("origin"),
		Destination: q.Get("destination"),
		Start:       q.Get("start"),
		Summarize:   summarize,
	})
	if err != nil {
		var ie *inputError
		if errors.As(err, &ie) {
			writeError(w, r, http.StatusBadRequest, ie.code, ie.message)
			return
		}
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	trip, err := h.planTrip(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	if h.healthConfig != nil {
		if h.healthConfig.CachePing != nil {
			if h.healthConfig.CachePing(r.Context()) == nil {
				checks["cache"] = "healthy"
			} else {
				checks["cache"] = "unhealthy"
			}
		}
		for provider, state := range h.healthConfig.BreakerStates {
			if s := state(); s == "closed" {
				checks[provider] = "healthy"
			} else {
				checks[provider] = s
			}
		}
	}

	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   "trip-weather-service",
		"version":   "dev",
		"checks":    checks,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > starting > overloaded > degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if !lifecycle.IsReady(h.now()) {
		return healthResult{"starting", http.StatusServiceUnavailable, "ready_delay"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}

	// Overloaded when denials exceed the configured share of what the limiter
	// would admit over the window.
	if h.healthConfig.RateLimitRPS > 0 && h.healthConfig.OverloadWindow > 0 {
		threshold := float64(h.healthConfig.RateLimitRPS) * h.healthConfig.OverloadWindow.Seconds() * float64(h.healthConfig.OverloadThresholdPct) / 100
		if float64(traffic.DenialCount(h.healthConfig.OverloadWindow)) > threshold {
			return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
		}
	}

	if h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		errs, total := traffic.ErrorRate(h.healthConfig.DegradedWindow)
		if total > 0 && float64(errs)*100/float64(total) >= float64(h.healthConfig.DegradedErrorPct) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

// serviceErrorStatus maps a trip failure to status, code and message.
func serviceErrorStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT", "Trip computation timed out"
	case errors.Is(err, service.ErrUpstream):
		return http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "Unable to fetch route or weather data"
	default:
		return http.StatusInternalServerError, "INTERNAL", "Internal error"
	}
}

// writeServiceError writes the error envelope for a failed trip and logs the cause.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := serviceErrorStatus(err)
	writeError(w, r, status, code, message)
	observability.LoggerFromContext(r.Context()).Warn("trip failed", zap.Int("status", status), zap.Error(err))
}
