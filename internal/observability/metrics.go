package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjstillabower/trip-weather-service/internal/traffic"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency. Trip requests fan out to many upstream calls, so expect seconds, not millis.
	HTTPRequestDuration *prometheus.HistogramVec

	HTTPRequestsInFlight prometheus.Gauge

	// Upstream call rate per provider (google_directions, google_geocode, weatherapi, metno, openai).
	UpstreamCallsTotal *prometheus.CounterVec

	// Upstream latency per provider. Watch for: p95 > 2s on directions (every stop issues one).
	UpstreamDuration *prometheus.HistogramVec

	// Upstream errors by stable category (see client.CategorizeError).
	UpstreamErrorsTotal *prometheus.CounterVec

	// Trip computations by outcome: success, empty, error.
	TripsTotal *prometheus.CounterVec

	// Stops emitted per successful trip.
	TripStops prometheus.Histogram

	// Stops dropped because the forecast provider had no entries for the day.
	StopsDroppedTotal prometheus.Counter

	// Summary generation failures. Trips are still served without a summary.
	SummaryFailuresTotal prometheus.Counter

	// Cache lookups by kind (place, forecast) and result (hit, miss, error).
	CacheLookupsTotal *prometheus.CounterVec

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	// Circuit breaker state per provider: 0 closed, 1 half-open, 2 open.
	CircuitBreakerState *prometheus.GaugeVec

	CircuitBreakerTransitionsTotal *prometheus.CounterVec

	rateLimitGaugesOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamCallsTotal",
			Help: "Total number of upstream provider calls",
		},
		[]string{"provider", "status"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstreamDurationSeconds",
			Help:    "Upstream provider latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "status"},
	)
	UpstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamErrorsTotal",
			Help: "Upstream provider errors by category",
		},
		[]string{"provider", "category"},
	)
	TripsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripsTotal",
			Help: "Trip weather computations by outcome",
		},
		[]string{"outcome"},
	)
	TripStops = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tripStops",
			Help:    "Number of weather stops returned per trip",
			Buckets: []float64{0, 1, 2, 5, 8, 10, 11, 15, 20},
		},
	)
	StopsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stopsDroppedTotal",
			Help: "Stops omitted because no forecast was available for the day",
		},
	)
	SummaryFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "summaryFailuresTotal",
			Help: "Trip summary generation failures",
		},
	)
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheLookupsTotal",
			Help: "Cache lookups by kind and result",
		},
		[]string{"kind", "result"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Circuit breaker state per provider (0 closed, 1 half-open, 2 open)",
		},
		[]string{"provider"},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Circuit breaker state transitions per provider",
		},
		[]string{"provider", "from", "to"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		UpstreamCallsTotal, UpstreamDuration, UpstreamErrorsTotal,
		TripsTotal, TripStops, StopsDroppedTotal, SummaryFailuresTotal,
		CacheLookupsTotal,
		RateLimitDeniedTotal,
		CircuitBreakerState, CircuitBreakerTransitionsTotal,
	)
}

// RegisterRateLimitGauges registers load and rejects gauges for the rate-limited path.
// Call from main after config load with the overload window.
func RegisterRateLimitGauges(window time.Duration) {
	rateLimitGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRequestsInWindow",
					Help: "Requests hitting rate-limited path in sliding window; load/capacity planning",
				},
				func() float64 { return float64(traffic.RequestCount(window)) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRejectsInWindow",
					Help: "429 responses in sliding window; are we rejecting requests",
				},
				func() float64 { return float64(traffic.DenialCount(window)) },
			),
		)
	})
}

// RecordUpstreamCall records one provider call with its status label and latency.
func RecordUpstreamCall(provider, status string, elapsed time.Duration) {
	UpstreamCallsTotal.WithLabelValues(provider, status).Inc()
	UpstreamDuration.WithLabelValues(provider, status).Observe(elapsed.Seconds())
}

// RecordTrip records the outcome of one trip computation.
func RecordTrip(outcome string, stops int) {
	TripsTotal.WithLabelValues(outcome).Inc()
	if outcome != "error" {
		TripStops.Observe(float64(stops))
	}
}

// RecordCacheLookup records a cache lookup result for kind.
func RecordCacheLookup(kind, result string) {
	CacheLookupsTotal.WithLabelValues(kind, result).Inc()
}

// RecordCircuitBreakerTransition records a state change and updates the state gauge.
func RecordCircuitBreakerTransition(provider, from, to string) {
	CircuitBreakerTransitionsTotal.WithLabelValues(provider, from, to).Inc()
	CircuitBreakerState.WithLabelValues(provider).Set(CircuitBreakerStateValue(to))
}

// CircuitBreakerStateValue maps a state name to the gauge value.
func CircuitBreakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
