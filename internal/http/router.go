package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/trip-weather-service/internal/observability"
)

// NewRouter wires the routes. Rate limiting and the request timeout apply to
// the trip endpoints only; health and metrics stay reachable under load.
func NewRouter(h *Handler, logger *zap.Logger, limiter *rate.Limiter, requestTimeout time.Duration) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	trips := router.NewRoute().Subrouter()
	trips.Use(RateLimitMiddleware(limiter))
	trips.Use(TimeoutMiddleware(requestTimeout))
	trips.HandleFunc("/api/trip", h.GetTrip).Methods(http.MethodGet)
	trips.HandleFunc("/", h.GetForm).Methods(http.MethodGet)
	trips.HandleFunc("/", h.PostForm).Methods(http.MethodPost)
	return router
}
