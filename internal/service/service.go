package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/trip-weather-service/internal/models"
	"github.com/kjstillabower/trip-weather-service/internal/observability"
)

// ErrUpstream wraps every provider failure that aborts a trip. Callers only
// need errors.Is(err, ErrUpstream); the cause chain stays intact for logs.
var ErrUpstream = errors.New("upstream request failed")

// Router resolves a driving route between two addresses or "lat,lng" strings.
// An empty Route with nil error means no route was found.
type Router interface {
	Route(ctx context.Context, origin, destination string) (models.Route, error)
}

// PlaceResolver names the locality at a point, returning models.UnknownPlace
// when there is none.
type PlaceResolver interface {
	PlaceName(ctx context.Context, p models.GeoPoint) (string, error)
}

// Forecaster returns the forecast entries for p on date's calendar day, in
// date's location. An empty list means no data.
type Forecaster interface {
	Forecast(ctx context.Context, p models.GeoPoint, date time.Time) ([]models.ForecastEntry, error)
}

// Summarizer produces a natural-language summary of a trip's stops.
type Summarizer interface {
	Summarize(ctx context.Context, stops []models.WeatherStop) (string, error)
}

// TripRequest is one validated trip query.
type TripRequest struct {
	Origin      string
	Destination string
	StartTime   time.Time
	Summarize   bool
}

// TripService plans weather along a route: route, sample, project.
type TripService struct {
	router     Router
	projector  *Projector
	summarizer Summarizer
	stopCount  int
}

// NewTripService creates a TripService. summarizer may be nil, in which case
// trips never carry a summary. stopCount below 2 falls back to DefaultStopCount.
func NewTripService(router Router, places PlaceResolver, forecaster Forecaster, summarizer Summarizer, stopCount, segmentConcurrency int) *TripService {
	if stopCount < 2 {
		stopCount = DefaultStopCount
	}
	return &TripService{
		router:     router,
		projector:  NewProjector(router, places, forecaster, segmentConcurrency),
		summarizer: summarizer,
		stopCount:  stopCount,
	}
}

// PlanTripWeather computes the weather stops between origin and destination
// for a departure at start. No route yields an empty list and nil error.
func (s *TripService) PlanTripWeather(ctx context.Context, origin, destination string, start time.Time) ([]models.WeatherStop, error) {
	logger := observability.LoggerFromContext(ctx)
	began := time.Now()

	route, err := s.router.Route(ctx, origin, destination)
	if err != nil {
		observability.RecordTrip("error", 0)
		return nil, fmt.Errorf("%w: route %q -> %q: %w", ErrUpstream, origin, destination, err)
	}

	indices := SampleIndices(len(route.Points), s.stopCount)
	if len(indices) == 0 {
		observability.RecordTrip("empty", 0)
		logger.Info("no route found", zap.String("origin", origin), zap.String("destination", destination))
		return []models.WeatherStop{}, nil
	}

	stops, err := s.projector.Project(ctx, route.Points, indices, start)
	if err != nil {
		observability.RecordTrip("error", 0)
		return nil, err
	}
	if stops == nil {
		stops = []models.WeatherStop{}
	}

	observability.RecordTrip("success", len(stops))
	logger.Debug("trip planned",
		zap.Int("points", len(route.Points)),
		zap.Int("samples", len(indices)),
		zap.Int("stops", len(stops)),
		zap.Duration("duration", time.Since(began)),
	)
	return stops, nil
}

// Summarize returns a summary of stops, or "" when there are no stops or no
// summarizer is configured.
func (s *TripService) Summarize(ctx context.Context, stops []models.WeatherStop) (string, error) {
	if len(stops) == 0 || s.summarizer == nil {
		return "", nil
	}
	summary, err := s.summarizer.Summarize(ctx, stops)
	if err != nil {
		return "", fmt.Errorf("summarize %d stops: %w", len(stops), err)
	}
	return summary, nil
}

// PlanTrip plans the trip and, when requested, attaches a summary. A summary
// failure is logged and counted; the trip is still returned.
func (s *TripService) PlanTrip(ctx context.Context, req TripRequest) (models.Trip, error) {
	stops, err := s.PlanTripWeather(ctx, req.Origin, req.Destination, req.StartTime)
	if err != nil {
		return models.Trip{}, err
	}

	trip := models.Trip{
		Origin:      req.Origin,
		Destination: req.Destination,
		StartTime:   req.StartTime,
		Stops:       stops,
	}
	if !req.Summarize {
		return trip, nil
	}

	summary, err := s.Summarize(ctx, stops)
	if err != nil {
		observability.SummaryFailuresTotal.Inc()
		observability.LoggerFromContext(ctx).Warn("trip summary failed", zap.Error(err))
		return trip, nil
	}
	trip.Summary = summary
	return trip, nil
}
