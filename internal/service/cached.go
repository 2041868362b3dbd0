package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/trip-weather-service/internal/cache"
	"github.com/kjstillabower/trip-weather-service/internal/models"
	"github.com/kjstillabower/trip-weather-service/internal/observability"
)

// Cache-aside decorators for place names and forecasts. Keys round points to
// four decimals (about 11 m), so stops that land on the same spot share entries.
// Routing is never cached: leg timings must reflect the request.

// CachedPlaceResolver caches PlaceName results.
type CachedPlaceResolver struct {
	next  PlaceResolver
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedPlaceResolver wraps next with c.
func NewCachedPlaceResolver(next PlaceResolver, c cache.Cache, ttl time.Duration) *CachedPlaceResolver {
	return &CachedPlaceResolver{next: next, cache: c, ttl: ttl}
}

// PlaceName implements PlaceResolver. Cache errors fall through to next.
func (r *CachedPlaceResolver) PlaceName(ctx context.Context, p models.GeoPoint) (string, error) {
	key := placeKey(p)
	var name string
	if lookup(ctx, r.cache, "place", key, &name) {
		return name, nil
	}

	name, err := r.next.PlaceName(ctx, p)
	if err != nil {
		return "", err
	}
	store(ctx, r.cache, "place", key, name, r.ttl)
	return name, nil
}

// CachedForecaster caches Forecast results per point and calendar date.
type CachedForecaster struct {
	next  Forecaster
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedForecaster wraps next with c.
func NewCachedForecaster(next Forecaster, c cache.Cache, ttl time.Duration) *CachedForecaster {
	return &CachedForecaster{next: next, cache: c, ttl: ttl}
}

// Forecast implements Forecaster. Empty results are cached too; they are a
// valid answer for the day.
func (f *CachedForecaster) Forecast(ctx context.Context, p models.GeoPoint, date time.Time) ([]models.ForecastEntry, error) {
	key := forecastKey(p, date)
	var entries []models.ForecastEntry
	if lookup(ctx, f.cache, "forecast", key, &entries) {
		return entries, nil
	}

	entries, err := f.next.Forecast(ctx, p, date)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.ForecastEntry{}
	}
	store(ctx, f.cache, "forecast", key, entries, f.ttl)
	return entries, nil
}

func placeKey(p models.GeoPoint) string {
	return fmt.Sprintf("place:%.4f,%.4f", p.Lat, p.Lng)
}

// forecastKey includes the UTC offset and zone name because the calendar day,
// and so the provider's answer, depends on both. Zones parsed from a numeric
// offset are all unnamed.
func forecastKey(p models.GeoPoint, date time.Time) string {
	return fmt.Sprintf("forecast:%.4f,%.4f:%s:%s", p.Lat, p.Lng, date.Format("2006-01-02Z07:00"), date.Location())
}

func lookup(ctx context.Context, c cache.Cache, kind, key string, out interface{}) bool {
	ok, err := cache.GetJSON(ctx, c, key, out)
	switch {
	case err != nil:
		observability.RecordCacheLookup(kind, "error")
		observability.LoggerFromContext(ctx).Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false
	case ok:
		observability.RecordCacheLookup(kind, "hit")
		return true
	default:
		observability.RecordCacheLookup(kind, "miss")
		return false
	}
}

func store(ctx context.Context, c cache.Cache, kind, key string, value interface{}, ttl time.Duration) {
	if err := cache.SetJSON(ctx, c, key, value, ttl); err != nil {
		observability.LoggerFromContext(ctx).Warn("cache set failed", zap.String("kind", kind), zap.String("key", key), zap.Error(err))
	}
}
