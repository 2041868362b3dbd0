package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kjstillabower/trip-weather-service/internal/models"
	"github.com/kjstillabower/trip-weather-service/internal/observability"
)

// Projector walks sampled route points in order, timing each leg with a fresh
// sub-route request and attaching the place name and nearest forecast.
type Projector struct {
	router      Router
	places      PlaceResolver
	forecaster  Forecaster
	concurrency int
}

// NewProjector creates a Projector. With concurrency above 1, leg durations
// are fetched up front by at most that many workers and prefix-summed; the
// resulting stops are the same as in sequential mode.
func NewProjector(router Router, places PlaceResolver, forecaster Forecaster, concurrency int) *Projector {
	return &Projector{
		router:      router,
		places:      places,
		forecaster:  forecaster,
		concurrency: concurrency,
	}
}

// legState is the fold accumulator: the running clock and the point the next
// leg starts from.
type legState struct {
	clock time.Time
	from  models.GeoPoint
}

// Project turns sampled indices into weather stops. The first leg starts at
// points[0] and the clock at start. Stops without forecast data are dropped;
// any provider error aborts with ErrUpstream.
func (p *Projector) Project(ctx context.Context, points []models.GeoPoint, indices []int, start time.Time) ([]models.WeatherStop, error) {
	if len(points) == 0 || len(indices) == 0 {
		return nil, nil
	}

	legs, err := p.prefetchLegs(ctx, points, indices)
	if err != nil {
		return nil, err
	}

	state := legState{clock: start, from: points[0]}
	stops := make([]models.WeatherStop, 0, len(indices))
	for n, i := range indices {
		to := points[i]

		var leg time.Duration
		if legs != nil {
			leg = legs[n]
		} else if leg, err = p.legDuration(ctx, state.from, to); err != nil {
			return nil, err
		}

		state.clock = state.clock.Add(leg)
		stop, ok, err := p.enrich(ctx, to, state.clock)
		if err != nil {
			return nil, err
		}
		if ok {
			stops = append(stops, stop)
		}
		state.from = to
	}
	return stops, nil
}

// prefetchLegs fetches every leg duration concurrently. It returns nil in
// sequential mode, where legs are fetched inside the fold.
func (p *Projector) prefetchLegs(ctx context.Context, points []models.GeoPoint, indices []int) ([]time.Duration, error) {
	if p.concurrency <= 1 {
		return nil, nil
	}

	legs := make([]time.Duration, len(indices))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for n, i := range indices {
		n := n
		from := points[0]
		if n > 0 {
			from = points[indices[n-1]]
		}
		to := points[i]
		g.Go(func() error {
			d, err := p.legDuration(gctx, from, to)
			if err != nil {
				return err
			}
			legs[n] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return legs, nil
}

// legDuration requests the sub-route from -> to and sums its step durations.
// A leg between distinct points that yields no route is an upstream failure.
func (p *Projector) legDuration(ctx context.Context, from, to models.GeoPoint) (time.Duration, error) {
	route, err := p.router.Route(ctx, from.String(), to.String())
	if err != nil {
		return 0, fmt.Errorf("%w: leg %s -> %s: %w", ErrUpstream, from, to, err)
	}
	if len(route.Points) == 0 && len(route.Steps) == 0 && from != to {
		return 0, fmt.Errorf("%w: no route for leg %s -> %s", ErrUpstream, from, to)
	}
	return route.TotalDuration(), nil
}

// enrich resolves the place and forecast for one stop. ok is false when the
// forecast has no entries for the clock's date.
func (p *Projector) enrich(ctx context.Context, point models.GeoPoint, clock time.Time) (models.WeatherStop, bool, error) {
	place, err := p.places.PlaceName(ctx, point)
	if err != nil {
		return models.WeatherStop{}, false, fmt.Errorf("%w: place name %s: %w", ErrUpstream, point, err)
	}

	entries, err := p.forecaster.Forecast(ctx, point, clock)
	if err != nil {
		return models.WeatherStop{}, false, fmt.Errorf("%w: forecast %s: %w", ErrUpstream, point, err)
	}
	if len(entries) == 0 {
		observability.StopsDroppedTotal.Inc()
		observability.LoggerFromContext(ctx).Debug("no forecast for stop, dropping",
			zap.String("place", place),
			zap.Time("arrival", clock),
		)
		return models.WeatherStop{}, false, nil
	}

	e := nearestEntry(entries, clock)
	return models.WeatherStop{
		Place:         place,
		ArrivalTime:   clock,
		Temperature:   e.Temperature,
		Precipitation: e.Precipitation,
		WindSpeed:     windMetersPerSecond(e.WindSpeedKph),
		IconURL:       completeIconURL(e.IconRef),
	}, true, nil
}

// nearestEntry returns the entry closest in time to t; the first one wins ties.
// entries must be non-empty.
func nearestEntry(entries []models.ForecastEntry, t time.Time) models.ForecastEntry {
	best := entries[0]
	bestDiff := absDuration(best.Time.Sub(t))
	for _, e := range entries[1:] {
		if d := absDuration(e.Time.Sub(t)); d < bestDiff {
			best, bestDiff = e, d
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// windMetersPerSecond converts km/h to m/s rounded to one decimal.
func windMetersPerSecond(kph float64) float64 {
	return math.Round(kph/3.6*10) / 10
}

// completeIconURL adds the https scheme to protocol-relative icon references.
func completeIconURL(ref string) string {
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	return ref
}
