package service

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/trip-weather-service/internal/models"
)

// mockRouter returns full for the origin/destination pair named by fullKey
// ("origin|destination") and a single-step route for every other request,
// timed by legs or legSecs.
type mockRouter struct {
	mu        sync.Mutex
	fullKey   string
	full      models.Route
	fullErr   error
	legs      map[string]int64
	legSecs   int64
	legErr    error
	emptyLegs bool
	calls     []string
}

func (m *mockRouter) Route(ctx context.Context, origin, destination string) (models.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := origin + "|" + destination
	if key == m.fullKey {
		return m.full, m.fullErr
	}
	m.calls = append(m.calls, key)
	if m.legErr != nil {
		return models.Route{}, m.legErr
	}
	if m.emptyLegs {
		return models.Route{}, nil
	}
	secs, ok := m.legs[key]
	if !ok {
		secs = m.legSecs
	}
	return models.Route{
		Points: []models.GeoPoint{{}},
		Steps:  []models.RouteStep{{DurationSeconds: secs}},
	}, nil
}

// legCalls returns the leg requests seen so far, excluding the full route.
func (m *mockRouter) legCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type mockPlaces struct {
	names map[models.GeoPoint]string
	err   error
	calls int
}

func (m *mockPlaces) PlaceName(ctx context.Context, p models.GeoPoint) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	if name, ok := m.names[p]; ok {
		return name, nil
	}
	return models.UnknownPlace, nil
}

// mockForecaster returns entries per point, or a default hourly day built
// around the requested date.
type mockForecaster struct {
	entries map[models.GeoPoint][]models.ForecastEntry
	err     error
	calls   int
	dates   []time.Time
}

func (m *mockForecaster) Forecast(ctx context.Context, p models.GeoPoint, date time.Time) ([]models.ForecastEntry, error) {
	m.calls++
	m.dates = append(m.dates, date)
	if m.err != nil {
		return nil, m.err
	}
	if e, ok := m.entries[p]; ok {
		return e, nil
	}
	return hourlyDay(date, 10, 0, 18, "//cdn.example/x.png"), nil
}

func hourlyDay(date time.Time, temp, precip, windKph float64, icon string) []models.ForecastEntry {
	y, mo, d := date.Date()
	var out []models.ForecastEntry
	for h := 0; h < 24; h++ {
		out = append(out, models.ForecastEntry{
			Time:          time.Date(y, mo, d, h, 0, 0, 0, date.Location()),
			Temperature:   temp,
			Precipitation: precip,
			WindSpeedKph:  windKph,
			IconRef:       icon,
		})
	}
	return out
}

type mockSummarizer struct {
	summary string
	err     error
	calls   int
}

func (m *mockSummarizer) Summarize(ctx context.Context, stops []models.WeatherStop) (string, error) {
	m.calls++
	return m.summary, m.err
}

func linePoints(n int) []models.GeoPoint {
	pts := make([]models.GeoPoint, n)
	for i := range pts {
		pts[i] = models.GeoPoint{Lat: 59 + float64(i)/100, Lng: 18}
	}
	return pts
}
