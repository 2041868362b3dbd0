package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kjstillabower/trip-weather-service/internal/models"
)

func TestWeatherAPIClient_Forecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "60.67,17.14" {
			t.Errorf("q = %q, want 60.67,17.14", q.Get("q"))
		}
		if q.Get("dt") != "2025-01-06" {
			t.Errorf("dt = %q, want 2025-01-06", q.Get("dt"))
		}
		if q.Get("key") != "wk" {
			t.Errorf("key = %q, want wk", q.Get("key"))
		}
		_, _ = w.Write([]byte(`{"forecast":{"forecastday":[{"date":"2025-01-06","hour":[
			{"time_epoch":1736150400,"temp_c":-3.5,"precip_mm":0.0,"wind_kph":14.4,"condition":{"icon":"//cdn.weatherapi.com/weather/64x64/night/113.png"}},
			{"time_epoch":1736154000,"temp_c":-4.0,"precip_mm":0.2,"wind_kph":18.0,"condition":{"icon":"//cdn.weatherapi.com/weather/64x64/night/326.png"}}
		]}]}}`))
	}))
	defer srv.Close()

	c := NewWeatherAPIClient("wk", srv.URL, 2*time.Second, nil)
	date := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	entries, err := c.Forecast(context.Background(), models.GeoPoint{Lat: 60.67, Lng: 17.14}, date)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if !entries[0].Time.Equal(time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("entries[0].Time = %v, want 2025-01-06 08:00 UTC", entries[0].Time)
	}
	if entries[1].Temperature != -4.0 || entries[1].Precipitation != 0.2 || entries[1].WindSpeedKph != 18.0 {
		t.Errorf("entries[1] = %+v", entries[1])
	}
	if entries[0].IconRef != "//cdn.weatherapi.com/weather/64x64/night/113.png" {
		t.Errorf("IconRef = %q, want provider value unchanged", entries[0].IconRef)
	}
}

func TestWeatherAPIClient_DateUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("dt"); got != "2025-01-07" {
			t.Errorf("dt = %q, want 2025-01-07 (date in the clock's location)", got)
		}
		_, _ = w.Write([]byte(`{"forecast":{"forecastday":[]}}`))
	}))
	defer srv.Close()

	// 23:30 UTC on the 6th is 01:30 on the 7th at UTC+2.
	date := time.Date(2025, 1, 6, 23, 30, 0, 0, time.UTC).In(loc)
	entries, err := NewWeatherAPIClient("wk", srv.URL, time.Second, nil).Forecast(context.Background(), models.GeoPoint{}, date)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0 for empty forecastday", len(entries))
	}
}

func TestWeatherAPIClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrInvalidAPIKey},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"bad request", http.StatusBadRequest, ErrUpstreamFailure},
		{"server error", http.StatusInternalServerError, ErrUpstreamFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(`{"error":{"code":1006,"message":"No matching location found."}}`))
			}))
			defer srv.Close()

			_, err := NewWeatherAPIClient("wk", srv.URL, time.Second, nil).Forecast(context.Background(), models.GeoPoint{}, time.Now())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWeatherAPIClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewWeatherAPIClient("wk", srv.URL, 20*time.Millisecond, nil)
	_, err := c.Forecast(context.Background(), models.GeoPoint{}, time.Now())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if got := CategorizeError(err); got != ErrorCategoryTimeout {
		t.Errorf("CategorizeError = %v, want timeout", got)
	}
}
