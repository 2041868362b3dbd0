package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/trip-weather-service/internal/models"
	"github.com/kjstillabower/trip-weather-service/internal/service"
)

func postForm(router http.Handler, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_GetForm(t *testing.T) {
	resetState(t)
	router := NewRouter(newTestHandler(&mockPlanner{}, nil, nil), zap.NewNop(), nil, time.Minute)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{`type="datetime-local"`, `value="2025-01-06T07:30"`, `name="origin"`, "(UTC)"} {
		if !strings.Contains(body, want) {
			t.Errorf("form missing %q", want)
		}
	}
}

func TestHandler_PostForm_Success(t *testing.T) {
	resetState(t)
	planner := &mockPlanner{trip: sampleTrip()}
	router := NewRouter(newTestHandler(planner, nil, nil), zap.NewNop(), nil, time.Minute)

	w := postForm(router, url.Values{
		"origin":      {"Stockholm"},
		"destination": {"Gävle"},
		"start":       {"2025-01-06T08:00"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"Gävle", "-4.5 °C", "6.2 m/s", "https://cdn.example/113.png", "Cold with light snow near Gävle."} {
		if !strings.Contains(body, want) {
			t.Errorf("results page missing %q", want)
		}
	}
	if req := planner.lastRequest(t); !req.Summarize {
		t.Error("form submissions should request a summary")
	}
}

func TestHandler_PostForm_NoRoute(t *testing.T) {
	resetState(t)
	router := NewRouter(newTestHandler(&mockPlanner{trip: models.Trip{Stops: []models.WeatherStop{}}}, nil, nil), zap.NewNop(), nil, time.Minute)

	w := postForm(router, url.Values{"origin": {"Oslo"}, "destination": {"Reykjavik"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "No route found between Oslo and Reykjavik") {
		t.Errorf("body missing no-route message")
	}
}

func TestHandler_PostForm_Errors(t *testing.T) {
	tests := []struct {
		name       string
		planner    *mockPlanner
		values     url.Values
		wantStatus int
		wantText   string
	}{
		{
			name:       "invalid origin",
			planner:    &mockPlanner{},
			values:     url.Values{"origin": {""}, "destination": {"Oslo"}},
			wantStatus: http.StatusBadRequest,
			wantText:   "origin: location is required",
		},
		{
			name:       "invalid start",
			planner:    &mockPlanner{},
			values:     url.Values{"origin": {"Oslo"}, "destination": {"Bergen"}, "start": {"soon"}},
			wantStatus: http.StatusBadRequest,
			wantText:   "start time must be",
		},
		{
			name:       "upstream failure",
			planner:    &mockPlanner{err: fmt.Errorf("%w: boom", service.ErrUpstream)},
			values:     url.Values{"origin": {"Oslo"}, "destination": {"Bergen"}},
			wantStatus: http.StatusBadGateway,
			wantText:   "Unable to fetch route or weather data",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetState(t)
			router := NewRouter(newTestHandler(tt.planner, nil, nil), zap.NewNop(), nil, time.Minute)
			w := postForm(router, tt.values)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if !strings.Contains(w.Body.String(), tt.wantText) {
				t.Errorf("body missing %q", tt.wantText)
			}
			if tt.values.Get("origin") != "" && !strings.Contains(w.Body.String(), `value="`+tt.values.Get("origin")+`"`) {
				t.Errorf("form should keep submitted origin")
			}
		})
	}
}
