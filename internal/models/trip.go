package models

import (
	"strconv"
	"time"
)

// GeoPoint is a latitude/longitude pair in signed degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String formats the point as "lat,lng", the form routing and forecast
// providers accept in place of an address.
func (p GeoPoint) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

// RouteStep is one coarse leg segment as reported by the routing provider.
type RouteStep struct {
	DurationSeconds int64 `json:"durationSeconds"`
	DistanceMeters  int64 `json:"distanceMeters"`
}

// Route is a decoded path plus the provider's step list. Points and Steps come
// from different response fields and are not index aligned.
type Route struct {
	Points []GeoPoint  `json:"points"`
	Steps  []RouteStep `json:"steps"`
}

// TotalDuration sums the step durations in whole seconds.
func (r Route) TotalDuration() time.Duration {
	var sum int64
	for _, s := range r.Steps {
		sum += s.DurationSeconds
	}
	return time.Duration(sum) * time.Second
}

// ForecastEntry is one discrete forecast slot as reported by a forecast provider.
type ForecastEntry struct {
	Time          time.Time
	Temperature   float64
	Precipitation float64
	WindSpeedKph  float64
	IconRef       string
}

// WeatherStop is the projected weather at one sampled point of a trip.
type WeatherStop struct {
	Place         string    `json:"place"`
	ArrivalTime   time.Time `json:"arrivalTime"`
	Temperature   float64   `json:"temperature"`
	Precipitation float64   `json:"precipitation"`
	WindSpeed     float64   `json:"windSpeed"` // m/s
	IconURL       string    `json:"iconUrl,omitempty"`
}

// Trip is the result of one origin/destination/start-time query. Never persisted.
type Trip struct {
	Origin      string        `json:"origin"`
	Destination string        `json:"destination"`
	StartTime   time.Time     `json:"startTime"`
	Stops       []WeatherStop `json:"stops"`
	Summary     string        `json:"summary,omitempty"`
}

// UnknownPlace is the place name used when reverse geocoding finds no
// component of an accepted type.
const UnknownPlace = "Unknown Location"
