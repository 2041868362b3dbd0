package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kjstillabower/trip-weather-service/internal/circuitbreaker"
	"github.com/kjstillabower/trip-weather-service/internal/models"
)

const providerMetNo = "metno"

// MetNoClient fetches forecasts from the api.met.no locationforecast compact endpoint.
// met.no requires an identifying User-Agent on every request.
type MetNoClient struct {
	transport transport
	baseURL   string
	userAgent string
}

// NewMetNoClient creates a client for the compact endpoint at baseURL.
func NewMetNoClient(baseURL, userAgent string, timeout time.Duration, breaker *circuitbreaker.Breaker) *MetNoClient {
	return &MetNoClient{
		transport: newTransport(timeout, breaker),
		baseURL:   baseURL,
		userAgent: userAgent,
	}
}

type metNoPeriod struct {
	Details struct {
		PrecipitationAmount float64 `json:"precipitation_amount"`
	} `json:"details"`
}

type metNoResponse struct {
	Properties struct {
		Timeseries []struct {
			Time time.Time `json:"time"`
			Data struct {
				Instant struct {
					Details struct {
						AirTemperature float64 `json:"air_temperature"`
						WindSpeed      float64 `json:"wind_speed"`
					} `json:"details"`
				} `json:"instant"`
				Next1Hours *metNoPeriod `json:"next_1_hours"`
				Next6Hours *metNoPeriod `json:"next_6_hours"`
			} `json:"data"`
		} `json:"timeseries"`
	} `json:"properties"`
}

// Forecast returns the timeseries entries falling on the calendar date of
// date in date's location. Wind is converted from m/s to km/h so every
// provider reports the same unit. Precipitation comes from the next one-hour
// period, or the six-hour period where the hourly one has ended.
func (c *MetNoClient) Forecast(ctx context.Context, p models.GeoPoint, date time.Time) ([]models.ForecastEntry, error) {
	params := url.Values{}
	// met.no asks for at most four decimals.
	params.Set("lat", strconv.FormatFloat(p.Lat, 'f', 4, 64))
	params.Set("lon", strconv.FormatFloat(p.Lng, 'f', 4, 64))
	header := http.Header{}
	header.Set("User-Agent", c.userAgent)

	var resp metNoResponse
	if err := c.transport.getJSON(ctx, providerMetNo, c.baseURL, params, header, &resp); err != nil {
		return nil, err
	}

	loc := date.Location()
	y, m, d := date.Date()
	var entries []models.ForecastEntry
	for _, ts := range resp.Properties.Timeseries {
		t := ts.Time.In(loc)
		ty, tm, td := t.Date()
		if ty != y || tm != m || td != d {
			continue
		}
		e := models.ForecastEntry{
			Time:         t,
			Temperature:  ts.Data.Instant.Details.AirTemperature,
			WindSpeedKph: ts.Data.Instant.Details.WindSpeed * 3.6,
		}
		period := ts.Data.Next1Hours
		if period == nil {
			period = ts.Data.Next6Hours
		}
		if period != nil {
			e.Precipitation = period.Details.PrecipitationAmount
		}
		entries = append(entries, e)
	}
	return entries, nil
}
