package client

import (
	"context"
	"net/url"
	"time"

	"github.com/kjstillabower/trip-weather-service/internal/circuitbreaker"
	"github.com/kjstillabower/trip-weather-service/internal/models"
)

const providerWeatherAPI = "weatherapi"

// WeatherAPIClient fetches hourly forecasts from weatherapi.com.
type WeatherAPIClient struct {
	transport transport
	apiKey    string
	baseURL   string
}

// NewWeatherAPIClient creates a client for the forecast.json endpoint at baseURL.
func NewWeatherAPIClient(apiKey, baseURL string, timeout time.Duration, breaker *circuitbreaker.Breaker) *WeatherAPIClient {
	return &WeatherAPIClient{
		transport: newTransport(timeout, breaker),
		apiKey:    apiKey,
		baseURL:   baseURL,
	}
}

type weatherAPIResponse struct {
	Forecast struct {
		ForecastDay []struct {
			Hour []struct {
				TimeEpoch int64   `json:"time_epoch"`
				TempC     float64 `json:"temp_c"`
				PrecipMM  float64 `json:"precip_mm"`
				WindKph   float64 `json:"wind_kph"`
				Condition struct {
					Icon string `json:"icon"`
				} `json:"condition"`
			} `json:"hour"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

// Forecast returns the hourly entries for p on the calendar date of date,
// taken in date's location. An empty forecastday yields an empty list.
func (c *WeatherAPIClient) Forecast(ctx context.Context, p models.GeoPoint, date time.Time) ([]models.ForecastEntry, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", p.String())
	params.Set("dt", date.Format(time.DateOnly))

	var resp weatherAPIResponse
	if err := c.transport.getJSON(ctx, providerWeatherAPI, c.baseURL, params, nil, &resp); err != nil {
		return nil, err
	}

	var entries []models.ForecastEntry
	for _, day := range resp.Forecast.ForecastDay {
		for _, h := range day.Hour {
			entries = append(entries, models.ForecastEntry{
				Time:          time.Unix(h.TimeEpoch, 0).In(date.Location()),
				Temperature:   h.TempC,
				Precipitation: h.PrecipMM,
				WindSpeedKph:  h.WindKph,
				IconRef:       h.Condition.Icon,
			})
		}
	}
	return entries, nil
}
