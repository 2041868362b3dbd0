package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/twpayne/go-polyline"

	"github.com/kjstillabower/trip-weather-service/internal/circuitbreaker"
	"github.com/kjstillabower/trip-weather-service/internal/models"
	"github.com/kjstillabower/trip-weather-service/internal/observability"
)

const (
	providerDirections = "google_directions"
	providerGeocode    = "google_geocode"
)

// Directions/Geocoding statuses that mean "nothing found" rather than failure.
const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
	statusNotFound    = "NOT_FOUND"
)

// GoogleMapsClient resolves driving routes and reverse-geocodes points using
// the Google Directions and Geocoding JSON APIs.
type GoogleMapsClient struct {
	transport     transport
	apiKey        string
	directionsURL string
	geocodeURL    string
	placeTypes    []string
}

// GoogleMapsConfig holds the endpoints and reverse-geocoding preferences.
// PlaceTypes lists address component types in preference order.
type GoogleMapsConfig struct {
	APIKey        string
	DirectionsURL string
	GeocodeURL    string
	Timeout       time.Duration
	PlaceTypes    []string
	Breaker       *circuitbreaker.Breaker
}

// NewGoogleMapsClient creates a client. Both APIs share one breaker.
func NewGoogleMapsClient(cfg GoogleMapsConfig) *GoogleMapsClient {
	placeTypes := cfg.PlaceTypes
	if len(placeTypes) == 0 {
		placeTypes = []string{"postal_town", "locality"}
	}
	return &GoogleMapsClient{
		transport:     newTransport(cfg.Timeout, cfg.Breaker),
		apiKey:        cfg.APIKey,
		directionsURL: cfg.DirectionsURL,
		geocodeURL:    cfg.GeocodeURL,
		placeTypes:    placeTypes,
	}
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
		Legs []struct {
			Steps []struct {
				Duration struct {
					Value int64 `json:"value"`
				} `json:"duration"`
				Distance struct {
					Value int64 `json:"value"`
				} `json:"distance"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

// Route requests a driving route between two addresses or "lat,lng" strings.
// An empty Route with nil error means the provider found no route.
func (c *GoogleMapsClient) Route(ctx context.Context, origin, destination string) (models.Route, error) {
	params := url.Values{}
	params.Set("origin", origin)
	params.Set("destination", destination)
	params.Set("mode", "driving")
	params.Set("key", c.apiKey)

	var resp directionsResponse
	if err := c.transport.getJSON(ctx, providerDirections, c.directionsURL, params, nil, &resp); err != nil {
		return models.Route{}, err
	}

	switch resp.Status {
	case statusOK:
	case statusZeroResults, statusNotFound:
		return models.Route{}, nil
	default:
		return models.Route{}, statusError(providerDirections, resp.Status, resp.ErrorMessage)
	}
	if len(resp.Routes) == 0 {
		return models.Route{}, nil
	}

	r := resp.Routes[0]
	coords, _, err := polyline.DecodeCoords([]byte(r.OverviewPolyline.Points))
	if err != nil {
		return models.Route{}, fmt.Errorf("%w: %s decode polyline: %v", ErrMalformedResponse, providerDirections, err)
	}

	route := models.Route{Points: make([]models.GeoPoint, 0, len(coords))}
	for _, pt := range coords {
		route.Points = append(route.Points, models.GeoPoint{Lat: pt[0], Lng: pt[1]})
	}
	for _, leg := range r.Legs {
		for _, s := range leg.Steps {
			route.Steps = append(route.Steps, models.RouteStep{
				DurationSeconds: s.Duration.Value,
				DistanceMeters:  s.Distance.Value,
			})
		}
	}
	return route, nil
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

// PlaceName reverse-geocodes p and returns the long name of the first address
// component matching the configured types, trying each type in order across
// all results. models.UnknownPlace is returned when nothing matches.
func (c *GoogleMapsClient) PlaceName(ctx context.Context, p models.GeoPoint) (string, error) {
	params := url.Values{}
	params.Set("latlng", p.String())
	params.Set("key", c.apiKey)

	var resp geocodeResponse
	if err := c.transport.getJSON(ctx, providerGeocode, c.geocodeURL, params, nil, &resp); err != nil {
		return "", err
	}

	switch resp.Status {
	case statusOK:
	case statusZeroResults:
		return models.UnknownPlace, nil
	default:
		return "", statusError(providerGeocode, resp.Status, resp.ErrorMessage)
	}

	for _, want := range c.placeTypes {
		for _, res := range resp.Results {
			for _, comp := range res.AddressComponents {
				for _, t := range comp.Types {
					if t == want {
						return comp.LongName, nil
					}
				}
			}
		}
	}
	return models.UnknownPlace, nil
}

// statusError maps a non-OK Google status to a client sentinel.
func statusError(provider, status, message string) error {
	var sentinel error
	switch status {
	case "REQUEST_DENIED":
		sentinel = ErrInvalidAPIKey
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		sentinel = ErrRateLimited
	default:
		sentinel = ErrUpstreamFailure
	}
	err := fmt.Errorf("%w: %s status %s", sentinel, provider, status)
	if message != "" {
		err = fmt.Errorf("%w: %s", err, message)
	}
	observability.UpstreamErrorsTotal.WithLabelValues(provider, string(CategorizeError(err))).Inc()
	return err
}
