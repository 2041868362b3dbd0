package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/kjstillabower/trip-weather-service/internal/circuitbreaker"
	"github.com/kjstillabower/trip-weather-service/internal/observability"
)

var (
	ErrInvalidAPIKey     = errors.New("invalid API key")
	ErrUpstreamFailure   = errors.New("upstream failure")
	ErrRateLimited       = errors.New("rate limited")
	ErrMalformedResponse = errors.New("malformed response")
)

// maxBodyBytes caps upstream response bodies; directions responses for long
// routes are the largest and stay well below this.
const maxBodyBytes = 8 << 20

// transport is the shared request path for every JSON provider: one attempt,
// bounded by the client timeout, guarded by an optional breaker, instrumented per provider.
type transport struct {
	client  *http.Client
	breaker *circuitbreaker.Breaker
}

func newTransport(timeout time.Duration, breaker *circuitbreaker.Breaker) transport {
	return transport{
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

// getJSON issues GET rawURL?params and decodes a 2xx JSON body into out.
func (t transport) getJSON(ctx context.Context, provider, rawURL string, params url.Values, header http.Header, out interface{}) error {
	err := t.breaker.Call(ctx, func() error {
		return t.do(ctx, provider, rawURL, params, header, out)
	})
	if err != nil {
		observability.UpstreamErrorsTotal.WithLabelValues(provider, string(CategorizeError(err))).Inc()
	}
	return err
}

func (t transport) do(ctx context.Context, provider, rawURL string, params url.Values, header http.Header, out interface{}) error {
	req, err := buildRequest(ctx, rawURL, params, header)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		observability.RecordUpstreamCall(provider, "error", time.Since(start))
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
			(errors.As(err, &netErr) && netErr.Timeout()) {
			return fmt.Errorf("%s request timeout: %w", provider, err)
		}
		return fmt.Errorf("%s http request failed: %w", provider, err)
	}
	defer resp.Body.Close()
	observability.RecordUpstreamCall(provider, statusLabel(resp.StatusCode), time.Since(start))

	if err := handleErrorResponse(provider, resp); err != nil {
		return err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s read response body: %w", provider, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s parse response: %v", ErrMalformedResponse, provider, err)
	}
	return nil
}

func buildRequest(ctx context.Context, rawURL string, params url.Values, header http.Header) (*http.Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}
	return req, nil
}

func handleErrorResponse(provider string, resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s HTTP %d", ErrInvalidAPIKey, provider, resp.StatusCode)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, provider)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s HTTP %d", ErrUpstreamFailure, provider, resp.StatusCode)
	}
	return nil
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
