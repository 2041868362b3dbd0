package client

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kjstillabower/trip-weather-service/internal/circuitbreaker"
)

// TestCategorizeError verifies that CategorizeError maps errors to the correct ErrorCategory
// for metrics labeling, including sentinel errors, wrapped errors, and message-based heuristics.
func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ""},
		{"timeout context", context.DeadlineExceeded, ErrorCategoryTimeout},
		{"canceled context", context.Canceled, ErrorCategoryTimeout},
		{"circuit open", fmt.Errorf("google: %w", circuitbreaker.ErrOpen), ErrorCategoryCircuitOpen},
		{"invalid API key", ErrInvalidAPIKey, ErrorCategoryInvalidAPIKey},
		{"wrapped invalid API key", fmt.Errorf("auth: %w", ErrInvalidAPIKey), ErrorCategoryInvalidAPIKey},
		{"rate limited", ErrRateLimited, ErrorCategoryRateLimited},
		{"malformed", fmt.Errorf("%w: bad json", ErrMalformedResponse), ErrorCategoryParsing},
		{"upstream failure", ErrUpstreamFailure, ErrorCategoryUpstream},
		{"timeout in message", errors.New("google_directions request timeout"), ErrorCategoryTimeout},
		{"network in message", errors.New("dial tcp: connection refused"), ErrorCategoryNetwork},
		{"parse in message", errors.New("parse response: invalid json"), ErrorCategoryParsing},
		{"unknown", errors.New("something else"), ErrorCategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CategorizeError(tt.err)
			if got != tt.want {
				t.Errorf("CategorizeError() = %v, want %v", got, tt.want)
			}
		})
	}
}
