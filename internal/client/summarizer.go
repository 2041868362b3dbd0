package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kjstillabower/trip-weather-service/internal/circuitbreaker"
	"github.com/kjstillabower/trip-weather-service/internal/models"
	"github.com/kjstillabower/trip-weather-service/internal/observability"
)

const providerOpenAI = "openai"

const summarySystemPrompt = "You write short, practical weather briefings for road trips. " +
	"Mention notable temperature changes, precipitation and wind, and where along the route they occur. " +
	"Answer in at most four sentences."

// OpenAISummarizer produces a natural-language trip summary with a chat completion.
type OpenAISummarizer struct {
	client    *openai.Client
	model     string
	maxTokens int
	breaker   *circuitbreaker.Breaker
}

// OpenAIConfig configures the summarizer. BaseURL is optional and overrides the
// public API endpoint (it must include the /v1 suffix).
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Breaker   *circuitbreaker.Breaker
}

// NewOpenAISummarizer creates a summarizer.
func NewOpenAISummarizer(cfg OpenAIConfig) *OpenAISummarizer {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &OpenAISummarizer{
		client:    openai.NewClientWithConfig(oc),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		breaker:   cfg.Breaker,
	}
}

// Summarize asks the model for a briefing over stops.
func (s *OpenAISummarizer) Summarize(ctx context.Context, stops []models.WeatherStop) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: SummaryPrompt(stops)},
		},
	}

	var resp openai.ChatCompletionResponse
	err := s.breaker.Call(ctx, func() error {
		start := time.Now()
		r, err := s.client.CreateChatCompletion(ctx, req)
		if err != nil {
			err = classifyOpenAIError(err)
			observability.RecordUpstreamCall(providerOpenAI, "error", time.Since(start))
			return err
		}
		observability.RecordUpstreamCall(providerOpenAI, "success", time.Since(start))
		resp = r
		return nil
	})
	if err != nil {
		observability.UpstreamErrorsTotal.WithLabelValues(providerOpenAI, string(CategorizeError(err))).Inc()
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s returned no choices", ErrMalformedResponse, providerOpenAI)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// SummaryPrompt renders stops as one line each, in travel order.
func SummaryPrompt(stops []models.WeatherStop) string {
	var b strings.Builder
	b.WriteString("Weather along the route:\n")
	for _, st := range stops {
		fmt.Fprintf(&b, "- %s at %s: %.1f°C, precipitation %.1f mm, wind %.1f m/s\n",
			st.Place, st.ArrivalTime.Format("2006-01-02 15:04"), st.Temperature, st.Precipitation, st.WindSpeed)
	}
	return b.String()
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s: %v", ErrInvalidAPIKey, providerOpenAI, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s: %v", ErrRateLimited, providerOpenAI, err)
		}
		return fmt.Errorf("%w: %s: %v", ErrUpstreamFailure, providerOpenAI, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s request timeout: %w", providerOpenAI, err)
	}
	return fmt.Errorf("%s request failed: %w", providerOpenAI, err)
}
