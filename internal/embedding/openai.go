// Package embedding provides EmbeddingGenerator implementations for
// generator-backed vector properties and text search inputs.
package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecbridge/internal/metrics"
)

// ErrProviderError marks failures of the remote embedding provider so callers
// can tell them apart from local schema errors.
var ErrProviderError = errors.New("embedding provider error")

// OpenAIGenerator embeds text through an OpenAI-compatible API.
type OpenAIGenerator struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	provider   string
	logger     *zap.Logger
}

// OpenAIConfig holds the embedding provider settings.
type OpenAIConfig struct {
	APIKey string
	// BaseURL points at an OpenAI-compatible endpoint; empty means the
	// OpenAI default.
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	// Provider labels metrics; "openai" when empty.
	Provider string
	Logger   *zap.Logger
}

// NewOpenAIGenerator creates an OpenAI-compatible embedding generator.
func NewOpenAIGenerator(cfg *OpenAIConfig) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OpenAIGenerator{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   provider,
		logger:     logger,
	}
}

// Generate embeds one input text, with transport-level metrics.
func (g *OpenAIGenerator) Generate(ctx context.Context, input string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{input},
		Model:          g.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           g.user,
	}
	if g.dimensions > 0 {
		req.Dimensions = g.dimensions
	}

	start := time.Now()

	resp, err := g.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(g.provider, string(g.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(g.provider, string(g.model), "api_error").Inc()
		return nil, parseAPIError(err)
	}

	if len(resp.Data) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(g.provider, string(g.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(g.provider, string(g.model), "empty_response").Inc()
		return nil, fmt.Errorf("empty embedding response: %w", ErrProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(g.provider, string(g.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(g.provider, string(g.model)).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(g.provider, string(g.model)).
			Add(float64(resp.Usage.TotalTokens))
	}

	g.logger.Debug("embedding generated",
		zap.String("provider", g.provider),
		zap.String("model", string(g.model)),
		zap.Int("dimensions", len(resp.Data[0].Embedding)),
		zap.Duration("duration", duration))

	return resp.Data[0].Embedding, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (g *OpenAIGenerator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response. All
// errors are wrapped with ErrProviderError.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("embedding API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, ErrProviderError)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), ErrProviderError)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, ErrProviderError)
	}

	return fmt.Errorf("embedding request failed: %w", ErrProviderError)
}

// extractDetail pulls the "detail" field out of a JSON error body, the shape
// several OpenAI-compatible providers use.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
