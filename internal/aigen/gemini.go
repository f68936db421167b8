package aigen

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiGenerator asks a Gemini model for cards with a JSON response type
type GeminiGenerator struct {
	apiKey  string
	model   string
	timeout time.Duration
	log     *zap.Logger
}

// NewGeminiGenerator creates a generator from the config. The API client
// is created per call since it needs a context.
func NewGeminiGenerator(config *Config) *GeminiGenerator {
	model := config.Model
	if model == "" || model == DefaultOpenAIModel {
		model = DefaultGeminiModel
	}
	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &GeminiGenerator{
		apiKey:  config.APIKey,
		model:   model,
		timeout: config.Timeout,
		log:     log,
	}
}

// Generate implements Generator
func (g *GeminiGenerator) Generate(ctx context.Context, req Request) ([]Pair, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if g.apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}

	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(req.prompt()), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0.7),
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	pairs, err := ParsePairs([]byte(resp.Text()))
	if err != nil {
		return nil, err
	}

	g.log.Debug("generated cards",
		zap.String("provider", "gemini"),
		zap.String("model", g.model),
		zap.Int("cards", len(pairs)),
		zap.Duration("took", time.Since(start)))

	return limit(pairs, req.Count), nil
}
