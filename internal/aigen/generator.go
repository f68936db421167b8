package aigen

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Generator produces card pairs for a validated request
type Generator interface {
	Generate(ctx context.Context, req Request) ([]Pair, error)
}

// Config selects and configures a provider
type Config struct {
	Provider string // "openai" or "gemini"
	APIKey   string
	Model    string
	BaseURL  string // OpenAI-compatible endpoint override
	Timeout  time.Duration

	// Breaker settings; zero values keep the defaults
	BreakerFailures uint32
	BreakerCooldown time.Duration

	Logger *zap.Logger
}

// DefaultConfig returns the OpenAI defaults
func DefaultConfig() *Config {
	return &Config{
		Provider:        "openai",
		Model:           DefaultOpenAIModel,
		Timeout:         60 * time.Second,
		BreakerFailures: 3,
		BreakerCooldown: 30 * time.Second,
	}
}

// NewGenerator builds the configured provider behind a circuit breaker
func NewGenerator(config *Config) (Generator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", config.Provider, ErrMissingAPIKey)
	}

	var gen Generator
	switch config.Provider {
	case "openai", "":
		gen = NewOpenAIGenerator(config)
	case "gemini":
		gen = NewGeminiGenerator(config)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, config.Provider)
	}

	return NewBreakerGenerator(gen, config), nil
}

// withTimeout applies the configured per-request timeout
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
