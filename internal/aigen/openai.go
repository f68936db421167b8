package aigen

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const DefaultOpenAIModel = openai.GPT4oMini

// OpenAIGenerator asks an OpenAI chat model for cards in JSON mode
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	log     *zap.Logger
}

// NewOpenAIGenerator creates a generator from the config
func NewOpenAIGenerator(config *Config) *OpenAIGenerator {
	cc := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cc.BaseURL = config.BaseURL
	}

	model := config.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(cc),
		model:   model,
		timeout: config.Timeout,
		log:     log,
	}
}

// Generate implements Generator
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) ([]Pair, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.prompt()},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoCards
	}

	pairs, err := ParsePairs([]byte(resp.Choices[0].Message.Content))
	if err != nil {
		return nil, err
	}

	g.log.Debug("generated cards",
		zap.String("provider", "openai"),
		zap.String("model", g.model),
		zap.Int("cards", len(pairs)),
		zap.Int("tokens", resp.Usage.TotalTokens),
		zap.Duration("took", time.Since(start)))

	return limit(pairs, req.Count), nil
}
