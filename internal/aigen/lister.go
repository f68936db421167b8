package aigen

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Lister lists the OpenAI models usable for card generation
type Lister struct {
	apiKey string
	client *openai.Client
}

// NewLister creates a new model lister
func NewLister(apiKey string) *Lister {
	return &Lister{
		apiKey: apiKey,
		client: openai.NewClient(apiKey),
	}
}

// NewListerWithBaseURL points the lister at an OpenAI-compatible endpoint
func NewListerWithBaseURL(apiKey, baseURL string) *Lister {
	cc := openai.DefaultConfig(apiKey)
	cc.BaseURL = baseURL
	return &Lister{apiKey: apiKey, client: openai.NewClientWithConfig(cc)}
}

// ChatModels returns the sorted IDs of chat-capable models
func (l *Lister) ChatModels(ctx context.Context) ([]string, error) {
	if l.apiKey == "" {
		return nil, fmt.Errorf("OpenAI %w: set OPENAI_API_KEY or configure it in .cardstudio.yaml", ErrMissingAPIKey)
	}

	models, err := l.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	var chat []string
	for _, model := range models.Models {
		id := model.ID
		if skipModel(id) {
			continue
		}
		if strings.HasPrefix(id, "gpt") || strings.HasPrefix(id, "o") || strings.Contains(id, "chat") {
			chat = append(chat, id)
		}
	}

	sort.Strings(chat)
	return chat, nil
}

// Print writes the chat models to w, marking the default one
func (l *Lister) Print(ctx context.Context, w io.Writer) error {
	models, err := l.ChatModels(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Chat models usable for card generation:")
	if len(models) == 0 {
		fmt.Fprintln(w, "  No chat models found")
		return nil
	}
	for _, m := range models {
		marker := ""
		if m == DefaultOpenAIModel {
			marker = " (default)"
		}
		fmt.Fprintf(w, "  %s%s\n", m, marker)
	}
	return nil
}

func skipModel(id string) bool {
	for _, s := range []string{"tts", "audio", "realtime", "transcribe", "moderation", "embedding", "image"} {
		if strings.Contains(id, s) {
			return true
		}
	}
	return false
}
