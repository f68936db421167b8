package aigen

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	DefaultCount = 10
	MaxCount     = 50
)

var (
	ErrNoSource       = errors.New("either a topic or a YouTube link is required")
	ErrInvalidURL     = errors.New("not a YouTube link")
	ErrCountRange     = fmt.Errorf("card count must be between 1 and %d", MaxCount)
	ErrBadDifficulty  = errors.New("difficulty must be easy, medium or hard")
	ErrMissingAPIKey  = errors.New("API key not found")
	ErrNoCards        = errors.New("model returned no cards")
	ErrUnavailable    = errors.New("card generation is temporarily unavailable")
	ErrUnknownBackend = errors.New("unknown generation provider")
)

var difficulties = map[string]bool{"easy": true, "medium": true, "hard": true}

// Request is what the AI-generated form and the YouTube-link flow submit
type Request struct {
	Topic      string `json:"topic,omitempty"`
	SourceURL  string `json:"source_url,omitempty"`
	Count      int    `json:"count,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Language   string `json:"language,omitempty"`
}

// Validate fills defaults and checks the request
func (r *Request) Validate() error {
	r.Topic = strings.TrimSpace(r.Topic)
	r.SourceURL = strings.TrimSpace(r.SourceURL)
	r.Difficulty = strings.ToLower(strings.TrimSpace(r.Difficulty))
	r.Language = strings.TrimSpace(r.Language)

	if r.Topic == "" && r.SourceURL == "" {
		return ErrNoSource
	}
	if r.SourceURL != "" && !IsYouTubeURL(r.SourceURL) {
		return fmt.Errorf("%w: %s", ErrInvalidURL, r.SourceURL)
	}

	if r.Count == 0 {
		r.Count = DefaultCount
	}
	if r.Count < 1 || r.Count > MaxCount {
		return ErrCountRange
	}

	if r.Difficulty == "" {
		r.Difficulty = "medium"
	}
	if !difficulties[r.Difficulty] {
		return ErrBadDifficulty
	}
	if r.Language == "" {
		r.Language = "English"
	}
	return nil
}

// IsYouTubeURL accepts http(s) links on youtube.com and youtu.be
func IsYouTubeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}

	host := strings.ToLower(u.Hostname())
	switch host {
	case "youtu.be":
		return strings.Trim(u.Path, "/") != ""
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com":
		return u.Query().Get("v") != "" || strings.HasPrefix(u.Path, "/shorts/") || strings.HasPrefix(u.Path, "/live/")
	}
	return false
}

// prompt renders the user message sent to either provider
func (r Request) prompt() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create %d %s-difficulty flashcards in %s.\n", r.Count, r.Difficulty, r.Language)
	if r.Topic != "" {
		fmt.Fprintf(&b, "Topic: %s\n", r.Topic)
	}
	if r.SourceURL != "" {
		fmt.Fprintf(&b, "Base the cards on the content of this YouTube video: %s\n", r.SourceURL)
	}
	b.WriteString(`Each card has a short question or term on the front and a concise answer on the back.
Respond with JSON only, in the form {"cards":[{"front":"...","back":"..."}]}.`)

	return b.String()
}

const systemPrompt = "You are a study assistant that writes accurate, self-contained flashcards."
