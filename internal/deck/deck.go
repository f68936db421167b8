// Package deck describes a finished or in-progress deck: the metadata
// collected before any card is added, the cards themselves, and the
// statistics shown on the dashboard.
package deck

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"codeberg.org/snonux/cardstudio/internal/draft"
)

// MaxTitleLength is the longest deck title accepted, in runes
const MaxTitleLength = 100

var (
	ErrTitleRequired = errors.New("deck title is required")
	ErrTitleTooLong  = errors.New("deck title is too long")
)

// Metadata is the information collected while the mandatory form is shown
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Folder      string   `json:"folder,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Favorite    bool     `json:"favorite"`
}

// Validate checks the title and normalises tags in place
func (m *Metadata) Validate() error {
	m.Title = strings.TrimSpace(m.Title)
	if m.Title == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(m.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}

	m.Folder = strings.TrimSpace(m.Folder)
	m.Tags = normaliseTags(m.Tags)
	return nil
}

func normaliseTags(tags []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		result = append(result, tag)
	}
	return result
}

// Deck is a titled set of cards
type Deck struct {
	ID        string        `json:"id"`
	Metadata  Metadata      `json:"metadata"`
	Cards     []draft.Draft `json:"cards"`
	CreatedAt time.Time     `json:"created_at"`
}

// New creates a deck with a fresh ID
func New(meta Metadata, cards []draft.Draft) *Deck {
	return &Deck{
		ID:        uuid.NewString(),
		Metadata:  meta,
		Cards:     cards,
		CreatedAt: time.Now(),
	}
}

// Stats computes the dashboard numbers for this deck
func (d *Deck) Stats() Stats {
	return Compute(d.Cards)
}
