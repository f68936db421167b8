package anki

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/snonux/cardstudio/internal/deck"
	"codeberg.org/snonux/cardstudio/internal/draft"
)

// Face is one side of an exported card
type Face struct {
	Text      string // Sanitised HTML text
	ImageFile string // Path to a photo or drawing
	AudioFile string // Path to a recording
}

// Empty reports whether the face has nothing to export
func (f Face) Empty() bool {
	return f.Text == "" && f.ImageFile == "" && f.AudioFile == ""
}

// Card represents a single Anki flashcard
type Card struct {
	Number int
	Front  Face
	Back   Face
}

// FaceFromContent maps a draft face onto the export fields its kind uses
func FaceFromContent(c draft.Content) Face {
	switch c.Kind() {
	case draft.KindText:
		text, err := SanitizeText(c.Payload)
		if err != nil {
			return Face{}
		}
		return Face{Text: text}
	case draft.KindImage:
		return Face{ImageFile: c.Payload}
	case draft.KindAudio:
		return Face{AudioFile: c.Payload}
	case draft.KindEmpty:
		return Face{}
	}
	return Face{}
}

// FromDeck converts the cards of a deck for export
func FromDeck(d *deck.Deck) []Card {
	cards := make([]Card, 0, len(d.Cards))
	for _, c := range d.Cards {
		cards = append(cards, Card{
			Number: c.Number,
			Front:  FaceFromContent(c.Front),
			Back:   FaceFromContent(c.Back),
		})
	}
	return cards
}

// GeneratorOptions configures the Anki export
type GeneratorOptions struct {
	OutputPath     string // Output CSV file path
	IncludeHeaders bool   // Include CSV headers
}

// DefaultGeneratorOptions returns sensible defaults
func DefaultGeneratorOptions() *GeneratorOptions {
	return &GeneratorOptions{
		OutputPath:     "anki_import.csv",
		IncludeHeaders: true,
	}
}

// Generator creates Anki-compatible import files
type Generator struct {
	options *GeneratorOptions
	cards   []Card
}

// NewGenerator creates a new Anki generator
func NewGenerator(options *GeneratorOptions) *Generator {
	if options == nil {
		options = DefaultGeneratorOptions()
	}
	return &Generator{
		options: options,
		cards:   make([]Card, 0),
	}
}

// AddCard adds a card to the collection
func (g *Generator) AddCard(card Card) {
	g.cards = append(g.cards, card)
}

// AddDeck adds every card of a deck
func (g *Generator) AddDeck(d *deck.Deck) {
	for _, c := range FromDeck(d) {
		g.AddCard(c)
	}
}

// GetCards returns the cards added so far
func (g *Generator) GetCards() []Card {
	return g.cards
}

// GenerateCSV creates a CSV file for Anki import. Media is referenced by
// file name only; the files have to be copied into Anki's media folder.
func (g *Generator) GenerateCSV() error {
	file, err := os.Create(g.options.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if g.options.IncludeHeaders {
		if err := writer.Write([]string{"Front", "Back"}); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for _, card := range g.cards {
		record := []string{
			renderFace(card.Front, filepath.Base),
			renderFace(card.Back, filepath.Base),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write card: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// GenerateAPKG creates a proper .apkg file for Anki import
func (g *Generator) GenerateAPKG(outputPath, deckName string) error {
	apkgGen := NewAPKGGenerator(deckName)
	for _, card := range g.cards {
		apkgGen.AddCard(card)
	}
	return apkgGen.GenerateAPKG(outputPath)
}

// renderFace builds the HTML of a field. name maps a media path to the
// name Anki knows it by; an empty name drops the media reference.
func renderFace(f Face, name func(string) string) string {
	var parts []string
	if f.ImageFile != "" {
		if n := name(f.ImageFile); n != "" {
			parts = append(parts, fmt.Sprintf(`<img src="%s">`, n))
		}
	}
	if f.Text != "" {
		parts = append(parts, f.Text)
	}
	if f.AudioFile != "" {
		if n := name(f.AudioFile); n != "" {
			parts = append(parts, fmt.Sprintf("[sound:%s]", n))
		}
	}
	return strings.Join(parts, "<br>")
}

// Stats returns statistics about the card collection
func (g *Generator) Stats() (totalCards, withAudio, withImages int) {
	totalCards = len(g.cards)

	for _, card := range g.cards {
		if card.Front.AudioFile != "" || card.Back.AudioFile != "" {
			withAudio++
		}
		if card.Front.ImageFile != "" || card.Back.ImageFile != "" {
			withImages++
		}
	}

	return
}
