package anki

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/snonux/cardstudio/internal/deck"
	"codeberg.org/snonux/cardstudio/internal/draft"
)

func TestDefaultGeneratorOptions(t *testing.T) {
	opts := DefaultGeneratorOptions()

	if opts.OutputPath != "anki_import.csv" {
		t.Errorf("Expected output path 'anki_import.csv', got '%s'", opts.OutputPath)
	}
	if !opts.IncludeHeaders {
		t.Error("Expected IncludeHeaders to be true")
	}
}

func TestNewGenerator(t *testing.T) {
	gen := NewGenerator(nil)
	if gen == nil {
		t.Fatal("NewGenerator returned nil")
	}
	if gen.options == nil {
		t.Error("Generator options should not be nil")
	}

	gen = NewGenerator(&GeneratorOptions{OutputPath: "custom.csv"})
	if gen.options.OutputPath != "custom.csv" {
		t.Errorf("Expected custom output path, got '%s'", gen.options.OutputPath)
	}
}

func TestFaceFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content draft.Content
		want    Face
	}{
		{"none", draft.Content{}, Face{}},
		{"text", draft.Text("mitochondria"), Face{Text: "mitochondria"}},
		{"text escaped", draft.Text("Tom & Jerry"), Face{Text: "Tom &amp; Jerry"}},
		{"script stripped", draft.Text("<b>bold</b><script>x()</script>"), Face{Text: "<b>bold</b>"}},
		{"camera", draft.NewContent(draft.ContentCamera, "/tmp/p.jpg"), Face{ImageFile: "/tmp/p.jpg"}},
		{"marker", draft.NewContent(draft.ContentMarker, "/tmp/d.png"), Face{ImageFile: "/tmp/d.png"}},
		{"mic", draft.NewContent(draft.ContentMic, "/tmp/v.m4a"), Face{AudioFile: "/tmp/v.m4a"}},
		{"empty text", draft.Text("   "), Face{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FaceFromContent(tt.content); got != tt.want {
				t.Errorf("FaceFromContent() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFromDeck(t *testing.T) {
	d := deck.New(deck.Metadata{Title: "Bio"}, []draft.Draft{
		{Number: 1, Front: draft.Text("cell"), Back: draft.Text("unit"), Submitted: true},
		{Number: 2, Front: draft.NewContent(draft.ContentMic, "/a.m4a"), Submitted: true},
	})

	cards := FromDeck(d)
	if len(cards) != 2 {
		t.Fatalf("Expected 2 cards, got %d", len(cards))
	}
	if cards[0].Number != 1 || cards[0].Front.Text != "cell" || cards[0].Back.Text != "unit" {
		t.Errorf("unexpected first card %+v", cards[0])
	}
	if cards[1].Front.AudioFile != "/a.m4a" || !cards[1].Back.Empty() {
		t.Errorf("unexpected second card %+v", cards[1])
	}
}

func TestGenerateCSV(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "test.csv")

	gen := NewGenerator(&GeneratorOptions{
		OutputPath:     outputPath,
		IncludeHeaders: true,
	})
	gen.AddCard(Card{
		Number: 1,
		Front:  Face{Text: "apple", ImageFile: "/path/to/apple.jpg"},
		Back:   Face{AudioFile: "/path/to/apple.m4a"},
	})
	gen.AddCard(Card{
		Number: 2,
		Front:  Face{Text: "cat"},
		Back:   Face{Text: "an animal"},
	})

	if err := gen.GenerateCSV(); err != nil {
		t.Fatalf("GenerateCSV() error = %v", err)
	}

	file, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d records", len(records))
	}

	if strings.Join(records[0], ",") != "Front,Back" {
		t.Errorf("unexpected headers %v", records[0])
	}
	if records[1][0] != `<img src="apple.jpg"><br>apple` {
		t.Errorf("front field = %q", records[1][0])
	}
	if records[1][1] != "[sound:apple.m4a]" {
		t.Errorf("back field = %q", records[1][1])
	}
	if records[2][1] != "an animal" {
		t.Errorf("back field = %q", records[2][1])
	}
}

func TestGenerateCSVWithoutHeaders(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "test.csv")

	gen := NewGenerator(&GeneratorOptions{OutputPath: outputPath})
	gen.AddCard(Card{Number: 1, Front: Face{Text: "apple"}})

	if err := gen.GenerateCSV(); err != nil {
		t.Fatalf("GenerateCSV() error = %v", err)
	}

	file, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Expected 1 record (no headers), got %d", len(records))
	}
	if records[0][0] != "apple" {
		t.Errorf("First field should be 'apple', got '%s'", records[0][0])
	}
}

func TestStats(t *testing.T) {
	gen := NewGenerator(nil)

	total, audio, images := gen.Stats()
	if total != 0 || audio != 0 || images != 0 {
		t.Errorf("Expected empty stats, got total=%d, audio=%d, images=%d", total, audio, images)
	}

	gen.AddCard(Card{Front: Face{ImageFile: "a.jpg"}, Back: Face{AudioFile: "a.m4a"}})
	gen.AddCard(Card{Front: Face{Text: "b"}, Back: Face{AudioFile: "b.m4a"}})
	gen.AddCard(Card{Front: Face{Text: "c"}, Back: Face{ImageFile: "c.png"}})
	gen.AddCard(Card{Front: Face{Text: "d"}, Back: Face{Text: "e"}})

	total, audio, images = gen.Stats()
	if total != 4 {
		t.Errorf("Expected 4 total cards, got %d", total)
	}
	if audio != 2 {
		t.Errorf("Expected 2 cards with audio, got %d", audio)
	}
	if images != 2 {
		t.Errorf("Expected 2 cards with images, got %d", images)
	}
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"hello", "hello", false},
		{"line one\nline two", "line one<br>line two", false},
		{"<i>x</i>", "<i>x</i>", false},
		{"<script>alert(1)</script>", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := SanitizeText(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SanitizeText(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
