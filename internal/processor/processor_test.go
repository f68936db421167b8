package processor

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"codeberg.org/snonux/cardstudio/internal/aigen"
	"codeberg.org/snonux/cardstudio/internal/cli"
	"codeberg.org/snonux/cardstudio/internal/deck"
	"codeberg.org/snonux/cardstudio/internal/draft"
	"codeberg.org/snonux/cardstudio/internal/testutil"
)

func newTestProcessor(t *testing.T) (*Processor, *bytes.Buffer) {
	t.Helper()
	viper.Reset()

	flags := cli.NewFlags()
	flags.OutputDir = filepath.Join(t.TempDir(), "exports")
	flags.DeckTitle = "Biology"

	var out bytes.Buffer
	p := NewProcessor(flags)
	p.out = &out
	p.now = func() time.Time { return time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC) }
	return p, &out
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	return testutil.CreateTestFile(t, filepath.Join(t.TempDir(), "cards.txt"), []byte(content))
}

func TestNewProcessor(t *testing.T) {
	flags := cli.NewFlags()
	p := NewProcessor(flags)

	if p.flags != flags {
		t.Error("Processor flags not set correctly")
	}
	if p.newGenerator == nil {
		t.Error("generator factory not initialized")
	}
	if p.log() == nil {
		t.Error("logger not initialized")
	}
}

func TestImport(t *testing.T) {
	p, _ := newTestProcessor(t)
	path := writeFile(t, "# biology\nCell = Unit of life\nDNA\n\nATP = Energy\n")

	ctrl, err := p.Import(path)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if ctrl.Mandatory() {
		t.Error("metadata form should be completed")
	}
	if got := ctrl.Metadata().Title; got != "Biology" {
		t.Errorf("title = %q", got)
	}

	cards := ctrl.Submitted()
	if len(cards) != 3 {
		t.Fatalf("expected 3 submitted cards, got %d", len(cards))
	}
	for i, c := range cards {
		if c.Number != i+1 {
			t.Errorf("card %d has number %d", i, c.Number)
		}
	}
	if !cards[1].Back.IsEmpty() {
		t.Errorf("front-only entry got a back: %+v", cards[1].Back)
	}
	if ctrl.Current() != 4 {
		t.Errorf("next card number = %d, want 4", ctrl.Current())
	}
}

func TestImportErrors(t *testing.T) {
	p, _ := newTestProcessor(t)

	if _, err := p.Import(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}

	_, err := p.Import(writeFile(t, "# nothing here\n\n"))
	if !errors.Is(err, ErrNoEntries) {
		t.Errorf("expected ErrNoEntries, got %v", err)
	}

	p.flags.DeckTitle = "  "
	_, err = p.Import(writeFile(t, "a = b\n"))
	if !errors.Is(err, deck.ErrTitleRequired) {
		t.Errorf("expected ErrTitleRequired, got %v", err)
	}
}

func TestImportFileWritesAPKG(t *testing.T) {
	p, out := newTestProcessor(t)
	path := writeFile(t, "Cell = Unit of life\nATP = Energy\n")

	if err := p.ImportFile(path); err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}

	want := filepath.Join(p.flags.OutputDir, "Biology_20250102-150405.apkg")
	entries := testutil.ZipEntries(t, want)
	if entries["collection.anki2"] == nil || entries["media"] == nil {
		t.Errorf("APKG is missing files, has %d entries", len(entries))
	}

	if !strings.Contains(out.String(), "2 cards (2 complete") {
		t.Errorf("summary not printed:\n%s", out.String())
	}
	if !strings.Contains(out.String(), want) {
		t.Errorf("output path not printed:\n%s", out.String())
	}
}

func TestExportCSV(t *testing.T) {
	p, _ := newTestProcessor(t)
	p.flags.AnkiCSV = true

	d := deck.New(deck.Metadata{Title: "Cell Biology"}, []draft.Draft{
		{Number: 1, Front: draft.Text("Cell"), Back: draft.Text("Unit of life"), Submitted: true},
	})

	path, err := p.Export(d)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if filepath.Base(path) != "Cell_Biology_20250102-150405.csv" {
		t.Errorf("unexpected file name %s", filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read CSV: %v", err)
	}
	if len(records) != 2 || records[1][0] != "Cell" || records[1][1] != "Unit of life" {
		t.Errorf("unexpected CSV records %v", records)
	}
}

func TestExportUsesConfiguredDirectory(t *testing.T) {
	p, _ := newTestProcessor(t)
	dir := filepath.Join(t.TempDir(), "from-config")
	viper.Set("output.directory", dir)
	viper.Set("output.csv", true)

	d := deck.New(deck.Metadata{Title: "X"}, []draft.Draft{{Number: 1, Front: draft.Text("a"), Submitted: true}})
	path, err := p.Export(d)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("exported to %s, want %s", filepath.Dir(path), dir)
	}
}

func TestGenerate(t *testing.T) {
	p, _ := newTestProcessor(t)
	t.Setenv("OPENAI_API_KEY", "test-key")

	fake := &testutil.StubGenerator{Pairs: []aigen.Pair{
		{Front: "What is ATP?", Back: "Energy currency"},
		{Front: "What is DNA?", Back: "Genetic material"},
	}}
	var cfg *aigen.Config
	p.newGenerator = func(c *aigen.Config) (aigen.Generator, error) {
		cfg = c
		return fake, nil
	}

	ctrl, err := p.Generate(context.Background(), aigen.Request{Topic: "cells", Count: 2})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if cfg.Provider != "openai" || cfg.APIKey != "test-key" {
		t.Errorf("generator configured with %+v", cfg)
	}
	if got, _ := fake.LastRequest(); got.Difficulty != "medium" || got.Language != "English" {
		t.Errorf("request defaults not filled: %+v", got)
	}
	if got := len(ctrl.Submitted()); got != 2 {
		t.Errorf("expected 2 submitted cards, got %d", got)
	}
	if ctrl.Submitted()[0].Front.Payload != "What is ATP?" {
		t.Errorf("unexpected first card %+v", ctrl.Submitted()[0])
	}
}

func TestGenerateErrors(t *testing.T) {
	p, _ := newTestProcessor(t)

	if _, err := p.Generate(context.Background(), aigen.Request{}); !errors.Is(err, aigen.ErrNoSource) {
		t.Errorf("expected ErrNoSource, got %v", err)
	}

	t.Setenv("OPENAI_API_KEY", "test-key")
	p.newGenerator = func(*aigen.Config) (aigen.Generator, error) {
		return &testutil.StubGenerator{Err: aigen.ErrUnavailable}, nil
	}
	_, err := p.Generate(context.Background(), aigen.Request{Topic: "cells"})
	if !errors.Is(err, aigen.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}

	p.newGenerator = aigen.NewGenerator
	t.Setenv("OPENAI_API_KEY", "")
	_, err = p.Generate(context.Background(), aigen.Request{Topic: "cells"})
	if !errors.Is(err, aigen.ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestGenerateCardsTripsBreaker(t *testing.T) {
	p, _ := newTestProcessor(t)
	t.Setenv("OPENAI_API_KEY", "test-key")

	upstream := errors.New("upstream returned 500")
	stub := &testutil.StubGenerator{Err: upstream}
	builds := 0
	p.newGenerator = func(cfg *aigen.Config) (aigen.Generator, error) {
		builds++
		return aigen.NewBreakerGenerator(stub, cfg), nil
	}

	req := aigen.Request{Topic: "cells"}
	for i := 0; i < 3; i++ {
		if _, err := p.GenerateCards(context.Background(), req); !errors.Is(err, upstream) {
			t.Fatalf("call %d: expected upstream error, got %v", i+1, err)
		}
	}

	_, err := p.GenerateCards(context.Background(), req)
	if !errors.Is(err, aigen.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable once the breaker is open, got %v", err)
	}
	if stub.Calls() != 3 {
		t.Errorf("provider called %d times, want 3", stub.Calls())
	}
	if builds != 1 {
		t.Errorf("generator built %d times, want 1", builds)
	}
}

func TestGeneratorRebuiltOnSettingsChange(t *testing.T) {
	p, _ := newTestProcessor(t)
	t.Setenv("OPENAI_API_KEY", "test-key")

	builds := 0
	p.newGenerator = func(*aigen.Config) (aigen.Generator, error) {
		builds++
		return &testutil.StubGenerator{Pairs: []aigen.Pair{{Front: "Q", Back: "A"}}}, nil
	}

	req := aigen.Request{Topic: "cells"}
	for i := 0; i < 2; i++ {
		if _, err := p.GenerateCards(context.Background(), req); err != nil {
			t.Fatalf("GenerateCards() error = %v", err)
		}
	}
	if builds != 1 {
		t.Errorf("generator built %d times for unchanged settings, want 1", builds)
	}

	p.flags.Model = "another-model"
	if _, err := p.GenerateCards(context.Background(), req); err != nil {
		t.Fatalf("GenerateCards() error = %v", err)
	}
	if builds != 2 {
		t.Errorf("generator built %d times after a model change, want 2", builds)
	}
}

func TestGenerateDeck(t *testing.T) {
	p, out := newTestProcessor(t)
	p.flags.AnkiCSV = true
	p.flags.SourceURL = "https://www.youtube.com/watch?v=abc"
	p.flags.Count = 1
	t.Setenv("OPENAI_API_KEY", "test-key")

	fake := &testutil.StubGenerator{Pairs: []aigen.Pair{{Front: "Q", Back: "A"}}}
	p.newGenerator = func(*aigen.Config) (aigen.Generator, error) { return fake, nil }

	if err := p.GenerateDeck(context.Background()); err != nil {
		t.Fatalf("GenerateDeck() error = %v", err)
	}
	if got, _ := fake.LastRequest(); got.SourceURL != p.flags.SourceURL {
		t.Errorf("source URL not passed: %+v", got)
	}
	testutil.AssertFileExists(t, filepath.Join(p.flags.OutputDir, "Biology_20250102-150405.csv"))
	if !strings.Contains(out.String(), "Anki deck created") {
		t.Errorf("missing completion message:\n%s", out.String())
	}
}

func TestArchive(t *testing.T) {
	p, out := newTestProcessor(t)
	testutil.CreateTestFiles(t, p.flags.OutputDir, "old.apkg")

	if err := p.Archive(); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	testutil.AssertFileNotExists(t, filepath.Join(p.flags.OutputDir, "old.apkg"))
	if !strings.Contains(out.String(), "Archived exports to") {
		t.Errorf("missing archive message:\n%s", out.String())
	}
}
