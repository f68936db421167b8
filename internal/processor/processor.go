package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"codeberg.org/snonux/cardstudio/internal"
	"codeberg.org/snonux/cardstudio/internal/aigen"
	"codeberg.org/snonux/cardstudio/internal/anki"
	"codeberg.org/snonux/cardstudio/internal/archive"
	"codeberg.org/snonux/cardstudio/internal/batch"
	"codeberg.org/snonux/cardstudio/internal/cli"
	"codeberg.org/snonux/cardstudio/internal/deck"
	"codeberg.org/snonux/cardstudio/internal/flow"
	"codeberg.org/snonux/cardstudio/internal/gui"
	"codeberg.org/snonux/cardstudio/internal/logger"
	"codeberg.org/snonux/cardstudio/internal/server"
)

// ErrNoEntries is returned when an imported file holds no cards
var ErrNoEntries = errors.New("no cards found in file")

// Processor runs the commands: it turns files and AI output into creation
// sessions, exports decks and starts the GUI and the HTTP server
type Processor struct {
	flags *cli.Flags
	out   io.Writer
	now   func() time.Time

	newGenerator func(*aigen.Config) (aigen.Generator, error)

	// The generator is reused so its circuit breaker sees consecutive
	// failures; it is rebuilt only when the provider settings change.
	genMu  sync.Mutex
	gen    aigen.Generator
	genKey generatorKey

	logger  *logger.Logger
	logOnce sync.Once
}

// NewProcessor creates a new processor
func NewProcessor(flags *cli.Flags) *Processor {
	return &Processor{
		flags:        flags,
		out:          os.Stdout,
		now:          time.Now,
		newGenerator: aigen.NewGenerator,
		logger:       logger.New(),
	}
}

// log returns the diagnostic logger, built on first use so that the
// config file has been read by then
func (p *Processor) log() *zap.Logger {
	p.logOnce.Do(func() {
		level := stringSetting("log.level", p.flags.LogLevel)
		if err := p.logger.Init(level); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	})
	return p.logger.Log
}

func stringSetting(key, fallback string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return fallback
}

func boolSetting(key string, fallback bool) bool {
	return viper.GetBool(key) || fallback
}

func (p *Processor) outputDir() string {
	return stringSetting("output.directory", p.flags.OutputDir)
}

// metadata is the deck metadata given on the command line or in the config
func (p *Processor) metadata() deck.Metadata {
	return deck.Metadata{
		Title:       stringSetting("deck.title", p.flags.DeckTitle),
		Description: p.flags.Description,
		Folder:      stringSetting("deck.folder", p.flags.Folder),
		Tags:        p.flags.Tags,
	}
}

// session starts a controller with the metadata form already completed
func (p *Processor) session() (*flow.Controller, error) {
	ctrl := flow.New(&flow.Config{Logger: p.log(), Transition: flow.Instant{}})
	if err := ctrl.SetMetadata(p.metadata()); err != nil {
		return nil, fmt.Errorf("invalid deck metadata: %w", err)
	}
	if err := ctrl.SetMandatory(false); err != nil {
		return nil, err
	}
	return ctrl, nil
}

// Import builds a session whose submitted cards are the entries of a
// batch file
func (p *Processor) Import(path string) (*flow.Controller, error) {
	entries, err := batch.ReadBatchFile(path)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoEntries, path)
	}

	ctrl, err := p.session()
	if err != nil {
		return nil, err
	}

	cards := make([]flow.Card, 0, len(entries))
	for _, e := range entries {
		d := e.Draft(0)
		cards = append(cards, flow.Card{Front: d.Front, Back: d.Back})
	}
	ctrl.Preload(cards)

	p.log().Info("imported batch file", zap.String("path", path), zap.Int("cards", len(cards)))
	return ctrl, nil
}

type generatorKey struct {
	provider, apiKey, model, baseURL string
}

// generator returns the generator for the current provider settings
func (p *Processor) generator() (aigen.Generator, error) {
	provider := stringSetting("ai.provider", p.flags.Provider)
	key := generatorKey{
		provider: provider,
		apiKey:   cli.GetAPIKey(provider),
		model:    stringSetting("ai.model", p.flags.Model),
		baseURL:  stringSetting("ai.base_url", p.flags.BaseURL),
	}

	p.genMu.Lock()
	defer p.genMu.Unlock()

	if p.gen != nil && p.genKey == key {
		return p.gen, nil
	}

	gen, err := p.newGenerator(&aigen.Config{
		Provider: key.provider,
		APIKey:   key.apiKey,
		Model:    key.model,
		BaseURL:  key.baseURL,
		Timeout:  aigen.DefaultConfig().Timeout,
		Logger:   p.log(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	p.gen, p.genKey = gen, key
	return gen, nil
}

// GenerateCards asks the configured AI provider for cards
func (p *Processor) GenerateCards(ctx context.Context, req aigen.Request) ([]flow.Card, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	gen, err := p.generator()
	if err != nil {
		return nil, err
	}

	pairs, err := gen.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to generate cards: %w", err)
	}

	cards := make([]flow.Card, 0, len(pairs))
	for _, pair := range pairs {
		d := pair.Draft(0)
		cards = append(cards, flow.Card{Front: d.Front, Back: d.Back})
	}
	return cards, nil
}

// Generate builds a session whose submitted cards were produced by the
// configured AI provider
func (p *Processor) Generate(ctx context.Context, req aigen.Request) (*flow.Controller, error) {
	cards, err := p.GenerateCards(ctx, req)
	if err != nil {
		return nil, err
	}

	ctrl, err := p.session()
	if err != nil {
		return nil, err
	}
	ctrl.Preload(cards)
	return ctrl, nil
}

// ImportFile imports a batch file and exports the resulting deck
func (p *Processor) ImportFile(path string) error {
	fmt.Fprintf(p.out, "Importing %s...\n", path)

	ctrl, err := p.Import(path)
	if err != nil {
		return err
	}
	return p.finish(ctrl)
}

// GenerateDeck generates a deck from the topic or link given on the
// command line and exports it
func (p *Processor) GenerateDeck(ctx context.Context) error {
	req := aigen.Request{
		Topic:      p.flags.Topic,
		SourceURL:  p.flags.SourceURL,
		Count:      p.flags.Count,
		Difficulty: p.flags.Difficulty,
		Language:   stringSetting("ai.language", p.flags.Language),
	}

	source := req.Topic
	if req.SourceURL != "" {
		source = req.SourceURL
	}
	fmt.Fprintf(p.out, "Generating %d cards from %q...\n", req.Count, source)

	ctrl, err := p.Generate(ctx, req)
	if err != nil {
		return err
	}
	return p.finish(ctrl)
}

func (p *Processor) finish(ctrl *flow.Controller) error {
	d, err := ctrl.Deck()
	if err != nil {
		return err
	}

	st := d.Stats()
	fmt.Fprintf(p.out, "  %d cards (%d complete, %d with one side only)\n", st.Total, st.Complete, st.Incomplete)

	path, err := p.Export(d)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "Anki deck created: %s\n", path)
	return nil
}

// Export writes the deck into the output directory, as APKG unless CSV
// output is configured, and returns the written file
func (p *Processor) Export(d *deck.Deck) (string, error) {
	dir := p.outputDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	asCSV := boolSetting("output.csv", p.flags.AnkiCSV)
	ext := "apkg"
	if asCSV {
		ext = "csv"
	}
	outputPath := filepath.Join(dir, internal.ExportFileName(d.Metadata.Title, ext, p.now()))

	gen := anki.NewGenerator(&anki.GeneratorOptions{
		OutputPath:     outputPath,
		IncludeHeaders: true,
	})
	gen.AddDeck(d)

	if asCSV {
		if err := gen.GenerateCSV(); err != nil {
			return "", fmt.Errorf("failed to generate CSV: %w", err)
		}
	} else {
		apkg := anki.NewAPKGGenerator(d.Metadata.Title)
		apkg.SetDescription(d.Metadata.Description)
		apkg.SetTags(d.Metadata.Tags)
		apkg.SetReverse(boolSetting("output.reverse", p.flags.Reverse))
		for _, card := range gen.GetCards() {
			apkg.AddCard(card)
		}
		if err := apkg.GenerateAPKG(outputPath); err != nil {
			return "", fmt.Errorf("failed to generate APKG: %w", err)
		}
	}

	total, withAudio, withImages := gen.Stats()
	p.log().Info("exported deck",
		zap.String("deck", d.ID),
		zap.String("path", outputPath),
		zap.Int("cards", total),
		zap.Int("audio", withAudio),
		zap.Int("images", withImages))

	return outputPath, nil
}

// Serve runs the session API until interrupted
func (p *Processor) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{Logger: p.log(), Exporter: p})
	addr := stringSetting("server.listen", p.flags.Listen)

	fmt.Fprintf(p.out, "Serving the card API on http://%s/api (Ctrl+C to stop)\n", addr)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Archive moves previous exports into a timestamped directory
func (p *Processor) Archive() error {
	dest, err := archive.ArchiveExports(p.outputDir(), p.now())
	if err != nil {
		return fmt.Errorf("failed to archive exports: %w", err)
	}
	fmt.Fprintf(p.out, "Archived exports to %s\n", dest)
	return nil
}

// ListModels prints the chat models of the configured OpenAI endpoint
func (p *Processor) ListModels(ctx context.Context) error {
	key := cli.GetOpenAIKey()
	lister := aigen.NewLister(key)
	if baseURL := stringSetting("ai.base_url", p.flags.BaseURL); baseURL != "" {
		lister = aigen.NewListerWithBaseURL(key, baseURL)
	}
	return lister.Print(ctx, p.out)
}

// RunGUIMode launches the card editor
func (p *Processor) RunGUIMode() error {
	app := gui.New(&gui.Config{
		Exporter: p,
		Logger:   p.log(),
		Generate: p.GenerateCards,
		NoFade:   boolSetting("gui.no_fade", p.flags.NoFade),
		Metadata: p.metadata(),
	})
	return app.Run()
}
