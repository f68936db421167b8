package gui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	fynetooltip "github.com/dweymouth/fyne-tooltip"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"
	"go.uber.org/zap"

	"codeberg.org/snonux/cardstudio/internal"
	"codeberg.org/snonux/cardstudio/internal/deck"
	"codeberg.org/snonux/cardstudio/internal/draft"
	"codeberg.org/snonux/cardstudio/internal/flow"
)

// Exporter writes a finished deck and returns the file it created
type Exporter interface {
	Export(d *deck.Deck) (string, error)
}

// Config holds GUI application configuration
type Config struct {
	Exporter Exporter
	// Generate enables the AI generation dialog when set
	Generate     GenerateFunc
	Logger       *zap.Logger
	NoFade       bool
	FadeDuration time.Duration
	// Metadata pre-fills the deck details form
	Metadata deck.Metadata
}

// DefaultConfig returns default GUI configuration
func DefaultConfig() *Config {
	return &Config{
		Logger:       zap.NewNop(),
		FadeDuration: 300 * time.Millisecond,
	}
}

// Application is the card editor window. All controller access goes
// through mu; fyne callbacks run on the main goroutine and the card
// transition runs on its own.
type Application struct {
	app    fyne.App
	window fyne.Window
	config *Config
	log    *zap.Logger
	logs   *LogBuffer

	mu            sync.Mutex
	ctrl          *flow.Controller
	transitioning atomic.Bool

	// main-goroutine state
	overlayShown bool
	formShown    bool
	updating     bool
	listItems    []draft.Draft
	selected     map[int]bool
	selecting    bool
	logWindow    fyne.Window

	// editor
	header     *widget.Label
	typeSelect *widget.Select
	editButton *ttwidget.Button
	textView   *widget.Label
	textScroll *container.Scroll
	imageView  *ImageDisplay
	audioView  *AudioPlayer
	emptyView  *widget.Label
	cover      *canvas.Rectangle
	editorPane fyne.CanvasObject

	// view mode
	list     *widget.List
	stats    *StatsPanel
	viewPane fyne.CanvasObject

	// toolbar
	addBtn    *ttwidget.Button
	viewBtn   *ttwidget.Button
	flipBtn   *ttwidget.Button
	nextBtn   *ttwidget.Button
	selectBtn *ttwidget.Button
	deleteBtn *ttwidget.Button
	formBtn   *ttwidget.Button
	exportBtn *ttwidget.Button
	aiBtn     *ttwidget.Button
	logBtn    *ttwidget.Button
	helpBtn   *ttwidget.Button

	statusLabel *widget.Label

	queue  *GenerationQueue
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new GUI application
func New(config *Config) *Application {
	defaults := DefaultConfig()
	if config == nil {
		config = defaults
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	if config.FadeDuration <= 0 {
		config.FadeDuration = defaults.FadeDuration
	}

	ctx, cancel := context.WithCancel(context.Background())

	fyneApp := app.NewWithID("org.codeberg.snonux.cardstudio")
	fyneApp.SetIcon(appIcon())

	a := &Application{
		app:      fyneApp,
		config:   config,
		logs:     NewLogBuffer(500),
		selected: make(map[int]bool),
		ctx:      ctx,
		cancel:   cancel,
	}
	a.log = TeeLogger(config.Logger, a.logs)

	var transition flow.Transitioner = flow.Fade{Duration: config.FadeDuration, Observer: a.onPhase}
	if config.NoFade {
		transition = flow.Instant{}
	}
	a.ctrl = flow.New(&flow.Config{Logger: a.log, Transition: transition})

	if config.Generate != nil {
		a.queue = NewGenerationQueue(ctx, config.Generate, func(job GenerationJob) {
			fyne.Do(func() { a.onJobUpdate(job) })
		})
	}

	a.setupUI()
	return a
}

// setupUI creates the main user interface
func (a *Application) setupUI() {
	a.window = a.app.NewWindow(fmt.Sprintf("Card Studio v%s", internal.Version))
	a.window.SetIcon(appIcon())
	a.window.Resize(fyne.NewSize(900, 640))

	a.editorPane = a.buildEditor()
	a.viewPane = a.buildViewPane()

	a.addBtn = ttwidget.NewButtonWithIcon("", theme.ContentAddIcon(), a.onShowAdd)
	a.viewBtn = ttwidget.NewButtonWithIcon("", theme.ListIcon(), a.onShowView)
	a.flipBtn = ttwidget.NewButtonWithIcon("", theme.ViewRefreshIcon(), a.onFlip)
	a.nextBtn = ttwidget.NewButtonWithIcon("", theme.NavigateNextIcon(), a.onNext)
	a.selectBtn = ttwidget.NewButtonWithIcon("", theme.CheckButtonCheckedIcon(), a.onToggleSelectMode)
	a.deleteBtn = ttwidget.NewButtonWithIcon("", theme.DeleteIcon(), a.onDelete)
	a.deleteBtn.Importance = widget.DangerImportance
	a.formBtn = ttwidget.NewButtonWithIcon("", theme.DocumentIcon(), a.onEditMetadata)
	a.exportBtn = ttwidget.NewButtonWithIcon("", theme.UploadIcon(), a.onExport)
	a.aiBtn = ttwidget.NewButtonWithIcon("", theme.ComputerIcon(), a.onGenerate)
	a.logBtn = ttwidget.NewButtonWithIcon("", theme.InfoIcon(), a.onShowLog)
	a.helpBtn = ttwidget.NewButtonWithIcon("", theme.HelpIcon(), a.onShowHotkeys)

	if a.queue == nil {
		a.aiBtn.Hide()
	}

	toolbar := container.NewHBox(
		a.addBtn,
		a.viewBtn,
		widget.NewSeparator(),
		a.flipBtn,
		a.nextBtn,
		widget.NewSeparator(),
		a.selectBtn,
		a.deleteBtn,
		widget.NewSeparator(),
		a.formBtn,
		a.aiBtn,
		a.exportBtn,
		widget.NewSeparator(),
		a.logBtn,
		a.helpBtn,
	)

	a.statusLabel = widget.NewLabel("Ready")

	content := container.NewBorder(
		container.NewVBox(toolbar, widget.NewSeparator()),
		container.NewVBox(widget.NewSeparator(), a.statusLabel),
		nil, nil,
		container.NewStack(a.editorPane, a.viewPane),
	)

	a.window.SetContent(fynetooltip.AddWindowToolTipLayer(content, a.window.Canvas()))
	a.setupTooltips()

	a.window.SetOnClosed(func() {
		a.cancel()
		if a.queue != nil {
			a.queue.Stop()
		}
		a.audioView.Clear()
		if a.logWindow != nil {
			a.logWindow.Close()
		}
	})

	a.setupKeyboardShortcuts()
}

func (a *Application) setupTooltips() {
	a.addBtn.SetToolTip("Edit cards (a)")
	a.viewBtn.SetToolTip("View submitted cards (v)")
	a.flipBtn.SetToolTip("Flip card (f)")
	a.nextBtn.SetToolTip("Submit and next card (n)")
	a.selectBtn.SetToolTip("Select cards to delete (s)")
	a.deleteBtn.SetToolTip("Delete selected cards (d)")
	a.formBtn.SetToolTip("Deck details (m)")
	a.aiBtn.SetToolTip("Generate cards with AI (g)")
	a.exportBtn.SetToolTip("Export to Anki (x)")
	a.logBtn.SetToolTip("Session log (l)")
	a.helpBtn.SetToolTip("Show hotkeys (h)")
}

// Run shows the window and blocks until it is closed
func (a *Application) Run() error {
	a.window.Show()
	a.refresh()
	a.app.Run()
	return nil
}

// act runs fn on the controller and redraws. Input is ignored while a
// card transition is running.
func (a *Application) act(fn func(c *flow.Controller) error) {
	if a.transitioning.Load() {
		return
	}

	a.mu.Lock()
	err := fn(a.ctrl)
	a.mu.Unlock()

	a.handle(err)
	a.refresh()
}

// handle reports an action error. Dialog-opening results are not errors
// for the user; the dialog itself is drawn by refresh.
func (a *Application) handle(err error) {
	switch {
	case err == nil,
		errors.Is(err, flow.ErrConfirmationRequired),
		errors.Is(err, draft.ErrEmptySelection):
		return
	case errors.Is(err, flow.ErrEmptyCard):
		a.setStatus("Add something to the card before moving on")
	case errors.Is(err, flow.ErrWrongMode), errors.Is(err, flow.ErrOverlayBusy):
		a.log.Debug("action ignored", zap.Error(err))
	default:
		a.log.Warn("action failed", zap.Error(err))
		dialog.ShowError(err, a.window)
	}
}

func (a *Application) setStatus(msg string) {
	a.statusLabel.SetText(msg)
}

// snapshot is what the window draws
type snapshot struct {
	mandatory bool
	meta      deck.Metadata
	mode      flow.Mode
	current   int
	visible   flow.Card
	overlay   flow.Overlay
	selecting bool
	selected  []int
	submitted []draft.Draft
	stats     deck.Stats
}

// snapshotLocked reads the controller; the caller holds mu
func (a *Application) snapshotLocked() snapshot {
	c := a.ctrl
	return snapshot{
		mandatory: c.Mandatory(),
		meta:      c.Metadata(),
		mode:      c.Mode(),
		current:   c.Current(),
		visible:   c.Visible(),
		overlay:   c.Overlay(),
		selecting: c.Selecting(),
		selected:  c.Selected(),
		submitted: c.Submitted(),
		stats:     c.Stats(),
	}
}

// refresh redraws from the controller. It is skipped while a card
// transition holds mu; the transition redraws when it ends.
func (a *Application) refresh() {
	if a.transitioning.Load() {
		return
	}
	a.mu.Lock()
	s := a.snapshotLocked()
	a.mu.Unlock()
	a.render(s)
}

// render draws a snapshot; main goroutine only
func (a *Application) render(s snapshot) {
	title := fmt.Sprintf("Card Studio v%s", internal.Version)
	if s.meta.Title != "" {
		title += " - " + s.meta.Title
	}
	a.window.SetTitle(title)

	adding := s.mode == flow.ModeAdd
	if adding {
		a.viewPane.Hide()
		a.editorPane.Show()
		a.renderCard(s.current, s.visible)
	} else {
		a.audioView.Clear()
		a.editorPane.Hide()
		a.viewPane.Show()
	}

	a.renderList(s)
	a.stats.SetStats(s.stats)

	setEnabled(a.flipBtn, adding)
	setEnabled(a.nextBtn, adding && !a.transitioning.Load())
	setEnabled(a.selectBtn, !adding)
	setEnabled(a.deleteBtn, !adding && s.selecting)
	setEnabled(a.exportBtn, len(s.submitted) > 0)

	switch {
	case s.overlay.Active() && !a.overlayShown:
		a.showOverlay(s.overlay, s.visible)
	case s.mandatory && !s.overlay.Active() && !a.formShown:
		a.showMetadataForm(s.meta)
	}
}

func setEnabled(w fyne.Disableable, enabled bool) {
	if enabled {
		w.Enable()
	} else {
		w.Disable()
	}
}

// onPhase animates the card transition. It runs on the transition
// goroutine, which holds mu.
func (a *Application) onPhase(p flow.Phase) {
	switch p {
	case flow.PhaseFadeOut:
		fyne.Do(func() { a.animateCover(0, 1) })
	case flow.PhaseFadeIn:
		s := a.snapshotLocked()
		fyne.Do(func() {
			a.render(s)
			a.animateCover(1, 0)
		})
	}
}

func (a *Application) animateCover(from, to float32) {
	bg := a.app.Settings().Theme().Color(theme.ColorNameBackground, a.app.Settings().ThemeVariant())
	r, g, b, _ := bg.RGBA()

	anim := fyne.NewAnimation(a.config.FadeDuration/2, func(v float32) {
		alpha := from + (to-from)*v
		a.cover.FillColor = color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(alpha * 255)}
		a.cover.Refresh()
	})
	anim.Curve = fyne.AnimationLinear
	anim.Start()
}

// onNext submits the card and moves on. The transition runs off the main
// goroutine so the fade can animate.
func (a *Application) onNext() {
	if !a.transitioning.CompareAndSwap(false, true) {
		return
	}
	a.nextBtn.Disable()

	go func() {
		a.mu.Lock()
		err := a.ctrl.Advance(a.ctx)
		a.mu.Unlock()
		a.transitioning.Store(false)

		fyne.Do(func() {
			a.handle(err)
			if err == nil {
				a.setStatus("Card submitted")
			}
			a.refresh()
		})
	}()
}

func (a *Application) onShowAdd() {
	a.act(func(c *flow.Controller) error { return c.ShowAdd() })
}

func (a *Application) onShowView() {
	a.act(func(c *flow.Controller) error { return c.ShowView() })
}

func (a *Application) onFlip() {
	a.act(func(c *flow.Controller) error {
		if c.Mode() != flow.ModeAdd {
			return flow.ErrWrongMode
		}
		c.FlipCard()
		return nil
	})
}

func (a *Application) onToggleSelectMode() {
	a.act(func(c *flow.Controller) error {
		if c.Selecting() {
			c.ExitSelectMode()
			return nil
		}
		return c.EnterSelectMode()
	})
}

func (a *Application) onDelete() {
	a.act(func(c *flow.Controller) error { return c.RequestDelete() })
}

func (a *Application) onEditMetadata() {
	a.act(func(c *flow.Controller) error { return c.SetMandatory(true) })
}

// onExport writes the submitted cards through the exporter
func (a *Application) onExport() {
	if a.config.Exporter == nil {
		dialog.ShowInformation("Export", "Export is not configured.", a.window)
		return
	}

	a.exportBtn.Disable()

	var (
		d   *deck.Deck
		err error
	)
	a.background(func(c *flow.Controller) {
		d, err = c.Deck()
	}, func() {
		if err != nil {
			a.exportBtn.Enable()
			a.handle(fmt.Errorf("deck details are incomplete: %w", err))
			return
		}
		if len(d.Cards) == 0 {
			a.exportBtn.Enable()
			dialog.ShowInformation("Nothing to export", "Submit at least one card first.", a.window)
			return
		}
		a.setStatus("Exporting...")
		go a.export(d)
	})
}

// export runs the exporter off the main goroutine
func (a *Application) export(d *deck.Deck) {
	path, err := a.config.Exporter.Export(d)
	fyne.Do(func() {
		a.exportBtn.Enable()
		if err != nil {
			a.log.Error("export failed", zap.Error(err))
			a.setStatus("Export failed")
			dialog.ShowError(fmt.Errorf("failed to export deck: %w", err), a.window)
			return
		}
		a.setStatus("Exported " + path)
		dialog.ShowInformation("Deck exported",
			fmt.Sprintf("%d cards written to\n%s", len(d.Cards), path), a.window)
	})
}

// background runs fn under mu on its own goroutine, then calls done on the
// main goroutine. The card transition holds mu for the whole fade, so the
// main goroutine must not wait for it.
func (a *Application) background(fn func(c *flow.Controller), done func()) {
	go func() {
		a.mu.Lock()
		fn(a.ctrl)
		a.mu.Unlock()
		fyne.Do(done)
	}()
}

func (a *Application) onShowLog() {
	if a.logWindow != nil {
		a.logWindow.RequestFocus()
		return
	}
	w := a.app.NewWindow("Session log")
	w.SetContent(NewLogViewer(a.logs))
	w.Resize(fyne.NewSize(640, 360))
	w.SetOnClosed(func() { a.logWindow = nil })
	a.logWindow = w
	w.Show()
}

// onJobUpdate reports generation progress and adds finished cards
func (a *Application) onJobUpdate(job GenerationJob) {
	switch job.Status {
	case StatusQueued:
		a.setStatus(fmt.Sprintf("Generation #%d queued", job.ID))
	case StatusProcessing:
		a.setStatus(fmt.Sprintf("Generating %d cards (#%d)...", job.Request.Count, job.ID))
	case StatusCompleted:
		a.background(func(c *flow.Controller) {
			c.Preload(job.Cards)
		}, func() {
			a.setStatus(fmt.Sprintf("Added %d generated cards", len(job.Cards)))
			a.refresh()
		})
	case StatusFailed:
		if errors.Is(job.Error, context.Canceled) {
			return
		}
		a.setStatus(fmt.Sprintf("Generation #%d failed", job.ID))
		dialog.ShowError(fmt.Errorf("card generation failed: %w", job.Error), a.window)
	}
}
