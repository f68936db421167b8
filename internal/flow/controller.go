package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"codeberg.org/snonux/cardstudio/internal/deck"
	"codeberg.org/snonux/cardstudio/internal/draft"
)

var (
	ErrWrongMode = errors.New("action not available in this mode")
	ErrEmptyCard = errors.New("card has no content")
)

// Mode is the display mode once the mandatory form is done
type Mode int

const (
	ModeAdd Mode = iota
	ModeView
)

func (m Mode) String() string {
	if m == ModeView {
		return "view"
	}
	return "add"
}

// MarshalText implements encoding.TextMarshaler
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Face is one side of the visible card
type Face int

const (
	FaceFront Face = iota
	FaceBack
)

func (f Face) String() string {
	if f == FaceBack {
		return "back"
	}
	return "front"
}

// MarshalText implements encoding.TextMarshaler
func (f Face) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (f *Face) UnmarshalText(data []byte) error {
	switch strings.ToLower(string(data)) {
	case "front", "":
		*f = FaceFront
	case "back":
		*f = FaceBack
	default:
		return fmt.Errorf("unknown face: %q", data)
	}
	return nil
}

// Card is what the editor currently shows
type Card struct {
	Front  draft.Content `json:"front"`
	Back   draft.Content `json:"back"`
	Active Face          `json:"active"`
}

// Side returns the content of one face
func (c Card) Side(f Face) draft.Content {
	if f == FaceBack {
		return c.Back
	}
	return c.Front
}

func (c *Card) set(f Face, content draft.Content) {
	if f == FaceBack {
		c.Back = content
	} else {
		c.Front = content
	}
}

// Blank reports whether neither face has content
func (c Card) Blank() bool {
	return c.Front.IsEmpty() && c.Back.IsEmpty()
}

// Config configures a Controller
type Config struct {
	Logger     *zap.Logger
	Transition Transitioner
}

// DefaultConfig returns a silent controller configuration with a short fade
func DefaultConfig() *Config {
	return &Config{
		Logger:     zap.NewNop(),
		Transition: Fade{Duration: 300 * time.Millisecond},
	}
}

// Controller drives one manual deck-creation session. It owns the draft
// cache; callers serialise access to it the way a UI event loop does.
type Controller struct {
	cache      *draft.Cache
	prompts    *PromptStore
	log        *zap.Logger
	transition Transitioner

	meta      deck.Metadata
	mandatory bool
	mode      Mode
	current   int
	visible   Card

	selecting bool
	selection *draft.Selection
	overlay   Overlay
}

// New creates a controller in its initial state: mandatory form shown,
// add mode, card 1.
func New(config *Config) *Controller {
	defaults := DefaultConfig()
	if config == nil {
		config = defaults
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	if config.Transition == nil {
		config.Transition = defaults.Transition
	}

	return &Controller{
		cache:      draft.NewCache(),
		prompts:    NewPromptStore(),
		log:        config.Logger,
		transition: config.Transition,
		mandatory:  true,
		mode:       ModeAdd,
		current:    1,
		selection:  draft.NewSelection(),
	}
}

// Metadata returns the deck metadata collected so far
func (c *Controller) Metadata() deck.Metadata {
	return c.meta
}

// SetMetadata validates and stores the deck metadata
func (c *Controller) SetMetadata(meta deck.Metadata) error {
	if err := meta.Validate(); err != nil {
		return err
	}
	c.meta = meta
	return nil
}

// Mandatory reports whether the metadata form is shown
func (c *Controller) Mandatory() bool {
	return c.mandatory
}

// SetMandatory shows or hides the metadata form. The form cannot be left
// while the metadata is invalid.
func (c *Controller) SetMandatory(show bool) error {
	if !show {
		meta := c.meta
		if err := meta.Validate(); err != nil {
			return err
		}
	}
	c.mandatory = show
	return nil
}

func (c *Controller) Mode() Mode { return c.mode }

func (c *Controller) Current() int { return c.current }

func (c *Controller) Visible() Card { return c.visible }

func (c *Controller) Overlay() Overlay { return c.overlay }

func (c *Controller) Selecting() bool { return c.selecting }

func (c *Controller) Prompts() *PromptStore { return c.prompts }

// Submitted returns the submitted cards in number order
func (c *Controller) Submitted() []draft.Draft {
	return c.cache.SubmittedDrafts()
}

// Selected returns the card numbers marked in select mode
func (c *Controller) Selected() []int {
	return c.selection.Numbers()
}

// EditFace replaces the content of one face of the visible card
func (c *Controller) EditFace(face Face, content draft.Content) error {
	if c.mode != ModeAdd {
		return ErrWrongMode
	}
	c.visible.set(face, content)
	return nil
}

// SetText puts typed text on a face
func (c *Controller) SetText(face Face, text string) error {
	return c.EditFace(face, draft.Text(text))
}

// FlipCard switches the active face
func (c *Controller) FlipCard() {
	if c.visible.Active == FaceFront {
		c.visible.Active = FaceBack
	} else {
		c.visible.Active = FaceFront
	}
}

// RequestContentType picks the medium of a face. Switching away from a
// face that already holds content opens a warning and returns
// ErrConfirmationRequired; nothing changes until Confirm.
func (c *Controller) RequestContentType(face Face, t draft.ContentType) error {
	if c.mode != ModeAdd {
		return ErrWrongMode
	}
	if c.overlay.Active() {
		return ErrOverlayBusy
	}

	current := c.visible.Side(face)
	if current.Type == t {
		return nil
	}
	if !current.IsEmpty() {
		c.overlay = contentTypeWarningOverlay(face, t)
		return ErrConfirmationRequired
	}
	c.visible.set(face, draft.NewContent(t, ""))
	return nil
}

// OpenTextPrompt asks for typed text for a face. The dialog answers via
// Prompts().Respond and the text lands on the face on Confirm.
func (c *Controller) OpenTextPrompt(face Face) (PromptTicket, error) {
	if c.mode != ModeAdd {
		return "", ErrWrongMode
	}
	if c.overlay.Active() {
		return "", ErrOverlayBusy
	}
	ticket := c.prompts.Request(face)
	c.overlay = textPromptOverlay(face, ticket)
	return ticket, nil
}

// ShowView switches from add to view mode, saving the edited card first
func (c *Controller) ShowView() error {
	if c.overlay.Active() {
		return ErrOverlayBusy
	}
	if c.mode == ModeView {
		return nil
	}

	c.saveVisible()
	c.mode = ModeView
	c.exitSelectMode()
	c.log.Debug("switched mode", zap.Stringer("mode", c.mode), zap.Int("card", c.current))
	return nil
}

// ShowAdd switches from view to add mode and loads the current card, or a
// fresh card after the last submitted one if the current number is unknown
func (c *Controller) ShowAdd() error {
	if c.overlay.Active() {
		return ErrOverlayBusy
	}
	if c.mode == ModeAdd {
		return nil
	}

	c.exitSelectMode()
	c.load(c.current)
	c.mode = ModeAdd
	c.log.Debug("switched mode", zap.Stringer("mode", c.mode), zap.Int("card", c.current))
	return nil
}

// SelectCard opens a card from the view list for editing
func (c *Controller) SelectCard(number int) error {
	if c.mode != ModeView {
		return ErrWrongMode
	}
	if c.overlay.Active() {
		return ErrOverlayBusy
	}
	c.current = number
	return c.ShowAdd()
}

// Advance submits the visible card and moves on to a blank one. The card
// is saved before the transition starts; the number only moves once the
// transition swaps the card.
func (c *Controller) Advance(ctx context.Context) error {
	if c.mode != ModeAdd {
		return ErrWrongMode
	}
	if c.overlay.Active() {
		return ErrOverlayBusy
	}
	if c.visible.Blank() {
		return ErrEmptyCard
	}

	number := c.current
	c.cache.Upsert(number, c.visible.Front, c.visible.Back)
	c.cache.MarkSubmitted(number)
	c.log.Debug("submitted card", zap.Int("card", number))

	return c.transition.Run(ctx, func() {
		c.current = number + 1
		c.visible = Card{}
	})
}

// EnterSelectMode starts marking cards for deletion
func (c *Controller) EnterSelectMode() error {
	if c.mode != ModeView {
		return ErrWrongMode
	}
	c.selecting = true
	c.selection.Clear()
	return nil
}

// ToggleSelection marks or unmarks a card and reports the new state
func (c *Controller) ToggleSelection(number int) (bool, error) {
	if !c.selecting {
		return false, ErrWrongMode
	}
	return c.selection.Toggle(number), nil
}

// ExitSelectMode leaves select mode and forgets the selection
func (c *Controller) ExitSelectMode() {
	c.exitSelectMode()
}

func (c *Controller) exitSelectMode() {
	c.selecting = false
	c.selection.Clear()
}

// RequestDelete asks to delete the selected cards. With nothing selected
// it shows the no-selection notice and returns draft.ErrEmptySelection;
// otherwise it opens the confirmation and returns ErrConfirmationRequired.
func (c *Controller) RequestDelete() error {
	if !c.selecting {
		return ErrWrongMode
	}
	if c.overlay.Active() {
		return ErrOverlayBusy
	}
	if c.selection.Len() == 0 {
		c.overlay = noSelectionOverlay()
		return draft.ErrEmptySelection
	}
	c.overlay = confirmDeleteOverlay(c.selection.Numbers())
	return ErrConfirmationRequired
}

// Confirm accepts the open dialog
func (c *Controller) Confirm() error {
	o := c.overlay
	switch o.Kind {
	case OverlayNone:
		return ErrNoOverlay

	case OverlayConfirmDelete:
		c.overlay = Overlay{}
		if err := c.cache.DeleteAndRenumber(draft.NewSelection(o.Numbers...)); err != nil {
			return err
		}
		c.log.Info("deleted cards", zap.Ints("cards", o.Numbers), zap.Int("remaining", c.cache.Len()))
		c.exitSelectMode()
		return nil

	case OverlayNoSelection:
		c.overlay = Overlay{}
		return nil

	case OverlayContentTypeWarning:
		c.overlay = Overlay{}
		c.visible.set(o.Face, draft.NewContent(o.ContentType, ""))
		c.log.Debug("content type changed", zap.Stringer("face", o.Face), zap.Stringer("type", o.ContentType))
		return nil

	case OverlayTextPrompt:
		face, text, err := c.prompts.Take(o.Ticket)
		if err != nil {
			return err
		}
		c.overlay = Overlay{}
		c.visible.set(face, draft.Text(text))
		return nil
	}
	return fmt.Errorf("unknown overlay kind: %d", o.Kind)
}

// Dismiss closes the open dialog without applying it
func (c *Controller) Dismiss() error {
	if !c.overlay.Active() {
		return ErrNoOverlay
	}
	if c.overlay.Kind == OverlayTextPrompt {
		c.prompts.Cancel(c.overlay.Ticket)
	}
	c.overlay = Overlay{}
	return nil
}

// Deck assembles a deck from the metadata and the submitted cards
func (c *Controller) Deck() (*deck.Deck, error) {
	meta := c.meta
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	return deck.New(meta, c.cache.SubmittedDrafts()), nil
}

// Stats computes the dashboard numbers over the submitted cards
func (c *Controller) Stats() deck.Stats {
	return deck.Compute(c.cache.SubmittedDrafts())
}

// Preload submits cards produced outside the editor, e.g. by an import or
// a generation job, right after the last submitted card. Unsubmitted drafts
// in that range and the card being edited move up behind the new block.
func (c *Controller) Preload(cards []Card) {
	if len(cards) == 0 {
		return
	}

	start := c.cache.NextAvailableNumber()
	c.cache.ShiftFrom(start, len(cards))
	if c.current >= start {
		c.current += len(cards)
	}

	for i, card := range cards {
		n := start + i
		c.cache.Upsert(n, card.Front, card.Back)
		c.cache.MarkSubmitted(n)
	}
	c.log.Info("preloaded cards", zap.Int("first", start), zap.Int("count", len(cards)))
}

// saveVisible upserts the visible card. A blank card with no cached entry
// holds no edits and is not stored.
func (c *Controller) saveVisible() {
	if _, ok := c.cache.Find(c.current); !ok && c.visible.Blank() {
		return
	}
	c.cache.Upsert(c.current, c.visible.Front, c.visible.Back)
}

func (c *Controller) load(number int) {
	if d, ok := c.cache.Find(number); ok {
		c.current = number
		c.visible = Card{Front: d.Front, Back: d.Back}
		return
	}
	c.current = c.cache.NextAvailableNumber()
	c.visible = Card{}
}
