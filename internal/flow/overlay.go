package flow

import (
	"errors"

	"codeberg.org/snonux/cardstudio/internal/draft"
)

var (
	// ErrOverlayBusy is returned when an action needs the screen while a
	// dialog is still open
	ErrOverlayBusy = errors.New("another dialog is open")
	// ErrNoOverlay is returned by Confirm and Dismiss when nothing is open
	ErrNoOverlay = errors.New("no dialog is open")
	// ErrConfirmationRequired means the action opened a dialog and only
	// takes effect once the user confirms it
	ErrConfirmationRequired = errors.New("confirmation required")
)

// OverlayKind identifies the single dialog shown above the creation screen
type OverlayKind int

const (
	OverlayNone OverlayKind = iota
	OverlayConfirmDelete
	OverlayNoSelection
	OverlayContentTypeWarning
	OverlayTextPrompt
)

func (k OverlayKind) String() string {
	switch k {
	case OverlayNone:
		return "none"
	case OverlayConfirmDelete:
		return "confirm_delete"
	case OverlayNoSelection:
		return "no_selection"
	case OverlayContentTypeWarning:
		return "content_type_warning"
	case OverlayTextPrompt:
		return "text_prompt"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler
func (k OverlayKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Overlay is the active dialog. Only the fields of its kind are set.
type Overlay struct {
	Kind    OverlayKind `json:"kind"`
	Message string      `json:"message,omitempty"`

	// confirm delete
	Numbers []int `json:"numbers,omitempty"`

	// content type warning and text prompt
	Face        Face              `json:"face"`
	ContentType draft.ContentType `json:"content_type"`
	Ticket      PromptTicket      `json:"ticket,omitempty"`
}

// Active reports whether a dialog is shown
func (o Overlay) Active() bool {
	return o.Kind != OverlayNone
}

func confirmDeleteOverlay(numbers []int) Overlay {
	msg := "Delete the selected card? This cannot be undone."
	if len(numbers) > 1 {
		msg = "Delete the selected cards? This cannot be undone."
	}
	return Overlay{Kind: OverlayConfirmDelete, Message: msg, Numbers: numbers}
}

func noSelectionOverlay() Overlay {
	return Overlay{Kind: OverlayNoSelection, Message: "No cards selected. Select at least one card to delete."}
}

func contentTypeWarningOverlay(face Face, t draft.ContentType) Overlay {
	return Overlay{
		Kind:        OverlayContentTypeWarning,
		Message:     "Changing the content type discards what is on this side of the card.",
		Face:        face,
		ContentType: t,
	}
}

func textPromptOverlay(face Face, ticket PromptTicket) Overlay {
	return Overlay{Kind: OverlayTextPrompt, Face: face, ContentType: draft.ContentText, Ticket: ticket}
}
