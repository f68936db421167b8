package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// PromptEntry is the multi-line entry of the text prompt. Escape cancels
// and Ctrl+Enter saves, since plain Enter inserts a line break.
type PromptEntry struct {
	widget.Entry
	onEscape func()
	onSave   func()
}

// NewPromptEntry creates a new prompt entry
func NewPromptEntry() *PromptEntry {
	entry := &PromptEntry{}
	entry.MultiLine = true
	entry.Wrapping = fyne.TextWrapWord
	entry.ExtendBaseWidget(entry)
	return entry
}

// TypedKey handles key events
func (e *PromptEntry) TypedKey(key *fyne.KeyEvent) {
	if key.Name == fyne.KeyEscape && e.onEscape != nil {
		e.onEscape()
		return
	}
	e.Entry.TypedKey(key)
}

// TypedShortcut handles Ctrl+Enter
func (e *PromptEntry) TypedShortcut(s fyne.Shortcut) {
	if ks, ok := s.(*desktop.CustomShortcut); ok && e.onSave != nil &&
		ks.Modifier == fyne.KeyModifierShortcutDefault &&
		(ks.KeyName == fyne.KeyReturn || ks.KeyName == fyne.KeyEnter) {
		e.onSave()
		return
	}
	e.Entry.TypedShortcut(s)
}

// SetOnEscape sets the callback for when Escape is pressed
func (e *PromptEntry) SetOnEscape(f func()) {
	e.onEscape = f
}

// SetOnSave sets the callback for Ctrl+Enter
func (e *PromptEntry) SetOnSave(f func()) {
	e.onSave = f
}
