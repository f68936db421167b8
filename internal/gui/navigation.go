package gui

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"codeberg.org/snonux/cardstudio/internal/draft"
	"codeberg.org/snonux/cardstudio/internal/flow"
)

const summaryLength = 40

// buildViewPane creates the view-mode pane: the submitted cards on the
// left and the statistics dashboard on the right
func (a *Application) buildViewPane() fyne.CanvasObject {
	a.list = widget.NewList(
		func() int { return len(a.listItems) },
		func() fyne.CanvasObject {
			return container.NewHBox(widget.NewCheck("", nil), widget.NewLabel(""))
		},
		a.updateListItem,
	)
	a.list.OnSelected = a.onListSelected

	a.stats = NewStatsPanel()

	split := container.NewHSplit(a.list, container.NewVScroll(a.stats))
	split.Offset = 0.6
	return split
}

func (a *Application) updateListItem(id widget.ListItemID, obj fyne.CanvasObject) {
	if id < 0 || id >= len(a.listItems) {
		return
	}
	item := a.listItems[id]
	row := obj.(*fyne.Container)
	check := row.Objects[0].(*widget.Check)
	label := row.Objects[1].(*widget.Label)

	check.OnChanged = nil
	check.SetChecked(a.selected[item.Number])
	if a.selecting {
		check.Show()
	} else {
		check.Hide()
	}
	number := item.Number
	check.OnChanged = func(bool) { a.toggleSelection(number) }

	label.SetText(listLabel(item))
}

func (a *Application) onListSelected(id widget.ListItemID) {
	a.list.UnselectAll()
	if id < 0 || id >= len(a.listItems) {
		return
	}
	number := a.listItems[id].Number

	if a.selecting {
		a.toggleSelection(number)
		return
	}
	a.act(func(c *flow.Controller) error { return c.SelectCard(number) })
}

func (a *Application) toggleSelection(number int) {
	a.act(func(c *flow.Controller) error {
		_, err := c.ToggleSelection(number)
		return err
	})
}

// renderList copies the submitted cards for the list callbacks
func (a *Application) renderList(s snapshot) {
	a.listItems = s.submitted
	a.selecting = s.selecting
	a.selected = make(map[int]bool, len(s.selected))
	for _, n := range s.selected {
		a.selected[n] = true
	}
	a.list.Refresh()

	if s.selecting {
		a.selectBtn.SetText(fmt.Sprintf("%d selected", len(s.selected)))
	} else {
		a.selectBtn.SetText("")
	}
}

func listLabel(d draft.Draft) string {
	return fmt.Sprintf("%d. %s | %s", d.Number, summarize(d.Front), summarize(d.Back))
}

// summarize renders a face as one short line
func summarize(c draft.Content) string {
	switch c.Kind() {
	case draft.KindText:
		line := strings.TrimSpace(strings.SplitN(c.Payload, "\n", 2)[0])
		if utf8.RuneCountInString(line) > summaryLength {
			line = string([]rune(line)[:summaryLength-3]) + "..."
		}
		return line
	case draft.KindImage, draft.KindAudio:
		return fmt.Sprintf("[%s] %s", c.Type, filepath.Base(c.Payload))
	}
	return "(empty)"
}

// setupKeyboardShortcuts binds single-key shortcuts. They only fire while
// no entry has focus.
func (a *Application) setupKeyboardShortcuts() {
	a.window.Canvas().SetOnTypedRune(func(r rune) {
		switch r {
		case 'a':
			a.onShowAdd()
		case 'v':
			a.onShowView()
		case 'f':
			a.onFlip()
		case 'n':
			a.onNext()
		case 'e':
			a.onEditFace()
		case 's':
			a.onToggleSelectMode()
		case 'd':
			a.onDelete()
		case 'm':
			a.onEditMetadata()
		case 'g':
			a.onGenerate()
		case 'x':
			a.onExport()
		case 'p':
			a.audioView.Play()
		case 'l':
			a.onShowLog()
		case 'h', '?':
			a.onShowHotkeys()
		}
	})
}

var hotkeys = [][2]string{
	{"a", "Edit cards"},
	{"v", "View submitted cards"},
	{"f", "Flip card"},
	{"n", "Submit and next card"},
	{"e", "Edit this side"},
	{"s", "Toggle select mode"},
	{"d", "Delete selected cards"},
	{"m", "Deck details"},
	{"g", "Generate cards with AI"},
	{"x", "Export to Anki"},
	{"p", "Play recording"},
	{"l", "Session log"},
	{"h", "This help"},
	{"Ctrl+Enter", "Save text"},
	{"Esc", "Cancel text"},
}

func (a *Application) onShowHotkeys() {
	var b strings.Builder
	for _, h := range hotkeys {
		fmt.Fprintf(&b, "%-12s %s\n", h[0], h[1])
	}
	text := widget.NewLabelWithStyle(strings.TrimRight(b.String(), "\n"), fyne.TextAlignLeading, fyne.TextStyle{Monospace: true})
	dialog.ShowCustom("Hotkeys", "Close", text, a.window)
}
