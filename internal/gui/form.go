package gui

import (
	"fmt"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"codeberg.org/snonux/cardstudio/internal/aigen"
	"codeberg.org/snonux/cardstudio/internal/deck"
	"codeberg.org/snonux/cardstudio/internal/draft"
	"codeberg.org/snonux/cardstudio/internal/flow"
)

// showMetadataForm shows the deck details form. It cannot be dismissed
// while the deck has no valid title.
func (a *Application) showMetadataForm(meta deck.Metadata) {
	if meta.Title == "" {
		meta = a.config.Metadata
	}
	a.formShown = true

	title := widget.NewEntry()
	title.SetPlaceHolder("Spanish verbs")
	title.SetText(meta.Title)
	title.Validator = func(s string) error {
		m := deck.Metadata{Title: s}
		return m.Validate()
	}

	description := widget.NewMultiLineEntry()
	description.SetText(meta.Description)
	description.SetMinRowsVisible(3)

	folder := widget.NewEntry()
	folder.SetPlaceHolder("Languages")
	folder.SetText(meta.Folder)

	tags := widget.NewEntry()
	tags.SetPlaceHolder("comma, separated")
	tags.SetText(strings.Join(meta.Tags, ", "))

	favorite := widget.NewCheck("Mark as favorite", nil)
	favorite.SetChecked(meta.Favorite)

	items := []*widget.FormItem{
		widget.NewFormItem("Title", title),
		widget.NewFormItem("Description", description),
		widget.NewFormItem("Folder", folder),
		widget.NewFormItem("Tags", tags),
		widget.NewFormItem("", favorite),
	}

	d := dialog.NewForm("Deck details", "Start", "Cancel", items, func(ok bool) {
		a.formShown = false

		if !ok {
			// Closing only works once the deck has valid details; refresh
			// brings the form back otherwise.
			a.mu.Lock()
			_ = a.ctrl.SetMandatory(false)
			a.mu.Unlock()
			a.refresh()
			return
		}

		m := deck.Metadata{
			Title:       title.Text,
			Description: description.Text,
			Folder:      folder.Text,
			Tags:        parseTags(tags.Text),
			Favorite:    favorite.Checked,
		}
		a.act(func(c *flow.Controller) error {
			if err := c.SetMetadata(m); err != nil {
				return err
			}
			return c.SetMandatory(false)
		})
	}, a.window)

	d.Resize(fyne.NewSize(480, 380))
	d.Show()
}

// parseTags splits the comma separated tags field
func parseTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// showOverlay turns the controller's active overlay into a dialog. Every
// path out of the dialog either confirms or dismisses the overlay.
func (a *Application) showOverlay(o flow.Overlay, card flow.Card) {
	a.overlayShown = true

	resolve := func(confirm bool) {
		a.overlayShown = false
		a.act(func(c *flow.Controller) error {
			if confirm {
				return c.Confirm()
			}
			return c.Dismiss()
		})
	}

	switch o.Kind {
	case flow.OverlayConfirmDelete:
		title := "Delete card"
		if len(o.Numbers) > 1 {
			title = fmt.Sprintf("Delete %d cards", len(o.Numbers))
		}
		dialog.ShowConfirm(title, o.Message+"\n\nCards: "+joinNumbers(o.Numbers), resolve, a.window)

	case flow.OverlayNoSelection:
		d := dialog.NewInformation("Nothing selected", o.Message, a.window)
		d.SetOnClosed(func() { resolve(true) })
		d.Show()

	case flow.OverlayContentTypeWarning:
		msg := fmt.Sprintf("%s\n\nSwitch the %s to %s?", o.Message, o.Face, o.ContentType)
		dialog.ShowConfirm("Change content type", msg, resolve, a.window)

	case flow.OverlayTextPrompt:
		a.showTextPrompt(o, card, resolve)

	default:
		a.overlayShown = false
	}
}

// showTextPrompt collects the text for a face. Ctrl+Enter saves and
// Escape cancels.
func (a *Application) showTextPrompt(o flow.Overlay, card flow.Card, resolve func(bool)) {
	entry := NewPromptEntry()
	if existing := card.Side(o.Face); existing.Kind() == draft.KindText {
		entry.SetText(existing.Payload)
	}

	done := false
	finish := func(save bool) {
		if done {
			return
		}
		done = true

		if save {
			a.mu.Lock()
			err := a.ctrl.Prompts().Respond(o.Ticket, entry.Text)
			a.mu.Unlock()
			if err != nil {
				a.handle(err)
				resolve(false)
				return
			}
		}
		resolve(save)
	}

	d := dialog.NewCustomConfirm(
		fmt.Sprintf("Text for the %s", o.Face),
		"Save", "Cancel",
		entry,
		finish,
		a.window,
	)
	entry.SetOnSave(func() {
		finish(true)
		d.Hide()
	})
	entry.SetOnEscape(func() {
		finish(false)
		d.Hide()
	})

	d.Resize(fyne.NewSize(520, 300))
	d.Show()
	a.window.Canvas().Focus(entry)
}

func joinNumbers(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

// onGenerate shows the AI generation form and queues the request
func (a *Application) onGenerate() {
	if a.queue == nil {
		return
	}

	topic := widget.NewEntry()
	topic.SetPlaceHolder("Photosynthesis")

	link := widget.NewEntry()
	link.SetPlaceHolder("https://www.youtube.com/watch?v=...")

	count := widget.NewEntry()
	count.SetText(strconv.Itoa(aigen.DefaultCount))
	count.Validator = func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n < 1 || n > aigen.MaxCount {
			return aigen.ErrCountRange
		}
		return nil
	}

	difficulty := widget.NewSelect([]string{"easy", "medium", "hard"}, nil)
	difficulty.SetSelected("medium")

	language := widget.NewEntry()
	language.SetText("English")

	items := []*widget.FormItem{
		widget.NewFormItem("Topic", topic),
		widget.NewFormItem("YouTube link", link),
		widget.NewFormItem("Cards", count),
		widget.NewFormItem("Difficulty", difficulty),
		widget.NewFormItem("Language", language),
	}

	d := dialog.NewForm("Generate cards", "Generate", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		n, _ := strconv.Atoi(strings.TrimSpace(count.Text))
		req := aigen.Request{
			Topic:      topic.Text,
			SourceURL:  link.Text,
			Count:      n,
			Difficulty: difficulty.Selected,
			Language:   language.Text,
		}
		job, err := a.queue.Submit(req)
		if err != nil {
			dialog.ShowError(fmt.Errorf("failed to queue generation: %w", err), a.window)
			return
		}
		a.setStatus(fmt.Sprintf("Generation #%d queued", job.ID))
	}, a.window)

	d.Resize(fyne.NewSize(480, 360))
	d.Show()
}
