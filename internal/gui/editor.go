package gui

import (
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"
	"go.uber.org/zap"

	"codeberg.org/snonux/cardstudio/internal/draft"
	"codeberg.org/snonux/cardstudio/internal/flow"
)

var contentTypeOptions = []string{
	draft.ContentNone.String(),
	draft.ContentText.String(),
	draft.ContentCamera.String(),
	draft.ContentMarker.String(),
	draft.ContentMic.String(),
}

var (
	imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif"}
	audioExtensions = []string{".mp3", ".wav", ".ogg", ".m4a"}
)

// buildEditor creates the add-mode pane: a header, the content type
// picker and the visible face
func (a *Application) buildEditor() fyne.CanvasObject {
	a.header = widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})

	a.typeSelect = widget.NewSelect(contentTypeOptions, a.onContentTypeChanged)
	a.editButton = ttwidget.NewButtonWithIcon("Edit", theme.DocumentCreateIcon(), a.onEditFace)
	a.editButton.SetToolTip("Edit this side (e)")

	a.textView = widget.NewLabel("")
	a.textView.Wrapping = fyne.TextWrapWord
	a.textView.Alignment = fyne.TextAlignCenter
	a.textScroll = container.NewVScroll(a.textView)

	a.imageView = NewImageDisplay()
	a.audioView = NewAudioPlayer()
	a.emptyView = widget.NewLabel("This side is empty. Pick a content type.")
	a.emptyView.Alignment = fyne.TextAlignCenter

	a.cover = canvas.NewRectangle(color.Transparent)

	controls := container.NewHBox(widget.NewLabel("Content:"), a.typeSelect, a.editButton)

	face := container.NewStack(
		a.textScroll,
		container.NewCenter(a.imageView),
		container.NewCenter(a.audioView),
		container.NewCenter(a.emptyView),
		a.cover,
	)

	return container.NewBorder(
		container.NewVBox(a.header, container.NewCenter(controls)),
		nil, nil, nil,
		face,
	)
}

// renderCard draws the active face of the visible card
func (a *Application) renderCard(number int, card flow.Card) {
	face := card.Active
	content := card.Side(face)

	a.header.SetText(cardHeader(number, face))

	a.updating = true
	a.typeSelect.SetSelected(content.Type.String())
	a.updating = false

	a.textScroll.Hide()
	a.imageView.Hide()
	a.audioView.Hide()
	a.emptyView.Hide()

	switch content.Kind() {
	case draft.KindText:
		a.textView.SetText(content.Payload)
		a.textScroll.Show()
	case draft.KindImage:
		a.imageView.SetImage(content.Payload)
		a.imageView.Show()
	case draft.KindAudio:
		a.audioView.SetAudioFile(content.Payload)
		a.audioView.Show()
	default:
		a.emptyView.SetText(emptyFaceHint(content.Type))
		a.emptyView.Show()
	}

	if content.Kind() != draft.KindAudio {
		a.audioView.Clear()
	}
	if content.Kind() != draft.KindImage {
		a.imageView.Clear()
	}

	setEnabled(a.editButton, content.Type != draft.ContentNone)
	a.editButton.SetText(editLabel(content.Type))
}

func cardHeader(number int, face flow.Face) string {
	name := face.String()
	return fmt.Sprintf("Card %d · %s", number, strings.ToUpper(name[:1])+name[1:])
}

func emptyFaceHint(t draft.ContentType) string {
	switch t {
	case draft.ContentText:
		return "No text yet. Press Edit to type."
	case draft.ContentCamera:
		return "No photo yet. Press Edit to choose one."
	case draft.ContentMarker:
		return "No drawing yet. Press Edit to choose one."
	case draft.ContentMic:
		return "No recording yet. Press Edit to choose one."
	}
	return "This side is empty. Pick a content type."
}

func editLabel(t draft.ContentType) string {
	if t == draft.ContentText {
		return "Type text"
	}
	if t == draft.ContentNone {
		return "Edit"
	}
	return "Choose file"
}

func (a *Application) onContentTypeChanged(value string) {
	if a.updating {
		return
	}
	t, err := draft.ParseContentType(value)
	if err != nil {
		a.handle(err)
		return
	}

	a.act(func(c *flow.Controller) error {
		return c.RequestContentType(c.Visible().Active, t)
	})
}

// onEditFace opens the editor that fits the face's content type
func (a *Application) onEditFace() {
	if a.transitioning.Load() {
		return
	}
	a.mu.Lock()
	card := a.ctrl.Visible()
	mode := a.ctrl.Mode()
	a.mu.Unlock()
	if mode != flow.ModeAdd {
		return
	}

	face := card.Active
	content := card.Side(face)

	switch content.Type {
	case draft.ContentText:
		a.act(func(c *flow.Controller) error {
			_, err := c.OpenTextPrompt(face)
			return err
		})
	case draft.ContentCamera, draft.ContentMarker:
		a.chooseFile(face, content.Type, imageExtensions)
	case draft.ContentMic:
		a.chooseFile(face, content.Type, audioExtensions)
	}
}

// chooseFile lets the user attach a media file to a face
func (a *Application) chooseFile(face flow.Face, t draft.ContentType, extensions []string) {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			a.handle(fmt.Errorf("failed to open file: %w", err))
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		a.log.Info("attached media", zap.Stringer("face", face), zap.String("file", filepath.Base(path)))
		a.act(func(c *flow.Controller) error {
			return c.EditFace(face, draft.NewContent(t, path))
		})
	}, a.window)
	d.SetFilter(storage.NewExtensionFileFilter(extensions))
	d.Show()
}
