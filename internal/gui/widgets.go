package gui

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"codeberg.org/snonux/cardstudio/internal/deck"
	"codeberg.org/snonux/cardstudio/internal/draft"
)

// ImageDisplay shows the photo or drawing on a camera or marker face
type ImageDisplay struct {
	widget.BaseWidget

	container   *fyne.Container
	imageCanvas *canvas.Image
	imageLabel  *widget.Label

	currentImage string
}

// NewImageDisplay creates a new image display widget
func NewImageDisplay() *ImageDisplay {
	d := &ImageDisplay{}

	d.imageCanvas = canvas.NewImageFromResource(nil)
	d.imageCanvas.FillMode = canvas.ImageFillContain
	d.imageCanvas.SetMinSize(fyne.NewSize(320, 220))

	d.imageLabel = widget.NewLabel("No image")
	d.imageLabel.Alignment = fyne.TextAlignCenter

	d.container = container.NewBorder(nil, d.imageLabel, nil, nil, d.imageCanvas)

	d.ExtendBaseWidget(d)
	return d
}

// CreateRenderer implements fyne.Widget
func (d *ImageDisplay) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(d.container)
}

// SetImage loads an image file; an empty path clears the display
func (d *ImageDisplay) SetImage(imagePath string) {
	if imagePath == d.currentImage {
		return
	}
	if imagePath == "" {
		d.Clear()
		return
	}
	d.currentImage = imagePath

	img, err := loadImage(imagePath)
	if err != nil {
		d.imageCanvas.Image = nil
		d.imageCanvas.Refresh()
		d.imageLabel.SetText(err.Error())
		return
	}

	d.imageCanvas.Image = img
	d.imageCanvas.Refresh()
	d.imageLabel.SetText(filepath.Base(imagePath))
}

// Clear clears the display
func (d *ImageDisplay) Clear() {
	d.currentImage = ""
	d.imageCanvas.Image = nil
	d.imageCanvas.Refresh()
	d.imageLabel.SetText("No image")
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// StatsPanel is the statistics dashboard of the submitted cards
type StatsPanel struct {
	widget.BaseWidget

	label *widget.Label
	bar   *widget.ProgressBar
}

// NewStatsPanel creates an empty dashboard
func NewStatsPanel() *StatsPanel {
	p := &StatsPanel{
		label: widget.NewLabel(""),
		bar:   widget.NewProgressBar(),
	}
	p.bar.Max = 100
	p.bar.TextFormatter = func() string {
		return fmt.Sprintf("%.0f%% complete", p.bar.Value)
	}
	p.ExtendBaseWidget(p)
	p.SetStats(deck.Stats{})
	return p
}

// CreateRenderer implements fyne.Widget
func (p *StatsPanel) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewVBox(
		widget.NewLabelWithStyle("Statistics", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		p.bar,
		p.label,
	))
}

// SetStats shows new numbers
func (p *StatsPanel) SetStats(s deck.Stats) {
	p.bar.SetValue(s.CompletionPercent())
	p.label.SetText(formatStats(s))
}

var statsContentTypes = []draft.ContentType{
	draft.ContentText, draft.ContentCamera, draft.ContentMarker, draft.ContentMic, draft.ContentNone,
}

// formatStats renders the dashboard text
func formatStats(s deck.Stats) string {
	if s.Total == 0 {
		return "No cards submitted yet"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Cards: %d\n", s.Total)
	fmt.Fprintf(&b, "Complete: %d\n", s.Complete)
	fmt.Fprintf(&b, "One side only: %d\n", s.Incomplete)
	b.WriteString("\nFaces by content:\n")
	for _, t := range statsContentTypes {
		front, back := s.Front[t], s.Back[t]
		if front+back == 0 {
			continue
		}
		name := t.String()
		if t == draft.ContentNone {
			name = "empty"
		}
		fmt.Fprintf(&b, "  %-7s %3.0f%% (front %d, back %d)\n", name, s.Percent(t), front, back)
	}
	return strings.TrimRight(b.String(), "\n")
}
