package gui

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"
)

// AudioPlayer plays the recording on a mic face
type AudioPlayer struct {
	widget.BaseWidget

	container   *fyne.Container
	playButton  *ttwidget.Button
	stopButton  *ttwidget.Button
	statusLabel *widget.Label

	audioFile string
	isPlaying bool
	playCmd   *exec.Cmd
}

// NewAudioPlayer creates a new audio player widget
func NewAudioPlayer() *AudioPlayer {
	p := &AudioPlayer{}

	p.playButton = ttwidget.NewButtonWithIcon("", theme.MediaPlayIcon(), p.onPlay)
	p.playButton.SetToolTip("Play recording (p)")

	p.stopButton = ttwidget.NewButtonWithIcon("", theme.MediaStopIcon(), p.onStop)
	p.stopButton.SetToolTip("Stop")

	p.statusLabel = widget.NewLabel("No recording")

	p.playButton.Disable()
	p.stopButton.Disable()

	p.container = container.NewHBox(
		p.playButton,
		p.stopButton,
		layout.NewSpacer(),
		p.statusLabel,
	)

	p.ExtendBaseWidget(p)
	return p
}

// CreateRenderer implements fyne.Widget
func (p *AudioPlayer) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(p.container)
}

// SetAudioFile loads a recording; an empty path clears the player
func (p *AudioPlayer) SetAudioFile(audioFile string) {
	if audioFile == p.audioFile {
		return
	}
	if audioFile == "" {
		p.Clear()
		return
	}

	p.stopPlayback()
	p.audioFile = audioFile
	p.playButton.Enable()
	p.statusLabel.SetText(filepath.Base(audioFile))
}

// Clear stops playback and unloads the recording
func (p *AudioPlayer) Clear() {
	p.stopPlayback()
	p.audioFile = ""
	p.playButton.Disable()
	p.statusLabel.SetText("No recording")
}

// Play toggles playback
func (p *AudioPlayer) Play() {
	if !p.playButton.Disabled() {
		p.onPlay()
	}
}

func (p *AudioPlayer) onPlay() {
	if p.audioFile == "" {
		return
	}
	if p.isPlaying {
		p.onStop()
		return
	}

	if err := p.startPlayback(); err != nil {
		p.statusLabel.SetText(fmt.Sprintf("Error: %v", err))
		return
	}

	p.isPlaying = true
	p.playButton.SetIcon(theme.MediaPauseIcon())
	p.stopButton.Enable()
	p.statusLabel.SetText("Playing: " + filepath.Base(p.audioFile))
}

func (p *AudioPlayer) onStop() {
	p.stopPlayback()
	if p.audioFile != "" {
		p.statusLabel.SetText("Stopped: " + filepath.Base(p.audioFile))
	}
}

func (p *AudioPlayer) stopPlayback() {
	if p.playCmd != nil && p.playCmd.Process != nil {
		p.playCmd.Process.Kill()
	}
	p.playCmd = nil
	p.isPlaying = false
	p.playButton.SetIcon(theme.MediaPlayIcon())
	p.stopButton.Disable()
}

// playerCommand picks a command line player for the platform
func playerCommand(file string) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("afplay", file), nil
	case "linux":
		players := [][]string{
			{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
			{"mpg123", "-q"},
			{"play", "-q"},
			{"paplay"},
			{"aplay", "-q"},
		}
		for _, args := range players {
			if _, err := exec.LookPath(args[0]); err == nil {
				return exec.Command(args[0], append(args[1:], file)...), nil
			}
		}
		return nil, fmt.Errorf("no audio player found, install ffmpeg, mpg123, sox or alsa-utils")
	case "windows":
		return exec.Command("cmd", "/c", "start", "/min", file), nil
	}
	return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
}

func (p *AudioPlayer) startPlayback() error {
	cmd, err := playerCommand(p.audioFile)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start player: %w", err)
	}
	p.playCmd = cmd

	go func() {
		if err := cmd.Wait(); err != nil {
			return
		}
		fyne.Do(func() {
			if p.playCmd != cmd {
				return
			}
			p.playCmd = nil
			p.isPlaying = false
			p.playButton.SetIcon(theme.MediaPlayIcon())
			p.stopButton.Disable()
			p.statusLabel.SetText("Finished: " + filepath.Base(p.audioFile))
		})
	}()

	return nil
}
