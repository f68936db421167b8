package gui

import (
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogBuffer keeps the most recent log lines. It is a zapcore.WriteSyncer
// so the editor's logger can write into it alongside stderr.
type LogBuffer struct {
	mu       sync.Mutex
	lines    []string
	max      int
	onChange func()
}

// NewLogBuffer creates a buffer holding at most max lines
func NewLogBuffer(max int) *LogBuffer {
	if max <= 0 {
		max = 500
	}
	return &LogBuffer{max: max}
}

// Write implements io.Writer. Every call carries one encoded entry.
func (b *LogBuffer) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")
	if line == "" {
		return len(p), nil
	}

	b.mu.Lock()
	b.lines = append(b.lines, line)
	if len(b.lines) > b.max {
		b.lines = b.lines[len(b.lines)-b.max:]
	}
	onChange := b.onChange
	b.mu.Unlock()

	if onChange != nil {
		onChange()
	}
	return len(p), nil
}

// Sync implements zapcore.WriteSyncer
func (b *LogBuffer) Sync() error {
	return nil
}

// Lines returns the buffered lines, newest first
func (b *LogBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, len(b.lines))
	for i, line := range b.lines {
		out[len(b.lines)-1-i] = line
	}
	return out
}

// SetOnChange registers a callback run after every write
func (b *LogBuffer) SetOnChange(f func()) {
	b.mu.Lock()
	b.onChange = f
	b.mu.Unlock()
}

// TeeLogger returns a logger that writes to base and, at info level and
// above, to buf
func TeeLogger(base *zap.Logger, buf *LogBuffer) *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), buf, zapcore.InfoLevel)

	return zap.New(zapcore.NewTee(base.Core(), core))
}

// LogViewer is a widget that displays log messages
type LogViewer struct {
	widget.BaseWidget

	container *fyne.Container
	logEntry  *widget.Entry
	buffer    *LogBuffer
}

// NewLogViewer creates a viewer that follows buf
func NewLogViewer(buf *LogBuffer) *LogViewer {
	v := &LogViewer{buffer: buf}

	v.logEntry = widget.NewMultiLineEntry()
	v.logEntry.Disable()
	v.logEntry.Wrapping = fyne.TextWrapWord

	scroll := container.NewScroll(v.logEntry)
	scroll.SetMinSize(fyne.NewSize(0, 120))

	v.container = container.NewBorder(
		widget.NewLabel("Session log (newest first):"),
		nil, nil, nil,
		scroll,
	)

	buf.SetOnChange(func() {
		fyne.Do(v.Refresh)
	})

	v.ExtendBaseWidget(v)
	v.Refresh()
	return v
}

// CreateRenderer implements fyne.Widget
func (v *LogViewer) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.container)
}

// Refresh reloads the lines from the buffer
func (v *LogViewer) Refresh() {
	v.logEntry.SetText(strings.Join(v.buffer.Lines(), "\n"))
	v.BaseWidget.Refresh()
}
