package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// appIcon returns the window icon
func appIcon() fyne.Resource {
	return theme.DocumentCreateIcon()
}
