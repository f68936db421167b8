package internal

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// SanitizeFilename creates a safe filename from a string
func SanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "deck"
	}
	return b.String()
}

// ExportFileName names an export after the deck title and the time
// it was written, e.g. "Cell_Biology_20250102-150405.apkg"
func ExportFileName(title, ext string, at time.Time) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(title), at.Format("20060102-150405"), strings.TrimPrefix(ext, "."))
}
