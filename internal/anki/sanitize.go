package anki

import (
	"errors"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ErrEmptyText is returned when nothing is left of a text face
var ErrEmptyText = errors.New("text is empty or unsafe")

var textPolicy = bluemonday.UGCPolicy().
	AllowElements("span").
	AllowAttrs("class").OnElements("span")

// SanitizeText makes typed card text safe to embed in an Anki field.
// Plain text is escaped and its line breaks kept; markup is filtered.
func SanitizeText(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyText
	}
	if !strings.ContainsAny(input, "<>") {
		return strings.ReplaceAll(html.EscapeString(input), "\n", "<br>"), nil
	}

	sanitised := textPolicy.Sanitize(input)
	if strings.TrimSpace(sanitised) == "" {
		return "", ErrEmptyText
	}
	return sanitised, nil
}
