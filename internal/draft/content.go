package draft

import (
	"fmt"
	"strings"
)

// ContentType is the medium assigned to one face of a card
type ContentType int

const (
	ContentNone ContentType = iota
	ContentText
	ContentCamera
	ContentMarker
	ContentMic
)

var contentTypeNames = map[ContentType]string{
	ContentNone:   "none",
	ContentText:   "text",
	ContentCamera: "camera",
	ContentMarker: "marker",
	ContentMic:    "mic",
}

func (t ContentType) String() string {
	if name, ok := contentTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ContentType(%d)", int(t))
}

// ParseContentType converts a lowercase name back into a ContentType
func ParseContentType(s string) (ContentType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return ContentNone, nil
	}
	for t, n := range contentTypeNames {
		if n == name {
			return t, nil
		}
	}
	return ContentNone, fmt.Errorf("unknown content type: %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (t ContentType) MarshalText() ([]byte, error) {
	if _, ok := contentTypeNames[t]; !ok {
		return nil, fmt.Errorf("unknown content type: %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *ContentType) UnmarshalText(data []byte) error {
	parsed, err := ParseContentType(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Kind groups content types by how their payload is rendered
type Kind int

const (
	KindEmpty Kind = iota
	KindText
	KindImage
	KindAudio
)

// Content is one face of a flashcard draft
type Content struct {
	Type    ContentType `json:"type"`
	Payload string      `json:"payload,omitempty"`
}

// NewContent builds a face. A ContentNone face never carries a payload.
func NewContent(t ContentType, payload string) Content {
	if t == ContentNone {
		return Content{}
	}
	return Content{Type: t, Payload: payload}
}

// Text is shorthand for a text face
func Text(s string) Content {
	return NewContent(ContentText, s)
}

// IsEmpty reports whether the face has nothing to show
func (c Content) IsEmpty() bool {
	return c.Type == ContentNone || strings.TrimSpace(c.Payload) == ""
}

// Kind maps the content type onto the renderer that handles it
func (c Content) Kind() Kind {
	if c.IsEmpty() {
		return KindEmpty
	}
	switch c.Type {
	case ContentText:
		return KindText
	case ContentCamera, ContentMarker:
		return KindImage
	case ContentMic:
		return KindAudio
	case ContentNone:
		return KindEmpty
	}
	return KindEmpty
}

// Validate checks the none-implies-empty invariant and the type range
func (c Content) Validate() error {
	if _, ok := contentTypeNames[c.Type]; !ok {
		return fmt.Errorf("unknown content type: %d", int(c.Type))
	}
	if c.Type == ContentNone && c.Payload != "" {
		return fmt.Errorf("content of type none must not carry a payload")
	}
	return nil
}
