package deck

import "codeberg.org/snonux/cardstudio/internal/draft"

// Stats summarises a set of cards for the statistics dashboard
type Stats struct {
	Total      int                       `json:"total"`
	Complete   int                       `json:"complete"`
	Incomplete int                       `json:"incomplete"`
	Front      map[draft.ContentType]int `json:"front"`
	Back       map[draft.ContentType]int `json:"back"`
}

// Compute counts cards and content types per face
func Compute(cards []draft.Draft) Stats {
	s := Stats{
		Front: make(map[draft.ContentType]int),
		Back:  make(map[draft.ContentType]int),
	}

	for _, c := range cards {
		s.Total++
		if c.Complete() {
			s.Complete++
		} else {
			s.Incomplete++
		}
		s.Front[faceType(c.Front)]++
		s.Back[faceType(c.Back)]++
	}

	return s
}

// empty faces count as none whatever type was picked
func faceType(c draft.Content) draft.ContentType {
	if c.IsEmpty() {
		return draft.ContentNone
	}
	return c.Type
}

// Percent returns the share of faces (front and back together) of the given type
func (s Stats) Percent(t draft.ContentType) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Front[t]+s.Back[t]) * 100 / float64(2*s.Total)
}

// CompletionPercent returns the share of cards with both faces filled
func (s Stats) CompletionPercent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Complete) * 100 / float64(s.Total)
}
