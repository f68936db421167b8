package aigen

import (
	"encoding/json"
	"fmt"
	"strings"

	"codeberg.org/snonux/cardstudio/internal/draft"
)

// Pair is one generated card
type Pair struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// Draft converts the pair into a text/text draft
func (p Pair) Draft(number int) draft.Draft {
	return draft.Draft{
		Number: number,
		Front:  draft.Text(p.Front),
		Back:   draft.Text(p.Back),
	}
}

type pairsEnvelope struct {
	Cards []Pair `json:"cards"`
}

// ParsePairs decodes {"cards":[{"front":..,"back":..}]}. A surrounding
// markdown code fence is tolerated. Pairs with a blank side are dropped.
func ParsePairs(data []byte) ([]Pair, error) {
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	var env pairsEnvelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, fmt.Errorf("failed to decode cards: %w", err)
	}

	pairs := make([]Pair, 0, len(env.Cards))
	for _, p := range env.Cards {
		p.Front = strings.TrimSpace(p.Front)
		p.Back = strings.TrimSpace(p.Back)
		if p.Front == "" || p.Back == "" {
			continue
		}
		pairs = append(pairs, p)
	}
	if len(pairs) == 0 {
		return nil, ErrNoCards
	}
	return pairs, nil
}

// limit trims an over-eager model down to the requested count
func limit(pairs []Pair, n int) []Pair {
	if n > 0 && len(pairs) > n {
		return pairs[:n]
	}
	return pairs
}
