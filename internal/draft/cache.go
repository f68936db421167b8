package draft

import (
	"errors"
	"sort"
)

// ErrEmptySelection is returned when a delete is attempted with nothing selected
var ErrEmptySelection = errors.New("no selection made")

// Draft is an in-progress flashcard: two faces under a sequential number
type Draft struct {
	Number    int     `json:"number"`
	Front     Content `json:"front"`
	Back      Content `json:"back"`
	Submitted bool    `json:"submitted"`
}

// Complete reports whether both faces hold content
func (d Draft) Complete() bool {
	return !d.Front.IsEmpty() && !d.Back.IsEmpty()
}

// Cache holds the drafts of one deck-creation session, keyed by number.
// It is owned by a single controller and is not safe for concurrent use.
type Cache struct {
	drafts []Draft
}

// NewCache creates an empty draft cache
func NewCache() *Cache {
	return &Cache{drafts: make([]Draft, 0)}
}

func (c *Cache) index(number int) int {
	for i := range c.drafts {
		if c.drafts[i].Number == number {
			return i
		}
	}
	return -1
}

// Upsert replaces the faces of an existing draft, keeping its submitted
// flag, or inserts a new unsubmitted draft.
func (c *Cache) Upsert(number int, front, back Content) {
	if i := c.index(number); i >= 0 {
		c.drafts[i].Front = front
		c.drafts[i].Back = back
		return
	}
	c.drafts = append(c.drafts, Draft{Number: number, Front: front, Back: back})
}

// MarkSubmitted flags a draft as confirmed. Unknown numbers are ignored.
func (c *Cache) MarkSubmitted(number int) {
	if i := c.index(number); i >= 0 {
		c.drafts[i].Submitted = true
	}
}

// Find looks up a draft by number
func (c *Cache) Find(number int) (Draft, bool) {
	if i := c.index(number); i >= 0 {
		return c.drafts[i], true
	}
	return Draft{}, false
}

// SubmittedDrafts returns every submitted draft in ascending number order.
// The result is a fresh slice computed from the current state.
func (c *Cache) SubmittedDrafts() []Draft {
	result := make([]Draft, 0, len(c.drafts))
	for _, d := range c.drafts {
		if d.Submitted {
			result = append(result, d)
		}
	}
	sortByNumber(result)
	return result
}

// All returns every draft, submitted or not, in ascending number order
func (c *Cache) All() []Draft {
	result := make([]Draft, len(c.drafts))
	copy(result, c.drafts)
	sortByNumber(result)
	return result
}

// Len returns the number of cached drafts
func (c *Cache) Len() int {
	return len(c.drafts)
}

// NextAvailableNumber returns the number after the highest submitted draft.
// Unsubmitted drafts never consume a number.
func (c *Cache) NextAvailableNumber() int {
	highest := 0
	for _, d := range c.drafts {
		if d.Submitted && d.Number > highest {
			highest = d.Number
		}
	}
	return highest + 1
}

// ShiftFrom moves every draft numbered from or above up by n, opening a
// gap of n numbers starting at from
func (c *Cache) ShiftFrom(from, n int) {
	if n <= 0 {
		return
	}
	for i := range c.drafts {
		if c.drafts[i].Number >= from {
			c.drafts[i].Number += n
		}
	}
}

// DeleteAndRenumber removes the selected drafts and renumbers the survivors
// 1..n in their original order. An empty selection leaves the cache alone.
func (c *Cache) DeleteAndRenumber(selection *Selection) error {
	if selection == nil || selection.Len() == 0 {
		return ErrEmptySelection
	}

	survivors := make([]Draft, 0, len(c.drafts))
	for _, d := range c.drafts {
		if !selection.Has(d.Number) {
			survivors = append(survivors, d)
		}
	}

	sortByNumber(survivors)
	for i := range survivors {
		survivors[i].Number = i + 1
	}
	c.drafts = survivors
	return nil
}

func sortByNumber(drafts []Draft) {
	sort.SliceStable(drafts, func(i, j int) bool {
		return drafts[i].Number < drafts[j].Number
	})
}
