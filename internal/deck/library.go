package deck

import (
	"errors"
	"sort"
	"sync"
)

// ErrDeckNotFound is returned for unknown deck IDs
var ErrDeckNotFound = errors.New("deck not found")

// Library keeps the decks created in this process for browsing by folder
// and favorites
type Library struct {
	mu    sync.RWMutex
	decks map[string]*Deck
}

// NewLibrary creates an empty library
func NewLibrary() *Library {
	return &Library{decks: make(map[string]*Deck)}
}

// Add stores a copy of the deck, replacing any deck with the same ID
func (l *Library) Add(d *Deck) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.decks[d.ID] = d.clone()
}

// Get returns a copy of the deck with the given ID
func (l *Library) Get(id string) (*Deck, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.decks[id]
	if !ok {
		return nil, ErrDeckNotFound
	}
	return d.clone(), nil
}

// Remove deletes a deck
func (l *Library) Remove(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.decks[id]; !ok {
		return ErrDeckNotFound
	}
	delete(l.decks, id)
	return nil
}

// ToggleFavorite flips the favorite flag and returns the new value
func (l *Library) ToggleFavorite(id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.decks[id]
	if !ok {
		return false, ErrDeckNotFound
	}
	d.Metadata.Favorite = !d.Metadata.Favorite
	return d.Metadata.Favorite, nil
}

// Folders lists the distinct non-empty folder names, sorted
func (l *Library) Folders() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[string]bool)
	var folders []string
	for _, d := range l.decks {
		f := d.Metadata.Folder
		if f != "" && !seen[f] {
			seen[f] = true
			folders = append(folders, f)
		}
	}
	sort.Strings(folders)
	return folders
}

// Decks handed out by the library are copies, so callers may read them
// while ToggleFavorite updates the stored deck.
func (d *Deck) clone() *Deck {
	c := *d
	c.Metadata.Tags = append([]string(nil), d.Metadata.Tags...)
	c.Cards = append(d.Cards[:0:0], d.Cards...)
	return &c
}

// InFolder returns the decks filed under a folder, sorted by title
func (l *Library) InFolder(folder string) []*Deck {
	return l.filter(func(d *Deck) bool { return d.Metadata.Folder == folder })
}

// Favorites returns the favorite decks, sorted by title
func (l *Library) Favorites() []*Deck {
	return l.filter(func(d *Deck) bool { return d.Metadata.Favorite })
}

// All returns every deck, sorted by title
func (l *Library) All() []*Deck {
	return l.filter(func(*Deck) bool { return true })
}

func (l *Library) filter(keep func(*Deck) bool) []*Deck {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []*Deck
	for _, d := range l.decks {
		if keep(d) {
			result = append(result, d.clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Metadata.Title == result[j].Metadata.Title {
			return result[i].ID < result[j].ID
		}
		return result[i].Metadata.Title < result[j].Metadata.Title
	})
	return result
}
