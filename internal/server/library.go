package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"codeberg.org/snonux/cardstudio/internal/deck"
)

type deckSummary struct {
	ID       string        `json:"id"`
	Metadata deck.Metadata `json:"metadata"`
	Stats    deck.Stats    `json:"stats"`
}

func summarise(decks []*deck.Deck) []deckSummary {
	out := make([]deckSummary, 0, len(decks))
	for _, d := range decks {
		out = append(out, deckSummary{ID: d.ID, Metadata: d.Metadata, Stats: d.Stats()})
	}
	return out
}

func (s *Server) listDecks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var decks []*deck.Deck
	switch {
	case q.Get("favorites") == "true":
		decks = s.library.Favorites()
	case q.Has("folder"):
		decks = s.library.InFolder(q.Get("folder"))
	default:
		decks = s.library.All()
	}
	writeJSON(w, http.StatusOK, map[string]any{"decks": summarise(decks)})
}

func (s *Server) listFolders(w http.ResponseWriter, r *http.Request) {
	folders := s.library.Folders()
	if folders == nil {
		folders = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"folders": folders})
}

func (s *Server) getDeck(w http.ResponseWriter, r *http.Request) {
	d, err := s.library.Get(chi.URLParam(r, "deckID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) deleteDeck(w http.ResponseWriter, r *http.Request) {
	if err := s.library.Remove(chi.URLParam(r, "deckID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	fav, err := s.library.ToggleFavorite(chi.URLParam(r, "deckID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": fav})
}
