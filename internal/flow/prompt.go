package flow

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrUnknownTicket = errors.New("unknown prompt ticket")
	ErrNoResponse    = errors.New("prompt has no response yet")
)

// PromptTicket identifies one request for typed text
type PromptTicket string

type promptState struct {
	face      Face
	text      string
	responded bool
}

// PromptStore carries typed text from the text-input dialog back to the
// screen that asked for it. Every request gets its own ticket and at most
// one response, which is consumed by Take.
type PromptStore struct {
	pending map[PromptTicket]*promptState
}

// NewPromptStore creates an empty store
func NewPromptStore() *PromptStore {
	return &PromptStore{pending: make(map[PromptTicket]*promptState)}
}

// Request opens a prompt for the given face
func (s *PromptStore) Request(face Face) PromptTicket {
	ticket := PromptTicket(uuid.NewString())
	s.pending[ticket] = &promptState{face: face}
	return ticket
}

// Respond records the typed text. A second response overwrites the first
// until the ticket is taken.
func (s *PromptStore) Respond(ticket PromptTicket, text string) error {
	st, ok := s.pending[ticket]
	if !ok {
		return ErrUnknownTicket
	}
	st.text = text
	st.responded = true
	return nil
}

// Take consumes the response and forgets the ticket
func (s *PromptStore) Take(ticket PromptTicket) (Face, string, error) {
	st, ok := s.pending[ticket]
	if !ok {
		return 0, "", ErrUnknownTicket
	}
	if !st.responded {
		return st.face, "", ErrNoResponse
	}
	delete(s.pending, ticket)
	return st.face, st.text, nil
}

// Cancel forgets a ticket without a response
func (s *PromptStore) Cancel(ticket PromptTicket) {
	delete(s.pending, ticket)
}

// Pending returns the number of open tickets
func (s *PromptStore) Pending() int {
	return len(s.pending)
}
