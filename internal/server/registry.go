// Package server exposes deck-creation sessions as a local JSON API.
// Every session wraps one flow.Controller; requests for the same session
// are serialised on its lock so the controller keeps a single owner.
package server

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"codeberg.org/snonux/cardstudio/internal/flow"
)

// ErrSessionNotFound is returned for unknown session IDs
var ErrSessionNotFound = errors.New("session not found")

type session struct {
	mu      sync.Mutex
	id      string
	created time.Time
	ctrl    *flow.Controller
}

// Registry holds the live sessions
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	newCtrl  func() *flow.Controller
}

// NewRegistry creates an empty registry. newCtrl builds the controller
// of every new session.
func NewRegistry(newCtrl func() *flow.Controller) *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		newCtrl:  newCtrl,
	}
}

// Create starts a new session and returns its ID
func (r *Registry) Create() string {
	s := &session{
		id:      uuid.NewString(),
		created: time.Now(),
		ctrl:    r.newCtrl(),
	}

	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
	return s.id
}

// With runs fn with exclusive access to the session's controller
func (r *Registry) With(id string, fn func(*flow.Controller) error) error {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.ctrl)
}

// Remove ends a session
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

// IDs lists the sessions, oldest first
func (r *Registry) IDs() []string {
	r.mu.RLock()
	all := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].created.Equal(all[j].created) {
			return all[i].id < all[j].id
		}
		return all[i].created.Before(all[j].created)
	})

	ids := make([]string, len(all))
	for i, s := range all {
		ids[i] = s.id
	}
	return ids
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
