package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"codeberg.org/snonux/cardstudio/internal/deck"
	"codeberg.org/snonux/cardstudio/internal/draft"
	"codeberg.org/snonux/cardstudio/internal/flow"
)

// State is the JSON snapshot of a session
type State struct {
	ID        string        `json:"id"`
	Mandatory bool          `json:"mandatory"`
	Metadata  deck.Metadata `json:"metadata"`
	Mode      flow.Mode     `json:"mode"`
	Current   int           `json:"current"`
	Visible   flow.Card     `json:"visible"`
	Selecting bool          `json:"selecting"`
	Selected  []int         `json:"selected,omitempty"`
	Overlay   *flow.Overlay `json:"overlay,omitempty"`
	Cards     []draft.Draft `json:"cards"`
}

func snapshot(id string, c *flow.Controller) State {
	st := State{
		ID:        id,
		Mandatory: c.Mandatory(),
		Metadata:  c.Metadata(),
		Mode:      c.Mode(),
		Current:   c.Current(),
		Visible:   c.Visible(),
		Selecting: c.Selecting(),
		Selected:  c.Selected(),
		Cards:     c.Submitted(),
	}
	if o := c.Overlay(); o.Active() {
		st.Overlay = &o
	}
	return st
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, flow.ErrUnknownTicket),
		errors.Is(err, deck.ErrDeckNotFound):
		return http.StatusNotFound
	case errors.Is(err, flow.ErrWrongMode), errors.Is(err, flow.ErrOverlayBusy),
		errors.Is(err, flow.ErrNoOverlay), errors.Is(err, flow.ErrNoResponse):
		return http.StatusConflict
	case errors.Is(err, draft.ErrEmptySelection), errors.Is(err, flow.ErrEmptyCard),
		errors.Is(err, deck.ErrTitleRequired), errors.Is(err, deck.ErrTitleTooLong):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// mutate runs fn on the session and answers with the new state. An action
// that opened a confirmation dialog answers 202.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(*flow.Controller) error) {
	id := chi.URLParam(r, "id")

	var (
		state  State
		status = http.StatusOK
	)
	err := s.registry.With(id, func(c *flow.Controller) error {
		err := fn(c)
		if errors.Is(err, flow.ErrConfirmationRequired) {
			status = http.StatusAccepted
			err = nil
		}
		state = snapshot(id, c)
		return err
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, status, state)
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, status, err)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid body"))
		return false
	}
	return true
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	id := s.registry.Create()

	var state State
	_ = s.registry.With(id, func(c *flow.Controller) error {
		state = snapshot(id, c)
		return nil
	})
	s.log.Info("session created", zap.String("session", id))
	writeJSON(w, http.StatusCreated, state)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": s.registry.IDs()})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(c *flow.Controller) error { return nil })
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Remove(chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) putMetadata(w http.ResponseWriter, r *http.Request) {
	var meta deck.Metadata
	if !decode(w, r, &meta) {
		return
	}
	s.mutate(w, r, func(c *flow.Controller) error {
		if err := c.SetMetadata(meta); err != nil {
			return err
		}
		return c.SetMandatory(false)
	})
}

func (s *Server) reopenForm(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(c *flow.Controller) error {
		return c.SetMandatory(true)
	})
}

type faceRequest struct {
	Face    flow.Face         `json:"face"`
	Content draft.Content     `json:"content"`
	Type    draft.ContentType `json:"type"`
}

func (s *Server) putCard(w http.ResponseWriter, r *http.Request) {
	var req faceRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.Content.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.mutate(w, r, func(c *flow.Controller) error {
		return c.EditFace(req.Face, req.Content)
	})
}

func (s *Server) postContentType(w http.ResponseWriter, r *http.Request) {
	var req faceRequest
	if !decode(w, r, &req) {
		return
	}
	s.mutate(w, r, func(c *flow.Controller) error {
		return c.RequestContentType(req.Face, req.Type)
	})
}

func (s *Server) postFlip(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(c *flow.Controller) error {
		c.FlipCard()
		return nil
	})
}

func (s *Server) postPrompt(w http.ResponseWriter, r *http.Request) {
	var req faceRequest
	if !decode(w, r, &req) {
		return
	}
	s.mutate(w, r, func(c *flow.Controller) error {
		_, err := c.OpenTextPrompt(req.Face)
		return err
	})
}

func (s *Server) answerPrompt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decode(w, r, &req) {
		return
	}
	ticket := flow.PromptTicket(chi.URLParam(r, "ticket"))

	s.mutate(w, r, func(c *flow.Controller) error {
		if o := c.Overlay(); o.Kind != flow.OverlayTextPrompt || o.Ticket != ticket {
			return flow.ErrUnknownTicket
		}
		if err := c.Prompts().Respond(ticket, req.Text); err != nil {
			return err
		}
		return c.Confirm()
	})
}

func (s *Server) postAdvance(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(c *flow.Controller) error {
		return c.Advance(r.Context())
	})
}

func (s *Server) postView(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(c *flow.Controller) error {
		return c.ShowView()
	})
}

func (s *Server) postAdd(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(c *flow.Controller) error {
		return c.ShowAdd()
	})
}

func (s *Server) postSelect(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, errors.New("invalid card number"))
		return
	}
	s.mutate(w, r, func(c *flow.Controller) error {
		return c.SelectCard(n)
	})
}

// postDelete selects the given cards and opens the delete confirmation.
// An empty selection answers 422; its notice is closed right away since
// the response already carries it.
func (s *Server) postDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Numbers []int `json:"numbers"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mutate(w, r, func(c *flow.Controller) error {
		if c.Mode() != flow.ModeView {
			return flow.ErrWrongMode
		}
		if c.Overlay().Active() {
			return flow.ErrOverlayBusy
		}
		c.ExitSelectMode()
		if err := c.EnterSelectMode(); err != nil {
			return err
		}

		sel := draft.NewSelection(req.Numbers...)
		for _, n := range sel.Numbers() {
			if _, err := c.ToggleSelection(n); err != nil {
				return err
			}
		}

		err := c.RequestDelete()
		if errors.Is(err, draft.ErrEmptySelection) {
			_ = c.Dismiss()
			c.ExitSelectMode()
		}
		return err
	})
}

func (s *Server) postConfirm(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(c *flow.Controller) error {
		return c.Confirm()
	})
}

func (s *Server) postDismiss(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(c *flow.Controller) error {
		return c.Dismiss()
	})
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	var stats deck.Stats
	err := s.registry.With(chi.URLParam(r, "id"), func(c *flow.Controller) error {
		stats = c.Stats()
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) postExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusNotImplemented, errors.New("export is not configured"))
		return
	}

	var d *deck.Deck
	err := s.registry.With(chi.URLParam(r, "id"), func(c *flow.Controller) error {
		var err error
		d, err = c.Deck()
		return err
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if len(d.Cards) == 0 {
		writeError(w, http.StatusUnprocessableEntity, errors.New("deck has no submitted cards"))
		return
	}

	path, err := s.exporter.Export(d)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.library.Add(d)
	s.log.Info("deck exported", zap.String("deck", d.ID), zap.String("path", path), zap.Int("cards", len(d.Cards)))
	writeJSON(w, http.StatusOK, map[string]any{"path": path, "cards": len(d.Cards), "deck_id": d.ID})
}
