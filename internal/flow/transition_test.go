package flow

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestFadeRunsApplyOnceBetweenPhases(t *testing.T) {
	var phases []Phase
	applied := 0
	f := Fade{
		Duration: 10 * time.Millisecond,
		Observer: func(p Phase) { phases = append(phases, p) },
	}

	err := f.Run(context.Background(), func() {
		applied++
		phases = append(phases, Phase(-1))
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if applied != 1 {
		t.Errorf("apply ran %d times, want 1", applied)
	}
	want := []Phase{PhaseFadeOut, PhaseSwap, Phase(-1), PhaseFadeIn, PhaseDone}
	if !reflect.DeepEqual(phases, want) {
		t.Errorf("phases = %v, want %v", phases, want)
	}
}

func TestFadeInterrupted(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	timeout, stop := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer stop()

	tests := []struct {
		name    string
		ctx     context.Context
		wantErr error
	}{
		{"cancelled before swap", cancelled, context.Canceled},
		{"timeout during fade out", timeout, context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applied := false
			err := Fade{Duration: time.Second}.Run(tt.ctx, func() { applied = true })
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if applied {
				t.Error("apply ran after the context ended")
			}
		})
	}
}

func TestInstant(t *testing.T) {
	applied := 0
	if err := (Instant{}).Run(context.Background(), func() { applied++ }); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if applied != 1 {
		t.Errorf("apply ran %d times, want 1", applied)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (Instant{}).Run(ctx, func() { applied++ }); !errors.Is(err, context.Canceled) {
		t.Errorf("Run(cancelled) error = %v", err)
	}
	if applied != 1 {
		t.Error("apply ran on a cancelled context")
	}
}

func TestControllerWithFade(t *testing.T) {
	var phases []Phase
	c := New(&Config{Transition: Fade{
		Duration: 4 * time.Millisecond,
		Observer: func(p Phase) { phases = append(phases, p) },
	}})
	mustDo(t, c.SetText(FaceFront, "Q"))
	mustDo(t, c.SetText(FaceBack, "A"))
	mustDo(t, c.Advance(context.Background()))

	if c.Current() != 2 {
		t.Errorf("Current() = %d, want 2", c.Current())
	}
	if last := phases[len(phases)-1]; last != PhaseDone {
		t.Errorf("last phase = %v, want %v", last, PhaseDone)
	}
}

func TestPromptStore(t *testing.T) {
	s := NewPromptStore()
	a := s.Request(FaceFront)
	b := s.Request(FaceBack)
	if a == b {
		t.Fatal("tickets should be distinct")
	}
	if s.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2", s.Pending())
	}

	mustDo(t, s.Respond(b, "first"))
	mustDo(t, s.Respond(b, "second"))
	face, text, err := s.Take(b)
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	if face != FaceBack || text != "second" {
		t.Errorf("Take() = %v, %q; want back, %q", face, text, "second")
	}

	if _, _, err := s.Take(b); !errors.Is(err, ErrUnknownTicket) {
		t.Errorf("second Take() error = %v, want %v", err, ErrUnknownTicket)
	}
	if _, _, err := s.Take(a); !errors.Is(err, ErrNoResponse) {
		t.Errorf("Take(unanswered) error = %v, want %v", err, ErrNoResponse)
	}
	s.Cancel(a)
	if s.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", s.Pending())
	}
	if err := s.Respond(a, "x"); !errors.Is(err, ErrUnknownTicket) {
		t.Errorf("Respond(cancelled) error = %v, want %v", err, ErrUnknownTicket)
	}
}
