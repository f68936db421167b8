package flow

import (
	"context"
	"time"
)

// Phase is a step of a card transition
type Phase int

const (
	PhaseFadeOut Phase = iota
	PhaseSwap
	PhaseFadeIn
	PhaseDone
)

// Transitioner runs the visual change between two cards. apply carries the
// logical state change; it runs exactly once, unless ctx is cancelled
// before the swap, in which case it never runs and ctx.Err() is returned.
type Transitioner interface {
	Run(ctx context.Context, apply func()) error
}

// Instant swaps immediately
type Instant struct{}

func (Instant) Run(ctx context.Context, apply func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	apply()
	return nil
}

// Fade fades the card out, swaps the content, then fades it back in.
// Observer, if set, is told about every phase so a renderer can animate.
type Fade struct {
	Duration time.Duration
	Observer func(Phase)
}

func (f Fade) Run(ctx context.Context, apply func()) error {
	half := f.Duration / 2

	f.notify(PhaseFadeOut)
	if err := wait(ctx, half); err != nil {
		return err
	}

	f.notify(PhaseSwap)
	apply()

	f.notify(PhaseFadeIn)
	// The swap already happened; a cancel here only cuts the animation short.
	_ = wait(ctx, f.Duration-half)
	f.notify(PhaseDone)
	return nil
}

func (f Fade) notify(p Phase) {
	if f.Observer != nil {
		f.Observer(p)
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
