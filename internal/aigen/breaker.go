package aigen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerGenerator stops calling a provider after consecutive failures
// and lets a single trial request through once the cooldown has passed.
type BreakerGenerator struct {
	next Generator
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerGenerator wraps next with a circuit breaker
func NewBreakerGenerator(next Generator, config *Config) *BreakerGenerator {
	failures := config.BreakerFailures
	if failures == 0 {
		failures = 3
	}
	cooldown := config.BreakerCooldown
	if cooldown == 0 {
		cooldown = 30 * time.Second
	}
	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}

	settings := gobreaker.Settings{
		Name:        "aigen-" + config.Provider,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Bad requests and cancellations say nothing about provider health
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("generation breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	}

	return &BreakerGenerator{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Generate implements Generator
func (b *BreakerGenerator) Generate(ctx context.Context, req Request) ([]Pair, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Generate(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return result.([]Pair), nil
}

// State reports the breaker state for status output
func (b *BreakerGenerator) State() gobreaker.State {
	return b.cb.State()
}

func isClientError(err error) bool {
	for _, target := range []error{
		ErrNoSource, ErrInvalidURL, ErrCountRange, ErrBadDifficulty,
		context.Canceled,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
