package testutil

import (
	"context"
	"sync"

	"codeberg.org/snonux/cardstudio/internal/aigen"
)

// StubGenerator is an aigen.Generator that returns canned pairs
type StubGenerator struct {
	Pairs []aigen.Pair
	Err   error

	mu       sync.Mutex
	requests []aigen.Request
}

// Generate records the request and returns the canned result
func (g *StubGenerator) Generate(ctx context.Context, req aigen.Request) ([]aigen.Pair, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.Pairs, g.Err
}

// LastRequest returns the most recent request, if any
func (g *StubGenerator) LastRequest() (aigen.Request, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.requests) == 0 {
		return aigen.Request{}, false
	}
	return g.requests[len(g.requests)-1], true
}

// Calls returns how many times Generate ran
func (g *StubGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}
