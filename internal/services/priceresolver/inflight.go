package priceresolver

import (
	"context"
	"sync"
	"time"

	"github.com/hirokada/shisan/internal/models"
)

// inflightGroup collapses concurrent identical resolutions into one provider
// walk. The first caller for a key does the work; duplicates wait up to the
// bound for its result and fall back to resolving themselves when the leader
// is too slow. The fallback trades a duplicate fetch for a bounded latency.
type inflightGroup struct {
	mu    sync.Mutex
	wait  time.Duration
	calls map[string]*inflightCall
}

type inflightCall struct {
	done   chan struct{}
	series models.PriceSeries
	source string
	err    error
}

func newInflightGroup(wait time.Duration) *inflightGroup {
	return &inflightGroup{
		wait:  wait,
		calls: make(map[string]*inflightCall),
	}
}

// Do executes fn once per concurrent key.
func (g *inflightGroup) Do(ctx context.Context, key string, fn func() (models.PriceSeries, string, error)) (models.PriceSeries, string, error) {
	g.mu.Lock()
	if call, ok := g.calls[key]; ok {
		g.mu.Unlock()
		return g.await(ctx, call, fn)
	}

	call := &inflightCall{done: make(chan struct{})}
	g.calls[key] = call
	g.mu.Unlock()

	call.series, call.source, call.err = fn()

	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()
	close(call.done)

	return call.series, call.source, call.err
}

func (g *inflightGroup) await(ctx context.Context, call *inflightCall, fn func() (models.PriceSeries, string, error)) (models.PriceSeries, string, error) {
	timer := time.NewTimer(g.wait)
	defer timer.Stop()

	select {
	case <-call.done:
		return call.series, call.source, call.err
	case <-ctx.Done():
		return nil, models.SourceNone, ctx.Err()
	case <-timer.C:
		// Leader exceeded the bound; resolve independently
		return fn()
	}
}
