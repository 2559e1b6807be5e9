package priceresolver

import (
	"sync"
	"time"
)

// circuitBreaker tracks consecutive failures per (identifier, source) pair,
// so a provider that chokes on one symbol keeps serving every other one. A
// pair that fails threshold times opens and is skipped until the cooldown
// elapses; expiry alone closes it again, there is no half-open probe state.
type circuitBreaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	now       func() time.Time
	states    map[string]*breakerState
}

type breakerState struct {
	failures int
	openedAt time.Time
}

func newCircuitBreaker(threshold int, cooldown time.Duration, now func() time.Time) *circuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	if now == nil {
		now = time.Now
	}
	return &circuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       now,
		states:    make(map[string]*breakerState),
	}
}

func breakerKey(identifier, source string) string {
	return identifier + "|" + source
}

// Allow reports whether the source may be called for this identifier. An
// open breaker whose cooldown has expired resets and allows the call.
func (b *circuitBreaker) Allow(identifier, source string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.states[breakerKey(identifier, source)]
	if !ok || st.openedAt.IsZero() {
		return true
	}
	if b.now().Sub(st.openedAt) >= b.cooldown {
		delete(b.states, breakerKey(identifier, source))
		return true
	}
	return false
}

// Failure records one failed call; the pair opens at the threshold.
func (b *circuitBreaker) Failure(identifier, source string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := breakerKey(identifier, source)
	st, ok := b.states[key]
	if !ok {
		st = &breakerState{}
		b.states[key] = st
	}
	st.failures++
	if st.failures >= b.threshold && st.openedAt.IsZero() {
		st.openedAt = b.now()
	}
}

// Success clears accumulated failures for the pair.
func (b *circuitBreaker) Success(identifier, source string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.states, breakerKey(identifier, source))
}
