package assistant

import (
	"context"
	"errors"
	log "log/slog"
	"sync"
	"sync/atomic"

	"vocaleye/internal/dispatch"
)

// Gate wraps a confirmer so that a pending confirmation can be withdrawn
// when the user starts a new utterance instead of answering. While a newer
// utterance is queued, confirmations are refused without asking.
type Gate struct {
	inner   dispatch.Confirmer
	waiting atomic.Int32

	mu      sync.Mutex
	pending context.CancelFunc
}

var (
	errNoConfirmer = errors.New("no confirmer configured")
	errSuperseded  = errors.New("superseded by a newer utterance")
)

func NewGate(inner dispatch.Confirmer) *Gate {
	return &Gate{inner: inner}
}

func (g *Gate) Confirm(ctx context.Context, prompt string) (bool, error) {
	if g.inner == nil {
		return false, errNoConfirmer
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g.mu.Lock()
	g.pending = cancel
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.pending = nil
		g.mu.Unlock()
	}()

	// Checked after registering, so a Queue+Preempt racing with us either
	// cancels ctx or is seen here.
	if g.waiting.Load() > 0 {
		return false, errSuperseded
	}
	return g.inner.Confirm(ctx, prompt)
}

// Preempt withdraws the pending confirmation, if any. The confirmer sees a
// cancelled context; the dispatch context is untouched, so the action ends
// as not confirmed rather than cancelled.
func (g *Gate) Preempt() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return false
	}
	g.pending()
	g.pending = nil
	return true
}

// Queue marks a newer utterance as waiting for its turn and withdraws any
// pending confirmation. Call the returned func once the turn is taken.
func (g *Gate) Queue() (taken func()) {
	g.waiting.Add(1)
	if g.Preempt() {
		log.Info("Pending confirmation withdrawn by new utterance")
	}
	var once sync.Once
	return func() { once.Do(func() { g.waiting.Add(-1) }) }
}

// Pending reports whether a confirmation is waiting for an answer.
func (g *Gate) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending != nil
}
