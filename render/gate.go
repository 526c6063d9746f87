package render

import (
	"sync"

	"github.com/hupe1980/statefx/core"
	"github.com/hupe1980/statefx/stream"
)

// Gate is the per-host render-timing state machine: PENDING until the host's
// view commits to the display tree for the first time, FIRED afterwards.
// Rendered exposes the single-shot memoized stream deferred effects wait on;
// MarkRendered is the render subsystem's post-commit hook.
//
// A gate closed while still PENDING never emits: subscribers receive only a
// completion, so effects queued behind it are simply never invoked.
type Gate struct {
	mu     sync.Mutex
	fired  bool
	closed bool
	source *stream.Source
}

// NewGate creates a gate in the PENDING state.
func NewGate() *Gate {
	return &Gate{source: stream.NewReplaySource()}
}

// Rendered returns the single-shot stream. Before the first commit,
// subscribers wait; the one commit notification fires them in subscription
// order. After it, new subscribers receive an immediate replay notification.
func (g *Gate) Rendered() core.Stream { return g.source }

// MarkRendered transitions PENDING to FIRED, emitting the one notification.
// Every later call is a no-op: a second render commit never re-triggers
// gated effects.
func (g *Gate) MarkRendered() {
	g.mu.Lock()
	if g.fired || g.closed {
		g.mu.Unlock()
		return
	}
	g.fired = true
	g.mu.Unlock()

	g.source.Next(nil)
	g.source.Complete()
}

// Fired reports whether the render commit already happened.
func (g *Gate) Fired() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fired
}

// Close shuts the gate on host destruction. If still PENDING, all waiting
// subscribers are released without a notification.
func (g *Gate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	fired := g.fired
	g.mu.Unlock()

	if !fired {
		g.source.Complete()
	}
}
