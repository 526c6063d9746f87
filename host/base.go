// Package host provides the embeddable Base type giving user components a
// destroy notification channel. Hosts embedding Base satisfy
// core.DestroyNotifier, so the binder tears their connection down
// automatically when the embedding framework signals destruction.
package host

import "sync"

// Base bundles the host-lifecycle plumbing shared by components and
// directives: a single destroy notification with ordered listeners. Embed it
// in concrete host implementations. All exported methods are goroutine-safe.
type Base struct {
	mu        sync.Mutex // Protects destruction state and listeners
	destroyed bool       // Tracks whether destruction was already signalled
	listeners []func()   // Destroy listeners in registration order
}

// OnDestroy registers a listener invoked when the host is destroyed.
// Listeners run in registration order, exactly once. Registering on an
// already-destroyed host runs the listener immediately.
func (b *Base) OnDestroy(fn func()) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		fn()
		return
	}
	b.listeners = append(b.listeners, fn)
	b.mu.Unlock()
}

// NotifyDestroy signals host destruction. The first call runs every
// registered listener; subsequent calls are no-ops. It is the single inbound
// lifecycle call the embedding framework owes the binding layer.
func (b *Base) NotifyDestroy() {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	b.destroyed = true
	listeners := b.listeners
	b.listeners = nil
	b.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Destroyed reports whether destruction was already signalled.
func (b *Base) Destroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}
