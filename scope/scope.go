package scope

import (
	"sync"

	"github.com/hupe1980/statefx/core"
)

// Scope is a composite cancelable resource handle. One aggregate scope is
// owned per host instance; every per-effect subscription and teardown
// callback is registered into it and released together on Cancel.
//
// Cancel runs each member exactly once. Members added after cancellation are
// released immediately, so late registrations (for example a render-gated
// effect racing host destruction) never leak. A Scope is itself a
// core.Subscription, allowing scopes to nest inside other scopes.
type Scope struct {
	mu        sync.Mutex
	cancelled bool
	members   []member
}

type member struct {
	sub core.Subscription
	fn  core.TeardownFunc
}

// New creates an empty, open scope.
func New() *Scope {
	return &Scope{}
}

// Add registers a subscription for release on Cancel. On an already-cancelled
// scope the subscription is released immediately. Nil subscriptions are
// ignored.
func (s *Scope) Add(sub core.Subscription) {
	if sub == nil {
		return
	}
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	s.members = append(s.members, member{sub: sub})
	s.mu.Unlock()
}

// AddFunc registers a teardown callback for invocation on Cancel. On an
// already-cancelled scope the callback runs immediately. Nil callbacks are
// ignored.
func (s *Scope) AddFunc(fn core.TeardownFunc) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		fn()
		return
	}
	s.members = append(s.members, member{fn: fn})
	s.mu.Unlock()
}

// Cancel releases every member exactly once. Idempotent and re-entrant-safe:
// the member set is detached under lock before any callback runs, so a
// teardown that triggers Cancel again returns without effect and without
// deadlock.
func (s *Scope) Cancel() {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	members := s.members
	s.members = nil
	s.mu.Unlock()

	for _, m := range members {
		switch {
		case m.sub != nil:
			m.sub.Unsubscribe()
		case m.fn != nil:
			m.fn()
		}
	}
}

// Cancelled reports whether the scope has been cancelled.
func (s *Scope) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Len returns the number of currently held members.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

// Unsubscribe implements core.Subscription by cancelling the scope.
func (s *Scope) Unsubscribe() { s.Cancel() }

// Closed implements core.Subscription.
func (s *Scope) Closed() bool { return s.Cancelled() }
