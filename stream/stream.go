package stream

import (
	"sync"

	"github.com/hupe1980/statefx/core"
)

// Source is a push-based multicast stream. Values given to Next are delivered
// synchronously to every open subscriber, in subscription order. A Source
// terminates at most once, via Error or Complete; afterwards Next is a no-op
// and new subscribers receive the terminal signal immediately.
//
// Replay sources additionally remember the latest value and deliver it to
// each new subscriber before subsequent emissions. All methods are safe for
// concurrent use; callbacks run on the goroutine that emitted.
type Source struct {
	mu      sync.Mutex
	subs    []*memberSub
	replay  bool
	hasLast bool
	last    any
	done    bool
	err     error
}

// NewSource creates an open multicast source without replay.
func NewSource() *Source {
	return &Source{}
}

// NewReplaySource creates an open multicast source that replays the latest
// value to each new subscriber.
func NewReplaySource() *Source {
	return &Source{replay: true}
}

// Subscribe registers the subscriber and returns its handle. On a terminated
// source the terminal signal (preceded by the replayed value, if any) is
// delivered before Subscribe returns and the returned subscription is already
// closed.
func (s *Source) Subscribe(sub core.Subscriber) core.Subscription {
	s.mu.Lock()
	if s.done {
		replayVal, doReplay := s.last, s.replay && s.hasLast
		err := s.err
		s.mu.Unlock()
		if doReplay && sub.Next != nil {
			sub.Next(replayVal)
		}
		if err != nil {
			if sub.Error != nil {
				sub.Error(err)
			}
		} else if sub.Complete != nil {
			sub.Complete()
		}
		return ClosedSubscription()
	}

	m := &memberSub{source: s, sub: sub}
	s.subs = append(s.subs, m)
	replayVal, doReplay := s.last, s.replay && s.hasLast
	s.mu.Unlock()

	if doReplay && sub.Next != nil {
		sub.Next(replayVal)
	}
	return m
}

// Next delivers a value to all open subscribers. No-op after termination.
func (s *Source) Next(v any) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	if s.replay {
		s.last, s.hasLast = v, true
	}
	snapshot := make([]*memberSub, len(s.subs))
	copy(snapshot, s.subs)
	s.mu.Unlock()

	for _, m := range snapshot {
		if m.Closed() {
			continue
		}
		if m.sub.Next != nil {
			m.sub.Next(v)
		}
	}
}

// Notify emits an empty notification, satisfying core.Notifier. Effect
// metadata notifiers are plain sources signalled through this method.
func (s *Source) Notify() { s.Next(nil) }

// Error terminates the source, delivering err to all open subscribers and
// releasing them. Only the first terminal call has any effect.
func (s *Source) Error(err error) {
	s.terminate(err)
}

// Complete terminates the source, notifying all open subscribers and
// releasing them. Only the first terminal call has any effect.
func (s *Source) Complete() {
	s.terminate(nil)
}

// Done reports whether the source has terminated.
func (s *Source) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Subscribers returns the number of currently open subscriptions.
func (s *Source) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Source) terminate(err error) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.err = err
	snapshot := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, m := range snapshot {
		if !m.close() {
			continue
		}
		if err != nil {
			if m.sub.Error != nil {
				m.sub.Error(err)
			}
		} else if m.sub.Complete != nil {
			m.sub.Complete()
		}
	}
}

func (s *Source) remove(m *memberSub) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.subs {
		if cur == m {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// memberSub is one subscriber's handle into a Source.
type memberSub struct {
	mu     sync.Mutex
	source *Source
	sub    core.Subscriber
	done   bool
}

// Unsubscribe removes the subscriber from the source. Idempotent; no
// callbacks are delivered after it returns.
func (m *memberSub) Unsubscribe() {
	if !m.close() {
		return
	}
	if m.source != nil {
		m.source.remove(m)
	}
}

// Closed reports whether the subscription has been released.
func (m *memberSub) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// close flips the done flag, reporting whether this call did the flip.
func (m *memberSub) close() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return false
	}
	m.done = true
	return true
}

// closedSubscription is the shared inert handle returned by terminated
// sources and cold streams.
type closedSubscription struct{}

func (closedSubscription) Unsubscribe() {}
func (closedSubscription) Closed() bool { return true }

// ClosedSubscription returns an already-released subscription handle.
func ClosedSubscription() core.Subscription { return closedSubscription{} }
