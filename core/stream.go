package core

// TeardownFunc is a zero-argument cleanup callback. Effects may return one to
// register teardown logic that runs exactly once when the owning host's
// aggregate scope is cancelled.
type TeardownFunc func()

// Subscriber bundles the callbacks delivered by a Stream. Any field may be
// nil; nil callbacks are skipped. Next receives each emitted value, Error a
// terminal upstream failure, Complete the end-of-stream notification. At most
// one of Error/Complete is delivered, after which no further callbacks occur.
type Subscriber struct {
	Next     func(value any)
	Error    func(err error)
	Complete func()
}

// Subscription is the handle returned by Stream.Subscribe. Unsubscribe is
// idempotent; after it returns no further callbacks are delivered. Closed
// reports whether the subscription has been released, either explicitly or by
// stream completion.
type Subscription interface {
	Unsubscribe()
	Closed() bool
}

// Stream is the minimal observable contract the binding layer depends on:
// push-based, synchronous delivery to subscribers in subscription order.
// Concrete sources live in the stream package; effects may also return any
// third-party value satisfying this interface.
type Stream interface {
	Subscribe(sub Subscriber) Subscription
}

// Notifier is a Stream that can be signalled. Each effect metadata entry owns
// one, created at registration time; notifying it forces a change-detection
// pass for every connected host driving that effect.
type Notifier interface {
	Stream
	Notify()
}

// TeardownScope collects cancelable resources on behalf of one host instance.
// The aggregate scope owned by the binder implements it; the invocation
// engine registers every per-effect subscription and teardown through this
// interface so cancellation order stays centralized.
type TeardownScope interface {
	Add(sub Subscription)
	AddFunc(fn TeardownFunc)
}

// RenderGate exposes the render-timing state machine consumed by the
// initialization coordinator. Rendered returns the single-shot memoized
// stream that fires once the host's view has committed; Fired reports whether
// the commit already happened.
type RenderGate interface {
	Rendered() Stream
	Fired() bool
}
