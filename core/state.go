package core

// State is the read surface of a host's reactive projection, passed to every
// effect function. It exposes the current value of each projected property,
// streams of subsequent values, and derived change streams. The property set
// is fixed when the projection is built; reading a projected property never
// diverges from reading the underlying host property at the same logical
// time.
type State interface {
	// Get returns the current value of the named property. The second result
	// is false when the property is not part of the projection.
	Get(name string) (any, bool)

	// Watch returns a stream of values written to the named property after
	// the subscription is made. Watching an unknown property returns an
	// already-completed stream.
	Watch(name string) Stream

	// Observe behaves like Watch but replays the current value to each new
	// subscriber immediately before subsequent writes.
	Observe(name string) Stream

	// Changes returns the change stream of the property's current value for
	// values implementing ChangeEmitter, re-delegating whenever the property
	// is reassigned. For other values it returns an empty, open stream.
	Changes(name string) Stream

	// Properties lists the projected property names in declaration order.
	Properties() []string
}

// StateWriter is the write surface of a projection, used by the invocation
// engine when applying a binding. Writes go through the host's own storage
// and notify cell subscribers synchronously, in subscription order.
type StateWriter interface {
	Set(name string, value any) error
	Has(name string) bool
}

// PropertySet answers membership queries during binding resolution. The
// projection implements it; a nil PropertySet disables implicit name-match
// binding.
type PropertySet interface {
	Has(name string) bool
}

// AccessRecord captures which properties an effect read and wrote during a
// tracked frame, in first-access order.
type AccessRecord struct {
	Reads  []string
	Writes []string
}

// PropertyLister lets a host declare its observable properties explicitly
// instead of relying on struct-field reflection. The returned order is the
// projection order.
type PropertyLister interface {
	ObservableProperties() []string
}

// PropertyGetter lets a host serve property reads itself, for hosts whose
// properties are not plain struct fields.
type PropertyGetter interface {
	GetProperty(name string) (any, bool)
}

// PropertySetter lets a host intercept property writes, for hosts with
// derived or validated setters. When implemented it is used for every
// binding write in place of direct field assignment.
type PropertySetter interface {
	SetProperty(name string, value any) error
}

// ChangeEmitter marks property values that expose their own change stream.
// The projection's Changes view delegates to it.
type ChangeEmitter interface {
	Changes() Stream
}

// DestroyNotifier is implemented by hosts that surface a destroy
// notification, typically by embedding host.Base. The binder registers the
// connection's Destroy with it so framework-driven teardown needs no extra
// wiring.
type DestroyNotifier interface {
	OnDestroy(fn func())
}
