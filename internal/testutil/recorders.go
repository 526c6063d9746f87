package testutil

import (
	"sync"

	"github.com/hupe1980/statefx/core"
)

// ErrorRecorder is a core.ErrorHandler that captures every reported error.
type ErrorRecorder struct {
	mu   sync.Mutex
	errs []error
}

// NewErrorRecorder creates an empty error recorder.
func NewErrorRecorder() *ErrorRecorder { return &ErrorRecorder{} }

// HandleError records the error.
func (r *ErrorRecorder) HandleError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

// Errors returns a copy of all recorded errors in arrival order.
func (r *ErrorRecorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]error, len(r.errs))
	copy(out, r.errs)
	return out
}

// Count returns how many errors were recorded.
func (r *ErrorRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

// HandledValue pairs one intercepted emission with the options it arrived
// under.
type HandledValue struct {
	Value   any
	Options core.EffectOptions
}

// HandlerRecorder is a core.Handler that captures every intercepted value
// together with the effect options passed alongside it.
type HandlerRecorder struct {
	mu     sync.Mutex
	values []HandledValue
}

// NewHandlerRecorder creates an empty handler recorder.
func NewHandlerRecorder() *HandlerRecorder { return &HandlerRecorder{} }

// Next records the emission.
func (h *HandlerRecorder) Next(value any, opts core.EffectOptions) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.values = append(h.values, HandledValue{Value: value, Options: opts})
}

// Values returns a copy of all intercepted emissions in arrival order.
func (h *HandlerRecorder) Values() []HandledValue {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HandledValue, len(h.values))
	copy(out, h.values)
	return out
}

// Count returns how many emissions were intercepted.
func (h *HandlerRecorder) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.values)
}

// Collector accumulates stream deliveries for assertions. Its Subscriber
// method builds the core.Subscriber to pass into Stream.Subscribe.
type Collector struct {
	mu        sync.Mutex
	values    []any
	errs      []error
	completed bool
}

// NewCollector creates an empty collector.
func NewCollector() *Collector { return &Collector{} }

// Subscriber returns callbacks that record into the collector.
func (c *Collector) Subscriber() core.Subscriber {
	return core.Subscriber{
		Next: func(v any) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.values = append(c.values, v)
		},
		Error: func(err error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.errs = append(c.errs, err)
		},
		Complete: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.completed = true
		},
	}
}

// Values returns a copy of all delivered values in arrival order.
func (c *Collector) Values() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.values))
	copy(out, c.values)
	return out
}

// Errors returns a copy of all delivered errors.
func (c *Collector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.errs))
	copy(out, c.errs)
	return out
}

// Completed reports whether the completion callback fired.
func (c *Collector) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}
