package core

import (
	"errors"
	"fmt"
)

// Misuse errors surface synchronously at the call site. The binding layer
// assumes a single well-ordered Connect per host instance and does not defend
// against reentry beyond reporting these.
var (
	// ErrAlreadyConnected is returned when Connect is called twice for the
	// same live host instance.
	ErrAlreadyConnected = errors.New("host already connected")

	// ErrNilHost is returned when Connect or Project receives a nil host.
	ErrNilHost = errors.New("host must not be nil")

	// ErrNoBindableProperties is returned when a host exposes neither an
	// explicit property list nor any exported settable struct field.
	ErrNoBindableProperties = errors.New("host has no bindable properties")

	// ErrEffectNotFound is returned when registration names a method the
	// declaring type does not have.
	ErrEffectNotFound = errors.New("effect method not found")
)

// ConfigError reports an invalid effect declaration, detected at
// registration or resolution time. It aborts initialization of the offending
// effect only; sibling effects proceed.
type ConfigError struct {
	Declaring string
	Effect    string
	Reason    string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid effect configuration %s.%s: %s", e.Declaring, e.Effect, e.Reason)
}

// BindingError reports a failed binding write: the target property is absent,
// a whole-object binding received a non-object, or the emitted value cannot
// be assigned to the property. Binding errors flow to the configured
// ErrorHandler and never stop sibling effects or crash the host.
type BindingError struct {
	Target string
	Value  any
	Reason string
}

// Error implements the error interface.
func (e *BindingError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("binding write failed: %s", e.Reason)
	}
	return fmt.Sprintf("binding write to %q failed: %s", e.Target, e.Reason)
}

// StreamError wraps an error delivered asynchronously by an effect's
// upstream stream. The engine forwards it to the ErrorHandler and closes only
// that effect's subscription.
type StreamError struct {
	Effect string
	Err    error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	return fmt.Sprintf("effect %q stream error: %v", e.Effect, e.Err)
}

// Unwrap exposes the upstream error for errors.Is/As chains.
func (e *StreamError) Unwrap() error { return e.Err }

// ErrorHandler is the global error channel for asynchronously detected
// failures (binding errors, upstream stream errors). Implementations must not
// panic; they are invoked from inside subscriber callbacks.
type ErrorHandler interface {
	HandleError(err error)
}

// ErrorHandlerFunc adapts a plain function to the ErrorHandler interface.
type ErrorHandlerFunc func(err error)

// HandleError invokes the wrapped function.
func (f ErrorHandlerFunc) HandleError(err error) { f(err) }
