package core

import (
	"reflect"

	"github.com/hupe1980/statefx/logging"
)

// EffectFunc is the canonical effect shape: it receives the host's reactive
// state view and returns a value that the invocation engine classifies into a
// binding write, a stream subscription, a teardown registration, or nothing.
type EffectFunc func(s State) any

// Handler intercepts values emitted by an effect instead of letting the
// engine write them to the host. When a handler is configured the engine
// forwards every emitted value together with the effect's options and
// performs no binding write; the handler bears all further responsibility
// (for example dispatching into an external store).
type Handler interface {
	Next(value any, opts EffectOptions)
}

// EffectOptions is the immutable configuration record attached to one
// declared effect.
//
// Bind names the host property the effect's result is written to. Apply
// switches to whole-object binding: every key of an emitted object is written
// onto the matching host property. Bind and Apply are mutually exclusive;
// setting both is a configuration error surfaced at resolution time. With
// neither set, non-strict resolution falls back to a host property named
// like the effect, else the effect is a pure side effect.
//
// MarkDirty requests a batched change-detection check after each successful
// write; DetectChanges requests a synchronous one instead. At most one of
// the two is meaningful at a time. WhenRendered defers the first invocation
// until the host's view has committed once. Adapter installs a Handler.
type EffectOptions struct {
	Bind          string
	Apply         bool
	MarkDirty     bool
	DetectChanges bool
	WhenRendered  bool
	Adapter       Handler
}

// BindingKind is the finalized binding mode of a resolved effect.
type BindingKind int

const (
	// BindNone marks a side-effect-only entry: emitted values are observed,
	// nothing is written.
	BindNone BindingKind = iota
	// BindProperty writes each emitted value to one named host property.
	BindProperty
	// BindObject writes every key of an emitted object onto the matching
	// host property (whole-object binding).
	BindObject
)

// String returns a short human readable form for logs and errors.
func (k BindingKind) String() string {
	switch k {
	case BindProperty:
		return "property"
	case BindObject:
		return "object"
	default:
		return "none"
	}
}

// EffectMetadata describes one declared effect method. Entries are created at
// registration time, immutable thereafter, and shared read-only across all
// instances of the declaring type. Exactly one of Func/Method is set: Func
// for explicit function registration, Method for method-backed registration
// (unbound, owned by the declaring type).
type EffectMetadata struct {
	ID        string
	Declaring reflect.Type
	Name      string
	Func      EffectFunc
	Method    reflect.Method
	Options   EffectOptions
	Notifier  Notifier
}

// Bind materializes the effect callable for one owner instance. For
// method-backed entries the owner must be assignable to the declaring type;
// the returned closure adapts the supported method shapes (optional State
// parameter, optional result) onto EffectFunc.
func (m *EffectMetadata) Bind(owner any) (EffectFunc, error) {
	if m.Func != nil {
		return m.Func, nil
	}
	if !m.Method.Func.IsValid() {
		return nil, &ConfigError{Declaring: typeName(m.Declaring), Effect: m.Name, Reason: "effect has no callable"}
	}

	fn := m.Method.Func
	mt := fn.Type()

	ov := reflect.ValueOf(owner)
	if owner == nil || !ov.IsValid() {
		return nil, &ConfigError{Declaring: typeName(m.Declaring), Effect: m.Name, Reason: "owner must not be nil"}
	}
	if !ov.Type().AssignableTo(mt.In(0)) {
		return nil, &ConfigError{Declaring: typeName(m.Declaring), Effect: m.Name, Reason: "owner type " + ov.Type().String() + " does not match declaring type"}
	}

	wantsState := mt.NumIn() == 2
	hasResult := mt.NumOut() == 1

	return func(s State) any {
		args := make([]reflect.Value, 1, 2)
		args[0] = ov
		if wantsState {
			if s == nil {
				args = append(args, reflect.Zero(mt.In(1)))
			} else {
				args = append(args, reflect.ValueOf(s))
			}
		}
		out := fn.Call(args)
		if hasResult {
			return out[0].Interface()
		}
		return nil
	}, nil
}

// ResolvedEffect pairs one metadata entry with its finalized binding target
// for a specific host. Err carries a per-entry configuration error; the
// coordinator reports it and skips only that entry, siblings run normally.
type ResolvedEffect struct {
	Metadata *EffectMetadata
	Kind     BindingKind
	Target   string
	Err      error
}

// InitEffectArgs is the complete invocation context for one effect run:
// the bound effect function, the host and its identity, the finalized
// binding, the configured options, the change-detection handle, the state
// views, the shared per-instance teardown scope, the render gate, the
// optional handler and the per-entry notifier. Constructed per invocation,
// not retained.
type InitEffectArgs struct {
	Name     string
	Effect   EffectFunc
	Host     any
	Ref      HostRef
	Kind     BindingKind
	Target   string
	Options  EffectOptions
	Detector ChangeDetector
	State    State
	Writer   StateWriter
	Scope    TeardownScope
	Gate     RenderGate
	Handler  Handler
	Notifier Notifier
	Logger   logging.Logger
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
