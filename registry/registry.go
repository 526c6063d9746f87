package registry

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/hupe1980/statefx/core"
	"github.com/hupe1980/statefx/logging"
	"github.com/hupe1980/statefx/stream"
)

// Options configures a Registry.
type Options struct {
	// Logger used for registration diagnostics (defaults to NoOpLogger).
	Logger logging.Logger
}

// Registry is the process-wide effect metadata table. Writes happen at
// declaration time, reads at every host instantiation; the table is guarded
// for many concurrent Resolve calls against occasional registration.
type Registry struct {
	mu      sync.RWMutex
	classes map[reflect.Type]*classEntry
	logger  logging.Logger
}

type classEntry struct {
	order   []string
	effects map[string]*core.EffectMetadata
}

// New creates an empty registry.
func New(optFns ...func(o *Options)) *Registry {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		classes: make(map[reflect.Type]*classEntry),
		logger:  logging.OrNoOp(opts.Logger),
	}
}

// WithLogger sets the registry logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// RegisterClass marks a type as an effect declaring class, even before (or
// without) any effect registration. Registration order of classes is not
// significant; effect order within a class is.
func (r *Registry) RegisterClass(declaring any) error {
	t, err := declaringType(declaring)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entryLocked(t)
	return nil
}

// RegisterEffect stores one effect metadata entry for a method of the
// declaring type, keyed by type and method name. Repeated registration for
// the same method overwrites the entry in place, keeping its original
// declaration position. The method must exist on the declaring type and use
// a supported shape: optional core.State parameter, optional single result.
func (r *Registry) RegisterEffect(declaring any, method string, opts core.EffectOptions) error {
	t, err := declaringType(declaring)
	if err != nil {
		return err
	}

	m, ok := t.MethodByName(method)
	if !ok {
		return fmt.Errorf("%w: %s has no method %q", core.ErrEffectNotFound, t, method)
	}
	if reason := validateSignature(m.Func.Type()); reason != "" {
		return &core.ConfigError{Declaring: t.String(), Effect: method, Reason: reason}
	}

	meta := &core.EffectMetadata{
		ID:        core.NewID(),
		Declaring: t,
		Name:      method,
		Method:    m,
		Options:   opts,
		Notifier:  stream.NewSource(),
	}
	r.store(t, meta)
	return nil
}

// RegisterEffectFunc stores an explicit-function effect under the given
// name, for declarations that are not methods (builder-style registration).
// Keying and overwrite rules match RegisterEffect.
func (r *Registry) RegisterEffectFunc(declaring any, name string, fn core.EffectFunc, opts core.EffectOptions) error {
	t, err := declaringType(declaring)
	if err != nil {
		return err
	}
	if name == "" {
		return &core.ConfigError{Declaring: t.String(), Effect: name, Reason: "effect name must not be empty"}
	}
	if fn == nil {
		return &core.ConfigError{Declaring: t.String(), Effect: name, Reason: "effect function must not be nil"}
	}

	meta := &core.EffectMetadata{
		ID:        core.NewID(),
		Declaring: t,
		Name:      name,
		Func:      fn,
		Options:   opts,
		Notifier:  stream.NewSource(),
	}
	r.store(t, meta)
	return nil
}

func (r *Registry) store(t reflect.Type, meta *core.EffectMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.entryLocked(t)
	if _, exists := entry.effects[meta.Name]; !exists {
		entry.order = append(entry.order, meta.Name)
	}
	entry.effects[meta.Name] = meta

	r.logger.Debug("effect registered declaring=%s effect=%s", t, meta.Name)
}

func (r *Registry) entryLocked(t reflect.Type) *classEntry {
	entry, ok := r.classes[t]
	if !ok {
		entry = &classEntry{effects: make(map[string]*core.EffectMetadata)}
		r.classes[t] = entry
	}
	return entry
}

// Effects returns the metadata entries declared for the given type, in
// declaration order. The returned slice is a copy; the entries themselves
// are shared and immutable.
func (r *Registry) Effects(declaring any) []*core.EffectMetadata {
	t, err := declaringType(declaring)
	if err != nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.classes[t]
	if !ok {
		return nil
	}
	out := make([]*core.EffectMetadata, 0, len(entry.order))
	for _, name := range entry.order {
		out = append(out, entry.effects[name])
	}
	return out
}

// Known reports whether the type has been registered, via RegisterClass or
// any effect registration.
func (r *Registry) Known(declaring any) bool {
	t, err := declaringType(declaring)
	if err != nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.classes[t]
	return ok
}

// Resolve returns the effect entries applicable to a host of the declaring
// type, in declaration order, each with its binding target finalized:
//
//   - Bind set: bind to that property
//   - Apply set: whole-object binding
//   - neither, non-strict, and props owns a property named like the effect:
//     implicit binding to that name
//   - otherwise: side effect only
//
// An entry with Bind and Apply both set carries a configuration error in its
// Err field; callers report it and skip that entry only.
func (r *Registry) Resolve(declaring any, props core.PropertySet, strict bool) []core.ResolvedEffect {
	metas := r.Effects(declaring)
	if len(metas) == 0 {
		return nil
	}

	resolved := make([]core.ResolvedEffect, 0, len(metas))
	for _, meta := range metas {
		resolved = append(resolved, resolveOne(meta, props, strict))
	}
	return resolved
}

func resolveOne(meta *core.EffectMetadata, props core.PropertySet, strict bool) core.ResolvedEffect {
	opts := meta.Options
	switch {
	case opts.Bind != "" && opts.Apply:
		return core.ResolvedEffect{Metadata: meta, Err: &core.ConfigError{
			Declaring: meta.Declaring.String(),
			Effect:    meta.Name,
			Reason:    "bind and apply are mutually exclusive",
		}}
	case opts.Bind != "":
		return core.ResolvedEffect{Metadata: meta, Kind: core.BindProperty, Target: opts.Bind}
	case opts.Apply:
		return core.ResolvedEffect{Metadata: meta, Kind: core.BindObject}
	case !strict && props != nil && props.Has(meta.Name):
		return core.ResolvedEffect{Metadata: meta, Kind: core.BindProperty, Target: meta.Name}
	default:
		return core.ResolvedEffect{Metadata: meta, Kind: core.BindNone}
	}
}

// declaringType normalizes the declaring argument: a reflect.Type is used
// as-is, anything else contributes its dynamic type.
func declaringType(declaring any) (reflect.Type, error) {
	if declaring == nil {
		return nil, fmt.Errorf("declaring type must not be nil")
	}
	if t, ok := declaring.(reflect.Type); ok {
		return t, nil
	}
	return reflect.TypeOf(declaring), nil
}

var stateType = reflect.TypeOf((*core.State)(nil)).Elem()

// validateSignature checks an unbound effect method type: receiver plus an
// optional core.State parameter, and at most one result. Returns the
// rejection reason, or an empty string when supported.
func validateSignature(mt reflect.Type) string {
	switch mt.NumIn() {
	case 1:
	case 2:
		if mt.In(1) != stateType {
			return fmt.Sprintf("parameter must be core.State, got %s", mt.In(1))
		}
	default:
		return fmt.Sprintf("too many parameters (%d)", mt.NumIn()-1)
	}

	if mt.NumOut() > 1 {
		return fmt.Sprintf("too many results (%d)", mt.NumOut())
	}
	return ""
}
