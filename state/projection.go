package state

import (
	"fmt"

	"github.com/hupe1980/statefx/core"
	"github.com/hupe1980/statefx/internal/util"
	"github.com/hupe1980/statefx/logging"
	"github.com/hupe1980/statefx/stream"
)

// ProjectOptions configures projection construction.
type ProjectOptions struct {
	// Properties overrides property discovery with an explicit list. Order
	// is preserved. When empty, discovery uses core.PropertyLister if the
	// host implements it, else exported settable struct fields.
	Properties []string

	// Logger used for debug output (defaults to NoOpLogger).
	Logger logging.Logger
}

// WithProperties overrides property discovery with an explicit list.
func WithProperties(names ...string) func(o *ProjectOptions) {
	return func(o *ProjectOptions) { o.Properties = names }
}

// WithLogger sets the projection logger.
func WithLogger(l logging.Logger) func(o *ProjectOptions) {
	return func(o *ProjectOptions) { o.Logger = l }
}

// Projection is the live reactive view of one host instance. It implements
// core.State (read surface), core.StateWriter (write surface, used by the
// invocation engine) and core.PropertySet (binding resolution).
type Projection struct {
	host    any
	order   []string
	cells   map[string]*Cell
	tracker *accessTracker
	logger  logging.Logger
}

// Project builds the reactive projection of host. Properties are discovered
// at call time, each backed by a cell over the host's own storage:
//
//   - explicit list (options or core.PropertyLister): backed by struct
//     fields when present, else by core.PropertyGetter/PropertySetter
//   - otherwise: every exported settable struct field, in declaration order
//
// Properties added to the host afterwards are not visible; each cell's value
// stays live. A nil host is rejected with core.ErrNilHost, a host without
// any bindable property with core.ErrNoBindableProperties.
func Project(host any, optFns ...func(o *ProjectOptions)) (*Projection, error) {
	if host == nil {
		return nil, core.ErrNilHost
	}

	opts := ProjectOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	p := &Projection{
		host:    host,
		cells:   make(map[string]*Cell),
		tracker: newAccessTracker(),
		logger:  logging.OrNoOp(opts.Logger),
	}

	names := opts.Properties
	if len(names) == 0 {
		if lister, ok := host.(core.PropertyLister); ok {
			names = lister.ObservableProperties()
		}
	}

	if len(names) > 0 {
		if err := p.buildListed(names); err != nil {
			return nil, err
		}
	} else {
		if err := p.buildFromFields(); err != nil {
			return nil, err
		}
	}

	if len(p.order) == 0 {
		return nil, core.ErrNoBindableProperties
	}

	p.logger.Debug("projection built properties=%d", len(p.order))
	return p, nil
}

// buildFromFields discovers properties via struct-field reflection.
func (p *Projection) buildFromFields() error {
	fields, err := util.BindableFields(p.host)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrNoBindableProperties, err)
	}
	for _, f := range fields {
		p.addCell(f.Name, &fieldAccessor{name: f.Name, field: f.Value})
	}
	return nil
}

// buildListed wires an explicit property list, preferring struct fields and
// falling back to the host's getter/setter interfaces.
func (p *Projection) buildListed(names []string) error {
	byName := map[string]*fieldAccessor{}
	if fields, err := util.BindableFields(p.host); err == nil {
		for _, f := range fields {
			byName[f.Name] = &fieldAccessor{name: f.Name, field: f.Value}
		}
	}
	getter, _ := p.host.(core.PropertyGetter)
	setter, _ := p.host.(core.PropertySetter)

	for _, name := range names {
		if _, dup := p.cells[name]; dup {
			return fmt.Errorf("duplicate property %q in projection list", name)
		}
		if fa, ok := byName[name]; ok {
			p.addCell(name, fa)
			continue
		}
		if getter == nil {
			return fmt.Errorf("property %q has no backing field and host does not implement PropertyGetter", name)
		}
		p.addCell(name, &hostAccessor{name: name, getter: getter, setter: setter})
	}
	return nil
}

func (p *Projection) addCell(name string, acc accessor) {
	c := &Cell{name: name, acc: acc, source: stream.NewSource(), proj: p}
	p.cells[name] = c
	p.order = append(p.order, name)
}

// Host returns the projected host instance.
func (p *Projection) Host() any { return p.host }

// Properties lists the projected property names in declaration order.
func (p *Projection) Properties() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Has reports whether the projection owns the named property.
func (p *Projection) Has(name string) bool {
	_, ok := p.cells[name]
	return ok
}

// Cell returns the reactive cell backing the named property.
func (p *Projection) Cell(name string) (*Cell, bool) {
	c, ok := p.cells[name]
	return c, ok
}

// Get returns the current value of the named property.
func (p *Projection) Get(name string) (any, bool) {
	c, ok := p.cells[name]
	if !ok {
		return nil, false
	}
	return c.Get(), true
}

// Set writes the named property through the host's own storage and notifies
// cell subscribers synchronously, in subscription order. Unknown properties
// and unassignable values yield a *core.BindingError and leave the host
// untouched.
func (p *Projection) Set(name string, value any) error {
	c, ok := p.cells[name]
	if !ok {
		return &core.BindingError{Target: name, Value: value, Reason: "host does not own the property"}
	}
	return c.Set(value)
}

// Watch returns the stream of values written to the named property after
// subscription. Unknown properties yield an already-completed stream.
func (p *Projection) Watch(name string) core.Stream {
	c, ok := p.cells[name]
	if !ok {
		return stream.Completed()
	}
	return c.Watch()
}

// Observe behaves like Watch but replays the current value first.
func (p *Projection) Observe(name string) core.Stream {
	c, ok := p.cells[name]
	if !ok {
		return stream.Completed()
	}
	return c.Observe()
}

// Changes returns the delegated change stream of the property's current
// value (see Cell.Changes). Unknown properties yield an already-completed
// stream.
func (p *Projection) Changes(name string) core.Stream {
	c, ok := p.cells[name]
	if !ok {
		return stream.Completed()
	}
	return c.Changes()
}

// Track runs fn and returns which properties it read and wrote, in
// first-access order. Frames are keyed by goroutine, so concurrently running
// effects do not bleed into each other's records; nested Track calls stack.
func (p *Projection) Track(fn func()) core.AccessRecord {
	return p.tracker.track(fn)
}

// Close completes every cell stream. Called on host destruction so external
// watchers observe an orderly end of the property streams.
func (p *Projection) Close() {
	for _, name := range p.order {
		p.cells[name].source.Complete()
	}
}
