package state

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/hupe1980/statefx/core"
	"github.com/hupe1980/statefx/internal/util"
	"github.com/hupe1980/statefx/stream"
)

// accessor abstracts the storage behind one projected property.
type accessor interface {
	load() any
	store(v any) error
}

// fieldAccessor backs a property with an addressable struct field. Loads and
// stores hit the field directly, keeping the projection a view of the host
// rather than a copy.
type fieldAccessor struct {
	name  string
	field reflect.Value
}

func (a *fieldAccessor) load() any {
	return a.field.Interface()
}

func (a *fieldAccessor) store(v any) error {
	if err := util.Assign(a.name, a.field, v); err != nil {
		return &core.BindingError{Target: a.name, Value: v, Reason: err.Error()}
	}
	return nil
}

// hostAccessor backs a property with the host's PropertyGetter/PropertySetter
// implementation, for hosts whose properties are not plain struct fields.
type hostAccessor struct {
	name   string
	getter core.PropertyGetter
	setter core.PropertySetter
}

func (a *hostAccessor) load() any {
	v, _ := a.getter.GetProperty(a.name)
	return v
}

func (a *hostAccessor) store(v any) error {
	if a.setter == nil {
		return &core.BindingError{Target: a.name, Value: v, Reason: "host does not implement PropertySetter"}
	}
	if err := a.setter.SetProperty(a.name, v); err != nil {
		return &core.BindingError{Target: a.name, Value: v, Reason: fmt.Sprintf("host setter rejected the value: %v", err)}
	}
	return nil
}

// Cell is the reactive view of one host property: synchronous reads, writes
// through the host's storage, and streams of subsequent values.
type Cell struct {
	name   string
	acc    accessor
	source *stream.Source
	proj   *Projection
}

// Name returns the property name.
func (c *Cell) Name() string { return c.name }

// Get returns the current property value, read live from the host.
func (c *Cell) Get() any {
	c.proj.tracker.recordRead(c.name)
	return c.acc.load()
}

// Set writes the property through the host's storage, then notifies
// subscribers synchronously in subscription order. On failure the host is
// untouched and nothing is notified.
func (c *Cell) Set(v any) error {
	if err := c.acc.store(v); err != nil {
		return err
	}
	c.proj.tracker.recordWrite(c.name)
	c.source.Next(v)
	return nil
}

// Watch returns the stream of values written after subscription.
func (c *Cell) Watch() core.Stream { return c.source }

// Observe returns a stream that replays the current value to each new
// subscriber, then delivers subsequent writes.
func (c *Cell) Observe() core.Stream { return observeStream{cell: c} }

// Changes returns the change stream of the cell's current value for values
// implementing core.ChangeEmitter, re-delegating whenever the property is
// reassigned. For other values the stream stays open and silent.
func (c *Cell) Changes() core.Stream { return changesStream{cell: c} }

type observeStream struct {
	cell *Cell
}

func (o observeStream) Subscribe(sub core.Subscriber) core.Subscription {
	if sub.Next != nil {
		sub.Next(o.cell.Get())
	}
	return o.cell.source.Subscribe(sub)
}

type changesStream struct {
	cell *Cell
}

func (s changesStream) Subscribe(sub core.Subscriber) core.Subscription {
	cs := &changesSub{sub: sub}
	cs.attach(s.cell.acc.load())
	cs.outer = s.cell.source.Subscribe(core.Subscriber{
		Next: func(v any) { cs.attach(v) },
		Complete: func() {
			cs.Unsubscribe()
		},
	})
	return cs
}

// changesSub follows the ChangeEmitter of the cell's current value,
// detaching from the previous value's emitter on every reassignment.
type changesSub struct {
	mu     sync.Mutex
	sub    core.Subscriber
	inner  core.Subscription
	outer  core.Subscription
	closed bool
}

func (cs *changesSub) attach(v any) {
	emitter, ok := v.(core.ChangeEmitter)

	cs.mu.Lock()
	if cs.closed {
		cs.mu.Unlock()
		return
	}
	prev := cs.inner
	cs.inner = nil
	cs.mu.Unlock()

	if prev != nil {
		prev.Unsubscribe()
	}
	if !ok || emitter == nil {
		return
	}

	inner := emitter.Changes().Subscribe(core.Subscriber{
		Next: func(v any) {
			if cs.sub.Next != nil {
				cs.sub.Next(v)
			}
		},
		Error: func(err error) {
			if cs.sub.Error != nil {
				cs.sub.Error(err)
			}
		},
	})

	cs.mu.Lock()
	if cs.closed {
		cs.mu.Unlock()
		inner.Unsubscribe()
		return
	}
	cs.inner = inner
	cs.mu.Unlock()
}

func (cs *changesSub) Unsubscribe() {
	cs.mu.Lock()
	if cs.closed {
		cs.mu.Unlock()
		return
	}
	cs.closed = true
	inner, outer := cs.inner, cs.outer
	cs.inner, cs.outer = nil, nil
	cs.mu.Unlock()

	if inner != nil {
		inner.Unsubscribe()
	}
	if outer != nil {
		outer.Unsubscribe()
	}
}

func (cs *changesSub) Closed() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.closed
}
