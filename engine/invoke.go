package engine

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/hupe1980/statefx/core"
	"github.com/hupe1980/statefx/internal/util"
	"github.com/hupe1980/statefx/stream"
)

// invoke runs one effect and classifies its result. Panics raised by the
// effect function itself are not recovered; effects are user-authored and
// their synchronous failures belong to the caller.
func (b *Binder) invoke(args core.InitEffectArgs) {
	hookCtx := &HookContext{
		Ref:    args.Ref,
		Host:   args.Host,
		Effect: args.Name,
		Kind:   args.Kind,
		Target: args.Target,
	}

	hookCtx.HookType = HookBeforeEffect
	if err := b.hooks.ExecuteHooks(HookBeforeEffect, hookCtx); err != nil {
		b.errors.HandleError(err)
		return
	}

	start := time.Now()
	result := args.Effect(args.State)
	b.adopt(args, result)

	args.Logger.Debug("effect invoked effect=%s host_id=%s binding=%s duration=%s",
		args.Name, args.Ref.ID, args.Kind, time.Since(start))

	hookCtx.HookType = HookAfterEffect
	if err := b.hooks.ExecuteHooks(HookAfterEffect, hookCtx); err != nil {
		b.errors.HandleError(err)
	}
}

// adopt registers an effect result with the connection according to its
// shape:
//
//   - nil: completed resourceless side effect, nothing registered
//   - teardown function: registered with the aggregate scope, runs exactly
//     once on cancellation
//   - subscription: adopted into the aggregate scope as-is
//   - stream: subscribed; each emitted value is applied as a binding write
//   - receive-capable channel: adapted into a stream; the pump stops when
//     the channel closes or the scope cancels
//   - anything else: one immediate binding write, no ongoing subscription
func (b *Binder) adopt(args core.InitEffectArgs, result any) {
	switch v := result.(type) {
	case nil:
		return
	case core.TeardownFunc:
		args.Scope.AddFunc(v)
	case func():
		args.Scope.AddFunc(v)
	case core.Subscription:
		args.Scope.Add(v)
	case core.Stream:
		args.Scope.Add(b.subscribeStream(args, v))
	default:
		if reflect.ValueOf(result).Kind() == reflect.Chan {
			src, stop, err := stream.FromChannel(result)
			if err != nil {
				b.errors.HandleError(err)
				return
			}
			args.Scope.Add(b.subscribeStream(args, src))
			args.Scope.AddFunc(stop)
			return
		}
		b.applyValue(args, result)
	}
}

// subscribeStream attaches the binding pipeline to a stream-shaped effect
// result. An upstream error is forwarded to the error handler and closes
// only this effect's subscription; sibling effects keep running.
func (b *Binder) subscribeStream(args core.InitEffectArgs, src core.Stream) core.Subscription {
	var sub core.Subscription
	sub = src.Subscribe(core.Subscriber{
		Next: func(value any) {
			b.applyValue(args, value)
		},
		Error: func(err error) {
			b.errors.HandleError(&core.StreamError{Effect: args.Name, Err: err})
			if sub != nil {
				sub.Unsubscribe()
			}
		},
	})
	return sub
}

// applyValue applies one emitted value per the resolved binding. A
// configured handler intercepts the value instead of any host write; a
// named target writes that property; a whole-object target fans the value
// out key by key; no target observes the value for its side effect only.
// Change detection is requested only after at least one successful write.
func (b *Binder) applyValue(args core.InitEffectArgs, value any) {
	if args.Handler != nil {
		args.Handler.Next(value, args.Options)
		return
	}

	var wrote bool
	switch args.Kind {
	case core.BindProperty:
		wrote = b.writeProperty(args, args.Target, value)
	case core.BindObject:
		wrote = b.writeObject(args, value)
	default:
		return
	}

	if wrote {
		b.requestCheck(args)
	}
}

// writeProperty performs one binding write. Failures go to the error
// handler; the host stays untouched.
func (b *Binder) writeProperty(args core.InitEffectArgs, name string, value any) bool {
	if err := args.Writer.Set(name, value); err != nil {
		b.errors.HandleError(err)
		return false
	}
	args.Logger.Debug("binding write property=%s effect=%s", name, args.Name)
	return true
}

// writeObject fans a whole-object emission out onto the host, one write per
// key. An unknown key is a binding error for that key only; the remaining
// keys still apply.
func (b *Binder) writeObject(args core.InitEffectArgs, value any) bool {
	entries, err := objectEntries(value)
	if err != nil {
		b.errors.HandleError(err)
		return false
	}

	wrote := false
	for _, entry := range entries {
		if b.writeProperty(args, entry.name, entry.value) {
			wrote = true
		}
	}
	return wrote
}

// requestCheck asks the change detector for a pass after a successful write:
// synchronous under DetectChanges, batched under MarkDirty, none otherwise.
func (b *Binder) requestCheck(args core.InitEffectArgs) {
	if args.Detector == nil {
		return
	}
	switch {
	case args.Options.DetectChanges:
		args.Detector.CheckNow(args.Ref)
	case args.Options.MarkDirty:
		args.Detector.ScheduleCheck(args.Ref)
	}
}

// forceCheck runs on a notifier signal: the entry demands a pass whether or
// not a write happened, synchronous under DetectChanges, batched otherwise.
func (b *Binder) forceCheck(args core.InitEffectArgs) {
	if args.Detector == nil {
		return
	}
	if args.Options.DetectChanges {
		args.Detector.CheckNow(args.Ref)
	} else {
		args.Detector.ScheduleCheck(args.Ref)
	}
}

type objectEntry struct {
	name  string
	value any
}

// objectEntries flattens a whole-object emission into name/value pairs.
// String-keyed maps and structs (or struct pointers) qualify; map entries
// are sorted by key so write order stays deterministic, struct fields apply
// in declaration order honoring the `state` tag.
func objectEntries(value any) ([]objectEntry, error) {
	if value == nil {
		return nil, &core.BindingError{Value: value, Reason: "whole-object binding requires a map or struct, got nil"}
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Map {
		if rv.Type().Key().Kind() != reflect.String {
			return nil, &core.BindingError{
				Value:  value,
				Reason: fmt.Sprintf("whole-object binding requires string keys, got %s", rv.Type().Key()),
			}
		}
		entries := make([]objectEntry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries = append(entries, objectEntry{name: iter.Key().String(), value: iter.Value().Interface()})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
		return entries, nil
	}

	fields, err := util.ReadableFields(value)
	if err != nil {
		return nil, &core.BindingError{
			Value:  value,
			Reason: fmt.Sprintf("whole-object binding requires a map or struct, got %T", value),
		}
	}
	entries := make([]objectEntry, 0, len(fields))
	for _, f := range fields {
		entries = append(entries, objectEntry{name: f.Name, value: f.Value.Interface()})
	}
	return entries, nil
}
