// Package engine implements the binding coordinator for statefx.
//
// The Binder is the central piece that turns declared effect metadata into
// live behavior on host instances. It bridges the gap between declaration
// time (effects registered against a type) and instance time (a concrete
// host connecting into the reactive layer), providing a single, ordered
// initialization path for every effect a host declares.
//
// # Core Responsibilities
//
// Connection Management:
//   - One Connect per live host instance, guarded against double connects
//   - Projection construction over the host's observable properties
//   - Aggregate teardown scope and render gate owned per connection
//
// Effect Coordination:
//   - Resolution of effect metadata in declaration order, host first,
//     then attached providers
//   - Per-entry configuration errors reported and skipped without
//     aborting sibling effects
//   - Render-gated effects deferred behind the connection's gate
//
// Value Dispatch:
//   - Classification of effect results into teardown logic, adopted
//     subscriptions, streams, channels, or immediate binding writes
//   - Property and whole-object binding with per-key error containment
//   - Change-detection scheduling after successful writes
//
// Lifecycle Integration:
//   - Automatic destroy wiring for hosts exposing a destroy notification
//   - Idempotent Destroy cancelling the scope, closing the gate, and
//     releasing the host for reconnection
//   - Extensible hook system for cross-cutting concerns
//
// # Architecture
//
// The binder sits between the declaration registry and the per-host
// reactive machinery:
//
//	┌─────────────────────────────────────────────────────────┐
//	│                   Host / Providers                      │
//	├─────────────────────────────────────────────────────────┤
//	│                    Binder Interface                     │
//	│  ┌─────────────┐ ┌──────────────┐ ┌─────────────────┐   │
//	│  │   Connect   │ │ MarkRendered │ │     Destroy     │   │
//	│  └─────────────┘ └──────────────┘ └─────────────────┘   │
//	├─────────────────────────────────────────────────────────┤
//	│                 Coordination Layer                      │
//	│  ┌─────────────┐ ┌──────────────┐ ┌─────────────────┐   │
//	│  │  Resolution │ │  Invocation  │ │      Hooks      │   │
//	│  └─────────────┘ └──────────────┘ └─────────────────┘   │
//	├─────────────────────────────────────────────────────────┤
//	│                  Reactive Layer                         │
//	│  ┌─────────────┐ ┌──────────────┐ ┌─────────────────┐   │
//	│  │  Projection │ │    Scope     │ │      Gate       │   │
//	│  └─────────────┘ └──────────────┘ └─────────────────┘   │
//	└─────────────────────────────────────────────────────────┘
//
// # Usage
//
// Basic setup:
//
//	binder := engine.New(
//	    engine.WithDetector(myDetector),
//	    engine.WithLogger(logger),
//	)
//	binder.Registry().RegisterEffect(&Counter{}, "LoadCount", core.EffectOptions{
//	    Bind:      "Count",
//	    MarkDirty: true,
//	})
//
// Connecting a host, typically the last statement of its constructor:
//
//	conn, err := binder.Connect(counter)
//	if err != nil {
//	    return err
//	}
//
// The embedding renderer signals the first commit and the eventual
// teardown:
//
//	conn.MarkRendered()
//	...
//	conn.Destroy()
//
// # Concurrency Model
//
// The semantic model is cooperative: effect invocation, binding writes, and
// scheduling run synchronously inside whatever callback delivered the
// upstream value, each running to completion. The binder's shared edges
// (the connection table, the registry, scope membership, gate state) are
// mutex-guarded so streams pumped from goroutines, channel adapters in
// particular, can deliver safely. The binder never holds its own lock while
// running user code, so effects may connect child hosts.
//
// # Error Handling
//
// Failures are contained per effect: configuration errors abort only the
// offending entry, binding errors are forwarded to the configured error
// handler without touching the host, and upstream stream errors close only
// the failing effect's subscription. Misuse (nil host, double connect) is
// returned synchronously from Connect. Panics raised by effect functions
// themselves are not recovered.
package engine
