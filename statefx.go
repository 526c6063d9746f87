// Package statefx provides a high-level façade over the binding engine and
// reactive abstractions (effect registry, state projection, render gating &
// logging) enabling declarative wiring of effect results into component state.
// Most applications interact with this package by:
//  1. Creating a StateFX via New() (optionally overriding default in‑memory collaborators)
//  2. Declaring effects for their host types (RegisterEffect, RegisterEffectFunc)
//  3. Connecting host instances (Connect) and forwarding render commits and
//     destroy notifications from the embedding framework
//
// The façade delegates coordination to engine.Binder while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; framework embeddings typically supply their own change detector
// and a structured logger.
package statefx

import (
	"github.com/hupe1980/statefx/core"
	"github.com/hupe1980/statefx/engine"
	"github.com/hupe1980/statefx/logging"
	"github.com/hupe1980/statefx/registry"
	"github.com/hupe1980/statefx/render"
)

// Options configures the StateFX instance.
type Options struct {
	// Strict disables implicit property matching. Effects without an
	// explicit Bind or Apply flag then stay side-effect only instead of
	// falling back to a host property named like the effect.
	Strict bool

	// Registry holds effect declarations (defaults to a fresh registry if
	// not provided). Supplying a shared registry lets several binders
	// serve the same declarations.
	Registry *registry.Registry

	// Detector receives change-detection requests after binding writes
	// (defaults to an in-memory scheduler that coalesces marks per host).
	Detector core.ChangeDetector

	// ErrorHandler receives binding, stream, and configuration failures
	// (defaults to a handler that logs through Logger).
	ErrorHandler core.ErrorHandler

	// Hooks observe connection and effect lifecycle phases (defaults to an
	// empty manager).
	Hooks *engine.HookManager

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// StateFX is the high-level façade aggregating the underlying binder and its
// collaborators.
type StateFX struct {
	opts   Options
	binder *engine.Binder
}

// New creates a new StateFX instance with optional overrides. Any unset
// collaborator is initialized with an in-memory implementation sharing the
// configured logger.
func New(optFns ...func(o *Options)) *StateFX {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	// Collaborator defaults are built after the option functions ran so
	// they observe the final logger choice.
	if opts.Registry == nil {
		opts.Registry = registry.New(registry.WithLogger(opts.Logger))
	}
	if opts.Detector == nil {
		opts.Detector = render.NewScheduler(nil, render.WithLogger(opts.Logger))
	}
	if opts.Hooks == nil {
		opts.Hooks = engine.NewHookManager()
	}

	b := engine.New(func(o *engine.Options) {
		o.Registry = opts.Registry
		o.Detector = opts.Detector
		o.ErrorHandler = opts.ErrorHandler
		o.Strict = opts.Strict
		o.Hooks = opts.Hooks
		o.Logger = opts.Logger
	})

	return &StateFX{opts: opts, binder: b}
}

// RegisterEffect declares a method of the declaring type as an effect.
func (s *StateFX) RegisterEffect(declaring any, method string, opts core.EffectOptions) error {
	return s.binder.Registry().RegisterEffect(declaring, method, opts)
}

// RegisterEffectFunc declares a standalone effect function under the given
// name for the declaring type.
func (s *StateFX) RegisterEffectFunc(declaring any, name string, fn core.EffectFunc, opts core.EffectOptions) error {
	return s.binder.Registry().RegisterEffectFunc(declaring, name, fn, opts)
}

// RegisterClass marks a type as effect declaring before (or without) any
// effect registration.
func (s *StateFX) RegisterClass(declaring any) error {
	return s.binder.Registry().RegisterClass(declaring)
}

// Connect projects the host into the reactive layer and activates the
// effects declared for its type and the provider types. The returned
// connection owns the host's teardown.
func (s *StateFX) Connect(host any, providers ...any) (*engine.Connection, error) {
	return s.binder.Connect(host, providers...)
}

// ConnectRendered is a convenience helper that connects the host and
// immediately commits the first render, releasing render-gated effects. It
// suits embeddings without a real render phase, such as tests and
// server-side use.
func (s *StateFX) ConnectRendered(host any, providers ...any) (*engine.Connection, error) {
	conn, err := s.binder.Connect(host, providers...)
	if err != nil {
		return nil, err
	}
	conn.MarkRendered()
	return conn, nil
}

// Connected reports whether the host instance currently holds a live
// connection.
func (s *StateFX) Connected(host any) bool { return s.binder.Connected(host) }

// Binder exposes the underlying coordinator for advanced embedding.
func (s *StateFX) Binder() *engine.Binder { return s.binder }

// Registry returns the effect declaration table.
func (s *StateFX) Registry() *registry.Registry { return s.binder.Registry() }

// Hooks returns the lifecycle hook manager.
func (s *StateFX) Hooks() *engine.HookManager { return s.binder.Hooks() }
