package engine

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/hupe1980/statefx/core"
	"github.com/hupe1980/statefx/logging"
	"github.com/hupe1980/statefx/registry"
	"github.com/hupe1980/statefx/render"
	"github.com/hupe1980/statefx/scope"
	"github.com/hupe1980/statefx/state"
)

// Options configures a Binder instance using the functional options pattern.
//
// This struct provides a clean way to configure all collaborators of the
// binder. Default implementations are provided for all of them to enable
// quick setup for development and testing scenarios.
//
// Example:
//
//	binder := New(
//	    WithDetector(frameworkDetector),
//	    WithErrorHandler(reporter),
//	    WithLogger(myLogger),
//	)
type Options struct {
	// Registry holds the effect metadata the binder resolves against.
	// Defaults to a fresh empty registry if not provided.
	Registry *registry.Registry

	// Detector receives change-detection requests after binding writes.
	// Defaults to an in-memory render.Scheduler without a flusher; real
	// frameworks supply their own.
	Detector core.ChangeDetector

	// ErrorHandler receives binding errors, upstream stream errors, and
	// skipped-entry configuration errors. Defaults to a handler that logs
	// through Logger.
	ErrorHandler core.ErrorHandler

	// Logger provides structured logging for debugging and monitoring.
	// Defaults to NoOp logger if nil to ensure no logging dependencies.
	Logger logging.Logger

	// Strict disables implicit name-match binding: effects without an
	// explicit Bind/Apply stay side-effect only.
	Strict bool

	// Hooks dispatches lifecycle hooks. Defaults to an empty manager.
	Hooks *HookManager

	// NewGate constructs the per-connection render gate. Defaults to
	// render.NewGate.
	NewGate func() *render.Gate
}

// WithRegistry sets the effect metadata registry.
func WithRegistry(r *registry.Registry) func(o *Options) {
	return func(o *Options) { o.Registry = r }
}

// WithDetector sets the change-detection handle.
func WithDetector(d core.ChangeDetector) func(o *Options) {
	return func(o *Options) { o.Detector = d }
}

// WithErrorHandler sets the global error handler.
func WithErrorHandler(h core.ErrorHandler) func(o *Options) {
	return func(o *Options) { o.ErrorHandler = h }
}

// WithLogger sets the binder logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// WithStrict disables implicit name-match binding.
func WithStrict(strict bool) func(o *Options) {
	return func(o *Options) { o.Strict = strict }
}

// WithHooks sets the lifecycle hook manager.
func WithHooks(hm *HookManager) func(o *Options) {
	return func(o *Options) { o.Hooks = hm }
}

// WithGateFactory sets the render gate constructor.
func WithGateFactory(fn func() *render.Gate) func(o *Options) {
	return func(o *Options) { o.NewGate = fn }
}

// Binder is the initialization coordinator. It connects host instances into
// the reactive layer: it builds each host's projection, resolves the
// effects declared for the host's type (and any attached providers), runs
// them in declaration order, and owns the resulting connection lifecycle.
//
// Concurrency Model:
//   - Thread-safe connection tracking via mutex
//   - Effect invocation runs outside binder locks, so effects may connect
//     child hosts
//   - Per-connection state (projection, scope, gate) is exclusively owned
//     by one host instance
//
// The binder never retains host instances beyond their connection; Destroy
// releases the host for a later reconnect with fresh-instance semantics.
type Binder struct {
	registry *registry.Registry
	detector core.ChangeDetector
	errors   core.ErrorHandler
	logger   logging.Logger
	strict   bool
	hooks    *HookManager
	newGate  func() *render.Gate

	mu          sync.Mutex
	connections map[any]*Connection
}

// New creates a new Binder with sensible defaults and optional configuration.
//
// All collaborators have in-memory defaults suitable for development,
// testing, and simple embedding scenarios:
//
//   - Registry: fresh empty registry
//   - Detector: render.Scheduler accumulating marks without a flusher
//   - ErrorHandler: logs reported errors through the configured logger
//   - Logger: no-op logger that discards all messages
//   - Hooks: empty hook manager
//
// The returned Binder is immediately ready for use and is safe for
// concurrent access. The binder does not take ownership of provided
// collaborators and will not manage their lifecycle.
//
// Examples:
//
//	// Minimal setup with all defaults
//	binder := New()
//
//	// Framework integration
//	binder := New(
//	    WithRegistry(sharedRegistry),
//	    WithDetector(frameworkDetector),
//	    WithLogger(structuredLogger),
//	)
func New(optFns ...func(o *Options)) *Binder {
	opts := Options{
		Registry: registry.New(),
		Detector: render.NewScheduler(nil),
		Logger:   logging.NoOpLogger{},
		Hooks:    NewHookManager(),
		NewGate:  render.NewGate,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	// The default handler must observe the final logger choice, so it is
	// built after the option functions ran.
	if opts.ErrorHandler == nil {
		logger := logging.OrNoOp(opts.Logger)
		opts.ErrorHandler = core.ErrorHandlerFunc(func(err error) {
			logger.Error("effect error: %v", err)
		})
	}

	return &Binder{
		registry:    opts.Registry,
		detector:    opts.Detector,
		errors:      opts.ErrorHandler,
		logger:      logging.OrNoOp(opts.Logger),
		strict:      opts.Strict,
		hooks:       opts.Hooks,
		newGate:     opts.NewGate,
		connections: make(map[any]*Connection),
	}
}

// Registry returns the effect metadata registry the binder resolves against.
// Effect declarations go through it.
func (b *Binder) Registry() *registry.Registry {
	return b.registry
}

// Hooks returns the lifecycle hook manager. Register hooks before
// connecting hosts.
func (b *Binder) Hooks() *HookManager {
	return b.hooks
}

// Connected reports whether the host instance currently holds a live
// connection.
func (b *Binder) Connected(host any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.connections[host]
	return ok
}

// Connect wires the host instance into the reactive layer. It is expected to
// be the last statement of the host's own constructor, after all
// default-valued properties are assigned.
//
// Connect builds the host's projection, then resolves and runs the effects
// declared for the host's type followed by each provider's type, in
// declaration order. Effects flagged WhenRendered are deferred behind the
// connection's render gate. Per-entry configuration errors are reported to
// the error handler and skip only that entry.
//
// Providers attach additional effect-declaring instances to the host's
// lifecycle: their effects read and write the host's projection but execute
// on the provider instance, and their subscriptions share the host's
// teardown scope.
//
// Misuse is returned synchronously: a nil host or provider yields
// core.ErrNilHost, a second Connect for a live host core.ErrAlreadyConnected,
// and a host without any observable property core.ErrNoBindableProperties.
// After Destroy the same host value may be connected again.
func (b *Binder) Connect(host any, providers ...any) (*Connection, error) {
	if host == nil {
		return nil, core.ErrNilHost
	}
	for i, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("%w: provider %d is nil", core.ErrNilHost, i)
		}
	}
	// Hosts key the connection table; non-comparable host types cannot be
	// tracked.
	if !reflect.TypeOf(host).Comparable() {
		return nil, fmt.Errorf("host type %T is not comparable", host)
	}

	b.mu.Lock()
	_, live := b.connections[host]
	b.mu.Unlock()
	if live {
		return nil, fmt.Errorf("%w: %T", core.ErrAlreadyConnected, host)
	}

	ref := core.NewHostRef(host)

	if err := b.hooks.ExecuteHooks(HookBeforeConnect, &HookContext{
		Ref:      ref,
		Host:     host,
		HookType: HookBeforeConnect,
	}); err != nil {
		return nil, fmt.Errorf("before-connect hook rejected host: %w", err)
	}

	proj, err := state.Project(host, state.WithLogger(b.logger))
	if err != nil {
		return nil, err
	}

	conn := &Connection{
		binder: b,
		host:   host,
		ref:    ref,
		proj:   proj,
		scope:  scope.New(),
		gate:   b.newGate(),
	}

	b.mu.Lock()
	if _, raced := b.connections[host]; raced {
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: %T", core.ErrAlreadyConnected, host)
	}
	b.connections[host] = conn
	b.mu.Unlock()

	// Coordination runs without the binder lock: effects may connect child
	// hosts through the same binder.
	b.wire(conn, host)
	for _, p := range providers {
		b.wire(conn, p)
	}

	if dn, ok := host.(core.DestroyNotifier); ok {
		dn.OnDestroy(conn.Destroy)
	}

	if err := b.hooks.ExecuteHooks(HookAfterConnect, &HookContext{
		Ref:      ref,
		Host:     host,
		HookType: HookAfterConnect,
	}); err != nil {
		b.errors.HandleError(err)
	}

	b.logger.Debug("host connected host_id=%s host=%T properties=%d", ref.ID, host, len(proj.Properties()))
	return conn, nil
}

// wire resolves and activates the effects one owner type declares, in
// declaration order.
func (b *Binder) wire(conn *Connection, owner any) {
	resolved := b.registry.Resolve(owner, conn.proj, b.strict)
	for _, re := range resolved {
		if re.Err != nil {
			b.errors.HandleError(re.Err)
			continue
		}

		fn, err := re.Metadata.Bind(owner)
		if err != nil {
			b.errors.HandleError(err)
			continue
		}

		args := core.InitEffectArgs{
			Name:     re.Metadata.Name,
			Effect:   fn,
			Host:     conn.host,
			Ref:      conn.ref,
			Kind:     re.Kind,
			Target:   re.Target,
			Options:  re.Metadata.Options,
			Detector: b.detector,
			State:    conn.proj,
			Writer:   conn.proj,
			Scope:    conn.scope,
			Gate:     conn.gate,
			Handler:  re.Metadata.Options.Adapter,
			Notifier: re.Metadata.Notifier,
			Logger:   b.logger,
		}

		// The notifier subscription is wired before the first invocation so
		// an effect notifying during its own run still reaches the detector.
		if args.Notifier != nil {
			nsub := args.Notifier.Subscribe(core.Subscriber{
				Next: func(any) { b.forceCheck(args) },
			})
			conn.scope.Add(nsub)
		}

		if args.Options.WhenRendered {
			gsub := conn.gate.Rendered().Subscribe(core.Subscriber{
				Next: func(any) { b.invoke(args) },
			})
			conn.scope.Add(gsub)
			continue
		}

		b.invoke(args)
	}
}

// release drops the host from the connection table, allowing a reconnect.
func (b *Binder) release(host any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.connections, host)
}

// Connection is the per-instance handle returned by Connect. It owns the
// host's projection, aggregate teardown scope, and render gate.
type Connection struct {
	binder *Binder
	host   any
	ref    core.HostRef
	proj   *state.Projection
	scope  *scope.Scope
	gate   *render.Gate

	mu        sync.Mutex
	destroyed bool
}

// Ref returns the connection's identity handle.
func (c *Connection) Ref() core.HostRef { return c.ref }

// Host returns the connected instance.
func (c *Connection) Host() any { return c.host }

// State returns the host's reactive state view.
func (c *Connection) State() core.State { return c.proj }

// Scope returns the aggregate teardown scope. External subscriptions tied to
// the host's lifetime may be added to it.
func (c *Connection) Scope() *scope.Scope { return c.scope }

// MarkRendered signals the host's first render commit, firing the render
// gate. Deferred effects run synchronously, in declaration order, before it
// returns. Later calls are no-ops.
func (c *Connection) MarkRendered() { c.gate.MarkRendered() }

// Rendered reports whether the render commit already happened.
func (c *Connection) Rendered() bool { return c.gate.Fired() }

// Destroyed reports whether the connection has been torn down.
func (c *Connection) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

// Destroy tears the connection down: the render gate closes (a gate still
// pending never fires), the aggregate scope cancels every subscription and
// teardown exactly once, the projection's property streams complete, and
// the host is released for reconnection. Idempotent.
func (c *Connection) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	c.mu.Unlock()

	if err := c.binder.hooks.ExecuteHooks(HookBeforeDestroy, &HookContext{
		Ref:      c.ref,
		Host:     c.host,
		HookType: HookBeforeDestroy,
	}); err != nil {
		c.binder.errors.HandleError(err)
	}

	c.gate.Close()
	c.scope.Cancel()
	c.proj.Close()

	// Pending dirty marks for the host are stale once it is gone; detectors
	// that track them get the chance to drop them.
	if f, ok := c.binder.detector.(interface{ Forget(ref core.HostRef) }); ok {
		f.Forget(c.ref)
	}

	c.binder.release(c.host)

	if err := c.binder.hooks.ExecuteHooks(HookAfterDestroy, &HookContext{
		Ref:      c.ref,
		Host:     c.host,
		HookType: HookAfterDestroy,
	}); err != nil {
		c.binder.errors.HandleError(err)
	}

	c.binder.logger.Debug("host destroyed host_id=%s", c.ref.ID)
}
