package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/statefx/core"
	"github.com/hupe1980/statefx/host"
	"github.com/hupe1980/statefx/internal/testutil"
	"github.com/hupe1980/statefx/stream"
)

// gadget is the primary test host: plain bindable fields plus a menu of
// effect methods that individual tests register selectively.
type gadget struct {
	host.Base
	Count int
	Label string

	counts   *stream.Source
	labels   *stream.Source
	ch       chan int
	adopted  core.Subscription
	trace    []string
	cleanups int
}

func newGadget() *gadget {
	return &gadget{
		counts: stream.NewSource(),
		labels: stream.NewSource(),
		ch:     make(chan int, 4),
	}
}

func (g *gadget) SeedCount(core.State) any { return 41 }

func (g *gadget) SeedLabel() any { return "ready" }

func (g *gadget) First(core.State) any {
	g.trace = append(g.trace, "First")
	return nil
}

func (g *gadget) Second(core.State) any {
	g.trace = append(g.trace, "Second")
	return nil
}

func (g *gadget) Deferred(core.State) any {
	g.trace = append(g.trace, "Deferred")
	return nil
}

func (g *gadget) Cleanup(core.State) any {
	return func() { g.cleanups++ }
}

func (g *gadget) CountStream(core.State) any { return g.counts }

func (g *gadget) LabelStream(core.State) any { return g.labels }

func (g *gadget) Adopt(core.State) any {
	g.adopted = g.counts.Subscribe(core.Subscriber{})
	return g.adopted
}

func (g *gadget) Ticker(core.State) any { return g.ch }

func (g *gadget) Snapshot(core.State) any {
	return map[string]any{"Count": 7, "Label": "snap"}
}

// auditor is a provider: its effects execute on the provider instance but
// bind against the host's projection.
type auditor struct {
	seen []string
}

func (a *auditor) Stamp(s core.State) any {
	if v, ok := s.Get("Label"); ok {
		a.seen = append(a.seen, v.(string))
	}
	return "audited"
}

// renamedHost exercises implicit name matching through the `state` tag: the
// property name collides with the effect method only at the binding layer,
// never in Go.
type renamedHost struct {
	Current int `state:"LoadCurrent"`
}

func (r *renamedHost) LoadCurrent(core.State) any { return 11 }

type bareHost struct {
	hidden int
}

func newTestBinder(t *testing.T) (*Binder, *testutil.Detector, *testutil.ErrorRecorder) {
	t.Helper()
	det := testutil.NewDetector()
	rec := testutil.NewErrorRecorder()
	b := New(WithDetector(det), WithErrorHandler(rec))
	return b, det, rec
}

func TestNew_Defaults(t *testing.T) {
	b := New()

	require.NotNil(t, b.Registry())
	require.NotNil(t, b.Hooks())

	// Connecting against an empty registry still builds the projection.
	g := newGadget()
	conn, err := b.Connect(g)
	require.NoError(t, err)
	assert.True(t, b.Connected(g))

	v, ok := conn.State().Get("Count")
	require.True(t, ok)
	assert.Equal(t, 0, v)
}

func TestConnect_Misuse(t *testing.T) {
	b, _, _ := newTestBinder(t)

	_, err := b.Connect(nil)
	require.ErrorIs(t, err, core.ErrNilHost)

	_, err = b.Connect(newGadget(), nil)
	require.ErrorIs(t, err, core.ErrNilHost)

	_, err = b.Connect(&bareHost{hidden: 1})
	require.ErrorIs(t, err, core.ErrNoBindableProperties)
}

func TestConnect_DoubleConnectAndReconnect(t *testing.T) {
	b, _, _ := newTestBinder(t)
	g := newGadget()

	conn, err := b.Connect(g)
	require.NoError(t, err)

	_, err = b.Connect(g)
	require.ErrorIs(t, err, core.ErrAlreadyConnected)

	// Destroy releases the instance for a fresh connection.
	conn.Destroy()
	assert.False(t, b.Connected(g))

	conn2, err := b.Connect(g)
	require.NoError(t, err)
	assert.NotEqual(t, conn.Ref().ID, conn2.Ref().ID)
}

func TestConnect_ValueEffectWritesProperty(t *testing.T) {
	b, det, rec := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&gadget{}, "SeedCount", core.EffectOptions{Bind: "Count", MarkDirty: true}))
	require.NoError(t, b.Registry().RegisterEffect(&gadget{}, "SeedLabel", core.EffectOptions{Bind: "Label"}))

	g := newGadget()
	conn, err := b.Connect(g)
	require.NoError(t, err)

	assert.Equal(t, 41, g.Count)
	assert.Equal(t, "ready", g.Label)
	assert.Zero(t, rec.Count())

	// Only the MarkDirty effect scheduled a check.
	require.Equal(t, 1, det.ScheduledCount())
	assert.Equal(t, conn.Ref().ID, det.Scheduled()[0].ID)
	assert.Zero(t, det.CheckedCount())
}

func TestConnect_DeclarationOrderHostThenProviders(t *testing.T) {
	b, _, _ := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&gadget{}, "First", core.EffectOptions{}))
	require.NoError(t, b.Registry().RegisterEffect(&gadget{}, "Second", core.EffectOptions{}))
	require.NoError(t, b.Registry().RegisterEffect(&gadget{}, "SeedLabel", core.EffectOptions{Bind: "Label"}))
	require.NoError(t, b.Registry().RegisterEffect(&auditor{}, "Stamp", core.EffectOptions{Bind: "Label"}))

	g := newGadget()
	a := &auditor{}
	_, err := b.Connect(g, a)
	require.NoError(t, err)

	assert.Equal(t, []string{"First", "Second"}, g.trace)

	// The provider ran after the host's own effects: it observed the label
	// the host effect wrote, then overwrote it.
	assert.Equal(t, []string{"ready"}, a.seen)
	assert.Equal(t, "audited", g.Label)
}

func TestConnect_ConfigErrorSkipsEntryOnly(t *testing.T) {
	b, _, rec := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&gadget{}, "SeedCount", core.EffectOptions{Bind: "Count", Apply: true}))
	require.NoError(t, b.Registry().RegisterEffect(&gadget{}, "First", core.EffectOptions{}))

	g := newGadget()
	_, err := b.Connect(g)
	require.NoError(t, err)

	var cfgErr *core.ConfigError
	require.Equal(t, 1, rec.Count())
	require.ErrorAs(t, rec.Errors()[0], &cfgErr)
	assert.Equal(t, "SeedCount", cfgErr.Effect)

	// The conflicted entry never ran; its sibling did.
	assert.Zero(t, g.Count)
	assert.Equal(t, []string{"First"}, g.trace)
}

func TestConnect_ImplicitBindingAndStrictMode(t *testing.T) {
	reg := func(b *Binder) {
		require.NoError(t, b.Registry().RegisterEffect(&renamedHost{}, "LoadCurrent", core.EffectOptions{}))
	}

	b := New()
	reg(b)
	h := &renamedHost{}
	_, err := b.Connect(h)
	require.NoError(t, err)
	assert.Equal(t, 11, h.Current, "non-strict mode matches the effect name to the tagged property")

	strict := New(WithStrict(true))
	reg(strict)
	h2 := &renamedHost{}
	_, err = strict.Connect(h2)
	require.NoError(t, err)
	assert.Zero(t, h2.Current, "strict mode keeps the effect side-effect only")
}

func TestConnect_WhenRenderedDefersUntilCommit(t *testing.T) {
	b, _, _ := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&gadget{}, "First", core.EffectOptions{}))
	require.NoError(t, b.Registry().RegisterEffect(&gadget{}, "Deferred", core.EffectOptions{WhenRendered: true}))

	g := newGadget()
	conn, err := b.Connect(g)
	require.NoError(t, err)

	assert.Equal(t, []string{"First"}, g.trace)
	assert.False(t, conn.Rendered())

	conn.MarkRendered()
	assert.True(t, conn.Rendered())
	assert.Equal(t, []string{"First", "Deferred"}, g.trace)

	// A second commit never re-triggers the deferred effect.
	conn.MarkRendered()
	assert.Equal(t, []string{"First", "Deferred"}, g.trace)
}

func TestConnect_DestroyBeforeRenderDropsDeferredEffects(t *testing.T) {
	b, _, _ := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&gadget{}, "Deferred", core.EffectOptions{WhenRendered: true}))

	g := newGadget()
	conn, err := b.Connect(g)
	require.NoError(t, err)

	conn.Destroy()
	conn.MarkRendered()

	assert.Empty(t, g.trace)
	assert.True(t, conn.Scope().Cancelled())
}

func TestConnection_DestroyIsIdempotent(t *testing.T) {
	b, det, _ := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&gadget{}, "Cleanup", core.EffectOptions{}))

	g := newGadget()
	conn, err := b.Connect(g)
	require.NoError(t, err)

	conn.Destroy()
	conn.Destroy()

	assert.Equal(t, 1, g.cleanups, "teardown runs exactly once")
	assert.True(t, conn.Destroyed())

	forgotten := det.Forgotten()
	require.Len(t, forgotten, 1)
	assert.Equal(t, conn.Ref().ID, forgotten[0].ID)
}

func TestConnection_DestroyNotifierAutoWiring(t *testing.T) {
	b, _, _ := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&gadget{}, "Cleanup", core.EffectOptions{}))

	g := newGadget()
	conn, err := b.Connect(g)
	require.NoError(t, err)

	// The framework-side destroy notification tears the connection down
	// without touching the connection handle.
	g.NotifyDestroy()

	assert.True(t, conn.Destroyed())
	assert.False(t, b.Connected(g))
	assert.Equal(t, 1, g.cleanups)
}

func TestBinder_NotifierForcesDetectionPass(t *testing.T) {
	b, det, _ := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&gadget{}, "SeedCount", core.EffectOptions{Bind: "Count"}))

	g := newGadget()
	conn, err := b.Connect(g)
	require.NoError(t, err)

	// No scheduling flags, so the connect-time write requested nothing.
	require.Zero(t, det.ScheduledCount())

	var notifier core.Notifier
	for _, meta := range b.Registry().Effects(&gadget{}) {
		if meta.Name == "SeedCount" {
			notifier = meta.Notifier
		}
	}
	require.NotNil(t, notifier)

	notifier.Notify()
	require.Equal(t, 1, det.ScheduledCount())
	assert.Equal(t, conn.Ref().ID, det.Scheduled()[0].ID)

	// Destroy cancels the notifier subscription.
	conn.Destroy()
	notifier.Notify()
	assert.Equal(t, 1, det.ScheduledCount())
}

func TestHooks_LifecycleOrder(t *testing.T) {
	var order []string
	record := func(ht HookType) Hook {
		return NewFunctionHook(ht, func(hookCtx *HookContext) error {
			order = append(order, string(ht))
			return nil
		})
	}

	hm := NewHookManager()
	for _, ht := range []HookType{
		HookBeforeConnect, HookAfterConnect,
		HookBeforeEffect, HookAfterEffect,
		HookBeforeDestroy, HookAfterDestroy,
	} {
		hm.RegisterHook(record(ht))
	}

	b := New(WithHooks(hm))
	require.NoError(t, b.Registry().RegisterEffect(&gadget{}, "SeedCount", core.EffectOptions{Bind: "Count"}))

	g := newGadget()
	conn, err := b.Connect(g)
	require.NoError(t, err)
	conn.Destroy()

	assert.Equal(t, []string{
		"before_connect",
		"before_effect", "after_effect",
		"after_connect",
		"before_destroy", "after_destroy",
	}, order)
}

func TestHooks_BeforeConnectVeto(t *testing.T) {
	veto := errors.New("not now")
	hm := NewHookManager()
	hm.RegisterHook(NewFunctionHook(HookBeforeConnect, func(*HookContext) error { return veto }))

	b := New(WithHooks(hm))
	g := newGadget()

	_, err := b.Connect(g)
	require.ErrorIs(t, err, veto)
	assert.False(t, b.Connected(g))
}

func TestHooks_BeforeEffectSkipsInvocation(t *testing.T) {
	hm := NewHookManager()
	hm.RegisterHook(NewFunctionHook(HookBeforeEffect, func(hookCtx *HookContext) error {
		if hookCtx.Effect == "SeedCount" {
			return errors.New("blocked")
		}
		return nil
	}))

	rec := testutil.NewErrorRecorder()
	b := New(WithHooks(hm), WithErrorHandler(rec))
	require.NoError(t, b.Registry().RegisterEffect(&gadget{}, "SeedCount", core.EffectOptions{Bind: "Count"}))
	require.NoError(t, b.Registry().RegisterEffect(&gadget{}, "First", core.EffectOptions{}))

	g := newGadget()
	_, err := b.Connect(g)
	require.NoError(t, err)

	assert.Zero(t, g.Count, "vetoed effect never ran")
	assert.Equal(t, []string{"First"}, g.trace)
	assert.Equal(t, 1, rec.Count())
}
