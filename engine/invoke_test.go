package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/statefx/core"
	"github.com/hupe1980/statefx/internal/testutil"
	"github.com/hupe1980/statefx/stream"
)

// feeder exercises the result-shape classification paths.
type feeder struct {
	A    int
	B    int
	Name string

	srcA    *stream.Source
	srcB    *stream.Source
	ch      chan int
	adopted core.Subscription
	torn    int
}

func newFeeder() *feeder {
	return &feeder{
		srcA: stream.NewSource(),
		srcB: stream.NewSource(),
		ch:   make(chan int, 4),
	}
}

func (f *feeder) FeedA(core.State) any { return f.srcA }

func (f *feeder) FeedB(core.State) any { return f.srcB }

func (f *feeder) Fill(core.State) any { return 9 }

func (f *feeder) Nothing(core.State) any { return nil }

func (f *feeder) Teardown(core.State) any {
	return core.TeardownFunc(func() { f.torn++ })
}

func (f *feeder) Adopt(core.State) any {
	f.adopted = f.srcA.Subscribe(core.Subscriber{})
	return f.adopted
}

func (f *feeder) Pump(core.State) any { return f.ch }

func (f *feeder) WholeMap(core.State) any {
	return map[string]any{"A": 1, "B": 2}
}

func (f *feeder) WholeMapUnknown(core.State) any {
	return map[string]any{"A": 5, "Missing": 9}
}

func (f *feeder) WholeStruct(core.State) any {
	return patch{A: 3, Tagged: "patched"}
}

func (f *feeder) WholeBad(core.State) any { return 42 }

func (f *feeder) BadValue(core.State) any { return struct{}{} }

// patch is a partial-update carrier for whole-object binding.
type patch struct {
	A      int
	Tagged string `state:"Name"`
}

func TestInvoke_NilResultRegistersNothing(t *testing.T) {
	b, _, rec := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&feeder{}, "Nothing", core.EffectOptions{}))

	f := newFeeder()
	conn, err := b.Connect(f)
	require.NoError(t, err)

	conn.Destroy()
	assert.Zero(t, f.torn)
	assert.Zero(t, rec.Count())
}

func TestInvoke_TeardownFuncRunsExactlyOnce(t *testing.T) {
	b, _, _ := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&feeder{}, "Teardown", core.EffectOptions{}))

	f := newFeeder()
	conn, err := b.Connect(f)
	require.NoError(t, err)
	assert.Zero(t, f.torn)

	conn.Destroy()
	conn.Destroy()
	assert.Equal(t, 1, f.torn)
}

func TestInvoke_SubscriptionAdoptedIntoScope(t *testing.T) {
	b, _, _ := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&feeder{}, "Adopt", core.EffectOptions{}))

	f := newFeeder()
	conn, err := b.Connect(f)
	require.NoError(t, err)

	require.NotNil(t, f.adopted)
	assert.False(t, f.adopted.Closed())

	conn.Destroy()
	assert.True(t, f.adopted.Closed())
}

func TestInvoke_StreamWritesLastWriteWins(t *testing.T) {
	b, det, rec := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&feeder{}, "FeedA", core.EffectOptions{Bind: "A", MarkDirty: true}))
	require.NoError(t, b.Registry().RegisterEffect(&feeder{}, "FeedB", core.EffectOptions{Bind: "A", MarkDirty: true}))

	f := newFeeder()
	_, err := b.Connect(f)
	require.NoError(t, err)

	f.srcA.Next(1)
	assert.Equal(t, 1, f.A)
	f.srcB.Next(2)
	assert.Equal(t, 2, f.A)
	f.srcA.Next(3)
	assert.Equal(t, 3, f.A)

	// Every individual write scheduled its own check.
	assert.Equal(t, 3, det.ScheduledCount())
	assert.Zero(t, rec.Count())
}

func TestInvoke_StreamErrorClosesOnlyThatEffect(t *testing.T) {
	b, _, rec := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&feeder{}, "FeedA", core.EffectOptions{Bind: "A"}))
	require.NoError(t, b.Registry().RegisterEffect(&feeder{}, "FeedB", core.EffectOptions{Bind: "B"}))

	f := newFeeder()
	_, err := b.Connect(f)
	require.NoError(t, err)

	boom := errors.New("upstream broke")
	f.srcA.Next(1)
	f.srcA.Error(boom)

	require.Equal(t, 1, rec.Count())
	var streamErr *core.StreamError
	require.ErrorAs(t, rec.Errors()[0], &streamErr)
	assert.Equal(t, "FeedA", streamErr.Effect)
	assert.ErrorIs(t, rec.Errors()[0], boom)

	// The sibling keeps running and the failed effect's last write stands.
	f.srcB.Next(2)
	assert.Equal(t, 1, f.A)
	assert.Equal(t, 2, f.B)
}

func TestInvoke_ChannelAdaptedIntoStream(t *testing.T) {
	b, _, rec := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&feeder{}, "Pump", core.EffectOptions{Bind: "A"}))

	f := newFeeder()
	conn, err := b.Connect(f)
	require.NoError(t, err)

	// The pump delivers on its own goroutine; synchronize through the
	// property stream before reading the host.
	done := make(chan struct{})
	sub := conn.State().Watch("A").Subscribe(core.Subscriber{
		Next: func(v any) {
			if v == 9 {
				close(done)
			}
		},
	})
	defer sub.Unsubscribe()

	f.ch <- 5
	f.ch <- 9

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("channel values never reached the property")
	}

	assert.Equal(t, 9, f.A)
	assert.Zero(t, rec.Count())

	conn.Destroy()
}

func TestInvoke_ApplyMapFansOut(t *testing.T) {
	b, det, rec := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&feeder{}, "WholeMap", core.EffectOptions{Apply: true, MarkDirty: true}))

	f := newFeeder()
	_, err := b.Connect(f)
	require.NoError(t, err)

	assert.Equal(t, 1, f.A)
	assert.Equal(t, 2, f.B)
	assert.Zero(t, rec.Count())

	// One emission, one scheduling request, regardless of key count.
	assert.Equal(t, 1, det.ScheduledCount())
}

func TestInvoke_ApplyUnknownKeyIsPartial(t *testing.T) {
	b, det, rec := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&feeder{}, "WholeMapUnknown", core.EffectOptions{Apply: true, MarkDirty: true}))

	f := newFeeder()
	_, err := b.Connect(f)
	require.NoError(t, err)

	// The known key applied, the unknown one was reported.
	assert.Equal(t, 5, f.A)
	require.Equal(t, 1, rec.Count())
	var bindErr *core.BindingError
	require.ErrorAs(t, rec.Errors()[0], &bindErr)
	assert.Equal(t, "Missing", bindErr.Target)

	assert.Equal(t, 1, det.ScheduledCount())
}

func TestInvoke_ApplyStructHonorsTags(t *testing.T) {
	b, _, rec := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&feeder{}, "WholeStruct", core.EffectOptions{Apply: true}))

	f := newFeeder()
	_, err := b.Connect(f)
	require.NoError(t, err)

	assert.Equal(t, 3, f.A)
	assert.Equal(t, "patched", f.Name)
	assert.Zero(t, rec.Count())
}

func TestInvoke_ApplyRejectsNonObject(t *testing.T) {
	b, det, rec := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&feeder{}, "WholeBad", core.EffectOptions{Apply: true, MarkDirty: true}))

	f := newFeeder()
	_, err := b.Connect(f)
	require.NoError(t, err)

	require.Equal(t, 1, rec.Count())
	var bindErr *core.BindingError
	require.ErrorAs(t, rec.Errors()[0], &bindErr)

	// Host untouched, nothing scheduled.
	assert.Zero(t, f.A)
	assert.Zero(t, f.B)
	assert.Zero(t, det.ScheduledCount())
}

func TestInvoke_UnassignableValueLeavesHostUntouched(t *testing.T) {
	b, det, rec := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&feeder{}, "BadValue", core.EffectOptions{Bind: "A", MarkDirty: true}))

	f := newFeeder()
	_, err := b.Connect(f)
	require.NoError(t, err)

	require.Equal(t, 1, rec.Count())
	var bindErr *core.BindingError
	require.ErrorAs(t, rec.Errors()[0], &bindErr)

	assert.Zero(t, f.A)
	assert.Zero(t, det.ScheduledCount())
}

func TestInvoke_DetectChangesRunsSynchronously(t *testing.T) {
	b, det, _ := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&feeder{}, "Fill", core.EffectOptions{Bind: "A", DetectChanges: true}))

	f := newFeeder()
	conn, err := b.Connect(f)
	require.NoError(t, err)

	assert.Equal(t, 9, f.A)
	require.Equal(t, 1, det.CheckedCount())
	assert.Equal(t, conn.Ref().ID, det.Checked()[0].ID)
	assert.Zero(t, det.ScheduledCount())
}

func TestInvoke_HandlerInterceptsInsteadOfWriting(t *testing.T) {
	handler := testutil.NewHandlerRecorder()

	b, det, _ := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&feeder{}, "Fill", core.EffectOptions{
		Bind:      "A",
		MarkDirty: true,
		Adapter:   handler,
	}))

	f := newFeeder()
	_, err := b.Connect(f)
	require.NoError(t, err)

	require.Equal(t, 1, handler.Count())
	got := handler.Values()[0]
	assert.Equal(t, 9, got.Value)
	assert.Equal(t, "A", got.Options.Bind)

	// No host write and no scheduling happen for an intercepted effect.
	assert.Zero(t, f.A)
	assert.Zero(t, det.ScheduledCount())
	assert.Zero(t, det.CheckedCount())
}

func TestInvoke_HandlerInterceptsStreamEmissions(t *testing.T) {
	handler := testutil.NewHandlerRecorder()

	b, _, _ := newTestBinder(t)
	require.NoError(t, b.Registry().RegisterEffect(&feeder{}, "FeedA", core.EffectOptions{
		Bind:    "A",
		Adapter: handler,
	}))

	f := newFeeder()
	_, err := b.Connect(f)
	require.NoError(t, err)

	f.srcA.Next(7)
	f.srcA.Next(8)

	require.Equal(t, 2, handler.Count())
	assert.Equal(t, 7, handler.Values()[0].Value)
	assert.Equal(t, 8, handler.Values()[1].Value)
	assert.Zero(t, f.A)
}

func TestObjectEntries(t *testing.T) {
	// Map keys apply in sorted order.
	entries, err := objectEntries(map[string]any{"b": 2, "a": 1, "c": 3})
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)

	// Any string-keyed map qualifies.
	entries, err = objectEntries(map[string]int{"A": 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 10, entries[0].value)

	// Struct pointers qualify and honor tags.
	entries, err = objectEntries(&patch{A: 1, Tagged: "x"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "A", entries[0].name)
	assert.Equal(t, "Name", entries[1].name)

	var bindErr *core.BindingError
	_, err = objectEntries(map[int]string{1: "x"})
	require.ErrorAs(t, err, &bindErr)

	_, err = objectEntries(nil)
	require.ErrorAs(t, err, &bindErr)
}
