package testutil

import (
	"sync"

	"github.com/hupe1980/statefx/core"
)

// Detector is a recording core.ChangeDetector. It captures every scheduling
// request instead of running checks, so tests can assert which hosts were
// marked dirty, which were checked synchronously, and in which order.
// Example:
//
//	det := testutil.NewDetector()
//	binder := engine.New(engine.WithDetector(det))
//	...
//	require.Equal(t, 1, det.ScheduledCount())
//
// All methods are safe for concurrent use.
type Detector struct {
	mu        sync.Mutex
	scheduled []core.HostRef
	checked   []core.HostRef
	forgotten []core.HostRef
}

// NewDetector creates an empty recording detector.
func NewDetector() *Detector { return &Detector{} }

// ScheduleCheck records a batched check request.
func (d *Detector) ScheduleCheck(ref core.HostRef) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scheduled = append(d.scheduled, ref)
}

// CheckNow records a synchronous check request.
func (d *Detector) CheckNow(ref core.HostRef) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.checked = append(d.checked, ref)
}

// Forget records a dirty-state discard for a destroyed host.
func (d *Detector) Forget(ref core.HostRef) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.forgotten = append(d.forgotten, ref)
}

// Scheduled returns a copy of all batched requests in arrival order.
func (d *Detector) Scheduled() []core.HostRef {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]core.HostRef, len(d.scheduled))
	copy(out, d.scheduled)
	return out
}

// Checked returns a copy of all synchronous requests in arrival order.
func (d *Detector) Checked() []core.HostRef {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]core.HostRef, len(d.checked))
	copy(out, d.checked)
	return out
}

// Forgotten returns a copy of all discard requests in arrival order.
func (d *Detector) Forgotten() []core.HostRef {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]core.HostRef, len(d.forgotten))
	copy(out, d.forgotten)
	return out
}

// ScheduledCount returns how many batched requests arrived.
func (d *Detector) ScheduledCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.scheduled)
}

// CheckedCount returns how many synchronous requests arrived.
func (d *Detector) CheckedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.checked)
}

// Reset discards all recorded requests.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scheduled = nil
	d.checked = nil
	d.forgotten = nil
}
