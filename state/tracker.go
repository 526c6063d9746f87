package state

import (
	"sync"

	"github.com/petermattis/goid"

	"github.com/hupe1980/statefx/core"
)

// accessTracker records property reads and writes per goroutine. A frame is
// installed for the duration of a tracked call; cell accesses on other
// goroutines see no frame and record nothing, so concurrently running
// effects keep separate records.
type accessTracker struct {
	frames sync.Map // goroutine id -> *frame
}

func newAccessTracker() *accessTracker {
	return &accessTracker{}
}

type frame struct {
	reads  []string
	writes []string
	seenR  map[string]struct{}
	seenW  map[string]struct{}
}

func newFrame() *frame {
	return &frame{seenR: map[string]struct{}{}, seenW: map[string]struct{}{}}
}

func (f *frame) read(name string) {
	if _, dup := f.seenR[name]; dup {
		return
	}
	f.seenR[name] = struct{}{}
	f.reads = append(f.reads, name)
}

func (f *frame) write(name string) {
	if _, dup := f.seenW[name]; dup {
		return
	}
	f.seenW[name] = struct{}{}
	f.writes = append(f.writes, name)
}

func (f *frame) record() core.AccessRecord {
	return core.AccessRecord{
		Reads:  append([]string(nil), f.reads...),
		Writes: append([]string(nil), f.writes...),
	}
}

// track installs a fresh frame for the current goroutine, runs fn, and
// returns the frame's record. A previously installed frame is restored
// afterwards, so nested tracked calls stack; the restore also runs when fn
// panics.
func (t *accessTracker) track(fn func()) core.AccessRecord {
	id := goid.Get()

	var prev *frame
	if v, ok := t.frames.Load(id); ok {
		prev = v.(*frame)
	}

	f := newFrame()
	t.frames.Store(id, f)
	defer func() {
		if prev != nil {
			t.frames.Store(id, prev)
		} else {
			t.frames.Delete(id)
		}
	}()

	fn()
	return f.record()
}

func (t *accessTracker) recordRead(name string) {
	if v, ok := t.frames.Load(goid.Get()); ok {
		v.(*frame).read(name)
	}
}

func (t *accessTracker) recordWrite(name string) {
	if v, ok := t.frames.Load(goid.Get()); ok {
		v.(*frame).write(name)
	}
}
