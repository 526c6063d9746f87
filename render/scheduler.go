package render

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/hupe1980/statefx/core"
	"github.com/hupe1980/statefx/logging"
)

// Flusher is the callback the Scheduler runs for each dirty host when a
// check happens, either batched (Flush) or immediate (CheckNow).
type Flusher func(ref core.HostRef)

// Options configures a Scheduler.
type Options struct {
	// Shards sets the number of dirty-set shards (defaults to 8). Sharding
	// keeps ScheduleCheck cheap when many hosts mark dirty concurrently.
	Shards int

	// Flush is invoked per drained host. A nil Flusher makes the scheduler
	// a pure dirty-set, useful in tests and as a safe default.
	Flush Flusher

	// Logger used for flush diagnostics (defaults to NoOpLogger).
	Logger logging.Logger
}

// WithShards sets the shard count.
func WithShards(n int) func(o *Options) {
	return func(o *Options) { o.Shards = n }
}

// WithFlush sets the per-host flush callback.
func WithFlush(fn Flusher) func(o *Options) {
	return func(o *Options) { o.Flush = fn }
}

// WithLogger sets the scheduler logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// Scheduler is the default in-memory core.ChangeDetector: ScheduleCheck
// marks a host dirty (deduplicated until the next flush), CheckNow runs the
// flush callback for one host synchronously. Hosts hash onto shards by their
// ref ID.
type Scheduler struct {
	shards []*shard
	flush  Flusher
	logger logging.Logger
}

type shard struct {
	mu    sync.Mutex
	dirty map[string]core.HostRef
	order []string
}

// NewScheduler creates a scheduler with the given flush callback.
func NewScheduler(flush Flusher, optFns ...func(o *Options)) *Scheduler {
	opts := Options{Shards: 8, Flush: flush, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Shards < 1 {
		opts.Shards = 1
	}

	s := &Scheduler{
		shards: make([]*shard, opts.Shards),
		flush:  opts.Flush,
		logger: logging.OrNoOp(opts.Logger),
	}
	for i := range s.shards {
		s.shards[i] = &shard{dirty: make(map[string]core.HostRef)}
	}
	return s
}

func (s *Scheduler) shardFor(id string) *shard {
	idx := xxhash.Sum64String(id) % uint64(len(s.shards))
	return s.shards[idx]
}

// ScheduleCheck marks the host dirty. Marking an already-dirty host is a
// no-op, so repeated writes within one check cycle coalesce into a single
// flush.
func (s *Scheduler) ScheduleCheck(ref core.HostRef) {
	sh := s.shardFor(ref.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, dup := sh.dirty[ref.ID]; dup {
		return
	}
	sh.dirty[ref.ID] = ref
	sh.order = append(sh.order, ref.ID)
}

// CheckNow runs the flush callback for one host synchronously, bypassing the
// dirty set. A pending mark for the host is consumed so the next Flush does
// not run it twice.
func (s *Scheduler) CheckNow(ref core.HostRef) {
	sh := s.shardFor(ref.ID)
	sh.mu.Lock()
	if _, ok := sh.dirty[ref.ID]; ok {
		delete(sh.dirty, ref.ID)
		sh.order = remove(sh.order, ref.ID)
	}
	sh.mu.Unlock()

	if s.flush != nil {
		s.flush(ref)
	}
}

// Flush drains every dirty host, running the flush callback per host in mark
// order within each shard. Returns the number of hosts drained.
func (s *Scheduler) Flush() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		refs := make([]core.HostRef, 0, len(sh.order))
		for _, id := range sh.order {
			refs = append(refs, sh.dirty[id])
		}
		sh.dirty = make(map[string]core.HostRef)
		sh.order = nil
		sh.mu.Unlock()

		for _, ref := range refs {
			if s.flush != nil {
				s.flush(ref)
			}
			total++
		}
	}
	if total > 0 {
		s.logger.Debug("change detection flushed hosts=%d", total)
	}
	return total
}

// Pending returns the number of hosts currently marked dirty.
func (s *Scheduler) Pending() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.dirty)
		sh.mu.Unlock()
	}
	return n
}

// Forget drops any pending mark for the host, used when a host is destroyed
// between mark and flush.
func (s *Scheduler) Forget(ref core.HostRef) {
	sh := s.shardFor(ref.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.dirty[ref.ID]; ok {
		delete(sh.dirty, ref.ID)
		sh.order = remove(sh.order, ref.ID)
	}
}

func remove(ids []string, id string) []string {
	for i, cur := range ids {
		if cur == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
