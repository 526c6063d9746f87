// Package state builds the reactive projection of a host object: a live,
// per-property observable view that the binding layer reads through, writes
// through, and watches. The projection is a view, not a copy; reads and
// writes go through the host's own storage, so host code and effects always
// observe consistent values. The property set is fixed at projection time.
//
// The projection also records which properties an effect read and wrote
// during a tracked frame, keyed per goroutine.
package state
