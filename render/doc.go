// Package render holds the render-timing pieces of the binding layer: the
// per-host Gate deferring post-render effects until the host's view has
// committed once, and the Scheduler, an in-memory change detector batching
// dirty hosts into a sharded set until flushed. Embedding frameworks supply
// their own core.ChangeDetector in production; the Scheduler keeps the
// library usable and testable on its own.
package render
