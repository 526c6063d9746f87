// Package scope provides the aggregate teardown scope owned by each connected
// host: a composite, cancelable set of subscriptions and teardown callbacks.
// Cancellation is idempotent, cancels every member exactly once, and is safe
// to trigger from inside one of the owned teardown callbacks.
package scope
