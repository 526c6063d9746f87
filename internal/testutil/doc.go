// Package testutil contains helper recorders used across tests to reduce
// boilerplate when observing binder behavior (change-detection requests,
// reported errors, intercepted values, stream deliveries). These helpers are
// intentionally minimal and avoid adding third‑party dependencies. They are
// not intended for production usage.
package testutil
