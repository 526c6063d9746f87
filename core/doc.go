// Package core provides the foundational domain types, interfaces and
// invocation contexts used by statefx. It defines the core abstractions for:
//
//   - Streams (black-box push sources with subscribe/unsubscribe contract)
//   - Effects (metadata, options, resolved bindings, invocation arguments)
//   - Reactive state views (read surface, write surface, access tracking)
//   - Host identity and lifecycle (HostRef, destroy notification)
//   - Pluggable change detection and error handling
//
// The package intentionally keeps implementation concerns (projection
// construction, binder orchestration, concrete schedulers) out of scope,
// exposing small interfaces to enable custom backends and extensions. All
// exported identifiers include concise documentation to aid discoverability
// and external consumption.
package core
