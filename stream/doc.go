// Package stream provides the in-memory push sources used by the binding
// layer: Source (a synchronous multicast implementation of core.Stream with
// optional last-value replay), channel adapters, and tiny cold streams for
// boundary cases. Delivery is synchronous and in subscription order, matching
// the cooperative execution model of the binder.
package stream
