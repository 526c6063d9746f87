// Package registry holds the effect metadata table: one entry per declared
// effect, keyed by declaring type and effect name, populated once at
// declaration time and read at every host instantiation. The registry is an
// explicitly-owned object (no process singleton); the binder holds one and
// resolves the applicable entries, in declaration order, whenever a host
// connects.
package registry
