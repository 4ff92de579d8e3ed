// Package rolegate provides the policy store of a role-based access control
// engine: the authoritative sets of roles and permissions, the slot-table
// bindings between them, and the reference-counted lifetime guarantees that
// make deletion safe.
//
// The package is designed for concurrent administrative workloads: Engine
// methods are safe to call from multiple goroutines after initialization
// through [Builder.Build].
//
// # Architecture boundaries
//
// rolegate is the public surface. It exposes [Engine], [Builder], [Config],
// the error taxonomy, and value types (MetricsSnapshot, Event, Binding).
// The store itself lives in the policy sub-package; Redis snapshot plumbing
// lives under internal/ and is never exported.
//
// Enforcement is external: an access-decision hook consults
// [Engine.RolePermissions] (or a restored snapshot) but never mutates the
// store. Identity-to-role assignment and administrative command parsing are
// likewise collaborators, not residents.
//
// # Consistency contract
//
// Every mutation is atomic under a single store lock, including the
// check-then-act sequences that gate deletion and slot allocation. On any
// error no partial state change is observable. Readers (listings,
// RolePermissions) take the shared form of the same lock and can never
// observe a torn bind or unbind.
package rolegate
