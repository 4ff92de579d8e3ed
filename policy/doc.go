// Package policy implements the authoritative store behind the rolegate
// engine: the set of permissions, the set of roles, and the slot-table
// bindings between them.
//
// A single [DB] owns both entity sets behind one lock. Every mutation —
// including the check-then-act sequences "refcount must be 1, then delete"
// and "find first empty slot, then write" — runs under the exclusive lock
// for its entire duration, so no partial state change is ever observable.
// Listing and the enforcement-boundary query [DB.RolePermissions] run under
// the shared lock and return copies.
//
// Deletion is reference-counted: a permission starts with one reference
// (the store's own holding) and gains one per role slot that binds it; an
// entity may be removed only while its count is exactly 1.
package policy
