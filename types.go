package rolegate

import "github.com/rolegate/rolegate/policy"

// Aliases for the policy value types, so embedding applications can drive
// the engine without importing the policy package directly.
type (
	// Acceptability is the outcome a permission asserts.
	Acceptability = policy.Acceptability
	// Operation is the access mode a permission governs.
	Operation = policy.Operation
	// PermissionInfo is a copy of a stored permission.
	PermissionInfo = policy.PermissionInfo
	// RoleInfo is a copy of a stored role.
	RoleInfo = policy.RoleInfo
	// Binding is an occupied role slot with a copy of its permission.
	Binding = policy.Binding
)

const (
	// Accept marks a permission that allows the governed operation.
	Accept = policy.Accept
	// Deny marks a permission that rejects the governed operation.
	Deny = policy.Deny
	// Read governs read access.
	Read = policy.Read
	// Write governs write access.
	Write = policy.Write
)

// SnapshotReceipt describes a snapshot that was saved to the snapshot store.
// Manifest is empty unless manifest signing is enabled.
type SnapshotReceipt struct {
	RevisionID string
	Manifest   string
}
