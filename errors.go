package rolegate

import (
	"errors"

	"github.com/rolegate/rolegate/policy"
)

// The core taxonomy is defined by the policy package and aliased here so
// callers matching with errors.Is need only import rolegate.
var (
	// ErrInvalidArgument rejects malformed or over-length input.
	ErrInvalidArgument = policy.ErrInvalidArgument
	// ErrDuplicateName rejects a role name collision.
	ErrDuplicateName = policy.ErrDuplicateName
	// ErrNotFound reports an unknown role name, permission id, or empty slot.
	ErrNotFound = policy.ErrNotFound
	// ErrInUse blocks deletion of an entity with outstanding references.
	ErrInUse = policy.ErrInUse
	// ErrCapacityExceeded reports a bind against a full role slot table.
	ErrCapacityExceeded = policy.ErrCapacityExceeded
	// ErrOutOfMemory reports exhaustion of a configured allocation budget.
	ErrOutOfMemory = policy.ErrOutOfMemory
	// ErrBadSnapshot reports an undecodable or invariant-violating snapshot.
	ErrBadSnapshot = policy.ErrBadSnapshot
)

var (
	// ErrEngineNotReady is returned by methods on a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrSnapshotUnavailable is returned by snapshot operations when no
	// Redis client was supplied to the builder.
	ErrSnapshotUnavailable = errors.New("snapshot store not configured")
	// ErrManifestDisabled is returned by manifest operations when manifest
	// signing was not configured.
	ErrManifestDisabled = errors.New("manifest signing not configured")
)
