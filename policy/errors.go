package policy

import "errors"

var (
	// ErrInvalidArgument rejects malformed input, such as an empty or
	// over-length role name or an unknown enum value.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDuplicateName rejects creation of a role whose name is already taken.
	ErrDuplicateName = errors.New("duplicate role name")
	// ErrNotFound reports an unknown role name, an unknown permission id, or
	// an empty slot reference.
	ErrNotFound = errors.New("not found")
	// ErrInUse blocks deletion of an entity that still has outstanding
	// references.
	ErrInUse = errors.New("entity in use")
	// ErrCapacityExceeded reports a bind against a role whose slot table is
	// full.
	ErrCapacityExceeded = errors.New("role slot table full")
	// ErrOutOfMemory reports exhaustion of a configured allocation budget.
	ErrOutOfMemory = errors.New("allocation budget exhausted")
	// ErrBadSnapshot reports a snapshot payload that cannot be decoded or
	// that violates store invariants.
	ErrBadSnapshot = errors.New("malformed policy snapshot")
)
