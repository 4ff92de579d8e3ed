package policy

import (
	"fmt"
	"strings"
)

// Acceptability is the outcome a permission asserts.
type Acceptability uint8

const (
	// Accept marks a permission that allows the governed operation.
	Accept Acceptability = iota
	// Deny marks a permission that rejects the governed operation.
	Deny
)

func (a Acceptability) String() string {
	switch a {
	case Accept:
		return "accept"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}

func (a Acceptability) valid() bool {
	return a == Accept || a == Deny
}

// Operation is the access mode a permission governs.
type Operation uint8

const (
	// Read governs read access to the object.
	Read Operation = iota
	// Write governs write access to the object.
	Write
)

func (o Operation) String() string {
	switch o {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "unknown"
	}
}

func (o Operation) valid() bool {
	return o == Read || o == Write
}

// PermissionInfo is a copy of a stored permission, safe to hold after the
// call returns. An empty Object means the permission applies to all objects.
type PermissionInfo struct {
	ID            int
	Acceptability Acceptability
	Operation     Operation
	Object        string
	RefCount      int
}

// AddPermission allocates a permission with the next unused id and a
// reference count of 1 (the store's own holding) and appends it after all
// existing entries. The empty object string means "applies to all objects".
func (db *DB) AddPermission(acc Acceptability, op Operation, object string) (int, error) {
	if !acc.valid() || !op.valid() {
		return 0, ErrInvalidArgument
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.cfg.MaxPermissions > 0 && len(db.perms) >= db.cfg.MaxPermissions {
		return 0, ErrOutOfMemory
	}

	p := &permission{
		id:   db.nextPermID,
		acc:  acc,
		op:   op,
		obj:  object,
		refs: 1,
	}
	db.nextPermID++
	db.perms = append(db.perms, p)

	return p.id, nil
}

// RemovePermission deletes the permission with the given id. It fails with
// ErrNotFound for an unknown (or negative) id and with ErrInUse while any
// role slot still references it. The id is never reissued.
func (db *DB) RemovePermission(id int) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, p := range db.perms {
		if id >= 0 && p.id == id {
			if p.refs != 1 {
				return ErrInUse
			}
			db.perms = append(db.perms[:i], db.perms[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Permissions returns copies of all permissions in creation order.
func (db *DB) Permissions() []PermissionInfo {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]PermissionInfo, 0, len(db.perms))
	for _, p := range db.perms {
		out = append(out, PermissionInfo{
			ID:            p.id,
			Acceptability: p.acc,
			Operation:     p.op,
			Object:        p.obj,
			RefCount:      p.refs,
		})
	}
	return out
}

// RenderPermissions renders the permission set in creation order, one line
// per permission:
//
//	[<id>]: <accept|deny> <read|write> on <object-or-"all">
//
// The format is parsed by administrative tooling and must stay stable.
func (db *DB) RenderPermissions() string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var b strings.Builder
	for _, p := range db.perms {
		obj := p.obj
		if obj == "" {
			obj = "all"
		}
		fmt.Fprintf(&b, "[%d]: %s %s on %s\n", p.id, p.acc, p.op, obj)
	}
	return b.String()
}
