package policy

import (
	"fmt"
	"strings"
)

// RoleInfo is a copy of a stored role. Slots holds one permission id per
// slot index, with -1 marking an empty slot.
type RoleInfo struct {
	Name     string
	RefCount int
	Slots    []int
}

// AddRole creates a role with the given name, all slots empty, and a
// reference count of 1, appended after all existing roles. It fails with
// ErrInvalidArgument when the name is empty or longer than the configured
// bound (never truncating), and with ErrDuplicateName when the name is
// taken.
func (db *DB) AddRole(name string) error {
	if name == "" || len(name) > db.cfg.RoleNameMaxLen {
		return ErrInvalidArgument
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.roleByName(name) != nil {
		return ErrDuplicateName
	}
	if db.cfg.MaxRoles > 0 && len(db.roles) >= db.cfg.MaxRoles {
		return ErrOutOfMemory
	}

	slots := make([]int, db.cfg.RoleMaxPerms)
	for i := range slots {
		slots[i] = emptySlot
	}
	db.roles = append(db.roles, &role{
		name:  name,
		slots: slots,
		refs:  1,
	})

	return nil
}

// RemoveRole deletes the named role. It fails with ErrNotFound when absent
// and with ErrInUse while the role's reference count is above 1. Occupied
// slots are released on removal: each bound permission's reference count is
// decremented so the permission becomes deletable again once no other role
// holds it.
func (db *DB) RemoveRole(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, r := range db.roles {
		if r.name != name {
			continue
		}
		if r.refs != 1 {
			return ErrInUse
		}
		for _, pid := range r.slots {
			if pid == emptySlot {
				continue
			}
			if p := db.permByID(pid); p != nil {
				p.refs--
			}
		}
		db.roles = append(db.roles[:i], db.roles[i+1:]...)
		return nil
	}
	return ErrNotFound
}

// Roles returns copies of all roles in creation order.
func (db *DB) Roles() []RoleInfo {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]RoleInfo, 0, len(db.roles))
	for _, r := range db.roles {
		slots := make([]int, len(r.slots))
		copy(slots, r.slots)
		out = append(out, RoleInfo{
			Name:     r.name,
			RefCount: r.refs,
			Slots:    slots,
		})
	}
	return out
}

// RenderRoles renders the role set in creation order. Each role emits its
// name followed by one indented line per occupied slot:
//
//	<name>
//		perm[<slot>]
//
// A role with no occupied slot instead renders as
// "<name> with no permission bind". The format is parsed by administrative
// tooling and must stay stable.
func (db *DB) RenderRoles() string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var b strings.Builder
	for _, r := range db.roles {
		b.WriteString(r.name)
		bound := false
		for i, pid := range r.slots {
			if pid == emptySlot {
				continue
			}
			fmt.Fprintf(&b, "\n\tperm[%d]", i)
			bound = true
		}
		if !bound {
			b.WriteString(" with no permission bind")
		}
		b.WriteByte('\n')
	}
	return b.String()
}
