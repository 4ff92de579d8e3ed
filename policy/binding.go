package policy

// Binding is an occupied role slot together with a copy of the permission
// it references.
type Binding struct {
	Slot       int
	Permission PermissionInfo
}

// Bind places the permission with the given id into the first empty slot
// (lowest index wins) of the named role and increments the permission's
// reference count. It returns the chosen slot index. Both entities must
// exist (ErrNotFound); a role whose slot table is full yields
// ErrCapacityExceeded with no state change.
//
// Bind performs no duplicate check: the same permission id may occupy
// several slots of the same role, each occupying its own slot and each
// contributing its own reference.
func (db *DB) Bind(permID int, roleName string) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	p := db.permByID(permID)
	if p == nil {
		return 0, ErrNotFound
	}
	r := db.roleByName(roleName)
	if r == nil {
		return 0, ErrNotFound
	}

	for i, pid := range r.slots {
		if pid == emptySlot {
			r.slots[i] = p.id
			p.refs++
			return i, nil
		}
	}
	return 0, ErrCapacityExceeded
}

// Unbind clears the given slot of the named role and decrements the
// referenced permission's reference count. Unlike Bind, the numeric
// argument addresses a slot index in the role's table, not a permission id;
// the asymmetry is part of the administrative contract. An unknown role, an
// out-of-range slot, or an empty slot all yield ErrNotFound.
func (db *DB) Unbind(slot int, roleName string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	r := db.roleByName(roleName)
	if r == nil {
		return ErrNotFound
	}
	if slot < 0 || slot >= len(r.slots) {
		return ErrNotFound
	}
	pid := r.slots[slot]
	if pid == emptySlot {
		return ErrNotFound
	}

	r.slots[slot] = emptySlot
	if p := db.permByID(pid); p != nil {
		p.refs--
	}
	return nil
}

// RolePermissions returns the named role's occupied slots with permission
// copies, in slot order. This is the read-only boundary query consumed by
// external enforcement points; it runs under the shared lock, so a caller
// never observes a torn bind or unbind.
func (db *DB) RolePermissions(roleName string) ([]Binding, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	r := db.roleByName(roleName)
	if r == nil {
		return nil, ErrNotFound
	}

	out := make([]Binding, 0, len(r.slots))
	for i, pid := range r.slots {
		if pid == emptySlot {
			continue
		}
		p := db.permByID(pid)
		if p == nil {
			continue
		}
		out = append(out, Binding{
			Slot: i,
			Permission: PermissionInfo{
				ID:            p.id,
				Acceptability: p.acc,
				Operation:     p.op,
				Object:        p.obj,
				RefCount:      p.refs,
			},
		})
	}
	return out, nil
}
