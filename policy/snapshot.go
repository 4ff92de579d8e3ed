package policy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const snapshotVersionV1 = 1

// Snapshot serializes the full store state under the shared lock. Reference
// counts are not part of the payload: they are derivable from slot occupancy
// and recomputed on restore, so a tampered count can never be smuggled in.
func (db *DB) Snapshot() ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var buf bytes.Buffer
	buf.WriteByte(snapshotVersionV1)

	if err := binary.Write(&buf, binary.BigEndian, int64(db.nextPermID)); err != nil {
		return nil, err
	}

	if err := binary.Write(&buf, binary.BigEndian, uint32(len(db.perms))); err != nil {
		return nil, err
	}
	for _, p := range db.perms {
		if err := binary.Write(&buf, binary.BigEndian, int64(p.id)); err != nil {
			return nil, err
		}
		buf.WriteByte(byte(p.acc))
		buf.WriteByte(byte(p.op))
		if len(p.obj) > 65535 {
			return nil, fmt.Errorf("%w: object name too long", ErrBadSnapshot)
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(p.obj))); err != nil {
			return nil, err
		}
		buf.WriteString(p.obj)
	}

	if err := binary.Write(&buf, binary.BigEndian, uint32(len(db.roles))); err != nil {
		return nil, err
	}
	for _, r := range db.roles {
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(r.name))); err != nil {
			return nil, err
		}
		buf.WriteString(r.name)
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(r.slots))); err != nil {
			return nil, err
		}
		for _, pid := range r.slots {
			if err := binary.Write(&buf, binary.BigEndian, int32(pid)); err != nil {
				return nil, err
			}
		}
	}

	return buf.Bytes(), nil
}

// Restore replaces the store's state with a decoded snapshot. The payload is
// fully validated before any state is touched: on error the store is left
// unchanged. Reference counts are recomputed from slot occupancy and the id
// counter is restored, so ids deleted before the snapshot stay retired.
func (db *DB) Restore(data []byte) error {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if version != snapshotVersionV1 {
		return fmt.Errorf("%w: unsupported version %d", ErrBadSnapshot, version)
	}

	var nextID int64
	if err := binary.Read(reader, binary.BigEndian, &nextID); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if nextID < 0 {
		return fmt.Errorf("%w: negative id counter", ErrBadSnapshot)
	}

	var permCount uint32
	if err := binary.Read(reader, binary.BigEndian, &permCount); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if db.cfg.MaxPermissions > 0 && int(permCount) > db.cfg.MaxPermissions {
		return fmt.Errorf("%w: permission count exceeds budget", ErrBadSnapshot)
	}
	// Each permission record occupies at least 12 bytes; a count the
	// remaining payload cannot hold is rejected before any allocation.
	if int64(permCount)*12 > int64(reader.Len()) {
		return fmt.Errorf("%w: permission count exceeds payload", ErrBadSnapshot)
	}

	perms := make([]*permission, 0, permCount)
	byID := make(map[int]*permission, permCount)
	for i := uint32(0); i < permCount; i++ {
		var id int64
		if err := binary.Read(reader, binary.BigEndian, &id); err != nil {
			return fmt.Errorf("%w: %v", ErrBadSnapshot, err)
		}
		acc, err := reader.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadSnapshot, err)
		}
		op, err := reader.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadSnapshot, err)
		}
		var objLen uint16
		if err := binary.Read(reader, binary.BigEndian, &objLen); err != nil {
			return fmt.Errorf("%w: %v", ErrBadSnapshot, err)
		}
		obj := make([]byte, objLen)
		if _, err := io.ReadFull(reader, obj); err != nil {
			return fmt.Errorf("%w: %v", ErrBadSnapshot, err)
		}

		p := &permission{
			id:   int(id),
			acc:  Acceptability(acc),
			op:   Operation(op),
			obj:  string(obj),
			refs: 1,
		}
		if p.id < 0 || int64(p.id) >= nextID {
			return fmt.Errorf("%w: permission id outside issued range", ErrBadSnapshot)
		}
		if !p.acc.valid() || !p.op.valid() {
			return fmt.Errorf("%w: unknown enum value", ErrBadSnapshot)
		}
		if _, dup := byID[p.id]; dup {
			return fmt.Errorf("%w: duplicate permission id %d", ErrBadSnapshot, p.id)
		}
		perms = append(perms, p)
		byID[p.id] = p
	}

	var roleCount uint32
	if err := binary.Read(reader, binary.BigEndian, &roleCount); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if db.cfg.MaxRoles > 0 && int(roleCount) > db.cfg.MaxRoles {
		return fmt.Errorf("%w: role count exceeds budget", ErrBadSnapshot)
	}
	if int64(roleCount)*4 > int64(reader.Len()) {
		return fmt.Errorf("%w: role count exceeds payload", ErrBadSnapshot)
	}

	roles := make([]*role, 0, roleCount)
	names := make(map[string]struct{}, roleCount)
	for i := uint32(0); i < roleCount; i++ {
		var nameLen uint16
		if err := binary.Read(reader, binary.BigEndian, &nameLen); err != nil {
			return fmt.Errorf("%w: %v", ErrBadSnapshot, err)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(reader, name); err != nil {
			return fmt.Errorf("%w: %v", ErrBadSnapshot, err)
		}
		var slotCount uint16
		if err := binary.Read(reader, binary.BigEndian, &slotCount); err != nil {
			return fmt.Errorf("%w: %v", ErrBadSnapshot, err)
		}

		r := &role{
			name:  string(name),
			slots: make([]int, slotCount),
			refs:  1,
		}
		if r.name == "" || len(r.name) > db.cfg.RoleNameMaxLen {
			return fmt.Errorf("%w: role name out of bounds", ErrBadSnapshot)
		}
		if int(slotCount) != db.cfg.RoleMaxPerms {
			return fmt.Errorf("%w: role slot capacity mismatch", ErrBadSnapshot)
		}
		if _, dup := names[r.name]; dup {
			return fmt.Errorf("%w: duplicate role name %q", ErrBadSnapshot, r.name)
		}
		names[r.name] = struct{}{}

		for s := uint16(0); s < slotCount; s++ {
			var pid int32
			if err := binary.Read(reader, binary.BigEndian, &pid); err != nil {
				return fmt.Errorf("%w: %v", ErrBadSnapshot, err)
			}
			if pid == emptySlot {
				r.slots[s] = emptySlot
				continue
			}
			p, ok := byID[int(pid)]
			if !ok {
				return fmt.Errorf("%w: slot references unknown permission %d", ErrBadSnapshot, pid)
			}
			r.slots[s] = p.id
			p.refs++
		}
		roles = append(roles, r)
	}

	if reader.Len() != 0 {
		return fmt.Errorf("%w: trailing bytes", ErrBadSnapshot)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.nextPermID = int(nextID)
	db.perms = perms
	db.roles = roles

	return nil
}
