package policy

import (
	"errors"
	"sync"
)

const (
	// DefaultRoleMaxPerms is the slot-table capacity applied when Config
	// leaves RoleMaxPerms zero.
	DefaultRoleMaxPerms = 16
	// DefaultRoleNameMaxLen is the role-name length bound applied when
	// Config leaves RoleNameMaxLen zero.
	DefaultRoleNameMaxLen = 32
)

// Config bounds the store. Zero values select defaults for the per-role
// limits; MaxRoles and MaxPermissions are unlimited when zero.
type Config struct {
	// RoleMaxPerms is the fixed slot-table capacity of every role.
	RoleMaxPerms int
	// RoleNameMaxLen is the maximum accepted role name length in bytes.
	// Creation of a longer name fails; names are never truncated.
	RoleNameMaxLen int
	// MaxRoles caps the number of concurrently existing roles. 0 = unlimited.
	MaxRoles int
	// MaxPermissions caps the number of concurrently existing permissions.
	// 0 = unlimited.
	MaxPermissions int
}

func (c Config) withDefaults() Config {
	if c.RoleMaxPerms == 0 {
		c.RoleMaxPerms = DefaultRoleMaxPerms
	}
	if c.RoleNameMaxLen == 0 {
		c.RoleNameMaxLen = DefaultRoleNameMaxLen
	}
	return c
}

// Validate reports the first configuration error, if any.
func (c Config) Validate() error {
	c = c.withDefaults()
	if c.RoleMaxPerms < 0 {
		return errors.New("RoleMaxPerms must be positive")
	}
	if c.RoleNameMaxLen < 0 {
		return errors.New("RoleNameMaxLen must be positive")
	}
	if c.MaxRoles < 0 {
		return errors.New("MaxRoles must not be negative")
	}
	if c.MaxPermissions < 0 {
		return errors.New("MaxPermissions must not be negative")
	}
	return nil
}

type permission struct {
	id   int
	acc  Acceptability
	op   Operation
	obj  string
	refs int
}

type role struct {
	name string
	// slots holds permission ids; emptySlot marks an unoccupied slot.
	// Slot indices are externally addressable and must stay stable.
	slots []int
	refs  int
}

const emptySlot = -1

// DB owns the permission set and the role set. Both live behind one lock:
// the operations are O(n) over small n and never a throughput bottleneck,
// and a single lock makes every cross-store sequence atomic.
type DB struct {
	mu  sync.RWMutex
	cfg Config

	// nextPermID only ever grows; ids of removed permissions are never
	// reissued, even across snapshot restore.
	nextPermID int

	perms []*permission // creation order
	roles []*role       // creation order
}

// NewDB creates an empty store with the given bounds.
func NewDB(cfg Config) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &DB{cfg: cfg.withDefaults()}, nil
}

// RoleMaxPerms returns the slot-table capacity roles are created with.
func (db *DB) RoleMaxPerms() int {
	return db.cfg.RoleMaxPerms
}

// roleByName is a linear lookup by exact name. Caller holds db.mu.
func (db *DB) roleByName(name string) *role {
	for _, r := range db.roles {
		if r.name == name {
			return r
		}
	}
	return nil
}

// permByID is a linear lookup by id. Negative ids are rejected up front.
// Caller holds db.mu.
func (db *DB) permByID(id int) *permission {
	if id < 0 {
		return nil
	}
	for _, p := range db.perms {
		if p.id == id {
			return p
		}
	}
	return nil
}

// User associates a subject uid with a role. The assignment mechanism lives
// outside this store; the type is declared for schema completeness only and
// has no lifecycle operations here.
type User struct {
	UID  uint32
	Role string
}
