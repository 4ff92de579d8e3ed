package rolegate

import (
	"context"
	"errors"
	"time"

	"github.com/rolegate/rolegate/internal/stores"
	"github.com/rolegate/rolegate/manifest"
	"github.com/rolegate/rolegate/policy"
)

// Engine is the administrative surface of the policy store. All methods are
// safe for concurrent use after [Builder.Build].
type Engine struct {
	config    Config
	db        *policy.DB
	snapshots *stores.SnapshotStore
	manifests *manifest.Manager
	events    *eventDispatcher
	metrics   *Metrics
}

// Close drains and stops the event dispatcher. The store itself needs no
// teardown.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.events != nil {
		e.events.Close()
	}
}

// MetricsSnapshot copies the engine's counter registry.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// EventsDropped returns the number of change events dropped under
// backpressure.
func (e *Engine) EventsDropped() uint64 {
	if e == nil || e.events == nil {
		return 0
	}
	return e.events.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) emit(ctx context.Context, event Event) {
	if e == nil || e.events == nil {
		return
	}
	event.Timestamp = time.Now()
	e.events.Emit(ctx, event)
}

// AddRole creates a role with all slots empty. It fails with
// ErrDuplicateName on a name collision, ErrInvalidArgument on an empty or
// over-length name, and ErrOutOfMemory when the role budget is exhausted.
func (e *Engine) AddRole(ctx context.Context, name string) error {
	if e == nil || e.db == nil {
		return ErrEngineNotReady
	}

	if err := e.db.AddRole(name); err != nil {
		e.metricInc(MetricRoleRejected)
		return err
	}

	e.metricInc(MetricRoleAdded)
	e.emit(ctx, Event{Type: EventRoleAdded, Role: name, PermissionID: -1, Slot: -1})
	return nil
}

// RemoveRole deletes the named role. It fails with ErrNotFound when absent
// and ErrInUse while the role is referenced. Occupied slots are released on
// removal so the bound permissions become deletable again.
func (e *Engine) RemoveRole(ctx context.Context, name string) error {
	if e == nil || e.db == nil {
		return ErrEngineNotReady
	}

	if err := e.db.RemoveRole(name); err != nil {
		if errors.Is(err, ErrInUse) {
			e.metricInc(MetricRoleRemoveBlocked)
		}
		return err
	}

	e.metricInc(MetricRoleRemoved)
	e.emit(ctx, Event{Type: EventRoleRemoved, Role: name, PermissionID: -1, Slot: -1})
	return nil
}

// ListRoles renders the role report described in the package documentation:
// each role name followed by one "\tperm[<slot>]" line per occupied slot, or
// "<name> with no permission bind" when none is occupied.
func (e *Engine) ListRoles() string {
	if e == nil || e.db == nil {
		return ""
	}
	start := time.Now()
	out := e.db.RenderRoles()
	e.observeList(start)
	return out
}

// AddPermission allocates a permission with the next unused id. An empty
// object means the permission applies to all objects.
func (e *Engine) AddPermission(ctx context.Context, acc Acceptability, op Operation, object string) (int, error) {
	if e == nil || e.db == nil {
		return 0, ErrEngineNotReady
	}

	id, err := e.db.AddPermission(acc, op, object)
	if err != nil {
		e.metricInc(MetricPermissionRejected)
		return 0, err
	}

	e.metricInc(MetricPermissionAdded)
	e.emit(ctx, Event{Type: EventPermissionAdded, PermissionID: id, Slot: -1})
	return id, nil
}

// RemovePermission deletes the permission with the given id; the id is never
// reissued. It fails with ErrNotFound for an unknown id and ErrInUse while
// any role slot references the permission.
func (e *Engine) RemovePermission(ctx context.Context, id int) error {
	if e == nil || e.db == nil {
		return ErrEngineNotReady
	}

	if err := e.db.RemovePermission(id); err != nil {
		if errors.Is(err, ErrInUse) {
			e.metricInc(MetricPermissionRemoveBlocked)
		}
		return err
	}

	e.metricInc(MetricPermissionRemoved)
	e.emit(ctx, Event{Type: EventPermissionRemoved, PermissionID: id, Slot: -1})
	return nil
}

// ListPermissions renders one "[<id>]: <accept|deny> <read|write> on
// <object-or-'all'>" line per permission in creation order.
func (e *Engine) ListPermissions() string {
	if e == nil || e.db == nil {
		return ""
	}
	start := time.Now()
	out := e.db.RenderPermissions()
	e.observeList(start)
	return out
}

// BindPermission places the permission into the named role's first empty
// slot (lowest index wins) and returns the chosen slot. No duplicate check
// is performed; binding the same permission twice occupies two slots.
func (e *Engine) BindPermission(ctx context.Context, permissionID int, roleName string) (int, error) {
	if e == nil || e.db == nil {
		return 0, ErrEngineNotReady
	}

	slot, err := e.db.Bind(permissionID, roleName)
	if err != nil {
		e.metricInc(MetricBindRejected)
		return 0, err
	}

	e.metricInc(MetricBindApplied)
	e.emit(ctx, Event{Type: EventPermissionBound, Role: roleName, PermissionID: permissionID, Slot: slot})
	return slot, nil
}

// UnbindPermission clears the given slot of the named role. The numeric
// argument addresses a slot index, not a permission id — the asymmetry with
// BindPermission is part of the administrative contract. Unknown role,
// out-of-range slot, and empty slot all yield ErrNotFound.
func (e *Engine) UnbindPermission(ctx context.Context, slot int, roleName string) error {
	if e == nil || e.db == nil {
		return ErrEngineNotReady
	}

	if err := e.db.Unbind(slot, roleName); err != nil {
		e.metricInc(MetricUnbindRejected)
		return err
	}

	e.metricInc(MetricUnbindApplied)
	e.emit(ctx, Event{Type: EventPermissionUnbound, Role: roleName, PermissionID: -1, Slot: slot})
	return nil
}

// RolePermissions returns the named role's occupied slots with permission
// copies. This is the read-only query consumed by external enforcement
// points; it executes under the store's shared lock and never observes a
// torn bind or unbind.
func (e *Engine) RolePermissions(roleName string) ([]Binding, error) {
	if e == nil || e.db == nil {
		return nil, ErrEngineNotReady
	}
	return e.db.RolePermissions(roleName)
}

// Permissions returns copies of all permissions in creation order.
func (e *Engine) Permissions() []PermissionInfo {
	if e == nil || e.db == nil {
		return nil
	}
	return e.db.Permissions()
}

// Roles returns copies of all roles in creation order.
func (e *Engine) Roles() []RoleInfo {
	if e == nil || e.db == nil {
		return nil
	}
	return e.db.Roles()
}

// SaveSnapshot serializes the store and parks it in the snapshot store as a
// new revision. When manifest signing is enabled the receipt carries a
// signed manifest for the revision.
func (e *Engine) SaveSnapshot(ctx context.Context) (SnapshotReceipt, error) {
	if e == nil || e.db == nil {
		return SnapshotReceipt{}, ErrEngineNotReady
	}
	if e.snapshots == nil {
		return SnapshotReceipt{}, ErrSnapshotUnavailable
	}

	payload, err := e.db.Snapshot()
	if err != nil {
		e.metricInc(MetricSnapshotFailed)
		return SnapshotReceipt{}, err
	}

	rev, err := e.snapshots.Save(ctx, payload)
	if err != nil {
		e.metricInc(MetricSnapshotFailed)
		return SnapshotReceipt{}, err
	}

	receipt := SnapshotReceipt{RevisionID: rev}
	if e.manifests != nil {
		token, err := e.manifests.Issue(rev, payload, len(e.db.Roles()), len(e.db.Permissions()))
		if err != nil {
			e.metricInc(MetricSnapshotFailed)
			return SnapshotReceipt{}, err
		}
		receipt.Manifest = token
	}

	e.metricInc(MetricSnapshotSaved)
	return receipt, nil
}

// LoadSnapshot replaces the store's state with the latest saved revision and
// returns its id. Consumers of the event stream receive a snapshot.restored
// event and must drop every cached decision.
func (e *Engine) LoadSnapshot(ctx context.Context) (string, error) {
	if e == nil || e.db == nil {
		return "", ErrEngineNotReady
	}
	if e.snapshots == nil {
		return "", ErrSnapshotUnavailable
	}

	rev, payload, err := e.snapshots.Load(ctx)
	if err != nil {
		e.metricInc(MetricSnapshotFailed)
		return "", err
	}
	if err := e.db.Restore(payload); err != nil {
		e.metricInc(MetricSnapshotFailed)
		return "", err
	}

	e.metricInc(MetricSnapshotLoaded)
	e.emit(ctx, Event{Type: EventSnapshotRestored, PermissionID: -1, Slot: -1, Revision: rev})
	return rev, nil
}

// LoadSnapshotRevision replaces the store's state with a pinned revision.
func (e *Engine) LoadSnapshotRevision(ctx context.Context, revisionID string) error {
	if e == nil || e.db == nil {
		return ErrEngineNotReady
	}
	if e.snapshots == nil {
		return ErrSnapshotUnavailable
	}

	payload, err := e.snapshots.LoadRevision(ctx, revisionID)
	if err != nil {
		e.metricInc(MetricSnapshotFailed)
		return err
	}
	if err := e.db.Restore(payload); err != nil {
		e.metricInc(MetricSnapshotFailed)
		return err
	}

	e.metricInc(MetricSnapshotLoaded)
	e.emit(ctx, Event{Type: EventSnapshotRestored, PermissionID: -1, Slot: -1, Revision: revisionID})
	return nil
}

// VerifyManifest checks a revision manifest against a snapshot payload.
func (e *Engine) VerifyManifest(token string, payload []byte) (*manifest.Claims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.manifests == nil {
		return nil, ErrManifestDisabled
	}
	return e.manifests.Verify(token, payload)
}

func (e *Engine) observeList(start time.Time) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(MetricListLatency, time.Since(start))
}
