package rolegate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	engine, err := New().
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func waitForEvent(t *testing.T, events <-chan Event, want EventType) Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-events:
			if event.Type == want {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q event", want)
		}
	}
}

func TestAdminLifecycle(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	id, err := engine.AddPermission(ctx, Deny, Write, "/etc/shadow")
	if err != nil {
		t.Fatalf("AddPermission failed: %v", err)
	}
	if id != 0 {
		t.Fatalf("expected first permission id 0, got %d", id)
	}

	if err := engine.AddRole(ctx, "auditor"); err != nil {
		t.Fatalf("AddRole failed: %v", err)
	}

	slot, err := engine.BindPermission(ctx, id, "auditor")
	if err != nil {
		t.Fatalf("BindPermission failed: %v", err)
	}
	if slot != 0 {
		t.Fatalf("expected slot 0, got %d", slot)
	}

	if got, want := engine.ListPermissions(), "[0]: deny write on /etc/shadow\n"; got != want {
		t.Fatalf("ListPermissions = %q, want %q", got, want)
	}
	if got, want := engine.ListRoles(), "auditor\n\tperm[0]\n"; got != want {
		t.Fatalf("ListRoles = %q, want %q", got, want)
	}

	if err := engine.RemovePermission(ctx, id); !errors.Is(err, ErrInUse) {
		t.Fatalf("expected ErrInUse removing a bound permission, got %v", err)
	}

	if err := engine.UnbindPermission(ctx, slot, "auditor"); err != nil {
		t.Fatalf("UnbindPermission failed: %v", err)
	}
	if got, want := engine.ListRoles(), "auditor with no permission bind\n"; got != want {
		t.Fatalf("ListRoles = %q, want %q", got, want)
	}

	if err := engine.RemovePermission(ctx, id); err != nil {
		t.Fatalf("RemovePermission after unbind failed: %v", err)
	}

	next, err := engine.AddPermission(ctx, Accept, Read, "")
	if err != nil {
		t.Fatalf("AddPermission failed: %v", err)
	}
	if next != 1 {
		t.Fatalf("expected id 1 after deleting id 0, got %d", next)
	}
	if got, want := engine.ListPermissions(), "[1]: accept read on all\n"; got != want {
		t.Fatalf("ListPermissions = %q, want %q", got, want)
	}
}

func TestEngineEmitsChangeEvents(t *testing.T) {
	sink := NewChannelSink(16)

	engine, err := New().WithEventSink(sink).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	ctx := context.Background()
	id, err := engine.AddPermission(ctx, Accept, Read, "/var/log")
	if err != nil {
		t.Fatalf("AddPermission failed: %v", err)
	}
	if err := engine.AddRole(ctx, "reader"); err != nil {
		t.Fatalf("AddRole failed: %v", err)
	}
	slot, err := engine.BindPermission(ctx, id, "reader")
	if err != nil {
		t.Fatalf("BindPermission failed: %v", err)
	}

	added := waitForEvent(t, sink.Events(), EventPermissionAdded)
	if added.PermissionID != id || added.Slot != -1 {
		t.Fatalf("unexpected permission.added payload: %+v", added)
	}
	roleAdded := waitForEvent(t, sink.Events(), EventRoleAdded)
	if roleAdded.Role != "reader" {
		t.Fatalf("unexpected role.added payload: %+v", roleAdded)
	}
	bound := waitForEvent(t, sink.Events(), EventPermissionBound)
	if bound.Role != "reader" || bound.PermissionID != id || bound.Slot != slot {
		t.Fatalf("unexpected permission.bound payload: %+v", bound)
	}
	if bound.Timestamp.IsZero() {
		t.Fatal("expected event timestamp to be set")
	}
}

func TestEngineRejectionsDoNotEmitEvents(t *testing.T) {
	sink := NewChannelSink(16)

	engine, err := New().WithEventSink(sink).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	ctx := context.Background()
	if _, err := engine.BindPermission(ctx, 99, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := engine.RemoveRole(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	select {
	case event := <-sink.Events():
		t.Fatalf("unexpected event after rejected mutations: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEngineMetricsCounters(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.AddPermission(ctx, Accept, Read, "a"); err != nil {
		t.Fatalf("AddPermission failed: %v", err)
	}
	if err := engine.AddRole(ctx, "ops"); err != nil {
		t.Fatalf("AddRole failed: %v", err)
	}
	if err := engine.AddRole(ctx, "ops"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if _, err := engine.BindPermission(ctx, 0, "ops"); err != nil {
		t.Fatalf("BindPermission failed: %v", err)
	}
	if err := engine.RemovePermission(ctx, 0); !errors.Is(err, ErrInUse) {
		t.Fatalf("expected ErrInUse, got %v", err)
	}
	_ = engine.ListPermissions()

	snapshot := engine.MetricsSnapshot()
	expect := map[MetricID]uint64{
		MetricPermissionAdded:         1,
		MetricRoleAdded:               1,
		MetricRoleRejected:            1,
		MetricBindApplied:             1,
		MetricPermissionRemoveBlocked: 1,
	}
	for id, want := range expect {
		if got := snapshot.Counters[id]; got != want {
			t.Fatalf("counter %d = %d, want %d", id, got, want)
		}
	}

	buckets, ok := snapshot.Histograms[MetricListLatency]
	if !ok {
		t.Fatal("expected latency histogram in snapshot")
	}
	var total uint64
	for _, b := range buckets {
		total += b
	}
	if total == 0 {
		t.Fatal("expected at least one latency observation")
	}
}

func TestEngineNotReady(t *testing.T) {
	var engine Engine

	if err := engine.AddRole(context.Background(), "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := engine.AddPermission(context.Background(), Accept, Read, ""); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := engine.RolePermissions("x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if got := engine.ListRoles(); got != "" {
		t.Fatalf("expected empty listing from unready engine, got %q", got)
	}
}

func TestRolePermissionsQuery(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	first, err := engine.AddPermission(ctx, Accept, Read, "/srv")
	if err != nil {
		t.Fatalf("AddPermission failed: %v", err)
	}
	second, err := engine.AddPermission(ctx, Deny, Write, "/srv")
	if err != nil {
		t.Fatalf("AddPermission failed: %v", err)
	}
	if err := engine.AddRole(ctx, "svc"); err != nil {
		t.Fatalf("AddRole failed: %v", err)
	}
	if _, err := engine.BindPermission(ctx, first, "svc"); err != nil {
		t.Fatalf("BindPermission failed: %v", err)
	}
	if _, err := engine.BindPermission(ctx, second, "svc"); err != nil {
		t.Fatalf("BindPermission failed: %v", err)
	}

	bindings, err := engine.RolePermissions("svc")
	if err != nil {
		t.Fatalf("RolePermissions failed: %v", err)
	}
	if len(bindings) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(bindings))
	}
	if bindings[0].Slot != 0 || bindings[0].Permission.ID != first {
		t.Fatalf("unexpected first binding: %+v", bindings[0])
	}
	if bindings[1].Slot != 1 || bindings[1].Permission.ID != second {
		t.Fatalf("unexpected second binding: %+v", bindings[1])
	}

	if _, err := engine.RolePermissions("ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEngineConcurrentAdministration(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	id, err := engine.AddPermission(ctx, Accept, Read, "/shared")
	if err != nil {
		t.Fatalf("AddPermission failed: %v", err)
	}
	if err := engine.AddRole(ctx, "shared"); err != nil {
		t.Fatalf("AddRole failed: %v", err)
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				slot, err := engine.BindPermission(ctx, id, "shared")
				if err != nil {
					continue
				}
				_ = engine.ListRoles()
				_ = engine.UnbindPermission(ctx, slot, "shared")
			}
		}()
	}
	wg.Wait()

	perms := engine.Permissions()
	if len(perms) != 1 {
		t.Fatalf("expected 1 permission, got %d", len(perms))
	}
	bindings, err := engine.RolePermissions("shared")
	if err != nil {
		t.Fatalf("RolePermissions failed: %v", err)
	}
	occupied := len(bindings)
	if perms[0].RefCount != 1+occupied {
		t.Fatalf("refcount %d does not match %d occupied slots", perms[0].RefCount, occupied)
	}
}
