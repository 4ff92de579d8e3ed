package rolegate

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/rolegate/rolegate/internal/stores"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func newSnapshotEngine(t *testing.T, rdb *redis.Client) *Engine {
	t.Helper()

	engine, err := New().WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func TestSaveAndLoadSnapshotAcrossEngines(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	source := newSnapshotEngine(t, rdb)
	if _, err := source.AddPermission(ctx, Deny, Write, "/etc/shadow"); err != nil {
		t.Fatalf("AddPermission failed: %v", err)
	}
	if err := source.AddRole(ctx, "auditor"); err != nil {
		t.Fatalf("AddRole failed: %v", err)
	}
	if _, err := source.BindPermission(ctx, 0, "auditor"); err != nil {
		t.Fatalf("BindPermission failed: %v", err)
	}

	receipt, err := source.SaveSnapshot(ctx)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if receipt.RevisionID == "" {
		t.Fatal("expected non-empty revision id")
	}
	if receipt.Manifest != "" {
		t.Fatalf("expected no manifest without signing config, got %q", receipt.Manifest)
	}

	replica := newSnapshotEngine(t, rdb)
	rev, err := replica.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if rev != receipt.RevisionID {
		t.Fatalf("loaded revision %q, want %q", rev, receipt.RevisionID)
	}

	if got, want := replica.ListRoles(), source.ListRoles(); got != want {
		t.Fatalf("replica roles %q, want %q", got, want)
	}
	if got, want := replica.ListPermissions(), source.ListPermissions(); got != want {
		t.Fatalf("replica permissions %q, want %q", got, want)
	}

	// Refcounts survive the round trip, so the bound permission stays
	// protected on the replica.
	if err := replica.RemovePermission(ctx, 0); !errors.Is(err, ErrInUse) {
		t.Fatalf("expected ErrInUse on replica, got %v", err)
	}
}

func TestLoadSnapshotRevisionPinned(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	engine := newSnapshotEngine(t, rdb)
	if err := engine.AddRole(ctx, "v1"); err != nil {
		t.Fatalf("AddRole failed: %v", err)
	}
	first, err := engine.SaveSnapshot(ctx)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	if err := engine.AddRole(ctx, "v2"); err != nil {
		t.Fatalf("AddRole failed: %v", err)
	}
	if _, err := engine.SaveSnapshot(ctx); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	if err := engine.LoadSnapshotRevision(ctx, first.RevisionID); err != nil {
		t.Fatalf("LoadSnapshotRevision failed: %v", err)
	}
	if got, want := engine.ListRoles(), "v1 with no permission bind\n"; got != want {
		t.Fatalf("ListRoles = %q, want %q", got, want)
	}
}

func TestSnapshotUnavailableWithoutRedis(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.SaveSnapshot(ctx); !errors.Is(err, ErrSnapshotUnavailable) {
		t.Fatalf("expected ErrSnapshotUnavailable, got %v", err)
	}
	if _, err := engine.LoadSnapshot(ctx); !errors.Is(err, ErrSnapshotUnavailable) {
		t.Fatalf("expected ErrSnapshotUnavailable, got %v", err)
	}
}

func TestLoadSnapshotEmptyStore(t *testing.T) {
	_, rdb := newTestRedis(t)
	engine := newSnapshotEngine(t, rdb)

	if _, err := engine.LoadSnapshot(context.Background()); !errors.Is(err, stores.ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricSnapshotFailed]; got != 1 {
		t.Fatalf("expected 1 failed snapshot operation, got %d", got)
	}
}

func TestSnapshotManifestReceipt(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	cfg := defaultConfig()
	cfg.Manifest.Enabled = true
	cfg.Manifest.PrivateKey = priv
	cfg.Manifest.PublicKey = pub
	cfg.Manifest.Issuer = "control-plane"

	engine, err := New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if err := engine.AddRole(ctx, "signed"); err != nil {
		t.Fatalf("AddRole failed: %v", err)
	}

	receipt, err := engine.SaveSnapshot(ctx)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if receipt.Manifest == "" {
		t.Fatal("expected signed manifest in receipt")
	}

	payload, err := engine.db.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	claims, err := engine.VerifyManifest(receipt.Manifest, payload)
	if err != nil {
		t.Fatalf("VerifyManifest failed: %v", err)
	}
	if claims.RevisionID != receipt.RevisionID {
		t.Fatalf("manifest revision %q, want %q", claims.RevisionID, receipt.RevisionID)
	}
	if claims.Roles != 1 || claims.Permissions != 0 {
		t.Fatalf("unexpected manifest counts: roles=%d perms=%d", claims.Roles, claims.Permissions)
	}

	// A doctored payload must not verify against the issued manifest.
	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-1] ^= 0xff
	if _, err := engine.VerifyManifest(receipt.Manifest, tampered); err == nil {
		t.Fatal("expected verification failure for tampered payload")
	}
}

func TestVerifyManifestDisabled(t *testing.T) {
	engine := newTestEngine(t)

	if _, err := engine.VerifyManifest("token", nil); !errors.Is(err, ErrManifestDisabled) {
		t.Fatalf("expected ErrManifestDisabled, got %v", err)
	}
}

func TestSnapshotRestoredEventEmitted(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	sink := NewChannelSink(16)
	engine, err := New().WithRedis(rdb).WithEventSink(sink).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if err := engine.AddRole(ctx, "ops"); err != nil {
		t.Fatalf("AddRole failed: %v", err)
	}
	receipt, err := engine.SaveSnapshot(ctx)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if _, err := engine.LoadSnapshot(ctx); err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	restored := waitForEvent(t, sink.Events(), EventSnapshotRestored)
	if restored.Revision != receipt.RevisionID {
		t.Fatalf("event revision %q, want %q", restored.Revision, receipt.RevisionID)
	}
}
