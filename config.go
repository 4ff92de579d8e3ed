package rolegate

import (
	"errors"
	"time"

	"github.com/rolegate/rolegate/manifest"
	"github.com/rolegate/rolegate/policy"
)

// Config collects every tunable of the engine. It is copied on Build and
// treated as immutable afterwards.
type Config struct {
	Policy   PolicyConfig
	Snapshot SnapshotConfig
	Manifest ManifestConfig
	Events   EventsConfig
	Metrics  MetricsConfig
}

/*
====================================
POLICY CONFIG
====================================
*/

// PolicyConfig bounds the store; see [policy.Config] for field semantics.
type PolicyConfig struct {
	RoleMaxPerms   int
	RoleNameMaxLen int
	MaxRoles       int
	MaxPermissions int
}

/*
====================================
SNAPSHOT CONFIG
====================================
*/

// SnapshotConfig controls the Redis-backed snapshot store. TTL zero keeps
// revisions until overwritten or expired by Redis policy.
type SnapshotConfig struct {
	RedisPrefix string
	TTL         time.Duration
}

/*
====================================
MANIFEST CONFIG
====================================
*/

// ManifestConfig controls signed revision manifests. When enabled, every
// saved snapshot is accompanied by a compact signed token binding the
// revision id to a digest of its payload.
type ManifestConfig struct {
	Enabled       bool
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	TTL           time.Duration
	Issuer        string
}

/*
====================================
EVENTS CONFIG
====================================
*/

// EventsConfig controls the policy change notification stream consumed by
// enforcement points for cache invalidation.
type EventsConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the counter registry.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		Policy: PolicyConfig{
			RoleMaxPerms:   policy.DefaultRoleMaxPerms,
			RoleNameMaxLen: policy.DefaultRoleNameMaxLen,
		},
		Snapshot: SnapshotConfig{
			RedisPrefix: "rolegate",
		},
		Manifest: ManifestConfig{
			SigningMethod: string(manifest.MethodEd25519),
			TTL:           time.Hour,
		},
		Events: EventsConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Manifest.PrivateKey = cloneBytes(cfg.Manifest.PrivateKey)
	out.Manifest.PublicKey = cloneBytes(cfg.Manifest.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first configuration error, if any. Policy bounds are
// validated by the policy package itself; this covers the engine sections.
func (c Config) Validate() error {
	if err := c.policyConfig().Validate(); err != nil {
		return err
	}
	if c.Snapshot.RedisPrefix == "" {
		return errors.New("Snapshot.RedisPrefix must not be empty")
	}
	if c.Snapshot.TTL < 0 {
		return errors.New("Snapshot.TTL must not be negative")
	}
	if c.Events.Enabled && c.Events.BufferSize < 0 {
		return errors.New("Events.BufferSize must not be negative")
	}
	if c.Manifest.Enabled {
		if c.Manifest.TTL <= 0 {
			return errors.New("Manifest.TTL must be positive")
		}
		switch manifest.SigningMethod(c.Manifest.SigningMethod) {
		case manifest.MethodEd25519, manifest.MethodHS256:
		default:
			return errors.New("Manifest.SigningMethod must be ed25519 or hs256")
		}
	}
	return nil
}

func (c Config) policyConfig() policy.Config {
	return policy.Config{
		RoleMaxPerms:   c.Policy.RoleMaxPerms,
		RoleNameMaxLen: c.Policy.RoleNameMaxLen,
		MaxRoles:       c.Policy.MaxRoles,
		MaxPermissions: c.Policy.MaxPermissions,
	}
}
