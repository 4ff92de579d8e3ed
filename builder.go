package rolegate

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/rolegate/rolegate/internal/stores"
	"github.com/rolegate/rolegate/manifest"
	"github.com/rolegate/rolegate/policy"
)

// Builder assembles an [Engine]. Construction is allocation-only: no I/O
// happens until engine methods are called.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	eventSink EventSink

	built bool
}

// New returns a builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client backing the snapshot store. Without
// it the engine works fully in memory and snapshot operations fail with
// ErrSnapshotUnavailable.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithEventSink supplies the sink receiving policy change events.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.eventSink = sink
	return b
}

// WithMetricsEnabled toggles the counter registry.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the listing-latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and assembles the engine. A builder can
// be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := policy.NewDB(cfg.policyConfig())
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:  cfg,
		db:      db,
		metrics: NewMetrics(cfg.Metrics),
		events:  newEventDispatcher(cfg.Events, b.eventSink),
	}

	if b.redis != nil {
		engine.snapshots = stores.NewSnapshotStore(b.redis, cfg.Snapshot.RedisPrefix, cfg.Snapshot.TTL)
	}

	if cfg.Manifest.Enabled {
		mm, err := manifest.NewManager(manifest.Config{
			TTL:           cfg.Manifest.TTL,
			SigningMethod: manifest.SigningMethod(cfg.Manifest.SigningMethod),
			PrivateKey:    cloneBytes(cfg.Manifest.PrivateKey),
			PublicKey:     cloneBytes(cfg.Manifest.PublicKey),
			Issuer:        cfg.Manifest.Issuer,
		})
		if err != nil {
			return nil, err
		}
		engine.manifests = mm
	}

	b.built = true

	return engine, nil
}
