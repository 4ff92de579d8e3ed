package rolegate

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a counter or histogram in the engine's registry.
type MetricID uint16

const (
	// MetricRoleAdded counts successful role creations.
	MetricRoleAdded MetricID = iota
	// MetricRoleRejected counts role creations rejected for any reason.
	MetricRoleRejected
	// MetricRoleRemoved counts successful role removals.
	MetricRoleRemoved
	// MetricRoleRemoveBlocked counts role removals blocked by references.
	MetricRoleRemoveBlocked
	// MetricPermissionAdded counts successful permission creations.
	MetricPermissionAdded
	// MetricPermissionRejected counts rejected permission creations.
	MetricPermissionRejected
	// MetricPermissionRemoved counts successful permission removals.
	MetricPermissionRemoved
	// MetricPermissionRemoveBlocked counts permission removals blocked by
	// outstanding bindings.
	MetricPermissionRemoveBlocked
	// MetricBindApplied counts successful binds.
	MetricBindApplied
	// MetricBindRejected counts rejected binds (unknown entity or full table).
	MetricBindRejected
	// MetricUnbindApplied counts successful unbinds.
	MetricUnbindApplied
	// MetricUnbindRejected counts rejected unbinds.
	MetricUnbindRejected
	// MetricSnapshotSaved counts snapshots saved to the snapshot store.
	MetricSnapshotSaved
	// MetricSnapshotLoaded counts snapshots restored from the snapshot store.
	MetricSnapshotLoaded
	// MetricSnapshotFailed counts failed snapshot save/load operations.
	MetricSnapshotFailed
	// MetricListLatency is the render-latency histogram for the listing
	// operations.
	MetricListLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed-size atomic counter registry. Increments are lock-free;
// Snapshot reads are approximate across counters but exact per counter.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of the registry.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a registry honoring the given configuration. A disabled
// registry accepts increments and discards them.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether the registry records anything at all.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the identified counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a render duration into the listing-latency histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricListLatency {
		return
	}
	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the identified counter's current value.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters (and the latency histogram when enabled).
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricListLatency].buckets[i])
		}
		s.Histograms[MetricListLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	us := d.Microseconds()

	switch {
	case us <= 50:
		return 0
	case us <= 100:
		return 1
	case us <= 250:
		return 2
	case us <= 500:
		return 3
	case us <= 1000:
		return 4
	case us <= 2500:
		return 5
	case us <= 5000:
		return 6
	default:
		return 7
	}
}
