// Package internaldefs holds the metric name table shared by the exporters.
// It is internal to the export packages and not a public API.
package internaldefs

import (
	rolegate "github.com/rolegate/rolegate"
)

// CounterDef maps a MetricID to its exposition name.
type CounterDef struct {
	ID   rolegate.MetricID
	Name string
	Help string
}

// HistogramDef maps a histogram MetricID to its exposition name.
type HistogramDef struct {
	ID   rolegate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in MetricID order.
var CounterDefs = []CounterDef{
	{ID: rolegate.MetricRoleAdded, Name: "rolegate_role_added_total", Help: "Successful role creations."},
	{ID: rolegate.MetricRoleRejected, Name: "rolegate_role_rejected_total", Help: "Rejected role creations."},
	{ID: rolegate.MetricRoleRemoved, Name: "rolegate_role_removed_total", Help: "Successful role removals."},
	{ID: rolegate.MetricRoleRemoveBlocked, Name: "rolegate_role_remove_blocked_total", Help: "Role removals blocked by outstanding references."},
	{ID: rolegate.MetricPermissionAdded, Name: "rolegate_permission_added_total", Help: "Successful permission creations."},
	{ID: rolegate.MetricPermissionRejected, Name: "rolegate_permission_rejected_total", Help: "Rejected permission creations."},
	{ID: rolegate.MetricPermissionRemoved, Name: "rolegate_permission_removed_total", Help: "Successful permission removals."},
	{ID: rolegate.MetricPermissionRemoveBlocked, Name: "rolegate_permission_remove_blocked_total", Help: "Permission removals blocked by outstanding bindings."},
	{ID: rolegate.MetricBindApplied, Name: "rolegate_bind_applied_total", Help: "Successful permission binds."},
	{ID: rolegate.MetricBindRejected, Name: "rolegate_bind_rejected_total", Help: "Rejected permission binds."},
	{ID: rolegate.MetricUnbindApplied, Name: "rolegate_unbind_applied_total", Help: "Successful permission unbinds."},
	{ID: rolegate.MetricUnbindRejected, Name: "rolegate_unbind_rejected_total", Help: "Rejected permission unbinds."},
	{ID: rolegate.MetricSnapshotSaved, Name: "rolegate_snapshot_saved_total", Help: "Snapshots saved to the snapshot store."},
	{ID: rolegate.MetricSnapshotLoaded, Name: "rolegate_snapshot_loaded_total", Help: "Snapshots restored from the snapshot store."},
	{ID: rolegate.MetricSnapshotFailed, Name: "rolegate_snapshot_failed_total", Help: "Failed snapshot save or load operations."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: rolegate.MetricListLatency, Name: "rolegate_list_latency_seconds", Help: "Listing render latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds, matching the
// microsecond buckets of the core registry.
var HistogramBounds = []string{
	"0.00005",
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"0.0025",
	"0.005",
	"+Inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form the
// Prometheus exposition format requires.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
