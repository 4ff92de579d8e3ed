package rolegate

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// EventType names a policy mutation.
type EventType string

const (
	// EventRoleAdded signals a role creation.
	EventRoleAdded EventType = "role.added"
	// EventRoleRemoved signals a role removal.
	EventRoleRemoved EventType = "role.removed"
	// EventPermissionAdded signals a permission creation.
	EventPermissionAdded EventType = "permission.added"
	// EventPermissionRemoved signals a permission removal.
	EventPermissionRemoved EventType = "permission.removed"
	// EventPermissionBound signals a bind into a role slot.
	EventPermissionBound EventType = "permission.bound"
	// EventPermissionUnbound signals a cleared role slot.
	EventPermissionUnbound EventType = "permission.unbound"
	// EventSnapshotRestored signals that the whole store was replaced from
	// a snapshot; consumers must drop every cached decision.
	EventSnapshotRestored EventType = "snapshot.restored"
)

// Event describes one successful policy mutation. Enforcement points
// subscribe to invalidate cached role→permission decisions; only mutations
// that actually changed state are emitted. PermissionID and Slot are -1 when
// not applicable.
type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	Type         EventType `json:"type"`
	Role         string    `json:"role,omitempty"`
	PermissionID int       `json:"permission_id"`
	Slot         int       `json:"slot"`
	Revision     string    `json:"revision,omitempty"`
}

// EventSink receives policy change events. Implementations must be safe for
// concurrent use; slow sinks only ever delay (or drop, per configuration)
// the notification stream, never the mutation itself.
type EventSink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink discards all events.
type NoOpSink struct{}

// Emit implements [EventSink].
func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink buffers events on a channel for in-process consumers.
type ChannelSink struct {
	events chan Event
}

// NewChannelSink creates a sink with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

// Emit implements [EventSink].
func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events exposes the receive side of the sink.
func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per event to a writer, typically a
// log file or pipe consumed by an out-of-process enforcement point.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink creates a sink writing newline-delimited JSON to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

// Emit implements [EventSink].
func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
