package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrSnapshotNotFound reports that no revision (or no latest pointer)
	// exists under the configured prefix.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrSnapshotRedisUnavailable wraps transport-level Redis failures.
	ErrSnapshotRedisUnavailable = errors.New("snapshot redis unavailable")
)

// SnapshotStore parks encoded policy snapshots in Redis. Each save creates
// an immutable revision keyed by a fresh UUID and advances the latest
// pointer; readers fetch either the latest revision or a pinned one.
type SnapshotStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewSnapshotStore creates a store under the given key prefix. A zero TTL
// keeps revisions until Redis policy expires them.
func NewSnapshotStore(client redis.UniversalClient, prefix string, ttl time.Duration) *SnapshotStore {
	if prefix == "" {
		prefix = "rolegate"
	}
	return &SnapshotStore{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *SnapshotStore) revisionKey(rev string) string {
	return s.prefix + ":snapshot:" + rev
}

func (s *SnapshotStore) latestKey() string {
	return s.prefix + ":snapshot:latest"
}

// Save stores the payload as a new revision and advances the latest pointer
// in one pipeline. It returns the new revision id.
func (s *SnapshotStore) Save(ctx context.Context, payload []byte) (string, error) {
	rev := uuid.NewString()

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.revisionKey(rev), payload, s.ttl)
		pipe.Set(ctx, s.latestKey(), rev, s.ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSnapshotRedisUnavailable, err)
	}

	return rev, nil
}

// Load fetches the latest revision. It returns the revision id alongside
// the payload so the caller can verify a manifest against it.
func (s *SnapshotStore) Load(ctx context.Context) (string, []byte, error) {
	rev, err := s.redis.Get(ctx, s.latestKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil, ErrSnapshotNotFound
		}
		return "", nil, fmt.Errorf("%w: %v", ErrSnapshotRedisUnavailable, err)
	}

	payload, err := s.LoadRevision(ctx, rev)
	if err != nil {
		return "", nil, err
	}
	return rev, payload, nil
}

// LoadRevision fetches a pinned revision by id.
func (s *SnapshotStore) LoadRevision(ctx context.Context, rev string) ([]byte, error) {
	payload, err := s.redis.Get(ctx, s.revisionKey(rev)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrSnapshotRedisUnavailable, err)
	}
	return payload, nil
}
