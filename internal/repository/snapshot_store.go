package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/session"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/domain"
	"github.com/redis/go-redis/v9"
)

const snapshotKeyPrefix = "navigation:session:"

// RedisSnapshotStore keeps session snapshots in Redis with a sliding TTL.
type RedisSnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSnapshotStore creates a new RedisSnapshotStore. A zero ttl keeps
// snapshots forever.
func NewRedisSnapshotStore(client *redis.Client, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, ttl: ttl}
}

func snapshotKey(sessionID string) string {
	return snapshotKeyPrefix + sessionID
}

// Save writes the snapshot and refreshes its TTL.
func (s *RedisSnapshotStore) Save(ctx context.Context, snap *session.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey(snap.SessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Find returns the snapshot of a session.
func (s *RedisSnapshotStore) Find(ctx context.Context, sessionID string) (*session.Snapshot, error) {
	raw, err := s.client.Get(ctx, snapshotKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.NewNotFoundError("Session", sessionID)
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap session.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Delete removes a session's snapshot.
func (s *RedisSnapshotStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, snapshotKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
