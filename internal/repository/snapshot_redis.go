package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/model"
)

// RedisSnapshotStore persists the session snapshot as a JSON string in Redis.
type RedisSnapshotStore struct {
	rdb   *redis.Client
	owner string
}

// NewRedisSnapshotStore creates a new RedisSnapshotStore for owner.
func NewRedisSnapshotStore(rdb *redis.Client, owner string) *RedisSnapshotStore {
	return &RedisSnapshotStore{rdb: rdb, owner: owner}
}

// ReadSnapshot returns the stored snapshot or nil if there is none.
func (r *RedisSnapshotStore) ReadSnapshot(ctx context.Context) (*model.SessionSnapshot, error) {
	val, err := r.rdb.Get(ctx, config.CacheKey.SessionSnapshotKey(r.owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	snap, err := decodeSnapshot(val)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// WriteSnapshot replaces the stored snapshot.
func (r *RedisSnapshotStore) WriteSnapshot(ctx context.Context, snap *model.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := r.rdb.Set(ctx, config.CacheKey.SessionSnapshotKey(r.owner), data, 0).Err(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// ClearSnapshot deletes the snapshot.
func (r *RedisSnapshotStore) ClearSnapshot(ctx context.Context) error {
	if err := r.rdb.Del(ctx, config.CacheKey.SessionSnapshotKey(r.owner)).Err(); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}
