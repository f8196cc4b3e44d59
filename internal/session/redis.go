package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis as JSON strings with a TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a store on a new client. A ttl <= 0 uses DefaultTTL.
func NewRedisStore(opts *redis.Options, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: redis.NewClient(opts), ttl: ttl}
}

// Key returns the Redis key holding session id.
func Key(id string) string {
	return "hearth:session:" + id
}

// Ping verifies Redis connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

// Get loads the session with id, or ErrNotFound if the key is missing.
func (r *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	data, err := r.rdb.Get(ctx, Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to read session from Redis: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return s, nil
}

// Save writes s and refreshes its TTL.
func (r *RedisStore) Save(ctx context.Context, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, Key(s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session to Redis: %w", err)
	}
	return nil
}

// Delete removes the session with id.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, Key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session from Redis: %w", err)
	}
	return nil
}
