package ratelimit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nimbusdeck/edge/internal/storage"
)

// RedisWindowStore keeps window records as JSON values with a passive TTL,
// so expiry needs no reaper process.
type RedisWindowStore struct {
	redis *storage.RedisClient
}

func NewRedisWindowStore(redis *storage.RedisClient) *RedisWindowStore {
	return &RedisWindowStore{redis: redis}
}

func (s *RedisWindowStore) Get(ctx context.Context, key string) (*Window, error) {
	data, err := s.redis.Get(ctx, key)
	if storage.IsNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var w Window
	if err := json.Unmarshal([]byte(data), &w); err != nil {
		// A corrupt record is treated as absent so the window restarts.
		return nil, nil
	}

	return &w, nil
}

func (s *RedisWindowStore) Put(ctx context.Context, key string, w *Window, ttl time.Duration) error {
	data, err := json.Marshal(w)
	if err != nil {
		return err
	}

	return s.redis.Set(ctx, key, data, ttl)
}
