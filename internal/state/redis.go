package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key RedisStore uses when none is given.
const DefaultRedisKey = "tgdispatch:offset"

// RedisStore keeps the offset under a single Redis key, so several hosts
// polling the same bot share it.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

// NewRedisStore wraps client. An empty key uses DefaultRedisKey.
func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (int, error) {
	offset, err := s.client.Get(ctx, s.key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return offset, nil
}

func (s *RedisStore) Save(ctx context.Context, offset int) error {
	if err := s.client.Set(ctx, s.key, offset, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}
