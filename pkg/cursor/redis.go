package cursor

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "zendesk:cursor:"

// RedisStore persists watermarks in Redis so multiple gateway instances
// can share incremental progress.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) GetCursor(ctx context.Context, key string) (int64, bool, error) {
	val, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get cursor %q: %w", key, err)
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("redis cursor %q holds non-integer %q: %w", key, val, err)
	}
	return n, true, nil
}

func (s *RedisStore) SetCursor(ctx context.Context, key string, value int64) error {
	if err := s.client.Set(ctx, redisKeyPrefix+key, strconv.FormatInt(value, 10), 0).Err(); err != nil {
		return fmt.Errorf("redis set cursor %q: %w", key, err)
	}
	return nil
}
