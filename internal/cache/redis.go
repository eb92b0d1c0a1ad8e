package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/enviducate/backend/pkg/logger"
)

const redisKeyPrefix = "enviducate:result:"

// RedisStore backs the result cache with Redis, using its native TTL
// handling. Cache errors are logged and treated as misses.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(addr, password string, db int, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: ttl,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	payload, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("Redis cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return payload, true
}

func (s *RedisStore) Set(ctx context.Context, key string, payload []byte) {
	if err := s.client.Set(ctx, redisKeyPrefix+key, payload, s.ttl).Err(); err != nil {
		logger.Warn("Redis cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
