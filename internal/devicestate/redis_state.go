package devicestate

import (
	"context"

	redis "github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string, password string, db int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStore{client: client}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) CurrentGroup(ctx context.Context, deviceID string, kind string) (string, bool, error) {
	val, err := s.client.Get(ctx, key(deviceID, kind)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisStore) SetCurrentGroup(ctx context.Context, deviceID string, kind string, groupID string) error {
	// No TTL: the pointer stays until confirmed or discarded. Stale values
	// are revalidated by the staging manager anyway.
	return s.client.Set(ctx, key(deviceID, kind), groupID, 0).Err()
}

func (s *RedisStore) ClearCurrentGroup(ctx context.Context, deviceID string, kind string) error {
	return s.client.Del(ctx, key(deviceID, kind)).Err()
}
