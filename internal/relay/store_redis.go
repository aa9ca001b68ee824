package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/vmihailenco/msgpack/v5"
)

// snapshotTTL bounds how long an abandoned room's seats survive in Redis.
// Live rooms are deleted explicitly when they empty; the TTL only covers
// relay crashes.
const snapshotTTL = 12 * time.Hour

// RedisStore persists seat snapshots in Redis, msgpack-encoded.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func snapshotKey(roomID string) string {
	return "classroom:seats:" + roomID
}

func (s *RedisStore) Save(ctx context.Context, roomID string, seats map[string]string) error {
	data, err := msgpack.Marshal(seats)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.rdb.Set(ctx, snapshotKey(roomID), data, snapshotTTL).Err()
}

func (s *RedisStore) Load(ctx context.Context, roomID string) (map[string]string, error) {
	data, err := s.rdb.Get(ctx, snapshotKey(roomID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var seats map[string]string
	if err := msgpack.Unmarshal(data, &seats); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return seats, nil
}

func (s *RedisStore) Delete(ctx context.Context, roomID string) error {
	return s.rdb.Del(ctx, snapshotKey(roomID)).Err()
}

// Close releases the underlying Redis connection pool.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
