package realtime

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceKeyPrefix = "rentalhub:presence:"

// presence key: rentalhub:presence:<user>, value: connection id
func presenceKey(userID string) string { return presenceKeyPrefix + userID }

// RedisPresenceMirror publishes presence to Redis with a TTL so other
// processes can read who is online.
type RedisPresenceMirror struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisPresenceMirror(rdb *redis.Client, ttl time.Duration) *RedisPresenceMirror {
	return &RedisPresenceMirror{rdb: rdb, ttl: ttl}
}

func (m *RedisPresenceMirror) Online(ctx context.Context, userID, connID string) error {
	return m.rdb.Set(ctx, presenceKey(userID), connID, m.ttl).Err()
}

func (m *RedisPresenceMirror) Offline(ctx context.Context, userID string) error {
	return m.rdb.Del(ctx, presenceKey(userID)).Err()
}
