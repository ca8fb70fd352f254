package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/queryforge/queryforge-cli/internal/bridge"
)

const redisKeyPrefix = "queryforge:token:"

// RedisCache shares tokens across CLI invocations via Redis. Cache failures
// are downgraded to misses; the token endpoint is always a valid fallback.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to the Redis instance described by addr
// ("host:port" or a redis:// URL).
func NewRedisCache(addr string) (*RedisCache, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

type redisEntry struct {
	AccessToken string    `json:"access_token"`
	Host        string    `json:"host"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (c *RedisCache) Get(ctx context.Context, key string) (bridge.Credentials, time.Time, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Debug("token cache read failed", "error", err)
		}
		return bridge.Credentials{}, time.Time{}, false
	}
	var entry redisEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return bridge.Credentials{}, time.Time{}, false
	}
	return bridge.Credentials{AccessToken: entry.AccessToken, Host: entry.Host}, entry.ExpiresAt, true
}

func (c *RedisCache) Set(ctx context.Context, key string, creds bridge.Credentials, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(redisEntry{
		AccessToken: creds.AccessToken,
		Host:        creds.Host,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, data, ttl).Err(); err != nil {
		slog.Debug("token cache write failed", "error", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		slog.Debug("token cache delete failed", "error", err)
	}
}

var _ TokenCache = (*RedisCache)(nil)
