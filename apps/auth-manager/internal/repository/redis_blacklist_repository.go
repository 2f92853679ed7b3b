package repository

import (
	"context"
	"errors"
	"time"

	"github.com/prohmpiriya/hr-identity/pkg/redis"
)

// BlacklistKeyPrefix namespaces revoked access tokens in Redis
const BlacklistKeyPrefix = "blacklist:"

var errEmptyToken = errors.New("empty token")

// RedisBlacklistRepository implements BlacklistRepository using Redis TTL keys
type RedisBlacklistRepository struct {
	client *redis.Client
}

// NewRedisBlacklistRepository creates a new RedisBlacklistRepository
func NewRedisBlacklistRepository(client *redis.Client) *RedisBlacklistRepository {
	return &RedisBlacklistRepository{client: client}
}

// BlacklistKey returns the Redis key for a raw access token
func BlacklistKey(token string) string {
	return BlacklistKeyPrefix + token
}

// Add writes blacklist:<token> = "true" expiring after ttl
func (r *RedisBlacklistRepository) Add(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" {
		return errEmptyToken
	}
	return r.client.SetWithTTL(ctx, BlacklistKey(token), "true", ttl)
}

// Contains reports whether the token has a live blacklist entry
func (r *RedisBlacklistRepository) Contains(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	_, found, err := r.client.GetString(ctx, BlacklistKey(token))
	return found, err
}
