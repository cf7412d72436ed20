package claims

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AuthCache is an explicit keyed store for authorization numbers and
// session ids, bounded by encounter lifetime. It replaces the global
// mutable session map of older code: resolvers receive it as a dependency
// and entries expire on their own.
type AuthCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAuthCache creates a redis-backed auth cache. Entries live for ttl,
// which should exceed the longest plausible encounter (a clinic day).
func NewAuthCache(client *redis.Client, ttl time.Duration) *AuthCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthCache{client: client, ttl: ttl}
}

func authKey(encounterID string) string {
	return fmt.Sprintf("claims:auth:%s", encounterID)
}

func sessionKey(encounterID string) string {
	return fmt.Sprintf("claims:session:%s", encounterID)
}

// GetAuthorization returns the cached authorization number, or "" when the
// key is absent.
func (c *AuthCache) GetAuthorization(ctx context.Context, encounterID string) (string, error) {
	return c.get(ctx, authKey(encounterID))
}

// PutAuthorization caches an authorization number for the encounter.
func (c *AuthCache) PutAuthorization(ctx context.Context, encounterID, number string) error {
	return c.put(ctx, authKey(encounterID), number)
}

// GetSession returns the cached session id, or "" when the key is absent.
func (c *AuthCache) GetSession(ctx context.Context, encounterID string) (string, error) {
	return c.get(ctx, sessionKey(encounterID))
}

// PutSession caches a session id for the encounter.
func (c *AuthCache) PutSession(ctx context.Context, encounterID, sessionID string) error {
	return c.put(ctx, sessionKey(encounterID), sessionID)
}

// Invalidate drops both entries for a completed encounter.
func (c *AuthCache) Invalidate(ctx context.Context, encounterID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, authKey(encounterID), sessionKey(encounterID)).Err(); err != nil {
		return fmt.Errorf("claims: invalidate auth cache: %w", err)
	}
	return nil
}

func (c *AuthCache) get(ctx context.Context, key string) (string, error) {
	if c == nil || c.client == nil {
		return "", nil
	}
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("claims: auth cache get: %w", err)
	}
	return val, nil
}

func (c *AuthCache) put(ctx context.Context, key, value string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("claims: auth cache set: %w", err)
	}
	return nil
}
