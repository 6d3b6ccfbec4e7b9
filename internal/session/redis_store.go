package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the token under a single key.  When the token is a
// JWT with an expiry, the key expires together with it.
type RedisStore struct {
	client redis.Cmdable
	key    string
	now    func() time.Time
}

// NewRedisStore returns a store using key on client.
func NewRedisStore(client redis.Cmdable, key string) *RedisStore {
	return &RedisStore{client: client, key: key, now: time.Now}
}

// Load implements Store.
func (r *RedisStore) Load(ctx context.Context) (string, error) {
	token, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return token, err
}

// Save implements Store.  Tokens that are already expired, including
// one expiring exactly now, are not stored.
func (r *RedisStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return r.Delete(ctx)
	}
	var ttl time.Duration
	if claims, ok := ParseClaims(token); ok {
		ttl = claims.TTL(r.now())
		if !claims.ExpiresAt.IsZero() && ttl <= 0 {
			return r.Delete(ctx)
		}
	}
	return r.client.Set(ctx, r.key, token, ttl).Err()
}

// Delete implements Store.
func (r *RedisStore) Delete(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}
