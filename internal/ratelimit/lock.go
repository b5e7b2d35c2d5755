package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Released only when the stored token still belongs to the caller, so a
// submission whose lock expired cannot release the lock a later
// submission now holds.
const releaseOwnedScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Lock is a redis lock held for the duration of one checkout
// submission. Each acquisition mints a token identifying the holder.
type Lock struct {
	client  *redis.Client
	release *redis.Script
}

func NewLock(client *redis.Client) *Lock {
	if client == nil {
		return nil
	}
	return &Lock{
		client:  client,
		release: redis.NewScript(releaseOwnedScript),
	}
}

// Acquire takes the lock at key for at most ttl. It returns the holder
// token and whether the lock was obtained.
func (l *Lock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	if key == "" {
		return "", false, errors.New("lock key is required")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, acquired, nil
}

// Release drops the lock at key if token still owns it.
func (l *Lock) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.release.Run(ctx, l.client, []string{key}, token).Err()
}
