package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/banking/kyc-service/internal/domain"
	"github.com/banking/kyc-service/internal/pkg/logger"
)

// releaseScript deletes the lock only if it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

const releaseTimeout = 2 * time.Second

// RedisLocker is a distributed per-key lock shared by all service replicas.
// The TTL bounds how long a crashed holder can block others.
type RedisLocker struct {
	client     redis.UniversalClient
	ttl        time.Duration
	retryDelay time.Duration
	log        *logger.Logger
}

// NewRedisLocker creates a locker. Zero durations fall back to 2m TTL and
// 50ms polling.
func NewRedisLocker(client redis.UniversalClient, ttl, retryDelay time.Duration, log *logger.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if retryDelay <= 0 {
		retryDelay = 50 * time.Millisecond
	}
	return &RedisLocker{client: client, ttl: ttl, retryDelay: retryDelay, log: log.Named("redis_lock")}
}

// Lock polls SET NX until the key is acquired or ctx ends
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ticker := time.NewTicker(l.retryDelay)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrLockNotAcquired, err)
		}
		if ok {
			return l.unlocker(key, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", domain.ErrLockNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) unlocker(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's context may already be done
			ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				l.log.Warn("Failed to release lock, it will expire with its TTL",
					zap.String("key", key),
					zap.Error(err),
				)
			}
		})
	}
}
