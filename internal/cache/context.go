package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/banking/kyc-service/internal/pkg/logger"
	"github.com/banking/kyc-service/internal/privacy"
	"github.com/banking/kyc-service/internal/risk"
)

const contextKeyPrefix = keyPrefix + "context:"

// ContextCache memoises regulatory-context lookups. Redis errors are logged
// and the lookup goes straight to the wrapped retriever.
type ContextCache struct {
	client redis.UniversalClient
	next   risk.ContextRetriever
	ttl    time.Duration
	log    *logger.Logger
}

// NewContextCache wraps next with a Redis cache
func NewContextCache(client redis.UniversalClient, next risk.ContextRetriever, ttl time.Duration, log *logger.Logger) *ContextCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ContextCache{client: client, next: next, ttl: ttl, log: log.Named("context_cache")}
}

// RetrieveContext returns the cached passage for query, or fetches and stores it.
// Empty results are cached too.
func (c *ContextCache) RetrieveContext(ctx context.Context, query string) (string, error) {
	key := contextKey(query)

	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return cached, nil
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("Context cache read failed", zap.Error(err))
	}

	text, err := c.next.RetrieveContext(ctx, query)
	if err != nil {
		return "", err
	}

	if err := c.client.Set(ctx, key, text, c.ttl).Err(); err != nil {
		c.log.Warn("Context cache write failed", zap.Error(err))
	}
	return text, nil
}

func contextKey(query string) string {
	return contextKeyPrefix + privacy.HashIdentifier(query)
}
