package cache

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/kyc-service/internal/domain"
	"github.com/banking/kyc-service/internal/pkg/logger"
	"github.com/banking/kyc-service/internal/screening"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type countingRetriever struct {
	calls atomic.Int32
	text  string
	err   error
}

func (r *countingRetriever) RetrieveContext(context.Context, string) (string, error) {
	r.calls.Add(1)
	return r.text, r.err
}

func TestContextKey(t *testing.T) {
	k := contextKey("KYC AML risk assessment FR")
	assert.Equal(t, k, contextKey("KYC AML risk assessment FR"))
	assert.NotEqual(t, k, contextKey("KYC AML risk assessment DE"))
	assert.NotContains(t, k, "AML")
	assert.Contains(t, k, contextKeyPrefix)
}

func TestRedisLocker_Contention(t *testing.T) {
	client := redisClient(t)
	locker := NewRedisLocker(client, 5*time.Second, 10*time.Millisecond, logger.NewNop())
	key := "kyc:test:lock:" + uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), key) })

	unlock, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, key)
	assert.ErrorIs(t, err, domain.ErrLockNotAcquired)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()

	unlock2, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)
	unlock2()
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	client := redisClient(t)
	locker := NewRedisLocker(client, time.Second, 10*time.Millisecond, logger.NewNop())
	key := "kyc:test:lock:" + uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), key) })

	unlock, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)

	// simulate expiry and takeover by another replica
	require.NoError(t, client.Set(context.Background(), key, "other", time.Second).Err())
	unlock()

	v, err := client.Get(context.Background(), key).Result()
	require.NoError(t, err)
	assert.Equal(t, "other", v)
}

func TestContextCache(t *testing.T) {
	client := redisClient(t)
	next := &countingRetriever{text: "FATF Recommendation 12"}
	c := NewContextCache(client, next, time.Minute, logger.NewNop())
	query := "KYC AML risk assessment " + uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), contextKey(query)) })

	for i := 0; i < 3; i++ {
		text, err := c.RetrieveContext(context.Background(), query)
		require.NoError(t, err)
		assert.Equal(t, "FATF Recommendation 12", text)
	}
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestContextCache_ErrorNotCached(t *testing.T) {
	client := redisClient(t)
	next := &countingRetriever{err: errors.New("gateway down")}
	c := NewContextCache(client, next, time.Minute, logger.NewNop())
	query := "KYC AML risk assessment " + uuid.NewString()

	_, err := c.RetrieveContext(context.Background(), query)
	require.Error(t, err)
	_, err = c.RetrieveContext(context.Background(), query)
	require.Error(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestWatchlistSource_SeedsAndPublishes(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	t.Cleanup(func() { client.Del(ctx, sanctionsKey, pepKey) })
	client.Del(ctx, sanctionsKey, pepKey)

	seed := screening.StaticSource{
		Sanctions: []screening.SanctionsEntry{{EntityID: "S-1", Name: "Ivan Petrov", Program: "SDGT"}},
		PEPs:      []screening.PEPEntry{{ID: "P-1", Name: "Maria Lopez", Country: "ES", IsActive: true}},
	}
	src := NewWatchlistSource(client, seed, logger.NewNop())

	sanctions, err := src.SanctionsEntries(ctx)
	require.NoError(t, err)
	require.Len(t, sanctions, 1)

	// a second replica without a seed sees the shared copy
	shared := NewWatchlistSource(client, nil, logger.NewNop())
	sanctions, err = shared.SanctionsEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ivan Petrov", sanctions[0].Name)

	require.NoError(t, src.Publish(ctx, nil, []screening.PEPEntry{{ID: "P-2", Name: "Ana Silva"}}))
	peps, err := shared.PEPEntries(ctx)
	require.NoError(t, err)
	require.Len(t, peps, 1)
	assert.Equal(t, "P-2", peps[0].ID)
}
