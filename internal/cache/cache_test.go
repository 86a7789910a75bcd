package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/taskforge/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedis starts an in-process Redis and returns a connected RedisCache.
func setupRedis(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	rc, err := cache.NewRedisCache("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })

	return rc, mr
}

// --- Ping ---

func TestPing(t *testing.T) {
	rc, _ := setupRedis(t)
	assert.NoError(t, rc.Ping(context.Background()))
}

func TestNewRedisCache_InvalidURL(t *testing.T) {
	_, err := cache.NewRedisCache("not-a-url")
	assert.Error(t, err)
}

// --- IncrWithExpiry ---

func TestIncrWithExpiry_CountsAndExpires(t *testing.T) {
	rc, mr := setupRedis(t)
	ctx := context.Background()
	key := cache.RateLimitKey("login", "10.0.0.1")

	for want := int64(1); want <= 3; want++ {
		n, err := rc.IncrWithExpiry(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(time.Minute + time.Second)

	n, err := rc.IncrWithExpiry(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// --- Session revocation ---

func TestRevokeSession(t *testing.T) {
	rc, mr := setupRedis(t)
	ctx := context.Background()
	id := uuid.New()

	revoked, err := rc.IsSessionRevoked(ctx, id)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, rc.RevokeSession(ctx, id, time.Hour))

	revoked, err = rc.IsSessionRevoked(ctx, id)
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(time.Hour + time.Second)

	revoked, err = rc.IsSessionRevoked(ctx, id)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevokeSession_ExpiredTokenIsNoop(t *testing.T) {
	rc, mr := setupRedis(t)
	id := uuid.New()

	require.NoError(t, rc.RevokeSession(context.Background(), id, 0))
	assert.False(t, mr.Exists(cache.RevokedSessionKey(id)))
}

func TestIsSessionRevoked_RedisDown(t *testing.T) {
	rc, mr := setupRedis(t)
	mr.Close()

	_, err := rc.IsSessionRevoked(context.Background(), uuid.New())
	assert.Error(t, err)
}

// --- Keys ---

func TestKeys(t *testing.T) {
	id := uuid.MustParse("6f1c2f0e-0d8a-4a57-9d7e-2a0d6c3b9f10")
	assert.Equal(t, "ratelimit:user:abc", cache.RateLimitKey("user", "abc"))
	assert.Equal(t, "session:revoked:6f1c2f0e-0d8a-4a57-9d7e-2a0d6c3b9f10", cache.RevokedSessionKey(id))
}
