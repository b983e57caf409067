package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchchat/internal/cache"
	"github.com/oggyb/matchchat/internal/config"
)

func setupCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	c := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestLikeCount(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	// incr on a miss keeps it a miss
	require.NoError(t, c.IncrLikeCount(ctx, 7))
	_, hit, err := c.GetLikeCount(ctx, 7)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.SetLikeCount(ctx, 7, 2))
	require.NoError(t, c.IncrLikeCount(ctx, 7))
	n, hit, err := c.GetLikeCount(ctx, 7)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(3), n)

	for i := 0; i < 5; i++ {
		require.NoError(t, c.DecrLikeCount(ctx, 7))
	}
	n, _, err = c.GetLikeCount(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	assert.True(t, mr.TTL(c.KeyForLikeCount(7)) > 0)
}

func TestMatchSet(t *testing.T) {
	ctx := context.Background()
	c, _ := setupCache(t)

	ok, err := c.IsMatchCached(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.RememberMatch(ctx, 1, 2))

	for _, pair := range [][2]uint64{{1, 2}, {2, 1}} {
		ok, err := c.IsMatchCached(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	require.NoError(t, c.SaveSession(ctx, 1, "tok-a", time.Hour))
	require.NoError(t, c.SaveSession(ctx, 1, "tok-b", time.Hour))

	uid, ok, err := c.SessionUser(ctx, "tok-a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), uid)

	require.NoError(t, c.DeleteSession(ctx, 1, "tok-a"))
	_, ok, err = c.SessionUser(ctx, "tok-a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.DeleteAllSessions(ctx, 1))
	_, ok, err = c.SessionUser(ctx, "tok-b")
	require.NoError(t, err)
	assert.False(t, ok)

	// expiry
	require.NoError(t, c.SaveSession(ctx, 2, "tok-c", time.Minute))
	mr.FastForward(2 * time.Minute)
	_, ok, err = c.SessionUser(ctx, "tok-c")
	require.NoError(t, err)
	assert.False(t, ok)
}
