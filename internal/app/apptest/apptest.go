// Package apptest wires an AppContext over in-memory SQLite and miniredis.
package apptest

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchchat/internal/app"
	"github.com/oggyb/matchchat/internal/cache"
	"github.com/oggyb/matchchat/internal/config"
	"github.com/oggyb/matchchat/internal/db/dbtest"
	"github.com/oggyb/matchchat/internal/logger"
)

// New returns an AppContext over the seeded fixture (alice=1, bob=2,
// carol=3) and the miniredis behind its cache. Each test gets its own
// isolated DB + Redis.
func New(t *testing.T) (*app.AppContext, *miniredis.Miniredis) {
	t.Helper()

	gdb := dbtest.OpenSeeded(t)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	cfg.Auth.JWTSecret = "test-secret"

	redisCache := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = redisCache.Close() })

	return app.New(cfg, gdb, redisCache, logger.Discard(), nil), mr
}
