package app

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/matchchat/internal/cache"
	"github.com/oggyb/matchchat/internal/config"
	"github.com/oggyb/matchchat/internal/metrics"
)

// AppContext holds shared dependencies (DB, Redis, Logger, Metrics, Config)
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Metrics    *metrics.Collector
}

// New creates a new AppContext. A nil collector gets a private one so
// callers never need nil checks.
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, m *metrics.Collector) *AppContext {
	if m == nil {
		m = metrics.NewCollector("matchchat")
	}
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Metrics:    m,
	}
}

// WithTimeout bounds a store operation by the configured request timeout.
func (a *AppContext) WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	d := 5 * time.Second
	if a.Config != nil && a.Config.App.RequestTimeout > 0 {
		d = a.Config.App.RequestTimeout
	}
	return context.WithTimeout(parent, d)
}
