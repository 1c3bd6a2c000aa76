package cache

import (
	"fmt"
	"time"

	appinv "github.com/commerce/backoffice/internal/application/inventory"
	"github.com/commerce/backoffice/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ReportCacheFactory creates report caches based on configuration
type ReportCacheFactory struct {
	redisConfig           config.RedisConfig
	ttl                   time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ReportCacheFactoryOption is a functional option for configuring the factory
type ReportCacheFactoryOption func(*ReportCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ReportCacheFactoryOption {
	return func(f *ReportCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) ReportCacheFactoryOption {
	return func(f *ReportCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewReportCacheFactory creates a new factory
func NewReportCacheFactory(cfg config.RedisConfig, ttl time.Duration, opts ...ReportCacheFactoryOption) *ReportCacheFactory {
	f := &ReportCacheFactory{
		redisConfig:           cfg,
		ttl:                   ttl,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-based report cache
func (f *ReportCacheFactory) CreateRedisCache() (appinv.ReportCache, error) {
	redisCfg := RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}

	cache, err := NewRedisReportCache(redisCfg, f.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis report cache: %w", err)
	}

	return cache, nil
}

// CreateInMemoryCache creates an in-memory report cache. In-memory caches do
// not share state across process instances, so reports may diverge between
// instances up to the TTL.
func (f *ReportCacheFactory) CreateInMemoryCache() appinv.ReportCache {
	return NewInMemoryReportCache(f.ttl)
}

// CreateCache tries to create a Redis cache first and falls back to
// in-memory if Redis is not available and fallback is allowed.
func (f *ReportCacheFactory) CreateCache() (appinv.ReportCache, error) {
	cache, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("Using Redis report cache",
			zap.String("host", f.redisConfig.Host),
			zap.Int("port", f.redisConfig.Port),
		)
		return cache, nil
	}

	if !f.allowInMemoryFallback {
		return nil, err
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory report cache",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
