package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	appinv "github.com/commerce/backoffice/internal/application/inventory"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RedisReportCache implements ReportCache using Redis. This is suitable for
// distributed deployments where multiple instances serve the same reports.
type RedisReportCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisReportCache creates a new Redis-based report cache
func NewRedisReportCache(cfg RedisConfig, ttl time.Duration) (*RedisReportCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisReportCache{
		client:    client,
		keyPrefix: "report:",
		ttl:       ttl,
	}, nil
}

// NewRedisReportCacheWithClient creates a cache with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisReportCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisReportCache {
	if keyPrefix == "" {
		keyPrefix = "report:"
	}
	return &RedisReportCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (c *RedisReportCache) summaryKey(tenantID uuid.UUID) string {
	return c.keyPrefix + "summary:" + tenantID.String()
}

func (c *RedisReportCache) valuationKey(tenantID uuid.UUID) string {
	return c.keyPrefix + "valuation:" + tenantID.String()
}

// GetSummary returns the cached stock summary, or nil on a miss
func (c *RedisReportCache) GetSummary(ctx context.Context, tenantID uuid.UUID) (*appinv.StockSummaryResponse, error) {
	data, err := c.client.Get(ctx, c.summaryKey(tenantID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached summary: %w", err)
	}

	var summary appinv.StockSummaryResponse
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode cached summary: %w", err)
	}
	return &summary, nil
}

// SetSummary caches the stock summary with the configured TTL
func (c *RedisReportCache) SetSummary(ctx context.Context, tenantID uuid.UUID, summary *appinv.StockSummaryResponse) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := c.client.Set(ctx, c.summaryKey(tenantID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache summary: %w", err)
	}
	return nil
}

// GetValuation returns the cached total inventory value, or nil on a miss
func (c *RedisReportCache) GetValuation(ctx context.Context, tenantID uuid.UUID) (*decimal.Decimal, error) {
	data, err := c.client.Get(ctx, c.valuationKey(tenantID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached valuation: %w", err)
	}

	value, err := decimal.NewFromString(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cached valuation: %w", err)
	}
	return &value, nil
}

// SetValuation caches the total inventory value with the configured TTL
func (c *RedisReportCache) SetValuation(ctx context.Context, tenantID uuid.UUID, value decimal.Decimal) error {
	if err := c.client.Set(ctx, c.valuationKey(tenantID), value.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache valuation: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisReportCache) Close() error {
	return c.client.Close()
}

// Ensure RedisReportCache implements ReportCache
var _ appinv.ReportCache = (*RedisReportCache)(nil)
