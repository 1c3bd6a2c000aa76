package cache

import (
	"context"
	"sync"
	"time"

	appinv "github.com/commerce/backoffice/internal/application/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type summaryEntry struct {
	summary   appinv.StockSummaryResponse
	expiresAt time.Time
}

type valuationEntry struct {
	value     decimal.Decimal
	expiresAt time.Time
}

// InMemoryReportCache implements ReportCache using in-memory maps.
// This is suitable for single-instance deployments and testing.
type InMemoryReportCache struct {
	mu         sync.RWMutex
	summaries  map[uuid.UUID]summaryEntry
	valuations map[uuid.UUID]valuationEntry
	ttl        time.Duration
	now        func() time.Time
}

// NewInMemoryReportCache creates a new in-memory report cache
func NewInMemoryReportCache(ttl time.Duration) *InMemoryReportCache {
	return &InMemoryReportCache{
		summaries:  make(map[uuid.UUID]summaryEntry),
		valuations: make(map[uuid.UUID]valuationEntry),
		ttl:        ttl,
		now:        time.Now,
	}
}

// GetSummary returns the cached stock summary, or nil on a miss
func (c *InMemoryReportCache) GetSummary(_ context.Context, tenantID uuid.UUID) (*appinv.StockSummaryResponse, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.summaries[tenantID]
	if !exists || c.now().After(e.expiresAt) {
		return nil, nil
	}
	summary := e.summary
	return &summary, nil
}

// SetSummary caches the stock summary with the configured TTL
func (c *InMemoryReportCache) SetSummary(_ context.Context, tenantID uuid.UUID, summary *appinv.StockSummaryResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.summaries[tenantID] = summaryEntry{
		summary:   *summary,
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

// GetValuation returns the cached total inventory value, or nil on a miss
func (c *InMemoryReportCache) GetValuation(_ context.Context, tenantID uuid.UUID) (*decimal.Decimal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.valuations[tenantID]
	if !exists || c.now().After(e.expiresAt) {
		return nil, nil
	}
	value := e.value
	return &value, nil
}

// SetValuation caches the total inventory value with the configured TTL
func (c *InMemoryReportCache) SetValuation(_ context.Context, tenantID uuid.UUID, value decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.valuations[tenantID] = valuationEntry{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

// Ensure InMemoryReportCache implements ReportCache
var _ appinv.ReportCache = (*InMemoryReportCache)(nil)
