package cache

import (
	"context"
	"testing"
	"time"

	appinv "github.com/commerce/backoffice/internal/application/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryReportCache_Summary(t *testing.T) {
	ctx := context.Background()

	t.Run("returns nil on a miss", func(t *testing.T) {
		cache := NewInMemoryReportCache(30 * time.Second)

		summary, err := cache.GetSummary(ctx, uuid.New())

		require.NoError(t, err)
		assert.Nil(t, summary)
	})

	t.Run("round-trips a cached summary", func(t *testing.T) {
		cache := NewInMemoryReportCache(30 * time.Second)
		tenantID := uuid.New()

		stored := &appinv.StockSummaryResponse{
			TotalRecords:    12,
			LowStockCount:   3,
			OutOfStockCount: 1,
			TotalStockValue: decimal.NewFromInt(480),
		}
		require.NoError(t, cache.SetSummary(ctx, tenantID, stored))

		got, err := cache.GetSummary(ctx, tenantID)

		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(12), got.TotalRecords)
		assert.Equal(t, int64(3), got.LowStockCount)
		assert.True(t, decimal.NewFromInt(480).Equal(got.TotalStockValue))
	})

	t.Run("returned copy does not alias the stored entry", func(t *testing.T) {
		cache := NewInMemoryReportCache(30 * time.Second)
		tenantID := uuid.New()

		require.NoError(t, cache.SetSummary(ctx, tenantID, &appinv.StockSummaryResponse{TotalRecords: 5}))

		first, err := cache.GetSummary(ctx, tenantID)
		require.NoError(t, err)
		first.TotalRecords = 99

		second, err := cache.GetSummary(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, int64(5), second.TotalRecords)
	})

	t.Run("expires after the TTL", func(t *testing.T) {
		cache := NewInMemoryReportCache(30 * time.Second)
		tenantID := uuid.New()

		current := time.Now()
		cache.now = func() time.Time { return current }

		require.NoError(t, cache.SetSummary(ctx, tenantID, &appinv.StockSummaryResponse{TotalRecords: 5}))

		current = current.Add(31 * time.Second)

		summary, err := cache.GetSummary(ctx, tenantID)
		require.NoError(t, err)
		assert.Nil(t, summary)
	})
}

func TestInMemoryReportCache_Valuation(t *testing.T) {
	ctx := context.Background()

	t.Run("returns nil on a miss", func(t *testing.T) {
		cache := NewInMemoryReportCache(30 * time.Second)

		value, err := cache.GetValuation(ctx, uuid.New())

		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("round-trips a cached valuation per tenant", func(t *testing.T) {
		cache := NewInMemoryReportCache(30 * time.Second)
		firstTenant := uuid.New()
		secondTenant := uuid.New()

		require.NoError(t, cache.SetValuation(ctx, firstTenant, decimal.NewFromFloat(1234.5)))
		require.NoError(t, cache.SetValuation(ctx, secondTenant, decimal.NewFromInt(77)))

		first, err := cache.GetValuation(ctx, firstTenant)
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.True(t, decimal.NewFromFloat(1234.5).Equal(*first))

		second, err := cache.GetValuation(ctx, secondTenant)
		require.NoError(t, err)
		require.NotNil(t, second)
		assert.True(t, decimal.NewFromInt(77).Equal(*second))
	})

	t.Run("expires after the TTL", func(t *testing.T) {
		cache := NewInMemoryReportCache(time.Second)
		tenantID := uuid.New()

		current := time.Now()
		cache.now = func() time.Time { return current }

		require.NoError(t, cache.SetValuation(ctx, tenantID, decimal.NewFromInt(10)))

		current = current.Add(2 * time.Second)

		value, err := cache.GetValuation(ctx, tenantID)
		require.NoError(t, err)
		assert.Nil(t, value)
	})
}
