package inventory

import (
	"context"

	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/commerce/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReportCache caches reporting reads with a bounded TTL. A nil result with a
// nil error is a cache miss. Mutating services do not invalidate; the reports
// tolerate staleness up to the TTL.
type ReportCache interface {
	// GetSummary returns the cached stock summary, or nil on a miss
	GetSummary(ctx context.Context, tenantID uuid.UUID) (*StockSummaryResponse, error)
	// SetSummary caches the stock summary
	SetSummary(ctx context.Context, tenantID uuid.UUID, summary *StockSummaryResponse) error
	// GetValuation returns the cached total inventory value, or nil on a miss
	GetValuation(ctx context.Context, tenantID uuid.UUID) (*decimal.Decimal, error)
	// SetValuation caches the total inventory value
	SetValuation(ctx context.Context, tenantID uuid.UUID, value decimal.Decimal) error
}

// ReportingService is the read-only reporting facade over stock data.
// Listings read the database directly; the aggregate reports go through the
// cache first. Cache failures degrade to direct reads, never to errors.
type ReportingService struct {
	stockRepo inventory.StockRepository
	cache     ReportCache
	logger    *zap.Logger
}

// NewReportingService creates a new ReportingService. The cache is optional.
func NewReportingService(stockRepo inventory.StockRepository, cache ReportCache, logger *zap.Logger) *ReportingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportingService{
		stockRepo: stockRepo,
		cache:     cache,
		logger:    logger,
	}
}

// ListLowStock lists stock records at or below their low-stock threshold
func (s *ReportingService) ListLowStock(ctx context.Context, tenantID uuid.UUID, filter StockListFilter) ([]StockResponse, error) {
	stocks, err := s.stockRepo.FindLowStock(ctx, tenantID, toSharedFilter(filter))
	if err != nil {
		return nil, err
	}
	return toStockResponses(stocks), nil
}

// ListNeedsReorder lists stock records at or below their reorder point
func (s *ReportingService) ListNeedsReorder(ctx context.Context, tenantID uuid.UUID, filter StockListFilter) ([]StockResponse, error) {
	stocks, err := s.stockRepo.FindNeedsReorder(ctx, tenantID, toSharedFilter(filter))
	if err != nil {
		return nil, err
	}
	return toStockResponses(stocks), nil
}

// TotalInventoryValue returns the sum of stock_value across the tenant's
// stock records as a money amount, cached with a bounded TTL. Stock values
// are carried in the tenant's ledger currency; USD until per-tenant
// currencies land.
func (s *ReportingService) TotalInventoryValue(ctx context.Context, tenantID uuid.UUID) (valueobject.Money, error) {
	if s.cache != nil {
		cached, err := s.cache.GetValuation(ctx, tenantID)
		if err != nil {
			s.logger.Warn("valuation cache read failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		} else if cached != nil {
			return valueobject.NewMoneyUSD(*cached), nil
		}
	}

	value, err := s.stockRepo.SumStockValue(ctx, tenantID)
	if err != nil {
		return valueobject.Money{}, err
	}

	if s.cache != nil {
		if err := s.cache.SetValuation(ctx, tenantID, value); err != nil {
			s.logger.Warn("valuation cache write failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		}
	}

	return valueobject.NewMoneyUSD(value), nil
}

// StockSummary returns per-tenant stock health counters, cached with a
// bounded TTL.
func (s *ReportingService) StockSummary(ctx context.Context, tenantID uuid.UUID) (*StockSummaryResponse, error) {
	if s.cache != nil {
		cached, err := s.cache.GetSummary(ctx, tenantID)
		if err != nil {
			s.logger.Warn("summary cache read failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	total, err := s.stockRepo.CountForTenant(ctx, tenantID, shared.DefaultFilter())
	if err != nil {
		return nil, err
	}
	low, err := s.stockRepo.CountLowStock(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out, err := s.stockRepo.CountOutOfStock(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	value, err := s.stockRepo.SumStockValue(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	summary := &StockSummaryResponse{
		TotalRecords:    total,
		LowStockCount:   low,
		OutOfStockCount: out,
		TotalStockValue: value,
	}

	if s.cache != nil {
		if err := s.cache.SetSummary(ctx, tenantID, summary); err != nil {
			s.logger.Warn("summary cache write failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		}
	}

	return summary, nil
}

func toStockResponses(stocks []inventory.Stock) []StockResponse {
	items := make([]StockResponse, 0, len(stocks))
	for i := range stocks {
		items = append(items, *ToStockResponse(&stocks[i]))
	}
	return items
}
