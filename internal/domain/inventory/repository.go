package inventory

import (
	"context"

	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockRepository defines persistence operations for the Stock aggregate
type StockRepository interface {
	// FindByID finds a stock record by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Stock, error)

	// FindByIDForTenant finds a stock record by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Stock, error)

	// FindByProductVariant finds the stock record for a product(/variant)
	FindByProductVariant(ctx context.Context, tenantID, productID uuid.UUID, variantID *uuid.UUID) (*Stock, error)

	// FindByIDs finds multiple stock records by their IDs within a tenant
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]Stock, error)

	// FindAllForTenant finds all stock records for a tenant
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Stock, error)

	// FindLowStock finds stock records at or below their low-stock threshold
	FindLowStock(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Stock, error)

	// FindNeedsReorder finds stock records at or below their reorder point
	FindNeedsReorder(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Stock, error)

	// GetOrCreate returns the stock record for a product(/variant), creating
	// an empty one if none exists. Creation is race-safe.
	GetOrCreate(ctx context.Context, tenantID, productID uuid.UUID, variantID *uuid.UUID) (*Stock, error)

	// Save creates or updates a stock record without a version check
	Save(ctx context.Context, stock *Stock) error

	// SaveWithLock updates a stock record with an optimistic version check.
	// Returns a CONCURRENCY_CONFLICT domain error if the row was modified by
	// another transaction since it was loaded.
	SaveWithLock(ctx context.Context, stock *Stock) error

	// CountForTenant counts stock records for a tenant
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)

	// CountLowStock counts stock records at or below their low-stock threshold
	CountLowStock(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// CountOutOfStock counts stock records with no on-hand quantity
	CountOutOfStock(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// SumStockValue sums stock_value across all stock records for a tenant
	SumStockValue(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error)
}

// StockMovementRepository defines persistence operations for movement records.
// Movements are append-only.
type StockMovementRepository interface {
	// Create appends a movement record
	Create(ctx context.Context, movement *StockMovement) error

	// FindByStock finds movements for a stock record, newest first
	FindByStock(ctx context.Context, tenantID, stockID uuid.UUID, filter shared.Filter) ([]StockMovement, error)

	// FindBySource finds movements created by a source document
	FindBySource(ctx context.Context, tenantID uuid.UUID, sourceType SourceType, sourceID string) ([]StockMovement, error)

	// CountByStock counts movements for a stock record
	CountByStock(ctx context.Context, tenantID, stockID uuid.UUID) (int64, error)
}
