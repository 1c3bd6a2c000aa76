package sales

import (
	"context"

	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// SaleRepository defines persistence operations for the Sale aggregate
type SaleRepository interface {
	// FindByID finds a sale with its items by ID within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Sale, error)

	// FindBySaleNumber finds a sale by its number within a tenant
	FindBySaleNumber(ctx context.Context, tenantID uuid.UUID, saleNumber string) (*Sale, error)

	// FindAllForTenant finds sales for a tenant, optionally filtered by status
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Sale, error)

	// Create persists a new sale with its items
	Create(ctx context.Context, sale *Sale) error

	// SaveWithLock updates a sale and its items with an optimistic version
	// check. Returns a CONCURRENCY_CONFLICT domain error if the row was
	// modified by another transaction since it was loaded.
	SaveWithLock(ctx context.Context, sale *Sale) error

	// CountForTenant counts sales for a tenant
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
}

// RefundRepository defines persistence operations for the Refund aggregate
type RefundRepository interface {
	// FindByID finds a refund with its items by ID within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Refund, error)

	// FindByRefundNumber finds a refund by its number within a tenant
	FindByRefundNumber(ctx context.Context, tenantID uuid.UUID, refundNumber string) (*Refund, error)

	// FindBySale finds all refunds raised against a sale
	FindBySale(ctx context.Context, tenantID, saleID uuid.UUID) ([]Refund, error)

	// Create persists a new refund with its items
	Create(ctx context.Context, refund *Refund) error

	// SaveWithLock updates a refund with an optimistic version check
	SaveWithLock(ctx context.Context, refund *Refund) error
}
