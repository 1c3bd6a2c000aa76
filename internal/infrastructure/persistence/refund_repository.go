package persistence

import (
	"context"
	"errors"

	"github.com/commerce/backoffice/internal/domain/sales"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRefundRepository implements RefundRepository using GORM
type GormRefundRepository struct {
	db *gorm.DB
}

// NewGormRefundRepository creates a new GormRefundRepository
func NewGormRefundRepository(db *gorm.DB) *GormRefundRepository {
	return &GormRefundRepository{db: db}
}

// FindByID finds a refund with its items by ID within a tenant
func (r *GormRefundRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*sales.Refund, error) {
	var refund sales.Refund
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&refund).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &refund, nil
}

// FindByRefundNumber finds a refund by its number within a tenant
func (r *GormRefundRepository) FindByRefundNumber(ctx context.Context, tenantID uuid.UUID, refundNumber string) (*sales.Refund, error) {
	var refund sales.Refund
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND refund_number = ?", tenantID, refundNumber).
		First(&refund).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &refund, nil
}

// FindBySale finds all refunds raised against a sale
func (r *GormRefundRepository) FindBySale(ctx context.Context, tenantID, saleID uuid.UUID) ([]sales.Refund, error) {
	var refunds []sales.Refund
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND sale_id = ?", tenantID, saleID).
		Order("created_at ASC").
		Find(&refunds).Error; err != nil {
		return nil, err
	}
	return refunds, nil
}

// Create persists a new refund with its items
func (r *GormRefundRepository) Create(ctx context.Context, refund *sales.Refund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

// SaveWithLock updates a refund with an optimistic version check against the
// loaded version, bumping it once per save. Refund items are written once at
// creation and never change afterwards, so only the aggregate row is updated
// here.
func (r *GormRefundRepository) SaveWithLock(ctx context.Context, refund *sales.Refund) error {
	result := r.db.WithContext(ctx).
		Model(&sales.Refund{}).
		Where("id = ? AND version = ?", refund.ID, refund.Version).
		Updates(map[string]interface{}{
			"amount":       refund.Amount,
			"status":       refund.Status,
			"reason":       refund.Reason,
			"fail_reason":  refund.FailReason,
			"processed_at": refund.ProcessedAt,
			"cancelled_at": refund.CancelledAt,
			"version":      refund.Version + 1,
			"updated_at":   refund.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	refund.IncrementVersion()
	return nil
}

// Ensure GormRefundRepository implements RefundRepository
var _ sales.RefundRepository = (*GormRefundRepository)(nil)
