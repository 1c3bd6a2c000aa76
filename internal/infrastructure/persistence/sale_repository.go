package persistence

import (
	"context"
	"errors"

	"github.com/commerce/backoffice/internal/domain/sales"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSaleRepository implements SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// FindByID finds a sale with its items by ID within a tenant
func (r *GormSaleRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*sales.Sale, error) {
	var sale sales.Sale
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&sale).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

// FindBySaleNumber finds a sale by its number within a tenant
func (r *GormSaleRepository) FindBySaleNumber(ctx context.Context, tenantID uuid.UUID, saleNumber string) (*sales.Sale, error) {
	var sale sales.Sale
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND sale_number = ?", tenantID, saleNumber).
		First(&sale).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

// FindAllForTenant finds sales for a tenant
func (r *GormSaleRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]sales.Sale, error) {
	var result []sales.Sale
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&sales.Sale{}).
			Preload("Items").
			Where("tenant_id = ?", tenantID),
		filter,
	)

	if err := query.Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// Create persists a new sale with its items
func (r *GormSaleRepository) Create(ctx context.Context, sale *sales.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

// SaveWithLock updates a sale and its items with an optimistic version check.
// The row must still carry the version the aggregate was loaded with; the
// version is bumped here, once per save, so multi-line batches compare
// against the same loaded version as single-line edits. Item rows are synced
// to the aggregate in the same transaction: removed lines are deleted, the
// rest upserted.
func (r *GormSaleRepository) SaveWithLock(ctx context.Context, sale *sales.Sale) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&sales.Sale{}).
			Where("id = ? AND version = ?", sale.ID, sale.Version).
			Updates(map[string]interface{}{
				"customer_id":     sale.CustomerID,
				"channel":         sale.Channel,
				"subtotal":        sale.Subtotal,
				"discount_amount": sale.DiscountAmount,
				"total_amount":    sale.TotalAmount,
				"status":          sale.Status,
				"payment_status":  sale.PaymentStatus,
				"remark":          sale.Remark,
				"submitted_at":    sale.SubmittedAt,
				"confirmed_at":    sale.ConfirmedAt,
				"completed_at":    sale.CompletedAt,
				"cancelled_at":    sale.CancelledAt,
				"cancel_reason":   sale.CancelReason,
				"version":         sale.Version + 1,
				"updated_at":      sale.UpdatedAt,
			})

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		return syncSaleItems(tx, sale)
	})
	if err != nil {
		return err
	}

	sale.IncrementVersion()
	return nil
}

// syncSaleItems reconciles the persisted item rows with the aggregate's items
func syncSaleItems(tx *gorm.DB, sale *sales.Sale) error {
	currentItemIDs := make([]uuid.UUID, len(sale.Items))
	for i, item := range sale.Items {
		currentItemIDs[i] = item.ID
	}

	if len(currentItemIDs) > 0 {
		if err := tx.Where("sale_id = ? AND id NOT IN ?", sale.ID, currentItemIDs).
			Delete(&sales.SaleItem{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("sale_id = ?", sale.ID).
			Delete(&sales.SaleItem{}).Error; err != nil {
			return err
		}
	}

	for i := range sale.Items {
		sale.Items[i].SaleID = sale.ID
		if err := tx.Save(&sale.Items[i]).Error; err != nil {
			return err
		}
	}

	return nil
}

// CountForTenant counts sales for a tenant
func (r *GormSaleRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&sales.Sale{}).
			Where("tenant_id = ?", tenantID),
		filter,
	)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormSaleRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, SaleSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormSaleRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "payment_status":
			query = query.Where("payment_status = ?", value)
		case "customer_id":
			query = query.Where("customer_id = ?", value)
		case "channel":
			query = query.Where("channel = ?", value)
		case "start_date":
			query = query.Where("created_at >= ?", value)
		case "end_date":
			query = query.Where("created_at <= ?", value)
		}
	}

	return query
}

// Ensure GormSaleRepository implements SaleRepository
var _ sales.SaleRepository = (*GormSaleRepository)(nil)
