package persistence

import (
	"context"
	"errors"

	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	lowStockCondition     = "low_stock_threshold > 0 AND on_hand <= low_stock_threshold"
	needsReorderCondition = "reorder_point > 0 AND on_hand <= reorder_point"
)

// GormStockRepository implements StockRepository using GORM
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// FindByID finds a stock record by its ID
func (r *GormStockRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Stock, error) {
	var stock inventory.Stock
	if err := r.db.WithContext(ctx).First(&stock, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &stock, nil
}

// FindByIDForTenant finds a stock record by ID within a tenant
func (r *GormStockRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Stock, error) {
	var stock inventory.Stock
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&stock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &stock, nil
}

// FindByProductVariant finds the stock record for a product(/variant)
func (r *GormStockRepository) FindByProductVariant(ctx context.Context, tenantID, productID uuid.UUID, variantID *uuid.UUID) (*inventory.Stock, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID)
	if variantID != nil {
		query = query.Where("variant_id = ?", *variantID)
	} else {
		query = query.Where("variant_id IS NULL")
	}

	var stock inventory.Stock
	if err := query.First(&stock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &stock, nil
}

// FindByIDs finds multiple stock records by their IDs within a tenant
func (r *GormStockRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]inventory.Stock, error) {
	if len(ids) == 0 {
		return []inventory.Stock{}, nil
	}

	var stocks []inventory.Stock
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&stocks).Error; err != nil {
		return nil, err
	}
	return stocks, nil
}

// FindAllForTenant finds all stock records for a tenant
func (r *GormStockRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]inventory.Stock, error) {
	var stocks []inventory.Stock
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&inventory.Stock{}).
			Where("tenant_id = ?", tenantID),
		filter,
	)

	if err := query.Find(&stocks).Error; err != nil {
		return nil, err
	}
	return stocks, nil
}

// FindLowStock finds stock records at or below their low-stock threshold
func (r *GormStockRepository) FindLowStock(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]inventory.Stock, error) {
	var stocks []inventory.Stock
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&inventory.Stock{}).
			Where("tenant_id = ?", tenantID).
			Where(lowStockCondition),
		filter,
	)

	if err := query.Find(&stocks).Error; err != nil {
		return nil, err
	}
	return stocks, nil
}

// FindNeedsReorder finds stock records at or below their reorder point
func (r *GormStockRepository) FindNeedsReorder(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]inventory.Stock, error) {
	var stocks []inventory.Stock
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&inventory.Stock{}).
			Where("tenant_id = ?", tenantID).
			Where(needsReorderCondition),
		filter,
	)

	if err := query.Find(&stocks).Error; err != nil {
		return nil, err
	}
	return stocks, nil
}

// GetOrCreate returns the stock record for a product(/variant), creating an
// empty one if none exists
func (r *GormStockRepository) GetOrCreate(ctx context.Context, tenantID, productID uuid.UUID, variantID *uuid.UUID) (*inventory.Stock, error) {
	stock, err := r.FindByProductVariant(ctx, tenantID, productID, variantID)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	stock, err = inventory.NewStock(tenantID, productID, variantID)
	if err != nil {
		return nil, err
	}

	// The conflict target is left open so both unique indexes arbitrate:
	// the composite one for variant stocks and the partial one covering
	// NULL variant rows. A suppressed insert means another writer created
	// the row first; fetch theirs.
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(stock)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return r.FindByProductVariant(ctx, tenantID, productID, variantID)
	}

	return stock, nil
}

// Save creates or updates a stock record without a version check
func (r *GormStockRepository) Save(ctx context.Context, stock *inventory.Stock) error {
	return r.db.WithContext(ctx).Save(stock).Error
}

// SaveWithLock updates a stock record with an optimistic version check. The
// row must still carry the version the aggregate was loaded with; the version
// is bumped here, once per save, regardless of how many mutations the unit of
// work applied.
func (r *GormStockRepository) SaveWithLock(ctx context.Context, stock *inventory.Stock) error {
	result := r.db.WithContext(ctx).
		Model(stock).
		Where("id = ? AND version = ?", stock.ID, stock.Version).
		Updates(map[string]interface{}{
			"on_hand":             stock.OnHand,
			"reserved":            stock.Reserved,
			"available":           stock.Available,
			"low_stock_threshold": stock.LowStockThreshold,
			"reorder_point":       stock.ReorderPoint,
			"reorder_quantity":    stock.ReorderQuantity,
			"average_cost":        stock.AverageCost,
			"stock_value":         stock.StockValue,
			"last_restocked_at":   stock.LastRestockedAt,
			"last_sold_at":        stock.LastSoldAt,
			"version":             stock.Version + 1,
			"updated_at":          stock.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	stock.IncrementVersion()
	return nil
}

// CountForTenant counts stock records for a tenant
func (r *GormStockRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&inventory.Stock{}).
			Where("tenant_id = ?", tenantID),
		filter,
	)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountLowStock counts stock records at or below their low-stock threshold
func (r *GormStockRepository) CountLowStock(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&inventory.Stock{}).
		Where("tenant_id = ?", tenantID).
		Where(lowStockCondition).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountOutOfStock counts stock records with no on-hand quantity
func (r *GormStockRepository) CountOutOfStock(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&inventory.Stock{}).
		Where("tenant_id = ? AND on_hand <= 0", tenantID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumStockValue sums stock_value across all stock records for a tenant
func (r *GormStockRepository) SumStockValue(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.db.WithContext(ctx).Model(&inventory.Stock{}).
		Where("tenant_id = ?", tenantID).
		Select("COALESCE(SUM(stock_value), 0)").
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// applyFilter applies filter options to the query
func (r *GormStockRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, StockSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormStockRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "product_id":
			query = query.Where("product_id = ?", value)
		case "low_stock":
			if value == true {
				query = query.Where(lowStockCondition)
			}
		case "out_of_stock":
			if value == true {
				query = query.Where("on_hand <= 0")
			}
		case "has_stock":
			if value == true {
				query = query.Where("on_hand > 0")
			}
		case "reserved":
			if value == true {
				query = query.Where("reserved > 0")
			}
		}
	}

	return query
}

// Ensure GormStockRepository implements StockRepository
var _ inventory.StockRepository = (*GormStockRepository)(nil)
