package inventory

import (
	"time"

	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockResponse represents a stock record in API responses
type StockResponse struct {
	ID                uuid.UUID       `json:"id"`
	TenantID          uuid.UUID       `json:"tenant_id"`
	ProductID         uuid.UUID       `json:"product_id"`
	VariantID         *uuid.UUID      `json:"variant_id,omitempty"`
	OnHand            int64           `json:"on_hand"`
	Reserved          int64           `json:"reserved"`
	Available         int64           `json:"available"`
	LowStockThreshold int64           `json:"low_stock_threshold"`
	ReorderPoint      int64           `json:"reorder_point"`
	ReorderQuantity   int64           `json:"reorder_quantity"`
	AverageCost       decimal.Decimal `json:"average_cost"`
	StockValue        decimal.Decimal `json:"stock_value"`
	IsLowStock        bool            `json:"is_low_stock"`
	NeedsRestock      bool            `json:"needs_restock"`
	IsOutOfStock      bool            `json:"is_out_of_stock"`
	LastRestockedAt   *time.Time      `json:"last_restocked_at,omitempty"`
	LastSoldAt        *time.Time      `json:"last_sold_at,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

// ToStockResponse converts a Stock aggregate to a response DTO
func ToStockResponse(stock *inventory.Stock) *StockResponse {
	return &StockResponse{
		ID:                stock.ID,
		TenantID:          stock.TenantID,
		ProductID:         stock.ProductID,
		VariantID:         stock.VariantID,
		OnHand:            stock.OnHand,
		Reserved:          stock.Reserved,
		Available:         stock.Available,
		LowStockThreshold: stock.LowStockThreshold,
		ReorderPoint:      stock.ReorderPoint,
		ReorderQuantity:   stock.ReorderQuantity,
		AverageCost:       stock.AverageCost,
		StockValue:        stock.StockValue,
		IsLowStock:        stock.IsLowStock(),
		NeedsRestock:      stock.NeedsRestock(),
		IsOutOfStock:      stock.IsOutOfStock(),
		LastRestockedAt:   stock.LastRestockedAt,
		LastSoldAt:        stock.LastSoldAt,
		UpdatedAt:         stock.UpdatedAt,
		Version:           stock.Version,
	}
}

// StockListFilter represents filter options for stock listings
type StockListFilter struct {
	ProductID *uuid.UUID `form:"product_id"`
	LowStock  *bool      `form:"low_stock"`
	HasStock  *bool      `form:"has_stock"`
	Page      int        `form:"page" binding:"omitempty,min=1"`
	PageSize  int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy   string     `form:"order_by"`
	OrderDir  string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// RestockRequest represents a request to increase on-hand stock
type RestockRequest struct {
	ProductID  uuid.UUID        `json:"product_id" binding:"required"`
	VariantID  *uuid.UUID       `json:"variant_id"`
	Quantity   int64            `json:"quantity" binding:"required,gt=0"`
	UnitCost   *decimal.Decimal `json:"unit_cost"`
	SourceType string           `json:"source_type"` // PURCHASE, REFUND, MANUAL; defaults to MANUAL
	SourceID   string           `json:"source_id"`
	Reference  string           `json:"reference"`
	Reason     string           `json:"reason"`
}

// ReserveRequest represents a request to place stock on hold
type ReserveRequest struct {
	ProductID  uuid.UUID  `json:"product_id" binding:"required"`
	VariantID  *uuid.UUID `json:"variant_id"`
	Quantity   int64      `json:"quantity" binding:"required,gt=0"`
	SourceType string     `json:"source_type"`
	SourceID   string     `json:"source_id"`
	Reference  string     `json:"reference"`
}

// ReleaseRequest represents a request to return held stock to available
type ReleaseRequest struct {
	ProductID  uuid.UUID  `json:"product_id" binding:"required"`
	VariantID  *uuid.UUID `json:"variant_id"`
	Quantity   int64      `json:"quantity" binding:"required,gt=0"`
	SourceType string     `json:"source_type"`
	SourceID   string     `json:"source_id"`
	Reference  string     `json:"reference"`
}

// AdjustRequest represents a stock-taking correction
type AdjustRequest struct {
	ProductID      uuid.UUID  `json:"product_id" binding:"required"`
	VariantID      *uuid.UUID `json:"variant_id"`
	ActualQuantity int64      `json:"actual_quantity" binding:"min=0"`
	Reason         string     `json:"reason" binding:"required"`
	Reference      string     `json:"reference"`
}

// SetThresholdsRequest represents a request to update stock signalling levels
type SetThresholdsRequest struct {
	ProductID         uuid.UUID  `json:"product_id" binding:"required"`
	VariantID         *uuid.UUID `json:"variant_id"`
	LowStockThreshold int64      `json:"low_stock_threshold" binding:"min=0"`
	ReorderPoint      int64      `json:"reorder_point" binding:"min=0"`
	ReorderQuantity   int64      `json:"reorder_quantity" binding:"min=0"`
}

// MovementResponse represents a movement record in API responses
type MovementResponse struct {
	ID            uuid.UUID       `json:"id"`
	StockID       uuid.UUID       `json:"stock_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	VariantID     *uuid.UUID      `json:"variant_id,omitempty"`
	MovementType  string          `json:"movement_type"`
	Quantity      int64           `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	BalanceBefore int64           `json:"balance_before"`
	BalanceAfter  int64           `json:"balance_after"`
	SourceType    string          `json:"source_type"`
	SourceID      string          `json:"source_id"`
	Reference     string          `json:"reference,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	MovementDate  time.Time       `json:"movement_date"`
}

// ToMovementResponse converts a StockMovement to a response DTO
func ToMovementResponse(m *inventory.StockMovement) *MovementResponse {
	return &MovementResponse{
		ID:            m.ID,
		StockID:       m.StockID,
		ProductID:     m.ProductID,
		VariantID:     m.VariantID,
		MovementType:  m.MovementType.String(),
		Quantity:      m.Quantity,
		UnitCost:      m.UnitCost,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		SourceType:    m.SourceType.String(),
		SourceID:      m.SourceID,
		Reference:     m.Reference,
		Reason:        m.Reason,
		MovementDate:  m.MovementDate,
	}
}

// StockSummaryResponse aggregates per-tenant stock health counters
type StockSummaryResponse struct {
	TotalRecords    int64           `json:"total_records"`
	LowStockCount   int64           `json:"low_stock_count"`
	OutOfStockCount int64           `json:"out_of_stock_count"`
	TotalStockValue decimal.Decimal `json:"total_stock_value"`
}
