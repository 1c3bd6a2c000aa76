package inventory

import (
	"time"

	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType represents the type of stock movement
type MovementType string

const (
	// MovementTypeReserve places quantity on hold for a pending order
	MovementTypeReserve MovementType = "RESERVE"
	// MovementTypeRelease returns held quantity to available
	MovementTypeRelease MovementType = "RELEASE"
	// MovementTypeSale decrements on-hand quantity for a sale
	MovementTypeSale MovementType = "SALE"
	// MovementTypeRestock increments on-hand quantity (receiving, refund restoration)
	MovementTypeRestock MovementType = "RESTOCK"
	// MovementTypeAdjustment corrects on-hand quantity to a physical count
	MovementTypeAdjustment MovementType = "ADJUSTMENT"
)

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// IsValid returns true if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeReserve, MovementTypeRelease, MovementTypeSale,
		MovementTypeRestock, MovementTypeAdjustment:
		return true
	}
	return false
}

// SourceType represents the source document type for a movement
type SourceType string

const (
	// SourceTypeSale is a sale document
	SourceTypeSale SourceType = "SALE"
	// SourceTypeRefund is a refund document
	SourceTypeRefund SourceType = "REFUND"
	// SourceTypePurchase is a purchase/receiving document
	SourceTypePurchase SourceType = "PURCHASE"
	// SourceTypeStockTaking is a physical stock count
	SourceTypeStockTaking SourceType = "STOCK_TAKING"
	// SourceTypeManual is a manual operation without a source document
	SourceTypeManual SourceType = "MANUAL"
)

// String returns the string representation of SourceType
func (s SourceType) String() string {
	return string(s)
}

// IsValid returns true if the source type is valid
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypeSale, SourceTypeRefund, SourceTypePurchase,
		SourceTypeStockTaking, SourceTypeManual:
		return true
	}
	return false
}

// StockMovement is an immutable audit record of a single ledger operation.
// Corrections are made with new movements, never by editing existing rows.
// Movements are written in the same transaction as the stock mutation they
// describe.
type StockMovement struct {
	shared.BaseEntity
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_mv_tenant_time,priority:1"`
	StockID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_mv_stock"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_mv_product"`
	VariantID     *uuid.UUID      `gorm:"type:uuid"`
	MovementType  MovementType    `gorm:"type:varchar(20);not null;index:idx_stock_mv_type"`
	Quantity      int64           `gorm:"not null"` // Always positive, direction determined by type
	UnitCost      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BalanceBefore int64           `gorm:"not null"` // On-hand quantity before the movement
	BalanceAfter  int64           `gorm:"not null"` // On-hand quantity after the movement
	SourceType    SourceType      `gorm:"type:varchar(20);not null;index:idx_stock_mv_source"`
	SourceID      string          `gorm:"type:varchar(50);not null;index:idx_stock_mv_source"`
	Reference     string          `gorm:"type:varchar(100)"`
	Reason        string          `gorm:"type:varchar(255)"`
	MovementDate  time.Time       `gorm:"type:timestamptz;not null;index:idx_stock_mv_tenant_time,priority:2"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement creates an audit record for a ledger operation
func NewStockMovement(
	tenantID uuid.UUID,
	stock *Stock,
	movementType MovementType,
	qty int64,
	balanceBefore int64,
	sourceType SourceType,
	sourceID string,
	occurredAt time.Time,
) (*StockMovement, error) {
	if !movementType.IsValid() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_TYPE", "Invalid movement type")
	}
	if !sourceType.IsValid() {
		return nil, shared.NewDomainError("INVALID_SOURCE_TYPE", "Invalid source type")
	}
	if qty <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Movement quantity must be positive")
	}

	return &StockMovement{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      tenantID,
		StockID:       stock.ID,
		ProductID:     stock.ProductID,
		VariantID:     stock.VariantID,
		MovementType:  movementType,
		Quantity:      qty,
		UnitCost:      stock.AverageCost,
		BalanceBefore: balanceBefore,
		BalanceAfter:  stock.OnHand,
		SourceType:    sourceType,
		SourceID:      sourceID,
		MovementDate:  occurredAt,
	}, nil
}

// WithReference attaches a document reference to the movement
func (m *StockMovement) WithReference(reference string) *StockMovement {
	m.Reference = reference
	return m
}

// WithReason attaches a reason to the movement
func (m *StockMovement) WithReason(reason string) *StockMovement {
	m.Reason = reason
	return m
}

// IsIncrease returns true if the movement increases on-hand quantity
func (m *StockMovement) IsIncrease() bool {
	return m.MovementType == MovementTypeRestock ||
		(m.MovementType == MovementTypeAdjustment && m.BalanceAfter > m.BalanceBefore)
}

// IsDecrease returns true if the movement decreases on-hand quantity
func (m *StockMovement) IsDecrease() bool {
	return m.MovementType == MovementTypeSale ||
		(m.MovementType == MovementTypeAdjustment && m.BalanceAfter < m.BalanceBefore)
}
