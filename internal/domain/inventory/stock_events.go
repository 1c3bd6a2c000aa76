package inventory

import (
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeStock = "Stock"

// Event type constants
const (
	EventTypeStockReserved       = "StockReserved"
	EventTypeStockReleased       = "StockReleased"
	EventTypeStockSold           = "StockSold"
	EventTypeStockRestocked      = "StockRestocked"
	EventTypeStockAdjusted       = "StockAdjusted"
	EventTypeStockBelowThreshold = "StockBelowThreshold"
)

// StockReservedEvent is raised when quantity is placed on hold for a pending order
type StockReservedEvent struct {
	shared.BaseDomainEvent
	StockID   uuid.UUID  `json:"stock_id"`
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int64      `json:"quantity"`
	Reserved  int64      `json:"reserved"`
	Available int64      `json:"available"`
}

// NewStockReservedEvent creates a new StockReservedEvent
func NewStockReservedEvent(stock *Stock, qty int64) *StockReservedEvent {
	return &StockReservedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReserved, AggregateTypeStock, stock.ID, stock.TenantID),
		StockID:         stock.ID,
		ProductID:       stock.ProductID,
		VariantID:       stock.VariantID,
		Quantity:        qty,
		Reserved:        stock.Reserved,
		Available:       stock.Available,
	}
}

// EventType returns the event type name
func (e *StockReservedEvent) EventType() string {
	return EventTypeStockReserved
}

// StockReleasedEvent is raised when a hold is returned to available stock
type StockReleasedEvent struct {
	shared.BaseDomainEvent
	StockID   uuid.UUID  `json:"stock_id"`
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int64      `json:"quantity"` // Quantity actually released (clamped under ReleaseClamp)
	Reserved  int64      `json:"reserved"`
	Available int64      `json:"available"`
}

// NewStockReleasedEvent creates a new StockReleasedEvent
func NewStockReleasedEvent(stock *Stock, qty int64) *StockReleasedEvent {
	return &StockReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReleased, AggregateTypeStock, stock.ID, stock.TenantID),
		StockID:         stock.ID,
		ProductID:       stock.ProductID,
		VariantID:       stock.VariantID,
		Quantity:        qty,
		Reserved:        stock.Reserved,
		Available:       stock.Available,
	}
}

// EventType returns the event type name
func (e *StockReleasedEvent) EventType() string {
	return EventTypeStockReleased
}

// StockSoldEvent is raised when on-hand quantity is decremented by a sale
type StockSoldEvent struct {
	shared.BaseDomainEvent
	StockID   uuid.UUID  `json:"stock_id"`
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int64      `json:"quantity"`
	OnHand    int64      `json:"on_hand"`
	Available int64      `json:"available"`
}

// NewStockSoldEvent creates a new StockSoldEvent
func NewStockSoldEvent(stock *Stock, qty int64) *StockSoldEvent {
	return &StockSoldEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockSold, AggregateTypeStock, stock.ID, stock.TenantID),
		StockID:         stock.ID,
		ProductID:       stock.ProductID,
		VariantID:       stock.VariantID,
		Quantity:        qty,
		OnHand:          stock.OnHand,
		Available:       stock.Available,
	}
}

// EventType returns the event type name
func (e *StockSoldEvent) EventType() string {
	return EventTypeStockSold
}

// StockRestockedEvent is raised when on-hand quantity is increased
type StockRestockedEvent struct {
	shared.BaseDomainEvent
	StockID     uuid.UUID        `json:"stock_id"`
	ProductID   uuid.UUID        `json:"product_id"`
	VariantID   *uuid.UUID       `json:"variant_id,omitempty"`
	Quantity    int64            `json:"quantity"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty"`
	AverageCost decimal.Decimal  `json:"average_cost"`
	OnHand      int64            `json:"on_hand"`
}

// NewStockRestockedEvent creates a new StockRestockedEvent
func NewStockRestockedEvent(stock *Stock, qty int64, cost *decimal.Decimal) *StockRestockedEvent {
	return &StockRestockedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockRestocked, AggregateTypeStock, stock.ID, stock.TenantID),
		StockID:         stock.ID,
		ProductID:       stock.ProductID,
		VariantID:       stock.VariantID,
		Quantity:        qty,
		UnitCost:        cost,
		AverageCost:     stock.AverageCost,
		OnHand:          stock.OnHand,
	}
}

// EventType returns the event type name
func (e *StockRestockedEvent) EventType() string {
	return EventTypeStockRestocked
}

// StockAdjustedEvent is raised when on-hand quantity is corrected to a physical count
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	StockID     uuid.UUID  `json:"stock_id"`
	ProductID   uuid.UUID  `json:"product_id"`
	VariantID   *uuid.UUID `json:"variant_id,omitempty"`
	OldQuantity int64      `json:"old_quantity"`
	NewQuantity int64      `json:"new_quantity"`
	Difference  int64      `json:"difference"`
	Reason      string     `json:"reason"`
}

// NewStockAdjustedEvent creates a new StockAdjustedEvent
func NewStockAdjustedEvent(stock *Stock, oldQty, newQty int64, reason string) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, AggregateTypeStock, stock.ID, stock.TenantID),
		StockID:         stock.ID,
		ProductID:       stock.ProductID,
		VariantID:       stock.VariantID,
		OldQuantity:     oldQty,
		NewQuantity:     newQty,
		Difference:      newQty - oldQty,
		Reason:          reason,
	}
}

// EventType returns the event type name
func (e *StockAdjustedEvent) EventType() string {
	return EventTypeStockAdjusted
}

// StockBelowThresholdEvent is raised when on-hand quantity falls to or below
// the low-stock threshold after a decrease
type StockBelowThresholdEvent struct {
	shared.BaseDomainEvent
	StockID           uuid.UUID  `json:"stock_id"`
	ProductID         uuid.UUID  `json:"product_id"`
	VariantID         *uuid.UUID `json:"variant_id,omitempty"`
	OnHand            int64      `json:"on_hand"`
	LowStockThreshold int64      `json:"low_stock_threshold"`
	ReorderPoint      int64      `json:"reorder_point"`
	ReorderQuantity   int64      `json:"reorder_quantity"`
}

// NewStockBelowThresholdEvent creates a new StockBelowThresholdEvent
func NewStockBelowThresholdEvent(stock *Stock) *StockBelowThresholdEvent {
	return &StockBelowThresholdEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeStockBelowThreshold, AggregateTypeStock, stock.ID, stock.TenantID),
		StockID:           stock.ID,
		ProductID:         stock.ProductID,
		VariantID:         stock.VariantID,
		OnHand:            stock.OnHand,
		LowStockThreshold: stock.LowStockThreshold,
		ReorderPoint:      stock.ReorderPoint,
		ReorderQuantity:   stock.ReorderQuantity,
	}
}

// EventType returns the event type name
func (e *StockBelowThresholdEvent) EventType() string {
	return EventTypeStockBelowThreshold
}
