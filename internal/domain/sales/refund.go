package sales

import (
	"fmt"
	"time"

	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RefundStatus represents the status of a refund
type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "PENDING"
	RefundStatusProcessed RefundStatus = "PROCESSED"
	RefundStatusFailed    RefundStatus = "FAILED"
	RefundStatusCancelled RefundStatus = "CANCELLED"
)

// IsValid checks if the status is a valid RefundStatus
func (s RefundStatus) IsValid() bool {
	switch s {
	case RefundStatusPending, RefundStatusProcessed, RefundStatusFailed, RefundStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of RefundStatus
func (s RefundStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s RefundStatus) CanTransitionTo(target RefundStatus) bool {
	switch s {
	case RefundStatusPending:
		return target == RefundStatusProcessed || target == RefundStatusFailed || target == RefundStatusCancelled
	case RefundStatusProcessed, RefundStatusFailed, RefundStatusCancelled:
		return false // Terminal states
	}
	return false
}

// RefundItem represents a single sale line being refunded. Quantity and
// amount are fixed at creation, after clamping against the sale item's
// remaining refundable quantity.
type RefundItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RefundID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	SaleItemID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null"`
	VariantID        *uuid.UUID      `gorm:"type:uuid"`
	QuantityRefunded int64           `gorm:"not null"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null"` // QuantityRefunded * UnitPrice
	Reason           string          `gorm:"type:varchar(255)"`
	CreatedAt        time.Time
}

// TableName returns the table name for GORM
func (RefundItem) TableName() string {
	return "refund_items"
}

// Refund represents a refund aggregate root. A refund is assembled against
// one sale while PENDING and processed exactly once; PENDING to PROCESSED is
// one-way, which is what guarantees stock is restored at most once.
type Refund struct {
	shared.TenantAggregateRoot
	RefundNumber string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_refund_tenant_number,priority:2"`
	SaleID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Items        []RefundItem    `gorm:"foreignKey:RefundID"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Sum of item amounts
	Status       RefundStatus    `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Reason       string          `gorm:"type:varchar(255)"`
	FailReason   string          `gorm:"type:varchar(255)"`
	ProcessedAt  *time.Time
	CancelledAt  *time.Time
}

// TableName returns the table name for GORM
func (Refund) TableName() string {
	return "refunds"
}

// NewRefund creates a new pending refund against a sale
func NewRefund(tenantID uuid.UUID, refundNumber string, saleID uuid.UUID, reason string) (*Refund, error) {
	if refundNumber == "" {
		return nil, shared.NewDomainError("INVALID_REFUND_NUMBER", "Refund number cannot be empty")
	}
	if len(refundNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_REFUND_NUMBER", "Refund number cannot exceed 50 characters")
	}
	if saleID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SALE", "Sale ID cannot be empty")
	}

	refund := &Refund{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		RefundNumber:        refundNumber,
		SaleID:              saleID,
		Items:               make([]RefundItem, 0),
		Amount:              decimal.Zero,
		Status:              RefundStatusPending,
		Reason:              reason,
	}

	refund.AddDomainEvent(NewRefundCreatedEvent(refund))

	return refund, nil
}

// AddItem adds a sale line to the refund. The requested quantity is clamped
// to the sale item's remaining refundable quantity; if nothing remains the
// add is rejected with OVER_REFUND. The caller advances the sale item's
// bookkeeping with the returned item's QuantityRefunded.
func (r *Refund) AddItem(saleItem *SaleItem, requestedQty int64, reason string) (*RefundItem, error) {
	if r.Status != RefundStatusPending {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add items to a non-pending refund")
	}
	if saleItem == nil {
		return nil, shared.NewDomainError("INVALID_SALE_ITEM", "Sale item is required")
	}
	if saleItem.SaleID != r.SaleID {
		return nil, shared.NewDomainError("INVALID_SALE_ITEM", "Sale item belongs to a different sale")
	}
	if requestedQty <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Refund quantity must be positive")
	}

	for _, item := range r.Items {
		if item.SaleItemID == saleItem.ID {
			return nil, shared.NewDomainError("DUPLICATE_SALE_ITEM", "Sale item already in refund")
		}
	}

	qty := requestedQty
	if maxRefundable := saleItem.RefundableQuantity(); qty > maxRefundable {
		qty = maxRefundable
	}
	if qty <= 0 {
		return nil, shared.NewDomainError("OVER_REFUND", "Sale item has no refundable quantity left")
	}

	item := RefundItem{
		ID:               uuid.New(),
		RefundID:         r.ID,
		SaleItemID:       saleItem.ID,
		ProductID:        saleItem.ProductID,
		VariantID:        saleItem.VariantID,
		QuantityRefunded: qty,
		UnitPrice:        saleItem.UnitPrice,
		Amount:           saleItem.UnitPrice.Mul(decimal.NewFromInt(qty)),
		Reason:           reason,
		CreatedAt:        time.Now(),
	}

	r.Items = append(r.Items, item)
	r.Amount = r.Amount.Add(item.Amount)
	r.touch()

	return &item, nil
}

// Process transitions the refund from PENDING to PROCESSED. Processing an
// already-processed refund is rejected, which is the double-restock guard;
// the stock restoration per item is performed by the caller in the same
// transaction.
func (r *Refund) Process(now time.Time) error {
	if !r.Status.CanTransitionTo(RefundStatusProcessed) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot process refund in %s status", r.Status))
	}
	if len(r.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Cannot process refund without items")
	}

	r.Status = RefundStatusProcessed
	r.ProcessedAt = &now
	r.touch()

	r.AddDomainEvent(NewRefundProcessedEvent(r))

	return nil
}

// MarkFailed marks a pending refund as failed
func (r *Refund) MarkFailed(reason string) error {
	if !r.Status.CanTransitionTo(RefundStatusFailed) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail refund in %s status", r.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Failure reason is required")
	}

	r.Status = RefundStatusFailed
	r.FailReason = reason
	r.touch()

	r.AddDomainEvent(NewRefundFailedEvent(r, reason))

	return nil
}

// Cancel cancels a pending refund
func (r *Refund) Cancel(now time.Time) error {
	if !r.Status.CanTransitionTo(RefundStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel refund in %s status", r.Status))
	}

	r.Status = RefundStatusCancelled
	r.CancelledAt = &now
	r.touch()

	r.AddDomainEvent(NewRefundCancelledEvent(r))

	return nil
}

// TotalQuantity returns the sum of refunded quantities across items
func (r *Refund) TotalQuantity() int64 {
	var total int64
	for _, item := range r.Items {
		total += item.QuantityRefunded
	}
	return total
}

// touch updates the modification timestamp. The repository bumps the
// optimistic version once per save.
func (r *Refund) touch() {
	r.UpdatedAt = time.Now()
}
