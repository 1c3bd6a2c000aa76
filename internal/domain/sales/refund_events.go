package sales

import (
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypeRefundCreated   = "RefundCreated"
	EventTypeRefundProcessed = "RefundProcessed"
	EventTypeRefundFailed    = "RefundFailed"
	EventTypeRefundCancelled = "RefundCancelled"
)

// RefundCreatedEvent is raised when a new pending refund is created
type RefundCreatedEvent struct {
	shared.BaseDomainEvent
	RefundID     uuid.UUID `json:"refund_id"`
	RefundNumber string    `json:"refund_number"`
	SaleID       uuid.UUID `json:"sale_id"`
	Reason       string    `json:"reason"`
}

// NewRefundCreatedEvent creates a new RefundCreatedEvent
func NewRefundCreatedEvent(refund *Refund) *RefundCreatedEvent {
	return &RefundCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRefundCreated, AggregateTypeRefund, refund.ID, refund.TenantID),
		RefundID:        refund.ID,
		RefundNumber:    refund.RefundNumber,
		SaleID:          refund.SaleID,
		Reason:          refund.Reason,
	}
}

// EventType returns the event type name
func (e *RefundCreatedEvent) EventType() string {
	return EventTypeRefundCreated
}

// RefundProcessedEvent is raised when a refund is processed and stock restored
type RefundProcessedEvent struct {
	shared.BaseDomainEvent
	RefundID      uuid.UUID       `json:"refund_id"`
	RefundNumber  string          `json:"refund_number"`
	SaleID        uuid.UUID       `json:"sale_id"`
	Amount        decimal.Decimal `json:"amount"`
	TotalQuantity int64           `json:"total_quantity"`
}

// NewRefundProcessedEvent creates a new RefundProcessedEvent
func NewRefundProcessedEvent(refund *Refund) *RefundProcessedEvent {
	return &RefundProcessedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRefundProcessed, AggregateTypeRefund, refund.ID, refund.TenantID),
		RefundID:        refund.ID,
		RefundNumber:    refund.RefundNumber,
		SaleID:          refund.SaleID,
		Amount:          refund.Amount,
		TotalQuantity:   refund.TotalQuantity(),
	}
}

// EventType returns the event type name
func (e *RefundProcessedEvent) EventType() string {
	return EventTypeRefundProcessed
}

// RefundFailedEvent is raised when a pending refund is marked failed
type RefundFailedEvent struct {
	shared.BaseDomainEvent
	RefundID     uuid.UUID `json:"refund_id"`
	RefundNumber string    `json:"refund_number"`
	SaleID       uuid.UUID `json:"sale_id"`
	Reason       string    `json:"reason"`
}

// NewRefundFailedEvent creates a new RefundFailedEvent
func NewRefundFailedEvent(refund *Refund, reason string) *RefundFailedEvent {
	return &RefundFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRefundFailed, AggregateTypeRefund, refund.ID, refund.TenantID),
		RefundID:        refund.ID,
		RefundNumber:    refund.RefundNumber,
		SaleID:          refund.SaleID,
		Reason:          reason,
	}
}

// EventType returns the event type name
func (e *RefundFailedEvent) EventType() string {
	return EventTypeRefundFailed
}

// RefundCancelledEvent is raised when a pending refund is cancelled
type RefundCancelledEvent struct {
	shared.BaseDomainEvent
	RefundID     uuid.UUID `json:"refund_id"`
	RefundNumber string    `json:"refund_number"`
	SaleID       uuid.UUID `json:"sale_id"`
}

// NewRefundCancelledEvent creates a new RefundCancelledEvent
func NewRefundCancelledEvent(refund *Refund) *RefundCancelledEvent {
	return &RefundCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRefundCancelled, AggregateTypeRefund, refund.ID, refund.TenantID),
		RefundID:        refund.ID,
		RefundNumber:    refund.RefundNumber,
		SaleID:          refund.SaleID,
	}
}

// EventType returns the event type name
func (e *RefundCancelledEvent) EventType() string {
	return EventTypeRefundCancelled
}
