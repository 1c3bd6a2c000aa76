package sales

import (
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeSale   = "Sale"
	AggregateTypeRefund = "Refund"
)

// Event type constants
const (
	EventTypeSaleCreated   = "SaleCreated"
	EventTypeSaleSubmitted = "SaleSubmitted"
	EventTypeSaleConfirmed = "SaleConfirmed"
	EventTypeSaleCompleted = "SaleCompleted"
	EventTypeSaleCancelled = "SaleCancelled"
	EventTypeSaleRefunded  = "SaleRefunded"
)

// SaleCreatedEvent is raised when a new draft sale is created
type SaleCreatedEvent struct {
	shared.BaseDomainEvent
	SaleID     uuid.UUID  `json:"sale_id"`
	SaleNumber string     `json:"sale_number"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
	Channel    string     `json:"channel"`
}

// NewSaleCreatedEvent creates a new SaleCreatedEvent
func NewSaleCreatedEvent(sale *Sale) *SaleCreatedEvent {
	return &SaleCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCreated, AggregateTypeSale, sale.ID, sale.TenantID),
		SaleID:          sale.ID,
		SaleNumber:      sale.SaleNumber,
		CustomerID:      sale.CustomerID,
		Channel:         sale.Channel,
	}
}

// EventType returns the event type name
func (e *SaleCreatedEvent) EventType() string {
	return EventTypeSaleCreated
}

// SaleSubmittedEvent is raised when a draft sale moves to PENDING
type SaleSubmittedEvent struct {
	shared.BaseDomainEvent
	SaleID      uuid.UUID       `json:"sale_id"`
	SaleNumber  string          `json:"sale_number"`
	ItemCount   int             `json:"item_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewSaleSubmittedEvent creates a new SaleSubmittedEvent
func NewSaleSubmittedEvent(sale *Sale) *SaleSubmittedEvent {
	return &SaleSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleSubmitted, AggregateTypeSale, sale.ID, sale.TenantID),
		SaleID:          sale.ID,
		SaleNumber:      sale.SaleNumber,
		ItemCount:       len(sale.Items),
		TotalAmount:     sale.TotalAmount,
	}
}

// EventType returns the event type name
func (e *SaleSubmittedEvent) EventType() string {
	return EventTypeSaleSubmitted
}

// SaleConfirmedEvent is raised when a pending sale is confirmed
type SaleConfirmedEvent struct {
	shared.BaseDomainEvent
	SaleID      uuid.UUID       `json:"sale_id"`
	SaleNumber  string          `json:"sale_number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewSaleConfirmedEvent creates a new SaleConfirmedEvent
func NewSaleConfirmedEvent(sale *Sale) *SaleConfirmedEvent {
	return &SaleConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleConfirmed, AggregateTypeSale, sale.ID, sale.TenantID),
		SaleID:          sale.ID,
		SaleNumber:      sale.SaleNumber,
		TotalAmount:     sale.TotalAmount,
	}
}

// EventType returns the event type name
func (e *SaleConfirmedEvent) EventType() string {
	return EventTypeSaleConfirmed
}

// SaleCompletedEvent is raised when a confirmed sale is completed
type SaleCompletedEvent struct {
	shared.BaseDomainEvent
	SaleID      uuid.UUID       `json:"sale_id"`
	SaleNumber  string          `json:"sale_number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewSaleCompletedEvent creates a new SaleCompletedEvent
func NewSaleCompletedEvent(sale *Sale) *SaleCompletedEvent {
	return &SaleCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCompleted, AggregateTypeSale, sale.ID, sale.TenantID),
		SaleID:          sale.ID,
		SaleNumber:      sale.SaleNumber,
		TotalAmount:     sale.TotalAmount,
	}
}

// EventType returns the event type name
func (e *SaleCompletedEvent) EventType() string {
	return EventTypeSaleCompleted
}

// SaleCancelledEvent is raised when a sale is cancelled
type SaleCancelledEvent struct {
	shared.BaseDomainEvent
	SaleID     uuid.UUID `json:"sale_id"`
	SaleNumber string    `json:"sale_number"`
	Reason     string    `json:"reason"`
}

// NewSaleCancelledEvent creates a new SaleCancelledEvent
func NewSaleCancelledEvent(sale *Sale, reason string) *SaleCancelledEvent {
	return &SaleCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCancelled, AggregateTypeSale, sale.ID, sale.TenantID),
		SaleID:          sale.ID,
		SaleNumber:      sale.SaleNumber,
		Reason:          reason,
	}
}

// EventType returns the event type name
func (e *SaleCancelledEvent) EventType() string {
	return EventTypeSaleCancelled
}

// SaleRefundedEvent is raised when a completed sale becomes fully refunded
type SaleRefundedEvent struct {
	shared.BaseDomainEvent
	SaleID     uuid.UUID `json:"sale_id"`
	SaleNumber string    `json:"sale_number"`
}

// NewSaleRefundedEvent creates a new SaleRefundedEvent
func NewSaleRefundedEvent(sale *Sale) *SaleRefundedEvent {
	return &SaleRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleRefunded, AggregateTypeSale, sale.ID, sale.TenantID),
		SaleID:          sale.ID,
		SaleNumber:      sale.SaleNumber,
	}
}

// EventType returns the event type name
func (e *SaleRefundedEvent) EventType() string {
	return EventTypeSaleRefunded
}
