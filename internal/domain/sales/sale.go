package sales

import (
	"fmt"
	"time"

	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleStatus represents the status of a sale
type SaleStatus string

const (
	SaleStatusDraft     SaleStatus = "DRAFT"
	SaleStatusPending   SaleStatus = "PENDING"
	SaleStatusConfirmed SaleStatus = "CONFIRMED"
	SaleStatusCompleted SaleStatus = "COMPLETED"
	SaleStatusCancelled SaleStatus = "CANCELLED"
	SaleStatusRefunded  SaleStatus = "REFUNDED"
)

// IsValid checks if the status is a valid SaleStatus
func (s SaleStatus) IsValid() bool {
	switch s {
	case SaleStatusDraft, SaleStatusPending, SaleStatusConfirmed,
		SaleStatusCompleted, SaleStatusCancelled, SaleStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of SaleStatus
func (s SaleStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s SaleStatus) CanTransitionTo(target SaleStatus) bool {
	switch s {
	case SaleStatusDraft:
		return target == SaleStatusPending || target == SaleStatusCancelled
	case SaleStatusPending:
		return target == SaleStatusConfirmed || target == SaleStatusCancelled
	case SaleStatusConfirmed:
		return target == SaleStatusCompleted || target == SaleStatusCancelled
	case SaleStatusCompleted:
		return target == SaleStatusRefunded
	case SaleStatusCancelled, SaleStatusRefunded:
		return false // Terminal states
	}
	return false
}

// PaymentStatus represents the payment state of a sale
type PaymentStatus string

const (
	PaymentStatusUnpaid            PaymentStatus = "UNPAID"
	PaymentStatusPaid              PaymentStatus = "PAID"
	PaymentStatusPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
	PaymentStatusRefunded          PaymentStatus = "REFUNDED"
)

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// SaleItem represents a line item in a sale. QuantityRefunded is the only
// field that may change after creation; everything else is fixed at the
// moment the stock was sold.
type SaleItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null"`
	VariantID        *uuid.UUID      `gorm:"type:uuid"`
	ProductName      string          `gorm:"type:varchar(255);not null"`
	Quantity         int64           `gorm:"not null"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineTotal        decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Quantity * UnitPrice
	QuantityRefunded int64           `gorm:"not null;default:0"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName returns the table name for GORM
func (SaleItem) TableName() string {
	return "sale_items"
}

// NewSaleItem creates a new sale line item
func NewSaleItem(saleID, productID uuid.UUID, variantID *uuid.UUID, productName string, quantity int64, unitPrice decimal.Decimal) (*SaleItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	now := time.Now()
	return &SaleItem{
		ID:          uuid.New(),
		SaleID:      saleID,
		ProductID:   productID,
		VariantID:   variantID,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		LineTotal:   unitPrice.Mul(decimal.NewFromInt(quantity)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// RefundableQuantity returns the quantity still eligible for refund
func (i *SaleItem) RefundableQuantity() int64 {
	return i.Quantity - i.QuantityRefunded
}

// RecordRefund advances the refunded-quantity bookkeeping. The caller is
// expected to have clamped qty against RefundableQuantity already; exceeding
// it here is rejected so the sum of refunds can never pass the sold quantity.
func (i *SaleItem) RecordRefund(qty int64) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Refund quantity must be positive")
	}
	if qty > i.RefundableQuantity() {
		return shared.NewDomainError("OVER_REFUND", "Refund quantity exceeds refundable quantity")
	}

	i.QuantityRefunded += qty
	i.UpdatedAt = time.Now()

	return nil
}

// IsFullyRefunded returns true if the whole sold quantity has been refunded
func (i *SaleItem) IsFullyRefunded() bool {
	return i.QuantityRefunded >= i.Quantity
}

// Sale represents a sale aggregate root. Stock is decremented when an item
// is added, so the item list and the stock ledger move together inside one
// transaction; the state machine only gates which mutations are allowed.
type Sale struct {
	shared.TenantAggregateRoot
	SaleNumber     string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_sale_tenant_number,priority:2"`
	CustomerID     *uuid.UUID      `gorm:"type:uuid;index"` // nil for walk-in sales
	Channel        string          `gorm:"type:varchar(30);not null;default:'POS'"`
	Items          []SaleItem      `gorm:"foreignKey:SaleID"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status         SaleStatus      `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	PaymentStatus  PaymentStatus   `gorm:"type:varchar(20);not null;default:'UNPAID'"`
	Remark         string          `gorm:"type:varchar(255)"`
	SubmittedAt    *time.Time
	ConfirmedAt    *time.Time
	CompletedAt    *time.Time
	CancelledAt    *time.Time
	CancelReason   string `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (Sale) TableName() string {
	return "sales"
}

// NewSale creates a new draft sale
func NewSale(tenantID uuid.UUID, saleNumber string, customerID *uuid.UUID, channel string) (*Sale, error) {
	if saleNumber == "" {
		return nil, shared.NewDomainError("INVALID_SALE_NUMBER", "Sale number cannot be empty")
	}
	if len(saleNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_SALE_NUMBER", "Sale number cannot exceed 50 characters")
	}
	if customerID != nil && *customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if channel == "" {
		channel = "POS"
	}

	sale := &Sale{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SaleNumber:          saleNumber,
		CustomerID:          customerID,
		Channel:             channel,
		Items:               make([]SaleItem, 0),
		Subtotal:            decimal.Zero,
		DiscountAmount:      decimal.Zero,
		TotalAmount:         decimal.Zero,
		Status:              SaleStatusDraft,
		PaymentStatus:       PaymentStatusUnpaid,
	}

	sale.AddDomainEvent(NewSaleCreatedEvent(sale))

	return sale, nil
}

// AddItem adds a line item to the sale. Allowed in DRAFT and PENDING status.
// One line per product/variant; a second add for the same product is rejected
// so each stock record mutates at most once per sale transaction.
func (s *Sale) AddItem(productID uuid.UUID, variantID *uuid.UUID, productName string, quantity int64, unitPrice decimal.Decimal) (*SaleItem, error) {
	if s.Status != SaleStatusDraft && s.Status != SaleStatusPending {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot add items to a sale in %s status", s.Status))
	}

	for _, item := range s.Items {
		if item.ProductID == productID && equalVariant(item.VariantID, variantID) {
			return nil, shared.NewDomainError("DUPLICATE_PRODUCT", "Product already exists in sale")
		}
	}

	item, err := NewSaleItem(s.ID, productID, variantID, productName, quantity, unitPrice)
	if err != nil {
		return nil, err
	}

	s.Items = append(s.Items, *item)
	s.recalculateTotals()
	s.touch()

	// Return the element inside the slice so later bookkeeping on the
	// pointer is visible on the aggregate.
	return &s.Items[len(s.Items)-1], nil
}

// RemoveItem removes a line item and returns it so the caller can restore
// the stock that was sold for it. Only allowed in DRAFT status.
func (s *Sale) RemoveItem(itemID uuid.UUID) (*SaleItem, error) {
	if s.Status != SaleStatusDraft {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot remove items from a non-draft sale")
	}

	for idx, item := range s.Items {
		if item.ID == itemID {
			removed := item
			s.Items = append(s.Items[:idx], s.Items[idx+1:]...)
			s.recalculateTotals()
			s.touch()
			return &removed, nil
		}
	}

	return nil, shared.NewDomainError("ITEM_NOT_FOUND", "Sale item not found")
}

// FindItem returns the line item with the given ID
func (s *Sale) FindItem(itemID uuid.UUID) (*SaleItem, error) {
	for idx := range s.Items {
		if s.Items[idx].ID == itemID {
			return &s.Items[idx], nil
		}
	}
	return nil, shared.NewDomainError("ITEM_NOT_FOUND", "Sale item not found")
}

// ApplyDiscount applies a sale-level discount. Only allowed before submission.
func (s *Sale) ApplyDiscount(discount decimal.Decimal) error {
	if s.Status != SaleStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Cannot apply discount to a non-draft sale")
	}
	if discount.IsNegative() {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}
	if discount.GreaterThan(s.Subtotal) {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot exceed subtotal")
	}

	s.DiscountAmount = discount
	s.TotalAmount = s.Subtotal.Sub(discount)
	s.touch()

	return nil
}

// SetRemark sets the sale remark
func (s *Sale) SetRemark(remark string) {
	s.Remark = remark
	s.UpdatedAt = time.Now()
}

// Submit transitions the sale from DRAFT to PENDING. Requires at least one item.
func (s *Sale) Submit(now time.Time) error {
	if !s.Status.CanTransitionTo(SaleStatusPending) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot submit sale in %s status", s.Status))
	}
	if len(s.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Cannot submit sale without items")
	}

	s.Status = SaleStatusPending
	s.SubmittedAt = &now
	s.touch()

	s.AddDomainEvent(NewSaleSubmittedEvent(s))

	return nil
}

// Confirm transitions the sale from PENDING to CONFIRMED
func (s *Sale) Confirm(now time.Time) error {
	if !s.Status.CanTransitionTo(SaleStatusConfirmed) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot confirm sale in %s status", s.Status))
	}

	s.Status = SaleStatusConfirmed
	s.ConfirmedAt = &now
	s.touch()

	s.AddDomainEvent(NewSaleConfirmedEvent(s))

	return nil
}

// Complete transitions the sale from CONFIRMED to COMPLETED
func (s *Sale) Complete(now time.Time) error {
	if !s.Status.CanTransitionTo(SaleStatusCompleted) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete sale in %s status", s.Status))
	}

	s.Status = SaleStatusCompleted
	s.CompletedAt = &now
	s.touch()

	s.AddDomainEvent(NewSaleCompletedEvent(s))

	return nil
}

// Cancel cancels the sale. Allowed from DRAFT, PENDING and CONFIRMED.
// Cancelling does not move stock; compensation for already-sold items is the
// caller's responsibility.
func (s *Sale) Cancel(reason string, now time.Time) error {
	if !s.Status.CanTransitionTo(SaleStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel sale in %s status", s.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	s.Status = SaleStatusCancelled
	s.CancelledAt = &now
	s.CancelReason = reason
	s.touch()

	s.AddDomainEvent(NewSaleCancelledEvent(s, reason))

	return nil
}

// MarkPaid records payment for the sale
func (s *Sale) MarkPaid() error {
	if s.Status == SaleStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot record payment for a cancelled sale")
	}
	if s.PaymentStatus != PaymentStatusUnpaid {
		return shared.NewDomainError("INVALID_STATE", "Sale is already paid")
	}

	s.PaymentStatus = PaymentStatusPaid
	s.touch()

	return nil
}

// RecordItemRefund advances the refunded-quantity bookkeeping on a line item
func (s *Sale) RecordItemRefund(itemID uuid.UUID, qty int64) error {
	item, err := s.FindItem(itemID)
	if err != nil {
		return err
	}
	if err := item.RecordRefund(qty); err != nil {
		return err
	}

	s.touch()

	return nil
}

// MarkRefunded updates payment status after a refund is processed. When every
// item is fully refunded, a completed sale also transitions to REFUNDED.
func (s *Sale) MarkRefunded() error {
	if s.TotalRefundedQuantity() == 0 {
		return shared.NewDomainError("INVALID_STATE", "Sale has no refunded items")
	}

	if s.IsFullyRefunded() {
		s.PaymentStatus = PaymentStatusRefunded
		if s.Status.CanTransitionTo(SaleStatusRefunded) {
			s.Status = SaleStatusRefunded
			s.AddDomainEvent(NewSaleRefundedEvent(s))
		}
	} else {
		s.PaymentStatus = PaymentStatusPartiallyRefunded
	}
	s.touch()

	return nil
}

// IsFullyRefunded returns true if every line item has been fully refunded
func (s *Sale) IsFullyRefunded() bool {
	if len(s.Items) == 0 {
		return false
	}
	for _, item := range s.Items {
		if !item.IsFullyRefunded() {
			return false
		}
	}
	return true
}

// TotalRefundedQuantity returns the sum of refunded quantities across items
func (s *Sale) TotalRefundedQuantity() int64 {
	var total int64
	for _, item := range s.Items {
		total += item.QuantityRefunded
	}
	return total
}

// TotalQuantity returns the sum of sold quantities across items
func (s *Sale) TotalQuantity() int64 {
	var total int64
	for _, item := range s.Items {
		total += item.Quantity
	}
	return total
}

// recalculateTotals refreshes the money totals from the item list
func (s *Sale) recalculateTotals() {
	subtotal := decimal.Zero
	for _, item := range s.Items {
		subtotal = subtotal.Add(item.LineTotal)
	}
	s.Subtotal = subtotal
	if s.DiscountAmount.GreaterThan(subtotal) {
		s.DiscountAmount = decimal.Zero
	}
	s.TotalAmount = subtotal.Sub(s.DiscountAmount)
}

// touch updates the modification timestamp. The optimistic version is bumped
// by the repository once per save, not per mutation, so a batch of item adds
// still matches the version the aggregate was loaded with.
func (s *Sale) touch() {
	s.UpdatedAt = time.Now()
}

func equalVariant(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
