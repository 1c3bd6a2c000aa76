package sales

import (
	"time"

	"github.com/commerce/backoffice/internal/domain/sales"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateSaleRequest represents a request to open a new draft sale
type CreateSaleRequest struct {
	SaleNumber string     `json:"sale_number" binding:"required,max=50"`
	CustomerID *uuid.UUID `json:"customer_id"`
	Channel    string     `json:"channel" binding:"omitempty,max=30"`
	Remark     string     `json:"remark" binding:"omitempty,max=255"`
}

// SaleItemRequest represents one line to add to a sale
type SaleItemRequest struct {
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	VariantID   *uuid.UUID      `json:"variant_id"`
	ProductName string          `json:"product_name" binding:"required,max=255"`
	Quantity    int64           `json:"quantity" binding:"required,gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
}

// AddItemsRequest represents a batch of lines to add to a sale atomically
type AddItemsRequest struct {
	Items []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CancelSaleRequest represents a request to cancel a sale
type CancelSaleRequest struct {
	Reason string `json:"reason" binding:"required,max=255"`
}

// SaleItemResponse represents a sale line item in API responses
type SaleItemResponse struct {
	ID                 uuid.UUID       `json:"id"`
	ProductID          uuid.UUID       `json:"product_id"`
	VariantID          *uuid.UUID      `json:"variant_id,omitempty"`
	ProductName        string          `json:"product_name"`
	Quantity           int64           `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	LineTotal          decimal.Decimal `json:"line_total"`
	QuantityRefunded   int64           `json:"quantity_refunded"`
	RefundableQuantity int64           `json:"refundable_quantity"`
}

// SaleResponse represents a sale in API responses
type SaleResponse struct {
	ID             uuid.UUID          `json:"id"`
	TenantID       uuid.UUID          `json:"tenant_id"`
	SaleNumber     string             `json:"sale_number"`
	CustomerID     *uuid.UUID         `json:"customer_id,omitempty"`
	Channel        string             `json:"channel"`
	Items          []SaleItemResponse `json:"items"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	Status         string             `json:"status"`
	PaymentStatus  string             `json:"payment_status"`
	Remark         string             `json:"remark,omitempty"`
	SubmittedAt    *time.Time         `json:"submitted_at,omitempty"`
	ConfirmedAt    *time.Time         `json:"confirmed_at,omitempty"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
	CancelledAt    *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason   string             `json:"cancel_reason,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	Version        int                `json:"version"`
}

// ToSaleResponse converts a Sale aggregate to a response DTO
func ToSaleResponse(sale *sales.Sale) *SaleResponse {
	items := make([]SaleItemResponse, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, SaleItemResponse{
			ID:                 item.ID,
			ProductID:          item.ProductID,
			VariantID:          item.VariantID,
			ProductName:        item.ProductName,
			Quantity:           item.Quantity,
			UnitPrice:          item.UnitPrice,
			LineTotal:          item.LineTotal,
			QuantityRefunded:   item.QuantityRefunded,
			RefundableQuantity: item.RefundableQuantity(),
		})
	}

	return &SaleResponse{
		ID:             sale.ID,
		TenantID:       sale.TenantID,
		SaleNumber:     sale.SaleNumber,
		CustomerID:     sale.CustomerID,
		Channel:        sale.Channel,
		Items:          items,
		Subtotal:       sale.Subtotal,
		DiscountAmount: sale.DiscountAmount,
		TotalAmount:    sale.TotalAmount,
		Status:         sale.Status.String(),
		PaymentStatus:  sale.PaymentStatus.String(),
		Remark:         sale.Remark,
		SubmittedAt:    sale.SubmittedAt,
		ConfirmedAt:    sale.ConfirmedAt,
		CompletedAt:    sale.CompletedAt,
		CancelledAt:    sale.CancelledAt,
		CancelReason:   sale.CancelReason,
		CreatedAt:      sale.CreatedAt,
		UpdatedAt:      sale.UpdatedAt,
		Version:        sale.Version,
	}
}

// SaleListFilter represents filter options for sale listings
type SaleListFilter struct {
	Status     string     `form:"status" binding:"omitempty,oneof=DRAFT PENDING CONFIRMED COMPLETED CANCELLED REFUNDED"`
	CustomerID *uuid.UUID `form:"customer_id"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// RefundItemRequest represents one sale line to refund
type RefundItemRequest struct {
	SaleItemID uuid.UUID `json:"sale_item_id" binding:"required"`
	Quantity   int64     `json:"quantity" binding:"required,gt=0"`
	Reason     string    `json:"reason" binding:"omitempty,max=255"`
}

// CreateRefundRequest represents a request to raise a refund against a sale
type CreateRefundRequest struct {
	RefundNumber string              `json:"refund_number" binding:"required,max=50"`
	SaleID       uuid.UUID           `json:"sale_id" binding:"required"`
	Reason       string              `json:"reason" binding:"omitempty,max=255"`
	Items        []RefundItemRequest `json:"items" binding:"required,min=1,dive"`
}

// FailRefundRequest represents a request to mark a refund failed
type FailRefundRequest struct {
	Reason string `json:"reason" binding:"required,max=255"`
}

// RefundItemResponse represents a refund line in API responses
type RefundItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	SaleItemID       uuid.UUID       `json:"sale_item_id"`
	ProductID        uuid.UUID       `json:"product_id"`
	VariantID        *uuid.UUID      `json:"variant_id,omitempty"`
	QuantityRefunded int64           `json:"quantity_refunded"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Amount           decimal.Decimal `json:"amount"`
	Reason           string          `json:"reason,omitempty"`
}

// RefundResponse represents a refund in API responses
type RefundResponse struct {
	ID           uuid.UUID            `json:"id"`
	TenantID     uuid.UUID            `json:"tenant_id"`
	RefundNumber string               `json:"refund_number"`
	SaleID       uuid.UUID            `json:"sale_id"`
	Items        []RefundItemResponse `json:"items"`
	Amount       decimal.Decimal      `json:"amount"`
	Status       string               `json:"status"`
	Reason       string               `json:"reason,omitempty"`
	FailReason   string               `json:"fail_reason,omitempty"`
	ProcessedAt  *time.Time           `json:"processed_at,omitempty"`
	CancelledAt  *time.Time           `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// ToRefundResponse converts a Refund aggregate to a response DTO
func ToRefundResponse(refund *sales.Refund) *RefundResponse {
	items := make([]RefundItemResponse, 0, len(refund.Items))
	for _, item := range refund.Items {
		items = append(items, RefundItemResponse{
			ID:               item.ID,
			SaleItemID:       item.SaleItemID,
			ProductID:        item.ProductID,
			VariantID:        item.VariantID,
			QuantityRefunded: item.QuantityRefunded,
			UnitPrice:        item.UnitPrice,
			Amount:           item.Amount,
			Reason:           item.Reason,
		})
	}

	return &RefundResponse{
		ID:           refund.ID,
		TenantID:     refund.TenantID,
		RefundNumber: refund.RefundNumber,
		SaleID:       refund.SaleID,
		Items:        items,
		Amount:       refund.Amount,
		Status:       refund.Status.String(),
		Reason:       refund.Reason,
		FailReason:   refund.FailReason,
		ProcessedAt:  refund.ProcessedAt,
		CancelledAt:  refund.CancelledAt,
		CreatedAt:    refund.CreatedAt,
		UpdatedAt:    refund.UpdatedAt,
	}
}
