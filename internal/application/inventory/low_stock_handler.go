package inventory

import (
	"context"
	"fmt"

	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// LowStockAlert describes a stock level that crossed its threshold
type LowStockAlert struct {
	TenantID        string `json:"tenant_id"`
	StockID         string `json:"stock_id"`
	ProductID       string `json:"product_id"`
	VariantID       string `json:"variant_id,omitempty"`
	OnHand          int64  `json:"on_hand"`
	Threshold       int64  `json:"threshold"`
	ReorderPoint    int64  `json:"reorder_point"`
	ReorderQuantity int64  `json:"reorder_quantity"`
	AlertType       string `json:"alert_type"` // "low_stock" or "out_of_stock"
}

// LowStockNotifier sends low-stock alerts. Implementations can target
// in-app notifications, email, webhooks and so on.
type LowStockNotifier interface {
	// SendAlert sends a low-stock alert
	SendAlert(ctx context.Context, alert LowStockAlert) error
}

// LowStockHandler subscribes to StockBelowThreshold events and turns them
// into alerts. Notification failures are logged, not propagated, so a bad
// notifier cannot fail the originating stock operation.
type LowStockHandler struct {
	logger   *zap.Logger
	notifier LowStockNotifier
}

// NewLowStockHandler creates a new handler for below-threshold events
func NewLowStockHandler(logger *zap.Logger) *LowStockHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LowStockHandler{logger: logger}
}

// WithNotifier sets the notifier for sending alerts
func (h *LowStockHandler) WithNotifier(notifier LowStockNotifier) *LowStockHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *LowStockHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockBelowThreshold}
}

// Handle processes a StockBelowThresholdEvent
func (h *LowStockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	thresholdEvent, ok := event.(*inventory.StockBelowThresholdEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", inventory.EventTypeStockBelowThreshold),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeStockBelowThreshold, event.EventType())
	}

	alertType := "low_stock"
	if thresholdEvent.OnHand <= 0 {
		alertType = "out_of_stock"
	}

	h.logger.Warn("stock below threshold",
		zap.String("tenant_id", event.TenantID().String()),
		zap.String("stock_id", thresholdEvent.StockID.String()),
		zap.String("product_id", thresholdEvent.ProductID.String()),
		zap.Int64("on_hand", thresholdEvent.OnHand),
		zap.Int64("threshold", thresholdEvent.LowStockThreshold),
		zap.String("alert_type", alertType),
	)

	if h.notifier == nil {
		return nil
	}

	alert := LowStockAlert{
		TenantID:        event.TenantID().String(),
		StockID:         thresholdEvent.StockID.String(),
		ProductID:       thresholdEvent.ProductID.String(),
		OnHand:          thresholdEvent.OnHand,
		Threshold:       thresholdEvent.LowStockThreshold,
		ReorderPoint:    thresholdEvent.ReorderPoint,
		ReorderQuantity: thresholdEvent.ReorderQuantity,
		AlertType:       alertType,
	}
	if thresholdEvent.VariantID != nil {
		alert.VariantID = thresholdEvent.VariantID.String()
	}

	if err := h.notifier.SendAlert(ctx, alert); err != nil {
		h.logger.Error("failed to send low-stock alert",
			zap.String("stock_id", alert.StockID),
			zap.Error(err),
		)
	}

	return nil
}

// Ensure LowStockHandler implements shared.EventHandler
var _ shared.EventHandler = (*LowStockHandler)(nil)
