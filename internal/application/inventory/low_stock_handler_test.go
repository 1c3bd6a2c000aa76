package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturingNotifier struct {
	mu     sync.Mutex
	alerts []LowStockAlert
	err    error
}

func (n *capturingNotifier) SendAlert(_ context.Context, alert LowStockAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.alerts = append(n.alerts, alert)
	return nil
}

func belowThresholdEvent(t *testing.T, onHand int64) *inventory.StockBelowThresholdEvent {
	t.Helper()
	stock, err := inventory.NewStock(uuid.New(), uuid.New(), nil)
	require.NoError(t, err)
	require.NoError(t, stock.SetThresholds(5, 3, 25))
	if onHand > 0 {
		require.NoError(t, stock.Restock(onHand, nil, time.Now()))
	}
	return inventory.NewStockBelowThresholdEvent(stock)
}

func TestLowStockHandler_Handle(t *testing.T) {
	t.Run("sends a low stock alert", func(t *testing.T) {
		notifier := &capturingNotifier{}
		handler := NewLowStockHandler(zap.NewNop()).WithNotifier(notifier)
		event := belowThresholdEvent(t, 2)

		err := handler.Handle(context.Background(), event)

		require.NoError(t, err)
		require.Len(t, notifier.alerts, 1)
		alert := notifier.alerts[0]
		assert.Equal(t, "low_stock", alert.AlertType)
		assert.Equal(t, int64(2), alert.OnHand)
		assert.Equal(t, int64(5), alert.Threshold)
		assert.Equal(t, int64(25), alert.ReorderQuantity)
	})

	t.Run("flags out of stock", func(t *testing.T) {
		notifier := &capturingNotifier{}
		handler := NewLowStockHandler(zap.NewNop()).WithNotifier(notifier)
		event := belowThresholdEvent(t, 0)

		require.NoError(t, handler.Handle(context.Background(), event))

		require.Len(t, notifier.alerts, 1)
		assert.Equal(t, "out_of_stock", notifier.alerts[0].AlertType)
	})

	t.Run("notifier failure does not propagate", func(t *testing.T) {
		notifier := &capturingNotifier{err: errors.New("smtp down")}
		handler := NewLowStockHandler(zap.NewNop()).WithNotifier(notifier)

		err := handler.Handle(context.Background(), belowThresholdEvent(t, 1))

		assert.NoError(t, err)
	})

	t.Run("rejects foreign event types", func(t *testing.T) {
		handler := NewLowStockHandler(zap.NewNop())
		stock, err := inventory.NewStock(uuid.New(), uuid.New(), nil)
		require.NoError(t, err)

		err = handler.Handle(context.Background(), inventory.NewStockReservedEvent(stock, 1))

		assert.Error(t, err)
	})

	t.Run("subscribes to the threshold event only", func(t *testing.T) {
		handler := NewLowStockHandler(nil)

		assert.Equal(t, []string{inventory.EventTypeStockBelowThreshold}, handler.EventTypes())
	})
}
