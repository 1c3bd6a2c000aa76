package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	events []shared.DomainEvent
	err    error
	panics bool
}

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.types
}

func (h *recordingHandler) received() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func restockedEvent(t *testing.T) shared.DomainEvent {
	t.Helper()

	stock, err := inventory.NewStock(uuid.New(), uuid.New(), nil)
	require.NoError(t, err)
	require.NoError(t, stock.Restock(5, nil, stock.CreatedAt))

	events := stock.GetDomainEvents()
	require.NotEmpty(t, events)
	return events[len(events)-1]
}

func TestInMemoryEventBus(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to subscribed handler", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		handler := &recordingHandler{types: []string{inventory.EventTypeStockRestocked}}
		bus.Subscribe(handler)

		require.NoError(t, bus.Publish(ctx, restockedEvent(t)))
		assert.Equal(t, 1, handler.received())
	})

	t.Run("skips handlers for other event types", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		handler := &recordingHandler{types: []string{inventory.EventTypeStockSold}}
		bus.Subscribe(handler)

		require.NoError(t, bus.Publish(ctx, restockedEvent(t)))
		assert.Equal(t, 0, handler.received())
	})

	t.Run("wildcard handler receives all events", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		handler := &recordingHandler{}
		bus.Subscribe(handler)

		require.NoError(t, bus.Publish(ctx, restockedEvent(t), restockedEvent(t)))
		assert.Equal(t, 2, handler.received())
	})

	t.Run("handler failure does not block other handlers", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		failing := &recordingHandler{types: []string{inventory.EventTypeStockRestocked}, err: errors.New("handler broken")}
		healthy := &recordingHandler{types: []string{inventory.EventTypeStockRestocked}}
		bus.Subscribe(failing)
		bus.Subscribe(healthy)

		require.NoError(t, bus.Publish(ctx, restockedEvent(t)))
		assert.Equal(t, 1, healthy.received())
	})

	t.Run("handler panic is contained", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		panicking := &recordingHandler{types: []string{inventory.EventTypeStockRestocked}, panics: true}
		healthy := &recordingHandler{types: []string{inventory.EventTypeStockRestocked}}
		bus.Subscribe(panicking)
		bus.Subscribe(healthy)

		require.NotPanics(t, func() {
			_ = bus.Publish(ctx, restockedEvent(t))
		})
		assert.Equal(t, 1, healthy.received())
	})

	t.Run("unsubscribed handler stops receiving", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		handler := &recordingHandler{types: []string{inventory.EventTypeStockRestocked}}
		bus.Subscribe(handler)
		bus.Unsubscribe(handler)

		require.NoError(t, bus.Publish(ctx, restockedEvent(t)))
		assert.Equal(t, 0, handler.received())
	})
}
