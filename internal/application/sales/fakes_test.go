package sales

import (
	"context"
	"sync"

	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/sales"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockEventPublisher collects published events for assertions
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{events: make([]shared.DomainEvent, 0)}
}

func (m *MockEventPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// memSaleRepo is an in-memory SaleRepository with real optimistic-lock
// semantics. Items are deep-copied on read and write so callers never share
// a slice with the stored value.
type memSaleRepo struct {
	mu    sync.Mutex
	sales map[uuid.UUID]sales.Sale
}

func newMemSaleRepo() *memSaleRepo {
	return &memSaleRepo{sales: make(map[uuid.UUID]sales.Sale)}
}

// cloneSale deep-copies the item list and drops the pending event buffer,
// the way a round trip through the database would.
func cloneSale(s sales.Sale) sales.Sale {
	items := make([]sales.SaleItem, len(s.Items))
	copy(items, s.Items)
	s.Items = items
	s.ClearDomainEvents()
	return s
}

func (r *memSaleRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*sales.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sale, ok := r.sales[id]; ok && sale.TenantID == tenantID {
		clone := cloneSale(sale)
		return &clone, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memSaleRepo) FindBySaleNumber(_ context.Context, tenantID uuid.UUID, saleNumber string) (*sales.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sale := range r.sales {
		if sale.TenantID == tenantID && sale.SaleNumber == saleNumber {
			clone := cloneSale(sale)
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memSaleRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, filter shared.Filter) ([]sales.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]sales.Sale, 0)
	for _, sale := range r.sales {
		if sale.TenantID != tenantID {
			continue
		}
		if status, ok := filter.Filters["status"].(string); ok && sale.Status.String() != status {
			continue
		}
		result = append(result, cloneSale(sale))
	}
	return result, nil
}

func (r *memSaleRepo) Create(_ context.Context, sale *sales.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales[sale.ID] = cloneSale(*sale)
	return nil
}

func (r *memSaleRepo) SaveWithLock(_ context.Context, sale *sales.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.sales[sale.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if current.Version != sale.Version {
		return shared.ErrConcurrencyConflict
	}
	sale.IncrementVersion()
	r.sales[sale.ID] = cloneSale(*sale)
	return nil
}

func (r *memSaleRepo) CountForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, sale := range r.sales {
		if sale.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

// memRefundRepo is an in-memory RefundRepository with real optimistic-lock
// semantics.
type memRefundRepo struct {
	mu      sync.Mutex
	refunds map[uuid.UUID]sales.Refund
}

func newMemRefundRepo() *memRefundRepo {
	return &memRefundRepo{refunds: make(map[uuid.UUID]sales.Refund)}
}

func cloneRefund(ref sales.Refund) sales.Refund {
	items := make([]sales.RefundItem, len(ref.Items))
	copy(items, ref.Items)
	ref.Items = items
	ref.ClearDomainEvents()
	return ref
}

func (r *memRefundRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*sales.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if refund, ok := r.refunds[id]; ok && refund.TenantID == tenantID {
		clone := cloneRefund(refund)
		return &clone, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memRefundRepo) FindByRefundNumber(_ context.Context, tenantID uuid.UUID, refundNumber string) (*sales.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, refund := range r.refunds {
		if refund.TenantID == tenantID && refund.RefundNumber == refundNumber {
			clone := cloneRefund(refund)
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memRefundRepo) FindBySale(_ context.Context, tenantID, saleID uuid.UUID) ([]sales.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]sales.Refund, 0)
	for _, refund := range r.refunds {
		if refund.TenantID == tenantID && refund.SaleID == saleID {
			result = append(result, cloneRefund(refund))
		}
	}
	return result, nil
}

func (r *memRefundRepo) Create(_ context.Context, refund *sales.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refunds[refund.ID] = cloneRefund(*refund)
	return nil
}

func (r *memRefundRepo) SaveWithLock(_ context.Context, refund *sales.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.refunds[refund.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if current.Version != refund.Version {
		return shared.ErrConcurrencyConflict
	}
	refund.IncrementVersion()
	r.refunds[refund.ID] = cloneRefund(*refund)
	return nil
}

// memStockRepo is an in-memory StockRepository with real optimistic-lock
// semantics, mirroring the database behavior the sale and refund flows
// depend on.
type memStockRepo struct {
	mu     sync.Mutex
	stocks map[uuid.UUID]inventory.Stock
}

func newMemStockRepo() *memStockRepo {
	return &memStockRepo{stocks: make(map[uuid.UUID]inventory.Stock)}
}

func cloneStock(s inventory.Stock) inventory.Stock {
	s.ClearDomainEvents()
	return s
}

func (r *memStockRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stock, ok := r.stocks[id]; ok {
		clone := cloneStock(stock)
		return &clone, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memStockRepo) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Stock, error) {
	stock, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if stock.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return stock, nil
}

func (r *memStockRepo) FindByProductVariant(_ context.Context, tenantID, productID uuid.UUID, variantID *uuid.UUID) (*inventory.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stock := range r.stocks {
		if stock.TenantID == tenantID && stock.ProductID == productID && variantEqual(stock.VariantID, variantID) {
			clone := cloneStock(stock)
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memStockRepo) FindByIDs(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]inventory.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]inventory.Stock, 0, len(ids))
	for _, id := range ids {
		if stock, ok := r.stocks[id]; ok && stock.TenantID == tenantID {
			result = append(result, cloneStock(stock))
		}
	}
	return result, nil
}

func (r *memStockRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) ([]inventory.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]inventory.Stock, 0)
	for _, stock := range r.stocks {
		if stock.TenantID == tenantID {
			result = append(result, cloneStock(stock))
		}
	}
	return result, nil
}

func (r *memStockRepo) FindLowStock(_ context.Context, tenantID uuid.UUID, _ shared.Filter) ([]inventory.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]inventory.Stock, 0)
	for _, stock := range r.stocks {
		if stock.TenantID == tenantID && stock.LowStockThreshold > 0 && stock.IsLowStock() {
			result = append(result, cloneStock(stock))
		}
	}
	return result, nil
}

func (r *memStockRepo) FindNeedsReorder(_ context.Context, tenantID uuid.UUID, _ shared.Filter) ([]inventory.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]inventory.Stock, 0)
	for _, stock := range r.stocks {
		if stock.TenantID == tenantID && stock.ReorderPoint > 0 && stock.NeedsRestock() {
			result = append(result, cloneStock(stock))
		}
	}
	return result, nil
}

func (r *memStockRepo) GetOrCreate(ctx context.Context, tenantID, productID uuid.UUID, variantID *uuid.UUID) (*inventory.Stock, error) {
	if stock, err := r.FindByProductVariant(ctx, tenantID, productID, variantID); err == nil {
		return stock, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	stock, err := inventory.NewStock(tenantID, productID, variantID)
	if err != nil {
		return nil, err
	}
	r.stocks[stock.ID] = cloneStock(*stock)
	clone := cloneStock(*stock)
	return &clone, nil
}

func (r *memStockRepo) Save(_ context.Context, stock *inventory.Stock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stocks[stock.ID] = cloneStock(*stock)
	return nil
}

func (r *memStockRepo) SaveWithLock(_ context.Context, stock *inventory.Stock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.stocks[stock.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if current.Version != stock.Version {
		return shared.ErrConcurrencyConflict
	}
	stock.IncrementVersion()
	r.stocks[stock.ID] = cloneStock(*stock)
	return nil
}

func (r *memStockRepo) CountForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, stock := range r.stocks {
		if stock.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

func (r *memStockRepo) CountLowStock(_ context.Context, tenantID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, stock := range r.stocks {
		if stock.TenantID == tenantID && stock.LowStockThreshold > 0 && stock.IsLowStock() {
			count++
		}
	}
	return count, nil
}

func (r *memStockRepo) CountOutOfStock(_ context.Context, tenantID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, stock := range r.stocks {
		if stock.TenantID == tenantID && stock.IsOutOfStock() {
			count++
		}
	}
	return count, nil
}

func (r *memStockRepo) SumStockValue(_ context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, stock := range r.stocks {
		if stock.TenantID == tenantID {
			total = total.Add(stock.StockValue)
		}
	}
	return total, nil
}

// memMovementRepo is an in-memory append-only StockMovementRepository
type memMovementRepo struct {
	mu        sync.Mutex
	movements []inventory.StockMovement
}

func newMemMovementRepo() *memMovementRepo {
	return &memMovementRepo{movements: make([]inventory.StockMovement, 0)}
}

func (r *memMovementRepo) Create(_ context.Context, movement *inventory.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, *movement)
	return nil
}

func (r *memMovementRepo) FindByStock(_ context.Context, tenantID, stockID uuid.UUID, _ shared.Filter) ([]inventory.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]inventory.StockMovement, 0)
	for i := len(r.movements) - 1; i >= 0; i-- {
		if r.movements[i].TenantID == tenantID && r.movements[i].StockID == stockID {
			result = append(result, r.movements[i])
		}
	}
	return result, nil
}

func (r *memMovementRepo) FindBySource(_ context.Context, tenantID uuid.UUID, sourceType inventory.SourceType, sourceID string) ([]inventory.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]inventory.StockMovement, 0)
	for _, m := range r.movements {
		if m.TenantID == tenantID && m.SourceType == sourceType && m.SourceID == sourceID {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *memMovementRepo) CountByStock(_ context.Context, tenantID, stockID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, m := range r.movements {
		if m.TenantID == tenantID && m.StockID == stockID {
			count++
		}
	}
	return count, nil
}
