package sales

import (
	"bytes"
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/sales"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	// DefaultMaxRetries bounds the reload-and-retry loop on version conflicts
	DefaultMaxRetries = 3
	// retryBaseDelay is the base backoff unit between conflict retries
	retryBaseDelay = 10 * time.Millisecond
)

// SaleService orchestrates the sale lifecycle. Adding an item sells the
// backing stock in the same transaction, so a ledger rejection aborts the
// item creation too. Batch adds mutate stocks in a stable order (stock ID
// ascending) to keep concurrent multi-item sales free of lock cycles.
type SaleService struct {
	scope          TransactionScope
	saleRepo       sales.SaleRepository
	eventPublisher shared.EventPublisher
	clock          shared.Clock
	maxRetries     int
}

// NewSaleService creates a new SaleService
func NewSaleService(scope TransactionScope, saleRepo sales.SaleRepository) *SaleService {
	return &SaleService{
		scope:      scope,
		saleRepo:   saleRepo,
		clock:      shared.SystemClock{},
		maxRetries: DefaultMaxRetries,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *SaleService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetClock sets the clock used for lifecycle timestamps
func (s *SaleService) SetClock(clock shared.Clock) {
	s.clock = clock
}

// SetMaxRetries sets the conflict retry budget
func (s *SaleService) SetMaxRetries(n int) {
	if n > 0 {
		s.maxRetries = n
	}
}

// CreateSale opens a new draft sale
func (s *SaleService) CreateSale(ctx context.Context, tenantID uuid.UUID, req CreateSaleRequest) (*SaleResponse, error) {
	sale, err := sales.NewSale(tenantID, req.SaleNumber, req.CustomerID, req.Channel)
	if err != nil {
		return nil, err
	}
	if req.Remark != "" {
		sale.SetRemark(req.Remark)
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if existing, err := repos.SaleRepo().FindBySaleNumber(ctx, tenantID, req.SaleNumber); err == nil && existing != nil {
			return shared.NewDomainError("ALREADY_EXISTS", "Sale number already in use")
		}
		return repos.SaleRepo().Create(ctx, sale)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, sale.GetDomainEvents())
	sale.ClearDomainEvents()
	return ToSaleResponse(sale), nil
}

// AddItem adds a single line to a sale, selling the backing stock atomically
func (s *SaleService) AddItem(ctx context.Context, tenantID, saleID uuid.UUID, req SaleItemRequest) (*SaleResponse, error) {
	return s.AddItems(ctx, tenantID, saleID, AddItemsRequest{Items: []SaleItemRequest{req}})
}

// AddItems adds a batch of lines to a sale in one transaction. Every line
// sells its backing stock; if any line fails, none are kept.
func (s *SaleService) AddItems(ctx context.Context, tenantID, saleID uuid.UUID, req AddItemsRequest) (*SaleResponse, error) {
	if len(req.Items) == 0 {
		return nil, shared.NewDomainError("NO_ITEMS", "At least one item is required")
	}
	for i := range req.Items {
		for j := i + 1; j < len(req.Items); j++ {
			if req.Items[i].ProductID == req.Items[j].ProductID && variantEqual(req.Items[i].VariantID, req.Items[j].VariantID) {
				return nil, shared.NewDomainError("DUPLICATE_PRODUCT", "Duplicate product in item batch")
			}
		}
	}

	var (
		result *sales.Sale
		events []shared.DomainEvent
	)

	err := s.withRetry(ctx, func() error {
		events = events[:0]
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			sale, err := repos.SaleRepo().FindByID(ctx, tenantID, saleID)
			if err != nil {
				return err
			}

			type line struct {
				stock *inventory.Stock
				req   SaleItemRequest
			}
			lines := make([]line, 0, len(req.Items))
			for _, itemReq := range req.Items {
				stock, err := repos.StockRepo().FindByProductVariant(ctx, tenantID, itemReq.ProductID, itemReq.VariantID)
				if err != nil {
					return err
				}
				lines = append(lines, line{stock: stock, req: itemReq})
			}

			// Stable mutation order across concurrent batches.
			sort.Slice(lines, func(i, j int) bool {
				return bytes.Compare(lines[i].stock.ID[:], lines[j].stock.ID[:]) < 0
			})

			now := s.clock.Now()
			for _, l := range lines {
				before := l.stock.OnHand
				if err := l.stock.Sell(l.req.Quantity, now); err != nil {
					return err
				}
				if _, err := sale.AddItem(l.req.ProductID, l.req.VariantID, l.req.ProductName, l.req.Quantity, l.req.UnitPrice); err != nil {
					return err
				}

				movement, err := inventory.NewStockMovement(tenantID, l.stock, inventory.MovementTypeSale,
					l.req.Quantity, before, inventory.SourceTypeSale, sale.ID.String(), now)
				if err != nil {
					return err
				}
				movement.WithReference(sale.SaleNumber)

				if err := repos.MovementRepo().Create(ctx, movement); err != nil {
					return err
				}
				if err := repos.StockRepo().SaveWithLock(ctx, l.stock); err != nil {
					return err
				}
				events = append(events, l.stock.GetDomainEvents()...)
			}

			if err := repos.SaleRepo().SaveWithLock(ctx, sale); err != nil {
				return err
			}
			events = append(events, sale.GetDomainEvents()...)

			result = sale
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, events)
	result.ClearDomainEvents()
	return ToSaleResponse(result), nil
}

// RemoveItem removes a draft line and restores the stock sold for it
func (s *SaleService) RemoveItem(ctx context.Context, tenantID, saleID, itemID uuid.UUID) (*SaleResponse, error) {
	var (
		result *sales.Sale
		events []shared.DomainEvent
	)

	err := s.withRetry(ctx, func() error {
		events = events[:0]
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			sale, err := repos.SaleRepo().FindByID(ctx, tenantID, saleID)
			if err != nil {
				return err
			}

			removed, err := sale.RemoveItem(itemID)
			if err != nil {
				return err
			}

			stock, err := repos.StockRepo().FindByProductVariant(ctx, tenantID, removed.ProductID, removed.VariantID)
			if err != nil {
				return err
			}

			before := stock.OnHand
			now := s.clock.Now()
			if err := stock.Restock(removed.Quantity, nil, now); err != nil {
				return err
			}

			movement, err := inventory.NewStockMovement(tenantID, stock, inventory.MovementTypeRestock,
				removed.Quantity, before, inventory.SourceTypeSale, sale.ID.String(), now)
			if err != nil {
				return err
			}
			movement.WithReference(sale.SaleNumber).WithReason("item removed from draft sale")

			if err := repos.MovementRepo().Create(ctx, movement); err != nil {
				return err
			}
			if err := repos.StockRepo().SaveWithLock(ctx, stock); err != nil {
				return err
			}
			if err := repos.SaleRepo().SaveWithLock(ctx, sale); err != nil {
				return err
			}

			events = append(events, stock.GetDomainEvents()...)
			events = append(events, sale.GetDomainEvents()...)
			result = sale
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, events)
	result.ClearDomainEvents()
	return ToSaleResponse(result), nil
}

// Submit moves a draft sale to PENDING
func (s *SaleService) Submit(ctx context.Context, tenantID, saleID uuid.UUID) (*SaleResponse, error) {
	return s.transition(ctx, tenantID, saleID, func(sale *sales.Sale) error {
		return sale.Submit(s.clock.Now())
	})
}

// Confirm moves a pending sale to CONFIRMED
func (s *SaleService) Confirm(ctx context.Context, tenantID, saleID uuid.UUID) (*SaleResponse, error) {
	return s.transition(ctx, tenantID, saleID, func(sale *sales.Sale) error {
		return sale.Confirm(s.clock.Now())
	})
}

// Complete moves a confirmed sale to COMPLETED
func (s *SaleService) Complete(ctx context.Context, tenantID, saleID uuid.UUID) (*SaleResponse, error) {
	return s.transition(ctx, tenantID, saleID, func(sale *sales.Sale) error {
		return sale.Complete(s.clock.Now())
	})
}

// MarkPaid records payment for a sale
func (s *SaleService) MarkPaid(ctx context.Context, tenantID, saleID uuid.UUID) (*SaleResponse, error) {
	return s.transition(ctx, tenantID, saleID, func(sale *sales.Sale) error {
		return sale.MarkPaid()
	})
}

// Cancel cancels a sale. Stock sold through AddItem stays sold; draft
// cleanup goes through RemoveItem before cancelling when restoration is
// wanted.
func (s *SaleService) Cancel(ctx context.Context, tenantID, saleID uuid.UUID, req CancelSaleRequest) (*SaleResponse, error) {
	return s.transition(ctx, tenantID, saleID, func(sale *sales.Sale) error {
		return sale.Cancel(req.Reason, s.clock.Now())
	})
}

// GetSale retrieves a sale with its items
func (s *SaleService) GetSale(ctx context.Context, tenantID, saleID uuid.UUID) (*SaleResponse, error) {
	sale, err := s.saleRepo.FindByID(ctx, tenantID, saleID)
	if err != nil {
		return nil, err
	}
	return ToSaleResponse(sale), nil
}

// ListSales lists sales for a tenant with pagination
func (s *SaleService) ListSales(ctx context.Context, tenantID uuid.UUID, filter SaleListFilter) (*shared.Paginated[SaleResponse], error) {
	f := toSharedFilter(filter)

	found, err := s.saleRepo.FindAllForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, err
	}
	total, err := s.saleRepo.CountForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, err
	}

	items := make([]SaleResponse, 0, len(found))
	for i := range found {
		items = append(items, *ToSaleResponse(&found[i]))
	}

	page := shared.NewPaginated(items, total, f.Page, f.PageSize)
	return &page, nil
}

// transition runs a load-mutate-save cycle for a lifecycle change
func (s *SaleService) transition(ctx context.Context, tenantID, saleID uuid.UUID, mutate func(*sales.Sale) error) (*SaleResponse, error) {
	var result *sales.Sale

	err := s.withRetry(ctx, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			sale, err := repos.SaleRepo().FindByID(ctx, tenantID, saleID)
			if err != nil {
				return err
			}
			if err := mutate(sale); err != nil {
				return err
			}
			if err := repos.SaleRepo().SaveWithLock(ctx, sale); err != nil {
				return err
			}
			result = sale
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, result.GetDomainEvents())
	result.ClearDomainEvents()
	return ToSaleResponse(result), nil
}

// withRetry re-runs fn on optimistic-lock conflicts with jittered backoff
func (s *SaleService) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err = fn()
		if !shared.IsCode(err, shared.ErrConcurrencyConflict.Code) {
			return err
		}

		delay := time.Duration(attempt+1) * retryBaseDelay
		delay += time.Duration(rand.Int63n(int64(retryBaseDelay)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

func (s *SaleService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}

func variantEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func toSharedFilter(filter SaleListFilter) shared.Filter {
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		f.OrderDir = filter.OrderDir
	}
	if filter.Status != "" {
		f.Filters["status"] = filter.Status
	}
	if filter.CustomerID != nil {
		f.Filters["customer_id"] = *filter.CustomerID
	}
	return f
}
