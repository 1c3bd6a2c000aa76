package inventory

import (
	"context"
	"math/rand"
	"time"

	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	// DefaultMaxRetries bounds the reload-and-retry loop on version conflicts
	DefaultMaxRetries = 3
	// retryBaseDelay is the base backoff unit between conflict retries
	retryBaseDelay = 10 * time.Millisecond
)

// StockService handles the stock ledger operations: restock, reserve,
// release and adjust. Every mutation runs inside one transaction together
// with its movement record and is saved with an optimistic version check;
// on a version conflict the whole load-mutate-save cycle is retried a
// bounded number of times.
type StockService struct {
	scope          TransactionScope
	stockRepo      inventory.StockRepository
	movementRepo   inventory.StockMovementRepository
	eventPublisher shared.EventPublisher
	clock          shared.Clock
	releasePolicy  inventory.ReleasePolicy
	maxRetries     int
}

// NewStockService creates a new StockService with default policy settings
func NewStockService(
	scope TransactionScope,
	stockRepo inventory.StockRepository,
	movementRepo inventory.StockMovementRepository,
) *StockService {
	return &StockService{
		scope:         scope,
		stockRepo:     stockRepo,
		movementRepo:  movementRepo,
		clock:         shared.SystemClock{},
		releasePolicy: inventory.ReleaseClamp,
		maxRetries:    DefaultMaxRetries,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *StockService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetClock sets the clock used for operation timestamps
func (s *StockService) SetClock(clock shared.Clock) {
	s.clock = clock
}

// SetReleasePolicy sets the over-release policy
func (s *StockService) SetReleasePolicy(policy inventory.ReleasePolicy) {
	if policy.IsValid() {
		s.releasePolicy = policy
	}
}

// SetMaxRetries sets the conflict retry budget
func (s *StockService) SetMaxRetries(n int) {
	if n > 0 {
		s.maxRetries = n
	}
}

// Restock increases on-hand stock, creating the stock record on first use
func (s *StockService) Restock(ctx context.Context, tenantID uuid.UUID, req RestockRequest) (*StockResponse, error) {
	var result *inventory.Stock

	err := s.withRetry(ctx, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			stock, err := repos.StockRepo().GetOrCreate(ctx, tenantID, req.ProductID, req.VariantID)
			if err != nil {
				return err
			}

			before := stock.OnHand
			now := s.clock.Now()
			if err := stock.Restock(req.Quantity, req.UnitCost, now); err != nil {
				return err
			}

			movement, err := inventory.NewStockMovement(tenantID, stock, inventory.MovementTypeRestock,
				req.Quantity, before, sourceTypeOrDefault(req.SourceType), req.SourceID, now)
			if err != nil {
				return err
			}
			movement.WithReference(req.Reference).WithReason(req.Reason)

			if err := repos.MovementRepo().Create(ctx, movement); err != nil {
				return err
			}
			if err := repos.StockRepo().SaveWithLock(ctx, stock); err != nil {
				return err
			}

			result = stock
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, result)
	return ToStockResponse(result), nil
}

// Reserve places a hold on available stock for a pending order
func (s *StockService) Reserve(ctx context.Context, tenantID uuid.UUID, req ReserveRequest) (*StockResponse, error) {
	var result *inventory.Stock

	err := s.withRetry(ctx, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			stock, err := repos.StockRepo().FindByProductVariant(ctx, tenantID, req.ProductID, req.VariantID)
			if err != nil {
				return err
			}

			before := stock.OnHand
			now := s.clock.Now()
			if err := stock.Reserve(req.Quantity); err != nil {
				return err
			}

			movement, err := inventory.NewStockMovement(tenantID, stock, inventory.MovementTypeReserve,
				req.Quantity, before, sourceTypeOrDefault(req.SourceType), req.SourceID, now)
			if err != nil {
				return err
			}
			movement.WithReference(req.Reference)

			if err := repos.MovementRepo().Create(ctx, movement); err != nil {
				return err
			}
			if err := repos.StockRepo().SaveWithLock(ctx, stock); err != nil {
				return err
			}

			result = stock
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, result)
	return ToStockResponse(result), nil
}

// Release returns held stock to available, honoring the configured
// over-release policy. Under the clamp policy a release that exceeds the
// held quantity records a movement for what was actually released.
func (s *StockService) Release(ctx context.Context, tenantID uuid.UUID, req ReleaseRequest) (*StockResponse, error) {
	var result *inventory.Stock

	err := s.withRetry(ctx, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			stock, err := repos.StockRepo().FindByProductVariant(ctx, tenantID, req.ProductID, req.VariantID)
			if err != nil {
				return err
			}

			before := stock.OnHand
			reservedBefore := stock.Reserved
			now := s.clock.Now()
			if err := stock.Release(req.Quantity, s.releasePolicy); err != nil {
				return err
			}

			if released := reservedBefore - stock.Reserved; released > 0 {
				movement, err := inventory.NewStockMovement(tenantID, stock, inventory.MovementTypeRelease,
					released, before, sourceTypeOrDefault(req.SourceType), req.SourceID, now)
				if err != nil {
					return err
				}
				movement.WithReference(req.Reference)

				if err := repos.MovementRepo().Create(ctx, movement); err != nil {
					return err
				}
			}

			if err := repos.StockRepo().SaveWithLock(ctx, stock); err != nil {
				return err
			}

			result = stock
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, result)
	return ToStockResponse(result), nil
}

// Adjust corrects on-hand stock to a physical count
func (s *StockService) Adjust(ctx context.Context, tenantID uuid.UUID, req AdjustRequest) (*StockResponse, error) {
	var result *inventory.Stock

	err := s.withRetry(ctx, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			stock, err := repos.StockRepo().FindByProductVariant(ctx, tenantID, req.ProductID, req.VariantID)
			if err != nil {
				return err
			}

			before := stock.OnHand
			now := s.clock.Now()
			if err := stock.Adjust(req.ActualQuantity, req.Reason, now); err != nil {
				return err
			}

			if diff := stock.OnHand - before; diff != 0 {
				qty := diff
				if qty < 0 {
					qty = -qty
				}
				movement, err := inventory.NewStockMovement(tenantID, stock, inventory.MovementTypeAdjustment,
					qty, before, inventory.SourceTypeStockTaking, req.Reference, now)
				if err != nil {
					return err
				}
				movement.WithReference(req.Reference).WithReason(req.Reason)

				if err := repos.MovementRepo().Create(ctx, movement); err != nil {
					return err
				}
			}

			if err := repos.StockRepo().SaveWithLock(ctx, stock); err != nil {
				return err
			}

			result = stock
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, result)
	return ToStockResponse(result), nil
}

// SetThresholds updates the low-stock and reorder signalling levels
func (s *StockService) SetThresholds(ctx context.Context, tenantID uuid.UUID, req SetThresholdsRequest) (*StockResponse, error) {
	var result *inventory.Stock

	err := s.withRetry(ctx, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			stock, err := repos.StockRepo().GetOrCreate(ctx, tenantID, req.ProductID, req.VariantID)
			if err != nil {
				return err
			}

			if err := stock.SetThresholds(req.LowStockThreshold, req.ReorderPoint, req.ReorderQuantity); err != nil {
				return err
			}

			if err := repos.StockRepo().SaveWithLock(ctx, stock); err != nil {
				return err
			}

			result = stock
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return ToStockResponse(result), nil
}

// GetStock retrieves the stock record for a product(/variant)
func (s *StockService) GetStock(ctx context.Context, tenantID, productID uuid.UUID, variantID *uuid.UUID) (*StockResponse, error) {
	stock, err := s.stockRepo.FindByProductVariant(ctx, tenantID, productID, variantID)
	if err != nil {
		return nil, err
	}
	return ToStockResponse(stock), nil
}

// GetStockByID retrieves a stock record by ID
func (s *StockService) GetStockByID(ctx context.Context, tenantID, stockID uuid.UUID) (*StockResponse, error) {
	stock, err := s.stockRepo.FindByIDForTenant(ctx, tenantID, stockID)
	if err != nil {
		return nil, err
	}
	return ToStockResponse(stock), nil
}

// ListStock lists stock records for a tenant with pagination
func (s *StockService) ListStock(ctx context.Context, tenantID uuid.UUID, filter StockListFilter) (*shared.Paginated[StockResponse], error) {
	f := toSharedFilter(filter)

	stocks, err := s.stockRepo.FindAllForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, err
	}
	total, err := s.stockRepo.CountForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, err
	}

	items := make([]StockResponse, 0, len(stocks))
	for i := range stocks {
		items = append(items, *ToStockResponse(&stocks[i]))
	}

	page := shared.NewPaginated(items, total, f.Page, f.PageSize)
	return &page, nil
}

// ListMovements lists the movement history for a stock record, newest first
func (s *StockService) ListMovements(ctx context.Context, tenantID, stockID uuid.UUID, filter StockListFilter) ([]MovementResponse, error) {
	movements, err := s.movementRepo.FindByStock(ctx, tenantID, stockID, toSharedFilter(filter))
	if err != nil {
		return nil, err
	}

	items := make([]MovementResponse, 0, len(movements))
	for i := range movements {
		items = append(items, *ToMovementResponse(&movements[i]))
	}
	return items, nil
}

// withRetry re-runs fn on optimistic-lock conflicts with jittered backoff.
// Any other error, including domain rejections, surfaces immediately.
func (s *StockService) withRetry(ctx context.Context, fn func() error) error {
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

// publishDomainEvents publishes and clears pending aggregate events
func (s *StockService) publishDomainEvents(ctx context.Context, stock *inventory.Stock) {
	if s.eventPublisher == nil || stock == nil {
		return
	}
	events := stock.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	stock.ClearDomainEvents()
}

func sourceTypeOrDefault(raw string) inventory.SourceType {
	st := inventory.SourceType(raw)
	if !st.IsValid() {
		return inventory.SourceTypeManual
	}
	return st
}

func toSharedFilter(filter StockListFilter) shared.Filter {
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
	if filter.ProductID != nil {
		f.Filters["product_id"] = *filter.ProductID
	}
	if filter.LowStock != nil {
		f.Filters["low_stock"] = *filter.LowStock
	}
	if filter.HasStock != nil {
		f.Filters["has_stock"] = *filter.HasStock
	}
	return f
}
