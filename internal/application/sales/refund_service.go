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

// RefundService orchestrates refunds against completed sales. Creation
// clamps every requested line to what is still refundable and rolls the
// whole refund back if any line has nothing left; processing restores stock
// exactly once for each refund line.
type RefundService struct {
	scope          TransactionScope
	refundRepo     sales.RefundRepository
	eventPublisher shared.EventPublisher
	clock          shared.Clock
	maxRetries     int
}

// NewRefundService creates a new RefundService
func NewRefundService(scope TransactionScope, refundRepo sales.RefundRepository) *RefundService {
	return &RefundService{
		scope:      scope,
		refundRepo: refundRepo,
		clock:      shared.SystemClock{},
		maxRetries: DefaultMaxRetries,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *RefundService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetClock sets the clock used for processing timestamps
func (s *RefundService) SetClock(clock shared.Clock) {
	s.clock = clock
}

// SetMaxRetries sets the conflict retry budget
func (s *RefundService) SetMaxRetries(n int) {
	if n > 0 {
		s.maxRetries = n
	}
}

// CreateRefund raises a pending refund against a completed sale. Each line
// is clamped to the sale item's remaining refundable quantity; a line with
// nothing left fails the whole request.
func (s *RefundService) CreateRefund(ctx context.Context, tenantID uuid.UUID, req CreateRefundRequest) (*RefundResponse, error) {
	if len(req.Items) == 0 {
		return nil, shared.NewDomainError("NO_ITEMS", "At least one refund item is required")
	}

	var (
		result *sales.Refund
		events []shared.DomainEvent
	)

	err := s.withRetry(ctx, func() error {
		events = events[:0]
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			sale, err := repos.SaleRepo().FindByID(ctx, tenantID, req.SaleID)
			if err != nil {
				return err
			}
			if sale.Status != sales.SaleStatusCompleted {
				return shared.NewDomainError("INVALID_STATE", "Refunds can only be raised against completed sales")
			}

			if existing, err := repos.RefundRepo().FindByRefundNumber(ctx, tenantID, req.RefundNumber); err == nil && existing != nil {
				return shared.NewDomainError("ALREADY_EXISTS", "Refund number already in use")
			}

			refund, err := sales.NewRefund(tenantID, req.RefundNumber, sale.ID, req.Reason)
			if err != nil {
				return err
			}

			for _, itemReq := range req.Items {
				saleItem, err := sale.FindItem(itemReq.SaleItemID)
				if err != nil {
					return err
				}
				refundItem, err := refund.AddItem(saleItem, itemReq.Quantity, itemReq.Reason)
				if err != nil {
					return err
				}
				if err := sale.RecordItemRefund(saleItem.ID, refundItem.QuantityRefunded); err != nil {
					return err
				}
			}

			if err := repos.RefundRepo().Create(ctx, refund); err != nil {
				return err
			}
			if err := repos.SaleRepo().SaveWithLock(ctx, sale); err != nil {
				return err
			}

			events = append(events, refund.GetDomainEvents()...)
			result = refund
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, events)
	result.ClearDomainEvents()
	return ToRefundResponse(result), nil
}

// Process transitions a pending refund to PROCESSED and restores the stock
// for each refund line, all in one transaction. A refund that is already
// processed is rejected before any stock is touched.
func (s *RefundService) Process(ctx context.Context, tenantID, refundID uuid.UUID) (*RefundResponse, error) {
	var (
		result *sales.Refund
		events []shared.DomainEvent
	)

	err := s.withRetry(ctx, func() error {
		events = events[:0]
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			refund, err := repos.RefundRepo().FindByID(ctx, tenantID, refundID)
			if err != nil {
				return err
			}
			sale, err := repos.SaleRepo().FindByID(ctx, tenantID, refund.SaleID)
			if err != nil {
				return err
			}

			now := s.clock.Now()
			if err := refund.Process(now); err != nil {
				return err
			}

			type restore struct {
				stock *inventory.Stock
				qty   int64
			}
			restores := make([]restore, 0, len(refund.Items))
			for _, item := range refund.Items {
				stock, err := repos.StockRepo().GetOrCreate(ctx, tenantID, item.ProductID, item.VariantID)
				if err != nil {
					return err
				}
				restores = append(restores, restore{stock: stock, qty: item.QuantityRefunded})
			}

			// Stable mutation order across concurrent refunds.
			sort.Slice(restores, func(i, j int) bool {
				return bytes.Compare(restores[i].stock.ID[:], restores[j].stock.ID[:]) < 0
			})

			for _, r := range restores {
				before := r.stock.OnHand
				if err := r.stock.Restock(r.qty, nil, now); err != nil {
					return err
				}

				movement, err := inventory.NewStockMovement(tenantID, r.stock, inventory.MovementTypeRestock,
					r.qty, before, inventory.SourceTypeRefund, refund.ID.String(), now)
				if err != nil {
					return err
				}
				movement.WithReference(refund.RefundNumber)

				if err := repos.MovementRepo().Create(ctx, movement); err != nil {
					return err
				}
				if err := repos.StockRepo().SaveWithLock(ctx, r.stock); err != nil {
					return err
				}
				events = append(events, r.stock.GetDomainEvents()...)
			}

			if err := sale.MarkRefunded(); err != nil {
				return err
			}

			if err := repos.RefundRepo().SaveWithLock(ctx, refund); err != nil {
				return err
			}
			if err := repos.SaleRepo().SaveWithLock(ctx, sale); err != nil {
				return err
			}

			events = append(events, refund.GetDomainEvents()...)
			events = append(events, sale.GetDomainEvents()...)
			result = refund
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, events)
	result.ClearDomainEvents()
	return ToRefundResponse(result), nil
}

// Cancel cancels a pending refund
func (s *RefundService) Cancel(ctx context.Context, tenantID, refundID uuid.UUID) (*RefundResponse, error) {
	return s.transition(ctx, tenantID, refundID, func(refund *sales.Refund) error {
		return refund.Cancel(s.clock.Now())
	})
}

// MarkFailed marks a pending refund as failed
func (s *RefundService) MarkFailed(ctx context.Context, tenantID, refundID uuid.UUID, req FailRefundRequest) (*RefundResponse, error) {
	return s.transition(ctx, tenantID, refundID, func(refund *sales.Refund) error {
		return refund.MarkFailed(req.Reason)
	})
}

// GetRefund retrieves a refund with its items
func (s *RefundService) GetRefund(ctx context.Context, tenantID, refundID uuid.UUID) (*RefundResponse, error) {
	refund, err := s.refundRepo.FindByID(ctx, tenantID, refundID)
	if err != nil {
		return nil, err
	}
	return ToRefundResponse(refund), nil
}

// ListRefundsForSale lists all refunds raised against a sale
func (s *RefundService) ListRefundsForSale(ctx context.Context, tenantID, saleID uuid.UUID) ([]RefundResponse, error) {
	refunds, err := s.refundRepo.FindBySale(ctx, tenantID, saleID)
	if err != nil {
		return nil, err
	}

	items := make([]RefundResponse, 0, len(refunds))
	for i := range refunds {
		items = append(items, *ToRefundResponse(&refunds[i]))
	}
	return items, nil
}

// transition runs a load-mutate-save cycle for a refund lifecycle change
func (s *RefundService) transition(ctx context.Context, tenantID, refundID uuid.UUID, mutate func(*sales.Refund) error) (*RefundResponse, error) {
	var result *sales.Refund

	err := s.withRetry(ctx, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			refund, err := repos.RefundRepo().FindByID(ctx, tenantID, refundID)
			if err != nil {
				return err
			}
			if err := mutate(refund); err != nil {
				return err
			}
			if err := repos.RefundRepo().SaveWithLock(ctx, refund); err != nil {
				return err
			}
			result = refund
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, result.GetDomainEvents())
	result.ClearDomainEvents()
	return ToRefundResponse(result), nil
}

// withRetry re-runs fn on optimistic-lock conflicts with jittered backoff
func (s *RefundService) withRetry(ctx context.Context, fn func() error) error {
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

func (s *RefundService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
