package sales

import (
	"context"

	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/sales"
)

// TransactionScope provides transactional access to the repositories a sale
// or refund operation touches. Sale and refund flows cross into the stock
// ledger, so the scope spans both bounded contexts: a sale item and the sell
// that backs it commit together or not at all.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the sales and inventory
// repositories within a transaction.
type TransactionalRepositories interface {
	// SaleRepo returns the sale repository scoped to the current transaction
	SaleRepo() sales.SaleRepository
	// RefundRepo returns the refund repository scoped to the current transaction
	RefundRepo() sales.RefundRepository
	// StockRepo returns the stock repository scoped to the current transaction
	StockRepo() inventory.StockRepository
	// MovementRepo returns the movement repository scoped to the current transaction
	MovementRepo() inventory.StockMovementRepository
}

// NoOpTransactionScope runs the function against plain repositories without
// a real transaction. Useful for tests.
type NoOpTransactionScope struct {
	saleRepo     sales.SaleRepository
	refundRepo   sales.RefundRepository
	stockRepo    inventory.StockRepository
	movementRepo inventory.StockMovementRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	saleRepo sales.SaleRepository,
	refundRepo sales.RefundRepository,
	stockRepo inventory.StockRepository,
	movementRepo inventory.StockMovementRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		saleRepo:     saleRepo,
		refundRepo:   refundRepo,
		stockRepo:    stockRepo,
		movementRepo: movementRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// SaleRepo returns the sale repository.
func (s *NoOpTransactionScope) SaleRepo() sales.SaleRepository {
	return s.saleRepo
}

// RefundRepo returns the refund repository.
func (s *NoOpTransactionScope) RefundRepo() sales.RefundRepository {
	return s.refundRepo
}

// StockRepo returns the stock repository.
func (s *NoOpTransactionScope) StockRepo() inventory.StockRepository {
	return s.stockRepo
}

// MovementRepo returns the movement repository.
func (s *NoOpTransactionScope) MovementRepo() inventory.StockMovementRepository {
	return s.movementRepo
}
