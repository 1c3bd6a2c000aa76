package persistence

import (
	"context"

	appsales "github.com/commerce/backoffice/internal/application/sales"
	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/sales"
	"gorm.io/gorm"
)

// GormSalesTransactionScope implements the sales TransactionScope using GORM
// transactions. Sale and refund flows cross into the stock ledger, so the
// scope spans both bounded contexts.
type GormSalesTransactionScope struct {
	db *gorm.DB
}

// NewGormSalesTransactionScope creates a new GormSalesTransactionScope.
func NewGormSalesTransactionScope(db *gorm.DB) *GormSalesTransactionScope {
	return &GormSalesTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormSalesTransactionScope) Execute(ctx context.Context, fn func(repos appsales.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormSalesRepositories{tx: tx}
		return fn(repos)
	})
}

// gormSalesRepositories provides access to the sales and inventory
// repositories within a transaction.
type gormSalesRepositories struct {
	tx *gorm.DB
}

// SaleRepo returns the sale repository scoped to the current transaction.
func (r *gormSalesRepositories) SaleRepo() sales.SaleRepository {
	return NewGormSaleRepository(r.tx)
}

// RefundRepo returns the refund repository scoped to the current transaction.
func (r *gormSalesRepositories) RefundRepo() sales.RefundRepository {
	return NewGormRefundRepository(r.tx)
}

// StockRepo returns the stock repository scoped to the current transaction.
func (r *gormSalesRepositories) StockRepo() inventory.StockRepository {
	return NewGormStockRepository(r.tx)
}

// MovementRepo returns the movement repository scoped to the current transaction.
func (r *gormSalesRepositories) MovementRepo() inventory.StockMovementRepository {
	return NewGormStockMovementRepository(r.tx)
}

// Ensure GormSalesTransactionScope implements TransactionScope
var _ appsales.TransactionScope = (*GormSalesTransactionScope)(nil)

// Ensure gormSalesRepositories implements TransactionalRepositories
var _ appsales.TransactionalRepositories = (*gormSalesRepositories)(nil)
