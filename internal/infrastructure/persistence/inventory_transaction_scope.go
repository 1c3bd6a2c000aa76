package persistence

import (
	"context"

	appinv "github.com/commerce/backoffice/internal/application/inventory"
	"github.com/commerce/backoffice/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormInventoryTransactionScope implements the inventory TransactionScope
// using GORM transactions. A stock mutation and the movement row that
// records it commit together or not at all.
type GormInventoryTransactionScope struct {
	db *gorm.DB
}

// NewGormInventoryTransactionScope creates a new GormInventoryTransactionScope.
func NewGormInventoryTransactionScope(db *gorm.DB) *GormInventoryTransactionScope {
	return &GormInventoryTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormInventoryTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormInventoryRepositories{tx: tx}
		return fn(repos)
	})
}

// gormInventoryRepositories provides access to the inventory repositories
// within a transaction.
type gormInventoryRepositories struct {
	tx *gorm.DB
}

// StockRepo returns the stock repository scoped to the current transaction.
func (r *gormInventoryRepositories) StockRepo() inventory.StockRepository {
	return NewGormStockRepository(r.tx)
}

// MovementRepo returns the movement repository scoped to the current transaction.
func (r *gormInventoryRepositories) MovementRepo() inventory.StockMovementRepository {
	return NewGormStockMovementRepository(r.tx)
}

// Ensure GormInventoryTransactionScope implements TransactionScope
var _ appinv.TransactionScope = (*GormInventoryTransactionScope)(nil)

// Ensure gormInventoryRepositories implements TransactionalRepositories
var _ appinv.TransactionalRepositories = (*gormInventoryRepositories)(nil)
