package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func newMockStockRepository(t *testing.T) (*GormStockRepository, sqlmock.Sqlmock, *sql.DB) {
	gormDB, mock, mockDB := newMockGormDB(t)
	return NewGormStockRepository(gormDB), mock, mockDB
}

func stockRows(stockID, tenantID, productID uuid.UUID, onHand, reserved int64, version int) *sqlmock.Rows {
	available := onHand - reserved
	if available < 0 {
		available = 0
	}
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "product_id", "variant_id",
		"on_hand", "reserved", "available",
		"average_cost", "stock_value", "version",
	}).AddRow(
		stockID, tenantID, productID, nil,
		onHand, reserved, available,
		decimal.NewFromInt(4), decimal.NewFromInt(onHand*4), version,
	)
}

func TestGormStockRepository_FindByID(t *testing.T) {
	t.Run("finds existing stock record", func(t *testing.T) {
		repo, mock, mockDB := newMockStockRepository(t)
		defer mockDB.Close()

		stockID := uuid.New()
		tenantID := uuid.New()
		productID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "stocks" WHERE id = \$1`).
			WithArgs(stockID, 1).
			WillReturnRows(stockRows(stockID, tenantID, productID, 10, 3, 1))

		stock, err := repo.FindByID(context.Background(), stockID)

		assert.NoError(t, err)
		assert.NotNil(t, stock)
		assert.Equal(t, stockID, stock.ID)
		assert.Equal(t, int64(10), stock.OnHand)
		assert.Equal(t, int64(3), stock.Reserved)
		assert.Equal(t, int64(7), stock.Available)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing record", func(t *testing.T) {
		repo, mock, mockDB := newMockStockRepository(t)
		defer mockDB.Close()

		stockID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "stocks" WHERE id = \$1`).
			WithArgs(stockID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		stock, err := repo.FindByID(context.Background(), stockID)

		assert.Error(t, err)
		assert.Nil(t, stock)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockRepository_FindByProductVariant(t *testing.T) {
	t.Run("matches null variant for simple products", func(t *testing.T) {
		repo, mock, mockDB := newMockStockRepository(t)
		defer mockDB.Close()

		stockID := uuid.New()
		tenantID := uuid.New()
		productID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "stocks" WHERE tenant_id = \$1 AND product_id = \$2 AND variant_id IS NULL`).
			WithArgs(tenantID, productID, 1).
			WillReturnRows(stockRows(stockID, tenantID, productID, 5, 0, 1))

		stock, err := repo.FindByProductVariant(context.Background(), tenantID, productID, nil)

		assert.NoError(t, err)
		assert.Equal(t, stockID, stock.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("matches explicit variant", func(t *testing.T) {
		repo, mock, mockDB := newMockStockRepository(t)
		defer mockDB.Close()

		stockID := uuid.New()
		tenantID := uuid.New()
		productID := uuid.New()
		variantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "stocks" WHERE tenant_id = \$1 AND product_id = \$2 AND variant_id = \$3`).
			WithArgs(tenantID, productID, variantID, 1).
			WillReturnRows(stockRows(stockID, tenantID, productID, 5, 0, 1))

		stock, err := repo.FindByProductVariant(context.Background(), tenantID, productID, &variantID)

		assert.NoError(t, err)
		assert.Equal(t, stockID, stock.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockRepository_FindByIDs(t *testing.T) {
	t.Run("returns empty slice for no IDs", func(t *testing.T) {
		repo, _, mockDB := newMockStockRepository(t)
		defer mockDB.Close()

		stocks, err := repo.FindByIDs(context.Background(), uuid.New(), nil)

		assert.NoError(t, err)
		assert.Empty(t, stocks)
	})

	t.Run("finds records by IDs within tenant", func(t *testing.T) {
		repo, mock, mockDB := newMockStockRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		firstID := uuid.New()
		secondID := uuid.New()

		rows := stockRows(firstID, tenantID, uuid.New(), 10, 0, 1).
			AddRow(secondID, tenantID, uuid.New(), nil, 20, 5, 15, decimal.NewFromInt(2), decimal.NewFromInt(40), 1)

		mock.ExpectQuery(`SELECT \* FROM "stocks" WHERE tenant_id = \$1 AND id IN \(\$2,\$3\)`).
			WithArgs(tenantID, firstID, secondID).
			WillReturnRows(rows)

		stocks, err := repo.FindByIDs(context.Background(), tenantID, []uuid.UUID{firstID, secondID})

		assert.NoError(t, err)
		assert.Len(t, stocks, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockRepository_SaveWithLock(t *testing.T) {
	newVersionedStock := func(t *testing.T) *inventory.Stock {
		stock, err := inventory.NewStock(uuid.New(), uuid.New(), nil)
		require.NoError(t, err)
		require.NoError(t, stock.Restock(10, nil, time.Now()))
		return stock
	}

	t.Run("updates row carrying the loaded version and bumps it once", func(t *testing.T) {
		repo, mock, mockDB := newMockStockRepository(t)
		defer mockDB.Close()

		stock := newVersionedStock(t)
		loaded := stock.GetVersion()

		mock.ExpectExec(`UPDATE "stocks" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SaveWithLock(context.Background(), stock)

		assert.NoError(t, err)
		assert.Equal(t, loaded+1, stock.GetVersion())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports conflict when no row matches", func(t *testing.T) {
		repo, mock, mockDB := newMockStockRepository(t)
		defer mockDB.Close()

		stock := newVersionedStock(t)
		loaded := stock.GetVersion()

		mock.ExpectExec(`UPDATE "stocks" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), stock)

		assert.Error(t, err)
		assert.Equal(t, shared.ErrConcurrencyConflict, err)
		assert.Equal(t, loaded, stock.GetVersion())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockRepository_GetOrCreate(t *testing.T) {
	t.Run("fetches the winner after a suppressed insert", func(t *testing.T) {
		repo, mock, mockDB := newMockStockRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		productID := uuid.New()
		existingID := uuid.New()

		// Miss, then a concurrent writer wins the insert race. The open
		// conflict target covers the partial unique index for NULL
		// variants, so the race surfaces as zero rows affected rather
		// than a unique violation.
		mock.ExpectQuery(`SELECT \* FROM "stocks" WHERE tenant_id = \$1 AND product_id = \$2 AND variant_id IS NULL`).
			WithArgs(tenantID, productID, 1).
			WillReturnError(gorm.ErrRecordNotFound)
		// The zero-valued default columns come back through RETURNING, so
		// the insert runs as a query; a suppressed conflict yields no rows.
		mock.ExpectQuery(`INSERT INTO "stocks" .* ON CONFLICT DO NOTHING RETURNING`).
			WillReturnRows(sqlmock.NewRows([]string{"on_hand"}))
		mock.ExpectQuery(`SELECT \* FROM "stocks" WHERE tenant_id = \$1 AND product_id = \$2 AND variant_id IS NULL`).
			WithArgs(tenantID, productID, 1).
			WillReturnRows(stockRows(existingID, tenantID, productID, 10, 0, 1))

		stock, err := repo.GetOrCreate(context.Background(), tenantID, productID, nil)

		assert.NoError(t, err)
		assert.Equal(t, existingID, stock.ID)
		assert.Equal(t, int64(10), stock.OnHand)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns the inserted record when the insert lands", func(t *testing.T) {
		repo, mock, mockDB := newMockStockRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		productID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "stocks" WHERE tenant_id = \$1 AND product_id = \$2 AND variant_id IS NULL`).
			WithArgs(tenantID, productID, 1).
			WillReturnError(gorm.ErrRecordNotFound)
		mock.ExpectQuery(`INSERT INTO "stocks" .* ON CONFLICT DO NOTHING RETURNING`).
			WillReturnRows(sqlmock.NewRows([]string{"on_hand"}).AddRow(0))

		stock, err := repo.GetOrCreate(context.Background(), tenantID, productID, nil)

		assert.NoError(t, err)
		assert.Equal(t, tenantID, stock.TenantID)
		assert.Equal(t, productID, stock.ProductID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockRepository_Counts(t *testing.T) {
	t.Run("counts stock records for tenant", func(t *testing.T) {
		repo, mock, mockDB := newMockStockRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "stocks" WHERE tenant_id = \$1`).
			WithArgs(tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

		count, err := repo.CountForTenant(context.Background(), tenantID, shared.Filter{})

		assert.NoError(t, err)
		assert.Equal(t, int64(12), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("counts low stock records", func(t *testing.T) {
		repo, mock, mockDB := newMockStockRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "stocks" WHERE tenant_id = \$1 AND \(low_stock_threshold > 0 AND on_hand <= low_stock_threshold\)`).
			WithArgs(tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		count, err := repo.CountLowStock(context.Background(), tenantID)

		assert.NoError(t, err)
		assert.Equal(t, int64(3), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("counts out of stock records", func(t *testing.T) {
		repo, mock, mockDB := newMockStockRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "stocks" WHERE tenant_id = \$1 AND on_hand <= 0`).
			WithArgs(tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		count, err := repo.CountOutOfStock(context.Background(), tenantID)

		assert.NoError(t, err)
		assert.Equal(t, int64(2), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockRepository_SumStockValue(t *testing.T) {
	t.Run("sums stock value for tenant", func(t *testing.T) {
		repo, mock, mockDB := newMockStockRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(stock_value\), 0\) FROM "stocks" WHERE tenant_id = \$1`).
			WithArgs(tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(decimal.NewFromFloat(1234.5)))

		total, err := repo.SumStockValue(context.Background(), tenantID)

		assert.NoError(t, err)
		assert.True(t, decimal.NewFromFloat(1234.5).Equal(total))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func newMockMovementRepository(t *testing.T) (*GormStockMovementRepository, sqlmock.Sqlmock, *sql.DB) {
	gormDB, mock, mockDB := newMockGormDB(t)
	return NewGormStockMovementRepository(gormDB), mock, mockDB
}

func TestGormStockMovementRepository_Create(t *testing.T) {
	t.Run("appends a movement record", func(t *testing.T) {
		repo, mock, mockDB := newMockMovementRepository(t)
		defer mockDB.Close()

		stock, err := inventory.NewStock(uuid.New(), uuid.New(), nil)
		require.NoError(t, err)
		now := time.Now()
		movement, err := inventory.NewStockMovement(
			stock.TenantID, stock, inventory.MovementTypeRestock, 10, 0,
			inventory.SourceTypeManual, uuid.NewString(), now,
		)
		require.NoError(t, err)

		mock.ExpectExec(`INSERT INTO "stock_movements"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.Create(context.Background(), movement)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockMovementRepository_FindBySource(t *testing.T) {
	t.Run("finds movements by source document", func(t *testing.T) {
		repo, mock, mockDB := newMockMovementRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		sourceID := uuid.NewString()

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "movement_type", "quantity", "source_type", "source_id"}).
			AddRow(uuid.New(), tenantID, "SALE", 3, "SALE", sourceID)

		mock.ExpectQuery(`SELECT \* FROM "stock_movements" WHERE tenant_id = \$1 AND source_type = \$2 AND source_id = \$3`).
			WithArgs(tenantID, inventory.SourceTypeSale, sourceID).
			WillReturnRows(rows)

		movements, err := repo.FindBySource(context.Background(), tenantID, inventory.SourceTypeSale, sourceID)

		assert.NoError(t, err)
		assert.Len(t, movements, 1)
		assert.Equal(t, int64(3), movements[0].Quantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockMovementRepository_CountByStock(t *testing.T) {
	t.Run("counts movements for a stock record", func(t *testing.T) {
		repo, mock, mockDB := newMockMovementRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		stockID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "stock_movements" WHERE tenant_id = \$1 AND stock_id = \$2`).
			WithArgs(tenantID, stockID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

		count, err := repo.CountByStock(context.Background(), tenantID, stockID)

		assert.NoError(t, err)
		assert.Equal(t, int64(7), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
