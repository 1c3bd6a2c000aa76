package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inventoryapp "github.com/commerce/backoffice/internal/application/inventory"
	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/commerce/backoffice/internal/interfaces/http/dto"
)

// stubStockRepo is a minimal in-memory StockRepository for handler tests
type stubStockRepo struct {
	mu     sync.Mutex
	stocks map[uuid.UUID]inventory.Stock
}

func newStubStockRepo() *stubStockRepo {
	return &stubStockRepo{stocks: make(map[uuid.UUID]inventory.Stock)}
}

func (r *stubStockRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stocks[id]; ok {
		clone := s
		return &clone, nil
	}
	return nil, shared.ErrNotFound
}

func (r *stubStockRepo) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Stock, error) {
	stock, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if stock.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return stock, nil
}

func (r *stubStockRepo) FindByProductVariant(_ context.Context, tenantID, productID uuid.UUID, variantID *uuid.UUID) (*inventory.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stocks {
		if s.TenantID == tenantID && s.ProductID == productID && variantsMatch(s.VariantID, variantID) {
			clone := s
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func variantsMatch(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *stubStockRepo) FindByIDs(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]inventory.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]inventory.Stock, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.stocks[id]; ok && s.TenantID == tenantID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (r *stubStockRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) ([]inventory.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]inventory.Stock, 0)
	for _, s := range r.stocks {
		if s.TenantID == tenantID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (r *stubStockRepo) FindLowStock(_ context.Context, tenantID uuid.UUID, _ shared.Filter) ([]inventory.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]inventory.Stock, 0)
	for _, s := range r.stocks {
		if s.TenantID == tenantID && s.IsLowStock() {
			result = append(result, s)
		}
	}
	return result, nil
}

func (r *stubStockRepo) FindNeedsReorder(_ context.Context, tenantID uuid.UUID, _ shared.Filter) ([]inventory.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]inventory.Stock, 0)
	for _, s := range r.stocks {
		if s.TenantID == tenantID && s.NeedsRestock() {
			result = append(result, s)
		}
	}
	return result, nil
}

func (r *stubStockRepo) GetOrCreate(ctx context.Context, tenantID, productID uuid.UUID, variantID *uuid.UUID) (*inventory.Stock, error) {
	if existing, err := r.FindByProductVariant(ctx, tenantID, productID, variantID); err == nil {
		return existing, nil
	}
	stock, err := inventory.NewStock(tenantID, productID, variantID)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.stocks[stock.ID] = *stock
	r.mu.Unlock()
	return stock, nil
}

func (r *stubStockRepo) Save(_ context.Context, stock *inventory.Stock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stocks[stock.ID] = *stock
	return nil
}

func (r *stubStockRepo) SaveWithLock(_ context.Context, stock *inventory.Stock) error {
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
	r.stocks[stock.ID] = *stock
	return nil
}

func (r *stubStockRepo) CountForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.stocks {
		if s.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (r *stubStockRepo) CountLowStock(_ context.Context, tenantID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.stocks {
		if s.TenantID == tenantID && s.IsLowStock() {
			n++
		}
	}
	return n, nil
}

func (r *stubStockRepo) CountOutOfStock(_ context.Context, tenantID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.stocks {
		if s.TenantID == tenantID && s.IsOutOfStock() {
			n++
		}
	}
	return n, nil
}

func (r *stubStockRepo) SumStockValue(_ context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, s := range r.stocks {
		if s.TenantID == tenantID {
			total = total.Add(s.StockValue)
		}
	}
	return total, nil
}

// stubMovementRepo is a minimal in-memory StockMovementRepository
type stubMovementRepo struct {
	mu        sync.Mutex
	movements []inventory.StockMovement
}

func newStubMovementRepo() *stubMovementRepo {
	return &stubMovementRepo{}
}

func (r *stubMovementRepo) Create(_ context.Context, movement *inventory.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, *movement)
	return nil
}

func (r *stubMovementRepo) FindByStock(_ context.Context, tenantID, stockID uuid.UUID, _ shared.Filter) ([]inventory.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]inventory.StockMovement, 0)
	for _, m := range r.movements {
		if m.TenantID == tenantID && m.StockID == stockID {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *stubMovementRepo) FindBySource(_ context.Context, tenantID uuid.UUID, sourceType inventory.SourceType, sourceID string) ([]inventory.StockMovement, error) {
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

func (r *stubMovementRepo) CountByStock(_ context.Context, tenantID, stockID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.movements {
		if m.TenantID == tenantID && m.StockID == stockID {
			n++
		}
	}
	return n, nil
}

func newStockTestRouter() (*gin.Engine, *stubStockRepo, uuid.UUID) {
	stockRepo := newStubStockRepo()
	movementRepo := newStubMovementRepo()
	scope := inventoryapp.NewNoOpTransactionScope(stockRepo, movementRepo)
	service := inventoryapp.NewStockService(scope, stockRepo, movementRepo)

	handler := NewStockHandler(service)
	tenantID := uuid.New()

	router := gin.New()
	router.Use(func(c *gin.Context) {
		setJWTContext(c, tenantID)
		c.Next()
	})
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return router, stockRepo, tenantID
}

func performJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStockHandler_Restock(t *testing.T) {
	router, _, _ := newStockTestRouter()
	productID := uuid.New()

	w := performJSON(router, http.MethodPost, "/api/v1/inventory/stocks/restock", gin.H{
		"product_id": productID,
		"quantity":   25,
		"unit_cost":  "4.00",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(25), data["on_hand"])
	assert.Equal(t, float64(25), data["available"])
}

func TestStockHandler_Restock_InvalidQuantity(t *testing.T) {
	router, _, _ := newStockTestRouter()

	w := performJSON(router, http.MethodPost, "/api/v1/inventory/stocks/restock", gin.H{
		"product_id": uuid.New(),
		"quantity":   0,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStockHandler_ReserveAndRelease(t *testing.T) {
	router, _, _ := newStockTestRouter()
	productID := uuid.New()

	w := performJSON(router, http.MethodPost, "/api/v1/inventory/stocks/restock", gin.H{
		"product_id": productID,
		"quantity":   10,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = performJSON(router, http.MethodPost, "/api/v1/inventory/stocks/reserve", gin.H{
		"product_id": productID,
		"quantity":   4,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(4), data["reserved"])
	assert.Equal(t, float64(6), data["available"])

	w = performJSON(router, http.MethodPost, "/api/v1/inventory/stocks/release", gin.H{
		"product_id": productID,
		"quantity":   4,
	})
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data = resp.Data.(map[string]any)
	assert.Equal(t, float64(0), data["reserved"])
	assert.Equal(t, float64(10), data["available"])
}

func TestStockHandler_Reserve_InsufficientStock(t *testing.T) {
	router, _, _ := newStockTestRouter()
	productID := uuid.New()

	w := performJSON(router, http.MethodPost, "/api/v1/inventory/stocks/restock", gin.H{
		"product_id": productID,
		"quantity":   3,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = performJSON(router, http.MethodPost, "/api/v1/inventory/stocks/reserve", gin.H{
		"product_id": productID,
		"quantity":   5,
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeInsufficientStock, resp.Error.Code)
}

func TestStockHandler_GetByID_NotFound(t *testing.T) {
	router, _, _ := newStockTestRouter()

	w := performJSON(router, http.MethodGet, "/api/v1/inventory/stocks/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStockHandler_GetByID_InvalidID(t *testing.T) {
	router, _, _ := newStockTestRouter()

	w := performJSON(router, http.MethodGet, "/api/v1/inventory/stocks/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStockHandler_Lookup(t *testing.T) {
	router, _, _ := newStockTestRouter()
	productID := uuid.New()

	w := performJSON(router, http.MethodPost, "/api/v1/inventory/stocks/restock", gin.H{
		"product_id": productID,
		"quantity":   7,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = performJSON(router, http.MethodGet, fmt.Sprintf("/api/v1/inventory/stocks/lookup?product_id=%s", productID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, productID.String(), data["product_id"])
	assert.Equal(t, float64(7), data["on_hand"])
}

func TestStockHandler_List(t *testing.T) {
	router, _, _ := newStockTestRouter()

	for i := 0; i < 3; i++ {
		w := performJSON(router, http.MethodPost, "/api/v1/inventory/stocks/restock", gin.H{
			"product_id": uuid.New(),
			"quantity":   5,
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := performJSON(router, http.MethodGet, "/api/v1/inventory/stocks?page=1&page_size=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(3), resp.Meta.Total)
}

func TestStockHandler_ListMovements(t *testing.T) {
	router, repo, tenantID := newStockTestRouter()
	productID := uuid.New()

	w := performJSON(router, http.MethodPost, "/api/v1/inventory/stocks/restock", gin.H{
		"product_id": productID,
		"quantity":   5,
	})
	require.Equal(t, http.StatusOK, w.Code)

	stock, err := repo.FindByProductVariant(context.Background(), tenantID, productID, nil)
	require.NoError(t, err)

	w = performJSON(router, http.MethodGet, fmt.Sprintf("/api/v1/inventory/stocks/%s/movements", stock.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	movements := resp.Data.([]any)
	assert.Len(t, movements, 1)
}

func TestStockHandler_SetThresholds(t *testing.T) {
	router, _, _ := newStockTestRouter()
	productID := uuid.New()

	w := performJSON(router, http.MethodPost, "/api/v1/inventory/stocks/restock", gin.H{
		"product_id": productID,
		"quantity":   2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = performJSON(router, http.MethodPut, "/api/v1/inventory/stocks/thresholds", gin.H{
		"product_id":          productID,
		"low_stock_threshold": 5,
		"reorder_point":       3,
		"reorder_quantity":    20,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(5), data["low_stock_threshold"])
	assert.Equal(t, true, data["is_low_stock"])
}
