package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	salesapp "github.com/commerce/backoffice/internal/application/sales"
)

// SaleHandler handles sale-related HTTP requests
type SaleHandler struct {
	BaseHandler
	saleService *salesapp.SaleService
}

// NewSaleHandler creates a new sale handler
func NewSaleHandler(saleService *salesapp.SaleService) *SaleHandler {
	return &SaleHandler{saleService: saleService}
}

// RegisterRoutes registers all sale routes
func (h *SaleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sales := rg.Group("/sales")
	{
		sales.POST("", h.Create)
		sales.GET("", h.List)
		sales.GET("/:id", h.GetByID)
		sales.POST("/:id/items", h.AddItems)
		sales.DELETE("/:id/items/:item_id", h.RemoveItem)
		sales.POST("/:id/submit", h.Submit)
		sales.POST("/:id/confirm", h.Confirm)
		sales.POST("/:id/pay", h.MarkPaid)
		sales.POST("/:id/complete", h.Complete)
		sales.POST("/:id/cancel", h.Cancel)
	}
}

// Create opens a new draft sale
func (h *SaleHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req salesapp.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.saleService.CreateSale(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// GetByID retrieves a sale by ID
func (h *SaleHandler) GetByID(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	result, err := h.saleService.GetSale(c.Request.Context(), tenantID, saleID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// List retrieves sales with filtering and pagination
func (h *SaleHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var filter salesapp.SaleListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.saleService.ListSales(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// AddItems adds one or more lines to a draft sale atomically
func (h *SaleHandler) AddItems(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	var req salesapp.AddItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.saleService.AddItems(c.Request.Context(), tenantID, saleID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// RemoveItem removes a line from a draft sale and releases its reservation
func (h *SaleHandler) RemoveItem(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	result, err := h.saleService.RemoveItem(c.Request.Context(), tenantID, saleID, itemID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Submit moves a draft sale to pending
func (h *SaleHandler) Submit(c *gin.Context) {
	h.transition(c, h.saleService.Submit)
}

// Confirm confirms a pending sale
func (h *SaleHandler) Confirm(c *gin.Context) {
	h.transition(c, h.saleService.Confirm)
}

// MarkPaid marks a sale as paid
func (h *SaleHandler) MarkPaid(c *gin.Context) {
	h.transition(c, h.saleService.MarkPaid)
}

// Complete completes a confirmed sale and deducts stock
func (h *SaleHandler) Complete(c *gin.Context) {
	h.transition(c, h.saleService.Complete)
}

// Cancel cancels a sale and releases any reservations
func (h *SaleHandler) Cancel(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	var req salesapp.CancelSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.saleService.Cancel(c.Request.Context(), tenantID, saleID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

func (h *SaleHandler) transition(c *gin.Context, fn func(ctx context.Context, tenantID, saleID uuid.UUID) (*salesapp.SaleResponse, error)) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	result, err := fn(c.Request.Context(), tenantID, saleID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
