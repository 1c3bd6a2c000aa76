package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	salesapp "github.com/commerce/backoffice/internal/application/sales"
)

// RefundHandler handles refund-related HTTP requests
type RefundHandler struct {
	BaseHandler
	refundService *salesapp.RefundService
}

// NewRefundHandler creates a new refund handler
func NewRefundHandler(refundService *salesapp.RefundService) *RefundHandler {
	return &RefundHandler{refundService: refundService}
}

// RegisterRoutes registers all refund routes
func (h *RefundHandler) RegisterRoutes(rg *gin.RouterGroup) {
	refunds := rg.Group("/refunds")
	{
		refunds.POST("", h.Create)
		refunds.GET("/:id", h.GetByID)
		refunds.POST("/:id/process", h.Process)
		refunds.POST("/:id/cancel", h.Cancel)
		refunds.POST("/:id/fail", h.MarkFailed)
	}
	rg.GET("/sales/:id/refunds", h.ListForSale)
}

// Create raises a refund against a sale
func (h *RefundHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req salesapp.CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.refundService.CreateRefund(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// GetByID retrieves a refund by ID
func (h *RefundHandler) GetByID(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	refundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid refund ID format")
		return
	}

	result, err := h.refundService.GetRefund(c.Request.Context(), tenantID, refundID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Process settles a pending refund and restocks returned goods
func (h *RefundHandler) Process(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	refundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid refund ID format")
		return
	}

	result, err := h.refundService.Process(c.Request.Context(), tenantID, refundID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Cancel cancels a pending refund
func (h *RefundHandler) Cancel(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	refundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid refund ID format")
		return
	}

	result, err := h.refundService.Cancel(c.Request.Context(), tenantID, refundID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// MarkFailed marks a pending refund as failed
func (h *RefundHandler) MarkFailed(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	refundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid refund ID format")
		return
	}

	var req salesapp.FailRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.refundService.MarkFailed(c.Request.Context(), tenantID, refundID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// ListForSale retrieves all refunds raised against a sale
func (h *RefundHandler) ListForSale(c *gin.Context) {
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

	result, err := h.refundService.ListRefundsForSale(c.Request.Context(), tenantID, saleID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
