package handler

import (
	"github.com/gin-gonic/gin"

	inventoryapp "github.com/commerce/backoffice/internal/application/inventory"
)

// ReportHandler handles inventory reporting HTTP requests
type ReportHandler struct {
	BaseHandler
	reportingService *inventoryapp.ReportingService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportingService *inventoryapp.ReportingService) *ReportHandler {
	return &ReportHandler{reportingService: reportingService}
}

// RegisterRoutes registers all report routes
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reports := rg.Group("/reports/inventory")
	{
		reports.GET("/summary", h.Summary)
		reports.GET("/valuation", h.Valuation)
		reports.GET("/low-stock", h.LowStock)
		reports.GET("/needs-reorder", h.NeedsReorder)
	}
}

// Summary returns aggregate stock counts and total value for the tenant
func (h *ReportHandler) Summary(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	result, err := h.reportingService.StockSummary(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Valuation returns the total inventory value for the tenant
func (h *ReportHandler) Valuation(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	value, err := h.reportingService.TotalInventoryValue(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, gin.H{
		"total_value": value.Amount(),
		"currency":    value.Currency(),
	})
}

// LowStock lists stock records at or below their low-stock threshold
func (h *ReportHandler) LowStock(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var filter inventoryapp.StockListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.reportingService.ListLowStock(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// NeedsReorder lists stock records at or below their reorder point
func (h *ReportHandler) NeedsReorder(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var filter inventoryapp.StockListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.reportingService.ListNeedsReorder(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
