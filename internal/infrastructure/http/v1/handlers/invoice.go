package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dairyledger/internal/core/apperror"
	"dairyledger/internal/core/id"
	"dairyledger/internal/domain"
	"dairyledger/internal/domain/invoice"
	"dairyledger/internal/infrastructure/http/v1/dto"
)

// InvoiceHandler handles HTTP requests for invoices.
type InvoiceHandler struct {
	*BaseHandler
	service *invoice.Service
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(base *BaseHandler, service *invoice.Service) *InvoiceHandler {
	return &InvoiceHandler{BaseHandler: base, service: service}
}

// Generate creates one invoice for one customer and period.
// POST /invoices
func (h *InvoiceHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.GenerateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := h.service.Generate(ctx, req.CustomerID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, inv)
}

// Get retrieves an invoice with its lines and summaries.
// GET /invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	invoiceID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	inv, err := h.service.GetByID(ctx, invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, inv)
}

// List retrieves invoices with filtering.
// GET /invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := invoice.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.Query("orderBy")

	if customerID := c.Query("customerId"); customerID != "" {
		if parsed, err := id.Parse(customerID); err == nil {
			filter.CustomerID = &parsed
		}
	}
	if status := c.Query("status"); status != "" {
		s := invoice.Status(status)
		filter.Status = &s
	}
	if dateFrom := c.Query("dateFrom"); dateFrom != "" {
		if parsed, err := time.Parse(time.RFC3339, dateFrom); err == nil {
			filter.DateFrom = &parsed
		}
	}
	if dateTo := c.Query("dateTo"); dateTo != "" {
		if parsed, err := time.Parse(time.RFC3339, dateTo); err == nil {
			filter.DateTo = &parsed
		}
	}

	result, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// Delete removes a non-paid invoice and reverts its billed sales.
// DELETE /invoices/:id
func (h *InvoiceHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	invoiceID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	reverted, err := h.service.Delete(ctx, invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.DeleteInvoiceResponse{RevertedSales: reverted})
}

// BulkDelete removes many invoices, isolating failures.
// POST /invoices/bulk-delete
func (h *InvoiceHandler) BulkDelete(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.BulkDeleteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if len(req.InvoiceIDs) == 0 {
		h.Error(c, apperror.NewValidation("at least one invoice id is required"))
		return
	}

	result := h.service.BulkDelete(ctx, req.InvoiceIDs)

	status := http.StatusOK
	if len(result.Failed) > 0 && len(result.Successful) == 0 {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

// RegisterRoutes registers invoice routes.
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Generate)
	rg.GET("/:id", h.Get)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/bulk-delete", h.BulkDelete)
}
