package handlers

import (
	"github.com/gin-gonic/gin"

	"dairyledger/internal/core/apperror"
	"dairyledger/internal/core/id"
	"dairyledger/internal/domain"
	"dairyledger/internal/domain/payment"
	"dairyledger/internal/infrastructure/http/v1/dto"
)

// PaymentHandler handles HTTP requests for payments and allocations.
type PaymentHandler struct {
	*BaseHandler
	service *payment.Service
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(base *BaseHandler, service *payment.Service) *PaymentHandler {
	return &PaymentHandler{BaseHandler: base, service: service}
}

// Record registers a received payment (unallocated).
// POST /payments
func (h *PaymentHandler) Record(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RecordPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p := payment.NewPayment(req.CustomerID, req.Amount, req.Method)
	if !req.Date.IsZero() {
		p.Date = req.Date
	}
	p.Comment = req.Comment

	if err := h.service.Record(ctx, p); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, p)
}

// Allocate applies parts of a payment to invoices.
// POST /payments/:id/allocations
func (h *PaymentHandler) Allocate(c *gin.Context) {
	ctx := c.Request.Context()

	paymentID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.AllocateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	requests := make([]payment.AllocationRequest, len(req.Allocations))
	for i, a := range req.Allocations {
		requests[i] = payment.AllocationRequest{InvoiceID: a.InvoiceID, Amount: a.Amount}
	}

	if err := h.service.Allocate(ctx, paymentID, requests); err != nil {
		h.Error(c, err)
		return
	}

	breakdown, err := h.service.GetBreakdown(ctx, paymentID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, breakdown)
}

// AllocateOpening applies part of a payment to the customer's opening balance.
// POST /payments/:id/opening-allocations
func (h *PaymentHandler) AllocateOpening(c *gin.Context) {
	ctx := c.Request.Context()

	paymentID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.AllocateOpeningRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.AllocateToOpeningBalance(ctx, paymentID, req.Amount); err != nil {
		h.Error(c, err)
		return
	}

	breakdown, err := h.service.GetBreakdown(ctx, paymentID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, breakdown)
}

// Rollback deletes all of a payment's allocations and restores prior state.
// DELETE /payments/:id/allocations
func (h *PaymentHandler) Rollback(c *gin.Context) {
	ctx := c.Request.Context()

	paymentID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Rollback(ctx, paymentID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Breakdown reports where a payment went.
// GET /payments/:id/breakdown
func (h *PaymentHandler) Breakdown(c *gin.Context) {
	ctx := c.Request.Context()

	paymentID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	breakdown, err := h.service.GetBreakdown(ctx, paymentID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, breakdown)
}

// List retrieves payments with filtering.
// GET /payments
func (h *PaymentHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := payment.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.Query("orderBy")

	if customerID := c.Query("customerId"); customerID != "" {
		if parsed, err := id.Parse(customerID); err == nil {
			filter.CustomerID = &parsed
		}
	}
	if status := c.Query("status"); status != "" {
		s := payment.AllocationStatus(status)
		filter.Status = &s
	}

	result, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// RegisterRoutes registers payment routes.
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Record)
	rg.GET("/:id/breakdown", h.Breakdown)
	rg.POST("/:id/allocations", h.Allocate)
	rg.DELETE("/:id/allocations", h.Rollback)
	rg.POST("/:id/opening-allocations", h.AllocateOpening)
}
