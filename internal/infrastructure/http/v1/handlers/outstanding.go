package handlers

import (
	"github.com/gin-gonic/gin"

	"dairyledger/internal/core/apperror"
	"dairyledger/internal/core/id"
	"dairyledger/internal/domain/outstanding"
	"dairyledger/internal/infrastructure/http/v1/dto"
)

// OutstandingHandler exposes the outstanding calculator.
type OutstandingHandler struct {
	*BaseHandler
	service *outstanding.Service
}

// NewOutstandingHandler creates a new outstanding handler.
func NewOutstandingHandler(base *BaseHandler, service *outstanding.Service) *OutstandingHandler {
	return &OutstandingHandler{BaseHandler: base, service: service}
}

// Get returns one customer's outstanding record.
// GET /outstanding/:customerId
func (h *OutstandingHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	customerID, err := id.Parse(c.Param("customerId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid customer id format"))
		return
	}

	h.OK(c, h.service.Calculate(ctx, customerID))
}

// Bulk computes outstanding for a selected population.
// POST /outstanding/query
func (h *OutstandingHandler) Bulk(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.OutstandingBulkRequest
	if !h.BindJSON(c, &req) {
		return
	}

	query := outstanding.Query{
		Selection:   outstanding.Selection(req.Selection),
		CustomerIDs: req.CustomerIDs,
	}
	if query.Selection == "" {
		query.Selection = outstanding.SelectAll
	}

	records, err := h.service.CalculateAll(ctx, query)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": records, "count": len(records)})
}

// RegisterRoutes registers outstanding routes.
func (h *OutstandingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:customerId", h.Get)
	rg.POST("/query", h.Bulk)
}
