package handlers

import (
	"github.com/gin-gonic/gin"

	"dairyledger/internal/core/apperror"
	"dairyledger/internal/core/id"
	"dairyledger/internal/domain"
	"dairyledger/internal/domain/customer"
)

// CustomerHandler exposes read-only customer endpoints. Customer CRUD
// belongs to the surrounding application; billing only reads.
type CustomerHandler struct {
	*BaseHandler
	repo customer.Repository
}

// NewCustomerHandler creates a new customer handler.
func NewCustomerHandler(base *BaseHandler, repo customer.Repository) *CustomerHandler {
	return &CustomerHandler{BaseHandler: base, repo: repo}
}

// Get retrieves a customer.
// GET /customers/:id
func (h *CustomerHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	customerID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	cust, err := h.repo.GetByID(ctx, customerID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, cust)
}

// List retrieves customers with filtering.
// GET /customers
func (h *CustomerHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := customer.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)

	if status := c.Query("status"); status != "" {
		s := customer.Status(status)
		filter.Status = &s
	}

	result, err := h.repo.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// RegisterRoutes registers customer routes.
func (h *CustomerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
}
