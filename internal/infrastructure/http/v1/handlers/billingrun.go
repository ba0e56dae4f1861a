package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dairyledger/internal/domain"
	"dairyledger/internal/domain/billingrun"
	"dairyledger/internal/infrastructure/http/v1/dto"
	"dairyledger/pkg/logger"
)

// BillingRunHandler runs bulk invoice generation.
type BillingRunHandler struct {
	*BaseHandler
	service *billingrun.Service
}

// NewBillingRunHandler creates a new billing run handler.
func NewBillingRunHandler(base *BaseHandler, service *billingrun.Service) *BillingRunHandler {
	return &BillingRunHandler{BaseHandler: base, service: service}
}

// Run executes a batch billing run synchronously and returns the result.
// Progress is logged per customer; the combined artifact is available from
// the archive endpoint of the surrounding application.
// POST /billing-runs
func (h *BillingRunHandler) Run(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.BulkRunRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Run(ctx, billingrun.Request{
		CustomerIDs: req.CustomerIDs,
		Period:      domain.Period{Start: req.PeriodStart, End: req.PeriodEnd},
		Date:        time.Now().UTC(),
	}, func(p billingrun.Progress) {
		logger.Info(ctx, "billing run progress",
			"completed", p.Completed,
			"total", p.Total,
			"customer", p.CurrentCustomer,
		)
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	status := http.StatusOK
	if result.Failed > 0 && result.Successful == 0 {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

// Archive runs a batch and streams the combined artifact.
// POST /billing-runs/archive
func (h *BillingRunHandler) Archive(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.BulkRunRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Run(ctx, billingrun.Request{
		CustomerIDs: req.CustomerIDs,
		Period:      domain.Period{Start: req.PeriodStart, End: req.PeriodEnd},
		Date:        time.Now().UTC(),
	}, nil)
	if err != nil {
		h.Error(c, err)
		return
	}

	if result.Combined == nil {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Combined.Name+`"`)
	c.Data(http.StatusOK, result.Combined.ContentType, result.Combined.Data)
}

// RegisterRoutes registers billing run routes.
func (h *BillingRunHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Run)
	rg.POST("/archive", h.Archive)
}
