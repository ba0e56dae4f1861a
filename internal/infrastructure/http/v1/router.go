// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"dairyledger/internal/domain/billingrun"
	"dairyledger/internal/domain/customer"
	"dairyledger/internal/domain/invoice"
	"dairyledger/internal/domain/outstanding"
	"dairyledger/internal/domain/payment"
	"dairyledger/internal/infrastructure/http/v1/handlers"
	"dairyledger/internal/infrastructure/http/v1/middleware"
	"dairyledger/internal/infrastructure/storage/postgres"
	"dairyledger/pkg/logger"
)

// RouterConfig holds everything the router wires together.
type RouterConfig struct {
	Pool   *postgres.Pool
	Logger *logger.Logger

	CustomerRepo       customer.Repository
	InvoiceService     *invoice.Service
	PaymentService     *payment.Service
	OutstandingService *outstanding.Service
	BillingRunService  *billingrun.Service
}

// NewRouter creates and configures the gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Order matters: recovery outermost, then tracing, then logging.
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	base := handlers.NewBaseHandler()

	api := router.Group("/api/v1")
	{
		handlers.NewCustomerHandler(base, cfg.CustomerRepo).
			RegisterRoutes(api.Group("/customers"))
		handlers.NewInvoiceHandler(base, cfg.InvoiceService).
			RegisterRoutes(api.Group("/invoices"))
		handlers.NewPaymentHandler(base, cfg.PaymentService).
			RegisterRoutes(api.Group("/payments"))
		handlers.NewOutstandingHandler(base, cfg.OutstandingService).
			RegisterRoutes(api.Group("/outstanding"))
		handlers.NewBillingRunHandler(base, cfg.BillingRunService).
			RegisterRoutes(api.Group("/billing-runs"))
	}

	return router
}
