// Package main is the entry point for the dairyledger billing API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dairyledger/internal/domain/billingrun"
	"dairyledger/internal/domain/invoice"
	"dairyledger/internal/domain/outstanding"
	"dairyledger/internal/domain/payment"
	v1 "dairyledger/internal/infrastructure/http/v1"
	"dairyledger/internal/infrastructure/render"
	"dairyledger/internal/infrastructure/storage/postgres"
	"dairyledger/internal/infrastructure/storage/postgres/catalog_repo"
	"dairyledger/internal/infrastructure/storage/postgres/document_repo"
	"dairyledger/internal/infrastructure/storage/postgres/ledger_repo"
	"dairyledger/internal/infrastructure/storage/postgres/report_repo"
	"dairyledger/pkg/logger"
	"dairyledger/pkg/numerator"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting dairyledger server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Repositories ---
	customerRepo := catalog_repo.NewCustomerRepo(txManager)
	deliveryRepo := ledger_repo.NewDeliveryRepo(txManager)
	saleRepo := ledger_repo.NewSaleRepo(txManager)
	invoiceRepo := document_repo.NewInvoiceRepo(txManager)
	paymentRepo := document_repo.NewPaymentRepo(txManager)
	outstandingRepo := report_repo.NewOutstandingRepo(txManager)

	// --- Services ---
	sequencer := numerator.New(pool)

	invoiceService := invoice.NewService(
		invoiceRepo, customerRepo, deliveryRepo, saleRepo, sequencer, txManager)

	paymentService := payment.NewService(
		paymentRepo, invoiceRepo, customerRepo, txManager)

	outstandingCfg := outstanding.DefaultConfig()
	outstandingService := outstanding.NewDefaultService(
		outstandingRepo, customerRepo, invoiceRepo, paymentRepo, outstandingCfg)

	billingRunService := billingrun.NewService(
		invoiceService, invoiceRepo, render.NewStatementRenderer())

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:               pool,
		Logger:             log,
		CustomerRepo:       customerRepo,
		InvoiceService:     invoiceService,
		PaymentService:     paymentService,
		OutstandingService: outstandingService,
		BillingRunService:  billingRunService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
