// Package dto defines request/response shapes for the v1 API.
package dto

import (
	"time"

	"dairyledger/internal/core/id"
	"dairyledger/internal/core/types"
	"dairyledger/internal/domain/payment"
)

// GenerateInvoiceRequest asks for one customer's invoice over a period.
type GenerateInvoiceRequest struct {
	CustomerID  id.ID     `json:"customerId" binding:"required"`
	PeriodStart time.Time `json:"periodStart" binding:"required"`
	PeriodEnd   time.Time `json:"periodEnd" binding:"required"`
}

// BulkRunRequest asks for a batch billing run.
type BulkRunRequest struct {
	CustomerIDs []id.ID   `json:"customerIds" binding:"required"`
	PeriodStart time.Time `json:"periodStart" binding:"required"`
	PeriodEnd   time.Time `json:"periodEnd" binding:"required"`
}

// BulkDeleteRequest lists invoices to delete.
type BulkDeleteRequest struct {
	InvoiceIDs []id.ID `json:"invoiceIds" binding:"required"`
}

// RecordPaymentRequest records a received payment.
type RecordPaymentRequest struct {
	CustomerID id.ID          `json:"customerId" binding:"required"`
	Amount     types.Money    `json:"amount" binding:"required"`
	Method     payment.Method `json:"method" binding:"required"`
	Date       time.Time      `json:"date"`
	Comment    string         `json:"comment"`
}

// AllocateRequest distributes a payment across invoices.
type AllocateRequest struct {
	Allocations []AllocationItem `json:"allocations" binding:"required"`
}

// AllocationItem is one invoice's share of a payment.
type AllocationItem struct {
	InvoiceID id.ID       `json:"invoiceId" binding:"required"`
	Amount    types.Money `json:"amount" binding:"required"`
}

// AllocateOpeningRequest applies part of a payment to the opening balance.
type AllocateOpeningRequest struct {
	Amount types.Money `json:"amount" binding:"required"`
}

// OutstandingBulkRequest selects a customer population.
type OutstandingBulkRequest struct {
	Selection   string  `json:"selection"`
	CustomerIDs []id.ID `json:"customerIds,omitempty"`
}

// DeleteInvoiceResponse reports a deletion outcome.
type DeleteInvoiceResponse struct {
	RevertedSales int `json:"revertedSales"`
}
