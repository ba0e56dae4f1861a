package invoice

import (
	"context"
	"time"

	"dairyledger/internal/core/id"
	"dairyledger/internal/domain"
)

// Repository defines persistence operations for invoices.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error

	// HardDelete removes the invoice row. Line items must be deleted first
	// (same transaction); the repo does not cascade.
	HardDelete(ctx context.Context, invoiceID id.ID) error

	GetLines(ctx context.Context, invoiceID id.ID) ([]LineItem, error)
	SaveLines(ctx context.Context, invoiceID id.ID, lines []LineItem) error
	DeleteLines(ctx context.Context, invoiceID id.ID) error

	// FindOverlapping returns the first invoice of this customer whose
	// period overlaps [periodStart, periodEnd], or nil when none exists.
	FindOverlapping(ctx context.Context, customerID id.ID, periodStart, periodEnd time.Time) (*Invoice, error)

	// LockCustomerBilling takes a transaction-scoped lock on the customer
	// so concurrent invoice commits for the same customer serialize. Must
	// be called inside a transaction, before FindOverlapping is re-checked.
	LockCustomerBilling(ctx context.Context, customerID id.ID) error

	// GetForUpdate retrieves the invoice with a row lock for the duration
	// of the surrounding transaction.
	GetForUpdate(ctx context.Context, invoiceID id.ID) (*Invoice, error)

	// ListUnpaid returns invoices of a customer with outstanding > 0.
	ListUnpaid(ctx context.Context, customerID id.ID) ([]Invoice, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error)
}

// ListFilter for filtering invoices.
type ListFilter struct {
	domain.ListFilter

	CustomerID *id.ID
	Status     *Status
	DateFrom   *time.Time
	DateTo     *time.Time
}
