package payment

import (
	"context"

	"dairyledger/internal/core/id"
	"dairyledger/internal/core/types"
	"dairyledger/internal/domain"
)

// Repository defines persistence operations for payments and allocations.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, paymentID id.ID) (*Payment, error)

	// GetForUpdate locks the payment row for the surrounding transaction.
	// This serializes concurrent allocation attempts against one payment.
	GetForUpdate(ctx context.Context, paymentID id.ID) (*Payment, error)

	Update(ctx context.Context, p *Payment) error
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Payment], error)

	InsertInvoiceAllocation(ctx context.Context, alloc InvoiceAllocation) error
	InsertOpeningAllocation(ctx context.Context, alloc OpeningBalanceAllocation) error

	ListInvoiceAllocations(ctx context.Context, paymentID id.ID) ([]InvoiceAllocation, error)
	ListOpeningAllocations(ctx context.Context, paymentID id.ID) ([]OpeningBalanceAllocation, error)

	// SumAllocations returns the combined invoice + opening-balance
	// allocation total for a payment. Read inside the allocation
	// transaction, after GetForUpdate, so it cannot race another request.
	SumAllocations(ctx context.Context, paymentID id.ID) (types.Money, error)

	// SumOpeningAllocationsByCustomer returns how much of the customer's
	// opening balance has already been offset.
	SumOpeningAllocationsByCustomer(ctx context.Context, customerID id.ID) (types.Money, error)

	// SumUnappliedByCustomer returns the customer's total unapplied credit
	// across all payments.
	SumUnappliedByCustomer(ctx context.Context, customerID id.ID) (types.Money, error)

	// DeleteInvoiceAllocations removes a payment's invoice allocations and
	// returns the deleted rows so callers can compensate affected invoices.
	DeleteInvoiceAllocations(ctx context.Context, paymentID id.ID) ([]InvoiceAllocation, error)

	// DeleteOpeningAllocations removes a payment's opening-balance
	// allocations and returns the deleted rows.
	DeleteOpeningAllocations(ctx context.Context, paymentID id.ID) ([]OpeningBalanceAllocation, error)
}

// ListFilter for filtering payments.
type ListFilter struct {
	domain.ListFilter

	CustomerID *id.ID
	Status     *AllocationStatus
}
