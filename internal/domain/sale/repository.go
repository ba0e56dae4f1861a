package sale

import (
	"context"
	"time"

	"dairyledger/internal/core/id"
)

// Repository defines credit sale operations used by invoicing.
type Repository interface {
	GetByID(ctx context.Context, saleID id.ID) (*CreditSale, error)

	// ListPending returns Pending sales in [from, to] for a customer.
	ListPending(ctx context.Context, customerID id.ID, from, to time.Time) ([]CreditSale, error)

	ListByIDs(ctx context.Context, ids []id.ID) ([]CreditSale, error)

	// MarkBilled flips the given Pending sales to Billed. Returns an error
	// if any sale is not currently Pending, so a sale can never be billed
	// twice. Must be called inside the invoice commit transaction.
	MarkBilled(ctx context.Context, saleIDs []id.ID) error

	// MarkPending reverts the given Billed sales to Pending. Must be called
	// inside the invoice deletion transaction.
	MarkPending(ctx context.Context, saleIDs []id.ID) error
}
