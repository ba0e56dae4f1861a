package outstanding

import (
	"context"

	"dairyledger/internal/core/id"
	"dairyledger/internal/core/types"
)

// Aggregate is the raw per-customer read view the fast path consumes:
// opening balance, its offsets, unpaid invoice outstanding, unapplied
// credit and subscription dues, each summed server-side in one query.
type Aggregate struct {
	CustomerID         id.ID       `db:"customer_id"`
	CustomerName       string      `db:"customer_name"`
	OpeningBalance     types.Money `db:"opening_balance"`
	OpeningOffset      types.Money `db:"opening_offset"`
	InvoiceOutstanding types.Money `db:"invoice_outstanding"`
	UnappliedCredit    types.Money `db:"unapplied_credit"`
	SubscriptionDues   types.Money `db:"subscription_dues"`
}

// Repository is the read-only view surface for outstanding computation.
type Repository interface {
	// Aggregate computes the read view for one customer.
	Aggregate(ctx context.Context, customerID id.ID) (*Aggregate, error)

	// AggregateAll computes the read view for the whole customer
	// population in one query.
	AggregateAll(ctx context.Context) ([]Aggregate, error)
}
