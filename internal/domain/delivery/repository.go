package delivery

import (
	"context"
	"time"

	"dairyledger/internal/core/id"
)

// Repository defines the read surface the billing core needs for deliveries.
type Repository interface {
	GetByID(ctx context.Context, deliveryID id.ID) (*DeliveredTransaction, error)

	// ListUnbilled returns delivered transactions in [from, to] for a
	// customer that no live invoice line item references.
	ListUnbilled(ctx context.Context, customerID id.ID, from, to time.Time) ([]DeliveredTransaction, error)

	// ListByIDs returns deliveries for the given ids, used by the
	// line-by-line outstanding fallback.
	ListByIDs(ctx context.Context, ids []id.ID) ([]DeliveredTransaction, error)
}
