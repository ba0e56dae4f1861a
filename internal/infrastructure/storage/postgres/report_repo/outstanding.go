// Package report_repo provides PostgreSQL implementations for report
// repositories.
package report_repo

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"

	"dairyledger/internal/core/apperror"
	"dairyledger/internal/core/id"
	"dairyledger/internal/domain/outstanding"
	"dairyledger/internal/infrastructure/storage/postgres"
)

// Compile-time check.
var _ outstanding.Repository = (*OutstandingRepo)(nil)

// OutstandingRepo implements outstanding.Repository: the single-query read
// view over customers, invoices and payments. All sums happen server-side;
// nothing here is persisted state.
type OutstandingRepo struct {
	txm *postgres.TxManager
}

// NewOutstandingRepo creates a new outstanding read-view repository.
func NewOutstandingRepo(txm *postgres.TxManager) *OutstandingRepo {
	return &OutstandingRepo{txm: txm}
}

const aggregateQuery = `
	WITH opening_offsets AS (
		SELECT customer_id, SUM(amount) AS total
		FROM payment_opening_allocations
		GROUP BY customer_id
	),
	invoice_dues AS (
		SELECT customer_id, SUM(amount_outstanding) AS total
		FROM doc_invoices
		WHERE amount_outstanding > 0
		GROUP BY customer_id
	),
	credits AS (
		SELECT customer_id, SUM(amount_unapplied) AS total
		FROM doc_payments
		WHERE amount_unapplied > 0
		GROUP BY customer_id
	)
	SELECT
		c.id                         AS customer_id,
		c.name                       AS customer_name,
		c.opening_balance            AS opening_balance,
		COALESCE(oo.total, 0)        AS opening_offset,
		COALESCE(iv.total, 0)        AS invoice_outstanding,
		COALESCE(cr.total, 0)        AS unapplied_credit,
		0                            AS subscription_dues
	FROM cat_customers c
	LEFT JOIN opening_offsets oo ON oo.customer_id = c.id
	LEFT JOIN invoice_dues   iv ON iv.customer_id = c.id
	LEFT JOIN credits        cr ON cr.customer_id = c.id`

// Aggregate computes the read view for one customer.
func (r *OutstandingRepo) Aggregate(ctx context.Context, customerID id.ID) (*outstanding.Aggregate, error) {
	query := aggregateQuery + " WHERE c.id = $1"

	var agg outstanding.Aggregate
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &agg, query, customerID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("customer", customerID.String())
		}
		return nil, fmt.Errorf("aggregate outstanding: %w", err)
	}

	return &agg, nil
}

// AggregateAll computes the read view for the whole customer population.
func (r *OutstandingRepo) AggregateAll(ctx context.Context) ([]outstanding.Aggregate, error) {
	query := aggregateQuery + " ORDER BY c.name"

	var aggs []outstanding.Aggregate
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &aggs, query); err != nil {
		return nil, fmt.Errorf("aggregate all outstanding: %w", err)
	}

	return aggs, nil
}
