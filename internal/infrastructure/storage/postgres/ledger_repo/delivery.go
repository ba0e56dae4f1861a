// Package ledger_repo provides PostgreSQL implementations for the source
// transaction repositories billing draws from: deliveries and credit sales.
package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"dairyledger/internal/core/apperror"
	"dairyledger/internal/core/id"
	"dairyledger/internal/domain/delivery"
	"dairyledger/internal/infrastructure/storage/postgres"
)

const deliveriesTable = "delivered_transactions"

// Compile-time check.
var _ delivery.Repository = (*DeliveryRepo)(nil)

// DeliveryRepo implements delivery.Repository.
type DeliveryRepo struct {
	txm        *postgres.TxManager
	selectCols []string
}

// NewDeliveryRepo creates a new delivery repository.
func NewDeliveryRepo(txm *postgres.TxManager) *DeliveryRepo {
	return &DeliveryRepo{
		txm:        txm,
		selectCols: postgres.ExtractDBColumns[delivery.DeliveredTransaction](),
	}
}

func (r *DeliveryRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *DeliveryRepo) baseSelect() squirrel.SelectBuilder {
	cols := make([]string, len(r.selectCols))
	for i, c := range r.selectCols {
		cols[i] = "d." + c
	}
	return r.builder().Select(cols...).From(deliveriesTable + " d")
}

func (r *DeliveryRepo) GetByID(ctx context.Context, deliveryID id.ID) (*delivery.DeliveredTransaction, error) {
	q := r.baseSelect().Where(squirrel.Eq{"d.id": deliveryID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var d delivery.DeliveredTransaction
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &d, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("delivery", deliveryID.String())
		}
		return nil, fmt.Errorf("get delivery: %w", err)
	}

	return &d, nil
}

// ListUnbilled returns delivered transactions in [from, to] for a customer
// that no live invoice line item references. Billed-ness is the existence of
// a line item row, nothing else, so an anti-join is the whole check.
func (r *DeliveryRepo) ListUnbilled(ctx context.Context, customerID id.ID, from, to time.Time) ([]delivery.DeliveredTransaction, error) {
	q := r.baseSelect().
		LeftJoin("doc_invoice_lines l ON l.delivery_id = d.id").
		Where(squirrel.Eq{"d.customer_id": customerID}).
		Where(squirrel.Eq{"d.delivered": true}).
		Where(squirrel.GtOrEq{"d.date": from}).
		Where(squirrel.LtOrEq{"d.date": to}).
		Where("l.line_id IS NULL").
		OrderBy("d.date", "d.product")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []delivery.DeliveredTransaction
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list unbilled deliveries: %w", err)
	}

	return items, nil
}

func (r *DeliveryRepo) ListByIDs(ctx context.Context, ids []id.ID) ([]delivery.DeliveredTransaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := r.baseSelect().Where(squirrel.Eq{"d.id": ids}).OrderBy("d.date")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []delivery.DeliveredTransaction
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list deliveries by ids: %w", err)
	}

	return items, nil
}
