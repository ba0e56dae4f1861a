package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"dairyledger/internal/core/apperror"
	"dairyledger/internal/core/id"
	"dairyledger/internal/domain/sale"
	"dairyledger/internal/infrastructure/storage/postgres"
)

const salesTable = "credit_sales"

// Compile-time check.
var _ sale.Repository = (*SaleRepo)(nil)

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	txm        *postgres.TxManager
	selectCols []string
}

// NewSaleRepo creates a new credit sale repository.
func NewSaleRepo(txm *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		txm:        txm,
		selectCols: postgres.ExtractDBColumns[sale.CreditSale](),
	}
}

func (r *SaleRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *SaleRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().Select(r.selectCols...).From(salesTable)
}

func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.CreditSale, error) {
	q := r.baseSelect().Where(squirrel.Eq{"id": saleID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var s sale.CreditSale
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("credit sale", saleID.String())
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}

	return &s, nil
}

func (r *SaleRepo) ListPending(ctx context.Context, customerID id.ID, from, to time.Time) ([]sale.CreditSale, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"customer_id": customerID}).
		Where(squirrel.Eq{"payment_status": sale.StatusPending}).
		Where(squirrel.GtOrEq{"date": from}).
		Where(squirrel.LtOrEq{"date": to}).
		OrderBy("date")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []sale.CreditSale
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list pending sales: %w", err)
	}

	return items, nil
}

func (r *SaleRepo) ListByIDs(ctx context.Context, ids []id.ID) ([]sale.CreditSale, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := r.baseSelect().Where(squirrel.Eq{"id": ids}).OrderBy("date")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []sale.CreditSale
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list sales by ids: %w", err)
	}

	return items, nil
}

// MarkBilled flips Pending sales to Billed. The status guard in the WHERE
// clause plus the RowsAffected check means a sale that is already Billed (or
// missing) fails the whole statement, so double billing cannot commit.
func (r *SaleRepo) MarkBilled(ctx context.Context, saleIDs []id.ID) error {
	return r.setStatus(ctx, saleIDs, sale.StatusPending, sale.StatusBilled)
}

// MarkPending reverts Billed sales to Pending during invoice deletion.
func (r *SaleRepo) MarkPending(ctx context.Context, saleIDs []id.ID) error {
	return r.setStatus(ctx, saleIDs, sale.StatusBilled, sale.StatusPending)
}

func (r *SaleRepo) setStatus(ctx context.Context, saleIDs []id.ID, from, to sale.PaymentStatus) error {
	if len(saleIDs) == 0 {
		return nil
	}

	q := r.builder().
		Update(salesTable).
		Set("payment_status", to).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": saleIDs}).
		Where(squirrel.Eq{"payment_status": from})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update sale status: %w", err)
	}

	if int(result.RowsAffected()) != len(saleIDs) {
		return apperror.NewConflict(
			fmt.Sprintf("expected %d sales in status %s, found %d",
				len(saleIDs), from, result.RowsAffected()))
	}

	return nil
}
