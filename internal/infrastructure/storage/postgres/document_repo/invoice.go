package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"dairyledger/internal/core/id"
	"dairyledger/internal/domain"
	"dairyledger/internal/domain/invoice"
	"dairyledger/internal/infrastructure/storage/postgres"
)

const (
	invoicesTable     = "doc_invoices"
	invoiceLinesTable = "doc_invoice_lines"
)

// Compile-time check.
var _ invoice.Repository = (*InvoiceRepo)(nil)

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct {
	*BaseDocumentRepo[*invoice.Invoice]
}

// NewInvoiceRepo creates a new invoice repository.
func NewInvoiceRepo(txm *postgres.TxManager) *InvoiceRepo {
	return &InvoiceRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*invoice.Invoice](
			txm,
			invoicesTable,
			postgres.ExtractDBColumns[invoice.Invoice](),
			func() *invoice.Invoice { return &invoice.Invoice{} },
		),
	}
}

func (r *InvoiceRepo) GetLines(ctx context.Context, invoiceID id.ID) ([]invoice.LineItem, error) {
	q := r.Builder().
		Select(
			"line_id", "line_no", "delivery_id", "sale_id",
			"product", "quantity", "unit_price", "line_total", "gst",
		).
		From(invoiceLinesTable).
		Where(squirrel.Eq{"invoice_id": invoiceID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []invoice.LineItem
	if err := pgxscan.Select(ctx, r.Querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return lines, nil
}

func (r *InvoiceRepo) SaveLines(ctx context.Context, invoiceID id.ID, lines []invoice.LineItem) error {
	querier := r.Querier(ctx)

	deleteSQL := "DELETE FROM " + invoiceLinesTable + " WHERE invoice_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, invoiceID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(invoiceLinesTable).
		Columns(
			"line_id", "invoice_id", "line_no", "delivery_id", "sale_id",
			"product", "quantity", "unit_price", "line_total", "gst",
		)

	for _, line := range lines {
		q = q.Values(
			line.LineID, invoiceID, line.LineNo, line.DeliveryID, line.SaleID,
			line.Product, line.Quantity, line.UnitPrice, line.LineTotal, line.GST,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}

	return nil
}

func (r *InvoiceRepo) DeleteLines(ctx context.Context, invoiceID id.ID) error {
	deleteSQL := "DELETE FROM " + invoiceLinesTable + " WHERE invoice_id = $1"
	if _, err := r.Querier(ctx).Exec(ctx, deleteSQL, invoiceID); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}
	return nil
}

// FindOverlapping returns the first invoice of this customer whose period
// overlaps the given range, or nil when none exists. Two ranges overlap when
// each starts before the other ends.
func (r *InvoiceRepo) FindOverlapping(ctx context.Context, customerID id.ID, periodStart, periodEnd time.Time) (*invoice.Invoice, error) {
	q := r.BaseSelect().
		Where(squirrel.Eq{"customer_id": customerID}).
		Where(squirrel.LtOrEq{"period_start": periodEnd}).
		Where(squirrel.GtOrEq{"period_end": periodStart}).
		OrderBy("period_start").
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var inv invoice.Invoice
	if err := pgxscan.Get(ctx, r.Querier(ctx), &inv, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find overlapping: %w", err)
	}

	return &inv, nil
}

// LockCustomerBilling serializes invoice commits per customer. At
// ReadCommitted two concurrent commits would each see no overlapping invoice
// and both insert; the advisory lock is transaction-scoped, so it releases
// on commit or rollback.
func (r *InvoiceRepo) LockCustomerBilling(ctx context.Context, customerID id.ID) error {
	lockSQL := "SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))"
	if _, err := r.Querier(ctx).Exec(ctx, lockSQL, customerID); err != nil {
		return fmt.Errorf("lock customer billing: %w", err)
	}
	return nil
}

func (r *InvoiceRepo) ListUnpaid(ctx context.Context, customerID id.ID) ([]invoice.Invoice, error) {
	q := r.BaseSelect().
		Where(squirrel.Eq{"customer_id": customerID}).
		Where(squirrel.Gt{"amount_outstanding": 0}).
		OrderBy("date")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var invoices []invoice.Invoice
	if err := pgxscan.Select(ctx, r.Querier(ctx), &invoices, sql, args...); err != nil {
		return nil, fmt.Errorf("list unpaid: %w", err)
	}

	return invoices, nil
}

func (r *InvoiceRepo) List(ctx context.Context, filter invoice.ListFilter) (domain.ListResult[*invoice.Invoice], error) {
	q := r.BaseSelect()

	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}

	return r.ListWith(ctx, q, filter.ListFilter)
}
