package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"dairyledger/internal/core/id"
	"dairyledger/internal/core/types"
	"dairyledger/internal/domain"
	"dairyledger/internal/domain/payment"
	"dairyledger/internal/infrastructure/storage/postgres"
)

const (
	paymentsTable           = "doc_payments"
	invoiceAllocationsTable = "payment_invoice_allocations"
	openingAllocationsTable = "payment_opening_allocations"
)

// Compile-time check.
var _ payment.Repository = (*PaymentRepo)(nil)

// PaymentRepo implements payment.Repository.
type PaymentRepo struct {
	*BaseDocumentRepo[*payment.Payment]
}

// NewPaymentRepo creates a new payment repository.
func NewPaymentRepo(txm *postgres.TxManager) *PaymentRepo {
	return &PaymentRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*payment.Payment](
			txm,
			paymentsTable,
			postgres.ExtractDBColumns[payment.Payment](),
			func() *payment.Payment { return &payment.Payment{} },
		),
	}
}

func (r *PaymentRepo) InsertInvoiceAllocation(ctx context.Context, alloc payment.InvoiceAllocation) error {
	q := r.Builder().
		Insert(invoiceAllocationsTable).
		Columns("id", "payment_id", "invoice_id", "amount", "allocation_date").
		Values(alloc.ID, alloc.PaymentID, alloc.InvoiceID, alloc.Amount, alloc.AllocationDate)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert invoice allocation: %w", err)
	}
	return nil
}

func (r *PaymentRepo) InsertOpeningAllocation(ctx context.Context, alloc payment.OpeningBalanceAllocation) error {
	q := r.Builder().
		Insert(openingAllocationsTable).
		Columns("id", "payment_id", "customer_id", "amount", "allocation_date").
		Values(alloc.ID, alloc.PaymentID, alloc.CustomerID, alloc.Amount, alloc.AllocationDate)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert opening allocation: %w", err)
	}
	return nil
}

func (r *PaymentRepo) ListInvoiceAllocations(ctx context.Context, paymentID id.ID) ([]payment.InvoiceAllocation, error) {
	q := r.Builder().
		Select("id", "payment_id", "invoice_id", "amount", "allocation_date").
		From(invoiceAllocationsTable).
		Where(squirrel.Eq{"payment_id": paymentID}).
		OrderBy("allocation_date")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var allocs []payment.InvoiceAllocation
	if err := pgxscan.Select(ctx, r.Querier(ctx), &allocs, sql, args...); err != nil {
		return nil, fmt.Errorf("list invoice allocations: %w", err)
	}
	return allocs, nil
}

func (r *PaymentRepo) ListOpeningAllocations(ctx context.Context, paymentID id.ID) ([]payment.OpeningBalanceAllocation, error) {
	q := r.Builder().
		Select("id", "payment_id", "customer_id", "amount", "allocation_date").
		From(openingAllocationsTable).
		Where(squirrel.Eq{"payment_id": paymentID}).
		OrderBy("allocation_date")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var allocs []payment.OpeningBalanceAllocation
	if err := pgxscan.Select(ctx, r.Querier(ctx), &allocs, sql, args...); err != nil {
		return nil, fmt.Errorf("list opening allocations: %w", err)
	}
	return allocs, nil
}

// SumAllocations returns the combined invoice + opening-balance allocation
// total for a payment. COALESCE keeps the no-rows case at zero.
func (r *PaymentRepo) SumAllocations(ctx context.Context, paymentID id.ID) (types.Money, error) {
	sql := `
		SELECT COALESCE((SELECT SUM(amount) FROM ` + invoiceAllocationsTable + ` WHERE payment_id = $1), 0)
		     + COALESCE((SELECT SUM(amount) FROM ` + openingAllocationsTable + ` WHERE payment_id = $1), 0)`

	var total types.Money
	if err := r.Querier(ctx).QueryRow(ctx, sql, paymentID).Scan(&total); err != nil {
		return types.ZeroMoney(), fmt.Errorf("sum allocations: %w", err)
	}
	return total, nil
}

func (r *PaymentRepo) SumOpeningAllocationsByCustomer(ctx context.Context, customerID id.ID) (types.Money, error) {
	sql := "SELECT COALESCE(SUM(amount), 0) FROM " + openingAllocationsTable + " WHERE customer_id = $1"

	var total types.Money
	if err := r.Querier(ctx).QueryRow(ctx, sql, customerID).Scan(&total); err != nil {
		return types.ZeroMoney(), fmt.Errorf("sum opening allocations: %w", err)
	}
	return total, nil
}

func (r *PaymentRepo) SumUnappliedByCustomer(ctx context.Context, customerID id.ID) (types.Money, error) {
	sql := "SELECT COALESCE(SUM(amount_unapplied), 0) FROM " + paymentsTable + " WHERE customer_id = $1"

	var total types.Money
	if err := r.Querier(ctx).QueryRow(ctx, sql, customerID).Scan(&total); err != nil {
		return types.ZeroMoney(), fmt.Errorf("sum unapplied: %w", err)
	}
	return total, nil
}

// DeleteInvoiceAllocations removes a payment's invoice allocations and
// returns the deleted rows so the caller can compensate affected invoices.
func (r *PaymentRepo) DeleteInvoiceAllocations(ctx context.Context, paymentID id.ID) ([]payment.InvoiceAllocation, error) {
	sql := `DELETE FROM ` + invoiceAllocationsTable + `
		WHERE payment_id = $1
		RETURNING id, payment_id, invoice_id, amount, allocation_date`

	var allocs []payment.InvoiceAllocation
	if err := pgxscan.Select(ctx, r.Querier(ctx), &allocs, sql, paymentID); err != nil {
		return nil, fmt.Errorf("delete invoice allocations: %w", err)
	}
	return allocs, nil
}

// DeleteOpeningAllocations removes a payment's opening-balance allocations
// and returns the deleted rows.
func (r *PaymentRepo) DeleteOpeningAllocations(ctx context.Context, paymentID id.ID) ([]payment.OpeningBalanceAllocation, error) {
	sql := `DELETE FROM ` + openingAllocationsTable + `
		WHERE payment_id = $1
		RETURNING id, payment_id, customer_id, amount, allocation_date`

	var allocs []payment.OpeningBalanceAllocation
	if err := pgxscan.Select(ctx, r.Querier(ctx), &allocs, sql, paymentID); err != nil {
		return nil, fmt.Errorf("delete opening allocations: %w", err)
	}
	return allocs, nil
}

func (r *PaymentRepo) List(ctx context.Context, filter payment.ListFilter) (domain.ListResult[*payment.Payment], error) {
	q := r.BaseSelect()

	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"allocation_status": *filter.Status})
	}

	return r.ListWith(ctx, q, filter.ListFilter)
}
