package outstanding

import (
	"context"
	"fmt"

	"dairyledger/internal/core/id"
	"dairyledger/internal/core/types"
	"dairyledger/internal/domain/customer"
	"dairyledger/internal/domain/invoice"
	"dairyledger/pkg/logger"
)

// BreakdownEpsilon is the tolerance when cross-checking that the components
// of a computed total actually sum to it.
const BreakdownEpsilon = "0.01"

// Strategy computes a customer's outstanding record. The same interface
// serves the fast aggregate path and the line-by-line fallback, so there is
// exactly one shape of recomputation logic to keep correct.
type Strategy interface {
	Compute(ctx context.Context, customerID id.ID) (*Record, error)
}

// PaymentReader is the slice of the payment repository the fallback needs.
type PaymentReader interface {
	SumOpeningAllocationsByCustomer(ctx context.Context, customerID id.ID) (types.Money, error)
	SumUnappliedByCustomer(ctx context.Context, customerID id.ID) (types.Money, error)
}

// Config tunes result validation.
type Config struct {
	// Ceiling above which a result triggers the breakdown cross-check.
	Ceiling types.Money
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{Ceiling: types.MustMoney("100000")}
}

// Service derives outstanding amounts with validation and a fallback path.
// It never propagates a computation failure to reporting callers: on total
// failure it returns a safe zero record instead.
type Service struct {
	primary  Strategy
	fallback Strategy
	cfg      Config
	epsilon  types.Money
}

// NewService creates an outstanding calculator from explicit strategies.
func NewService(primary, fallback Strategy, cfg Config) *Service {
	return &Service{
		primary:  primary,
		fallback: fallback,
		cfg:      cfg,
		epsilon:  types.MustMoney(BreakdownEpsilon),
	}
}

// NewDefaultService wires the aggregate primary and line-by-line fallback
// over the given repositories.
func NewDefaultService(
	repo Repository,
	customerRepo customer.Repository,
	invoiceRepo invoice.Repository,
	payments PaymentReader,
	cfg Config,
) *Service {
	return NewService(
		&AggregateStrategy{repo: repo},
		&LineByLineStrategy{
			customerRepo: customerRepo,
			invoiceRepo:  invoiceRepo,
			payments:     payments,
		},
		cfg,
	)
}

// Calculate derives one customer's outstanding position.
//
// Primary path is a single aggregate query. The result is validated:
// negatives are clamped to zero with a warning; results above the ceiling
// must pass a breakdown cross-check (components sum to the total within
// epsilon). On validation mismatch or primary-path error the line-by-line
// fallback recomputes, and if that also fails the caller gets a safe zero
// record rather than an error, because reporting must stay available.
func (s *Service) Calculate(ctx context.Context, customerID id.ID) *Record {
	rec, err := s.primary.Compute(ctx, customerID)
	if err != nil {
		logger.Warn(ctx, "outstanding aggregate path failed, using fallback",
			"customer_id", customerID, "error", err)
		return s.computeFallback(ctx, customerID)
	}

	if rec.TotalOutstanding.IsNegative() {
		logger.Warn(ctx, "negative outstanding clamped to zero",
			"customer_id", customerID,
			"computed", rec.TotalOutstanding)
		rec.TotalOutstanding = types.ZeroMoney()
		rec.NetOutstanding = types.ZeroMoney()
		return rec
	}

	if rec.TotalOutstanding.GreaterThan(s.cfg.Ceiling) {
		if err := s.checkBreakdown(rec); err != nil {
			logger.Error(ctx, "outstanding breakdown mismatch, using fallback",
				"customer_id", customerID, "error", err)
			return s.computeFallback(ctx, customerID)
		}
	}

	return rec
}

// CalculateNet returns the net outstanding: total minus unapplied credit,
// floored at zero.
func (s *Service) CalculateNet(ctx context.Context, customerID id.ID) types.Money {
	return s.Calculate(ctx, customerID).NetOutstanding
}

// CalculateAll computes the record for every customer in the population and
// then applies the query's selection predicate. All selection modes share
// this one calculation path.
func (s *Service) CalculateAll(ctx context.Context, query Query) ([]Record, error) {
	aggregates, err := s.aggregateAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregate population: %w", err)
	}

	records := make([]Record, 0, len(aggregates))
	for _, agg := range aggregates {
		rec := buildRecord(agg)

		if rec.TotalOutstanding.IsNegative() {
			logger.Warn(ctx, "negative outstanding clamped to zero",
				"customer_id", rec.CustomerID,
				"computed", rec.TotalOutstanding)
			rec.TotalOutstanding = types.ZeroMoney()
			rec.NetOutstanding = types.ZeroMoney()
		} else if rec.TotalOutstanding.GreaterThan(s.cfg.Ceiling) {
			if err := s.checkBreakdown(rec); err != nil {
				logger.Error(ctx, "outstanding breakdown mismatch in bulk, using fallback",
					"customer_id", rec.CustomerID, "error", err)
				rec = s.computeFallback(ctx, rec.CustomerID)
			}
		}

		if query.Matches(rec) {
			records = append(records, *rec)
		}
	}

	return records, nil
}

// aggregateAll reaches through the primary strategy's read view when it is
// the aggregate one; otherwise computes per customer.
func (s *Service) aggregateAll(ctx context.Context) ([]Aggregate, error) {
	if agg, ok := s.primary.(*AggregateStrategy); ok {
		return agg.repo.AggregateAll(ctx)
	}
	return nil, fmt.Errorf("primary strategy does not support population queries")
}

func (s *Service) computeFallback(ctx context.Context, customerID id.ID) *Record {
	rec, err := s.fallback.Compute(ctx, customerID)
	if err != nil {
		logger.Error(ctx, "outstanding fallback failed, returning safe default",
			"customer_id", customerID, "error", err)
		return &Record{
			CustomerID:              customerID,
			OpeningBalance:          types.ZeroMoney(),
			OpeningOffset:           types.ZeroMoney(),
			EffectiveOpeningBalance: types.ZeroMoney(),
			InvoiceOutstanding:      types.ZeroMoney(),
			SubscriptionDues:        types.ZeroMoney(),
			TotalOutstanding:        types.ZeroMoney(),
			UnappliedCredit:         types.ZeroMoney(),
			NetOutstanding:          types.ZeroMoney(),
			Source:                  "safe-default",
		}
	}
	if rec.TotalOutstanding.IsNegative() {
		rec.TotalOutstanding = types.ZeroMoney()
		rec.NetOutstanding = types.ZeroMoney()
	}
	return rec
}

// checkBreakdown verifies that the components sum to the reported total
// within epsilon.
func (s *Service) checkBreakdown(rec *Record) error {
	sum := rec.EffectiveOpeningBalance.Add(rec.InvoiceOutstanding)
	diff := sum.Sub(rec.TotalOutstanding).Abs()
	if diff.GreaterThan(s.epsilon) {
		return fmt.Errorf("components %s do not sum to total %s (diff %s)",
			sum, rec.TotalOutstanding, diff)
	}
	return nil
}

// buildRecord derives the full record from a raw aggregate. This is the
// single place the arithmetic lives; both strategies funnel through it.
func buildRecord(agg Aggregate) *Record {
	effective := agg.OpeningBalance.Sub(agg.OpeningOffset)
	total := effective.Add(agg.InvoiceOutstanding)
	net := types.ClampNonNegative(total.Sub(agg.UnappliedCredit))

	return &Record{
		CustomerID:              agg.CustomerID,
		CustomerName:            agg.CustomerName,
		OpeningBalance:          agg.OpeningBalance,
		OpeningOffset:           agg.OpeningOffset,
		EffectiveOpeningBalance: effective,
		InvoiceOutstanding:      agg.InvoiceOutstanding,
		SubscriptionDues:        agg.SubscriptionDues,
		TotalOutstanding:        total,
		UnappliedCredit:         agg.UnappliedCredit,
		NetOutstanding:          net,
		Source:                  "aggregate",
	}
}

// AggregateStrategy computes via the single-query read view.
type AggregateStrategy struct {
	repo Repository
}

// NewAggregateStrategy wraps a read-view repository.
func NewAggregateStrategy(repo Repository) *AggregateStrategy {
	return &AggregateStrategy{repo: repo}
}

// Compute implements Strategy.
func (s *AggregateStrategy) Compute(ctx context.Context, customerID id.ID) (*Record, error) {
	agg, err := s.repo.Aggregate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return buildRecord(*agg), nil
}

// LineByLineStrategy recomputes from individual rows: the customer's
// opening balance, each unpaid invoice and each payment. Slower but
// independent of the read views, which makes it the audit/fallback path.
type LineByLineStrategy struct {
	customerRepo customer.Repository
	invoiceRepo  invoice.Repository
	payments     PaymentReader
}

// NewLineByLineStrategy builds the fallback strategy.
func NewLineByLineStrategy(
	customerRepo customer.Repository,
	invoiceRepo invoice.Repository,
	payments PaymentReader,
) *LineByLineStrategy {
	return &LineByLineStrategy{
		customerRepo: customerRepo,
		invoiceRepo:  invoiceRepo,
		payments:     payments,
	}
}

// Compute implements Strategy.
func (s *LineByLineStrategy) Compute(ctx context.Context, customerID id.ID) (*Record, error) {
	cust, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	openingOffset, err := s.payments.SumOpeningAllocationsByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("sum opening allocations: %w", err)
	}

	unpaid, err := s.invoiceRepo.ListUnpaid(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list unpaid invoices: %w", err)
	}
	invoiceOutstanding := types.ZeroMoney()
	for _, inv := range unpaid {
		// Re-derive rather than trust the stored column: this path doubles
		// as the audit check.
		invoiceOutstanding = invoiceOutstanding.Add(
			types.ClampNonNegative(inv.GrandTotal.Sub(inv.AmountPaid)))
	}

	unapplied, err := s.payments.SumUnappliedByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("sum unapplied credit: %w", err)
	}

	rec := buildRecord(Aggregate{
		CustomerID:         customerID,
		CustomerName:       cust.Name,
		OpeningBalance:     cust.OpeningBalance,
		OpeningOffset:      openingOffset,
		InvoiceOutstanding: invoiceOutstanding,
		UnappliedCredit:    unapplied,
	})
	rec.Source = "fallback"
	return rec, nil
}
