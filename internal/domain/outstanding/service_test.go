package outstanding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dairyledger/internal/core/id"
	"dairyledger/internal/core/types"
)

// --- fakes ---

type fakeRepo struct {
	aggregates map[id.ID]Aggregate
	err        error
}

func (f *fakeRepo) Aggregate(ctx context.Context, customerID id.ID) (*Aggregate, error) {
	if f.err != nil {
		return nil, f.err
	}
	agg, ok := f.aggregates[customerID]
	if !ok {
		return nil, errors.New("no such customer")
	}
	return &agg, nil
}

func (f *fakeRepo) AggregateAll(ctx context.Context) ([]Aggregate, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []Aggregate
	for _, agg := range f.aggregates {
		out = append(out, agg)
	}
	return out, nil
}

// fakeStrategy returns a canned record or error.
type fakeStrategy struct {
	rec *Record
	err error
}

func (f *fakeStrategy) Compute(ctx context.Context, customerID id.ID) (*Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.rec
	cp.CustomerID = customerID
	return &cp, nil
}

func agg(customerID id.ID, name, opening, offset, invoiceDue, credit string) Aggregate {
	return Aggregate{
		CustomerID:         customerID,
		CustomerName:       name,
		OpeningBalance:     types.MustMoney(opening),
		OpeningOffset:      types.MustMoney(offset),
		InvoiceOutstanding: types.MustMoney(invoiceDue),
		UnappliedCredit:    types.MustMoney(credit),
		SubscriptionDues:   types.ZeroMoney(),
	}
}

func newAggregateService(repo *fakeRepo, fallback Strategy) *Service {
	return NewService(NewAggregateStrategy(repo), fallback, DefaultConfig())
}

// --- tests ---

func TestCalculate_AggregatePath(t *testing.T) {
	customerID := id.New()
	repo := &fakeRepo{aggregates: map[id.ID]Aggregate{
		// Opening 1000, 400 already offset, 800 of unpaid invoices, 50 credit.
		customerID: agg(customerID, "Asha Dairy Stop", "1000", "400", "800", "50"),
	}}
	svc := newAggregateService(repo, &fakeStrategy{err: errors.New("must not be called")})

	rec := svc.Calculate(context.Background(), customerID)

	assert.Equal(t, "aggregate", rec.Source)
	assert.True(t, rec.EffectiveOpeningBalance.Equal(types.MustMoney("600")))
	assert.True(t, rec.TotalOutstanding.Equal(types.MustMoney("1400")))
	assert.True(t, rec.NetOutstanding.Equal(types.MustMoney("1350")))
}

func TestCalculate_NegativeClampedToZero(t *testing.T) {
	customerID := id.New()
	repo := &fakeRepo{aggregates: map[id.ID]Aggregate{
		// Offset exceeds opening, no invoices: total would be -200.
		customerID: agg(customerID, "Over Offset", "100", "300", "0", "0"),
	}}
	svc := newAggregateService(repo, &fakeStrategy{err: errors.New("must not be called")})

	rec := svc.Calculate(context.Background(), customerID)

	assert.True(t, rec.TotalOutstanding.IsZero())
	assert.True(t, rec.NetOutstanding.IsZero())
	// Components keep their real values for inspection.
	assert.True(t, rec.EffectiveOpeningBalance.Equal(types.MustMoney("-200")))
}

func TestCalculate_NetFloorsAtZero(t *testing.T) {
	customerID := id.New()
	repo := &fakeRepo{aggregates: map[id.ID]Aggregate{
		// Credit exceeds what is owed.
		customerID: agg(customerID, "In Credit", "0", "0", "100", "500"),
	}}
	svc := newAggregateService(repo, &fakeStrategy{err: errors.New("must not be called")})

	rec := svc.Calculate(context.Background(), customerID)

	assert.True(t, rec.TotalOutstanding.Equal(types.MustMoney("100")))
	assert.True(t, rec.NetOutstanding.IsZero())
	assert.True(t, rec.UnappliedCredit.Equal(types.MustMoney("500")))
}

func TestCalculate_PrimaryErrorUsesFallback(t *testing.T) {
	customerID := id.New()
	fallbackRec := &Record{
		TotalOutstanding: types.MustMoney("250"),
		NetOutstanding:   types.MustMoney("250"),
		Source:           "fallback",
	}
	svc := NewService(
		&fakeStrategy{err: errors.New("view unavailable")},
		&fakeStrategy{rec: fallbackRec},
		DefaultConfig(),
	)

	rec := svc.Calculate(context.Background(), customerID)

	assert.Equal(t, "fallback", rec.Source)
	assert.True(t, rec.TotalOutstanding.Equal(types.MustMoney("250")))
}

func TestCalculate_BreakdownMismatchUsesFallback(t *testing.T) {
	customerID := id.New()
	// Above the ceiling and internally inconsistent: components sum to
	// 150000 but the total claims 200000.
	badRec := &Record{
		EffectiveOpeningBalance: types.MustMoney("50000"),
		InvoiceOutstanding:      types.MustMoney("100000"),
		TotalOutstanding:        types.MustMoney("200000"),
		Source:                  "aggregate",
	}
	fallbackRec := &Record{
		TotalOutstanding: types.MustMoney("150000"),
		NetOutstanding:   types.MustMoney("150000"),
		Source:           "fallback",
	}
	svc := NewService(
		&fakeStrategy{rec: badRec},
		&fakeStrategy{rec: fallbackRec},
		DefaultConfig(),
	)

	rec := svc.Calculate(context.Background(), customerID)

	assert.Equal(t, "fallback", rec.Source)
	assert.True(t, rec.TotalOutstanding.Equal(types.MustMoney("150000")))
}

func TestCalculate_ConsistentLargeResultPasses(t *testing.T) {
	customerID := id.New()
	// Above the ceiling but the components sum exactly.
	bigRec := &Record{
		EffectiveOpeningBalance: types.MustMoney("100000"),
		InvoiceOutstanding:      types.MustMoney("50000"),
		TotalOutstanding:        types.MustMoney("150000"),
		NetOutstanding:          types.MustMoney("150000"),
		Source:                  "aggregate",
	}
	svc := NewService(
		&fakeStrategy{rec: bigRec},
		&fakeStrategy{err: errors.New("must not be called")},
		DefaultConfig(),
	)

	rec := svc.Calculate(context.Background(), customerID)

	assert.Equal(t, "aggregate", rec.Source)
	assert.True(t, rec.TotalOutstanding.Equal(types.MustMoney("150000")))
}

func TestCalculate_BothPathsFailReturnsSafeDefault(t *testing.T) {
	customerID := id.New()
	svc := NewService(
		&fakeStrategy{err: errors.New("view unavailable")},
		&fakeStrategy{err: errors.New("rows unavailable")},
		DefaultConfig(),
	)

	rec := svc.Calculate(context.Background(), customerID)

	assert.Equal(t, "safe-default", rec.Source)
	assert.Equal(t, customerID, rec.CustomerID)
	assert.True(t, rec.TotalOutstanding.IsZero())
	assert.True(t, rec.NetOutstanding.IsZero())
	assert.True(t, rec.UnappliedCredit.IsZero())
}

func TestCalculateNet(t *testing.T) {
	customerID := id.New()
	repo := &fakeRepo{aggregates: map[id.ID]Aggregate{
		customerID: agg(customerID, "Net Check", "500", "0", "300", "100"),
	}}
	svc := newAggregateService(repo, &fakeStrategy{err: errors.New("must not be called")})

	net := svc.CalculateNet(context.Background(), customerID)

	assert.True(t, net.Equal(types.MustMoney("700")))
}

func TestCalculateAll_Selections(t *testing.T) {
	owing := id.New()
	inCredit := id.New()
	settled := id.New()

	repo := &fakeRepo{aggregates: map[id.ID]Aggregate{
		owing:    agg(owing, "Owing", "1000", "0", "500", "0"),
		inCredit: agg(inCredit, "In Credit", "0", "0", "0", "250"),
		settled:  agg(settled, "Settled", "0", "0", "0", "0"),
	}}
	svc := newAggregateService(repo, &fakeStrategy{err: errors.New("must not be called")})

	all, err := svc.CalculateAll(context.Background(), Query{Selection: SelectAll})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	hasOutstanding, err := svc.CalculateAll(context.Background(), Query{Selection: SelectHasOutstanding})
	require.NoError(t, err)
	require.Len(t, hasOutstanding, 1)
	assert.Equal(t, owing, hasOutstanding[0].CustomerID)

	hasCredit, err := svc.CalculateAll(context.Background(), Query{Selection: SelectHasCredit})
	require.NoError(t, err)
	require.Len(t, hasCredit, 1)
	assert.Equal(t, inCredit, hasCredit[0].CustomerID)

	byIDs, err := svc.CalculateAll(context.Background(), Query{
		Selection:   SelectByIDs,
		CustomerIDs: []id.ID{settled, owing},
	})
	require.NoError(t, err)
	assert.Len(t, byIDs, 2)
}

func TestCalculateAll_RequiresAggregatePrimary(t *testing.T) {
	svc := NewService(
		&fakeStrategy{rec: &Record{}},
		&fakeStrategy{rec: &Record{}},
		DefaultConfig(),
	)

	_, err := svc.CalculateAll(context.Background(), Query{Selection: SelectAll})
	assert.Error(t, err)
}

// The identity every path must preserve: after paying P against invoices
// totalling G, outstanding is max(0, G-P).
func TestOutstandingIdentityAfterPayment(t *testing.T) {
	cases := []struct {
		name       string
		grandTotal string
		paid       string
		want       string
	}{
		{"unpaid", "800", "0", "800"},
		{"partial", "800", "300", "500"},
		{"settled", "800", "800", "0"},
		{"overpaid invoice clamps", "800", "900", "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			customerID := id.New()
			due := types.ClampNonNegative(
				types.MustMoney(tc.grandTotal).Sub(types.MustMoney(tc.paid)))

			repo := &fakeRepo{aggregates: map[id.ID]Aggregate{
				customerID: {
					CustomerID:         customerID,
					OpeningBalance:     types.ZeroMoney(),
					OpeningOffset:      types.ZeroMoney(),
					InvoiceOutstanding: due,
					UnappliedCredit:    types.ZeroMoney(),
					SubscriptionDues:   types.ZeroMoney(),
				},
			}}
			svc := newAggregateService(repo, &fakeStrategy{err: errors.New("must not be called")})

			rec := svc.Calculate(context.Background(), customerID)
			assert.True(t, rec.TotalOutstanding.Equal(types.MustMoney(tc.want)),
				"got %s, want %s", rec.TotalOutstanding, tc.want)
		})
	}
}
