package invoice

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dairyledger/internal/core/apperror"
	"dairyledger/internal/core/entity"
	"dairyledger/internal/core/id"
	"dairyledger/internal/core/types"
	"dairyledger/internal/domain"
	"dairyledger/internal/domain/customer"
	"dairyledger/internal/domain/delivery"
	"dairyledger/internal/domain/sale"
	"dairyledger/pkg/numerator"
)

// --- fakes ---

type fakeTxManager struct{}

func (f *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeSequencer struct{ n int }

func (f *fakeSequencer) Next(ctx context.Context, cfg numerator.Config, period time.Time) (string, error) {
	f.n++
	return fmt.Sprintf("%s-2026-%05d", cfg.Prefix, f.n), nil
}

type fakeCustomerRepo struct {
	customers map[id.ID]*customer.Customer
}

func newFakeCustomerRepo(customers ...*customer.Customer) *fakeCustomerRepo {
	m := make(map[id.ID]*customer.Customer)
	for _, c := range customers {
		m[c.ID] = c
	}
	return &fakeCustomerRepo{customers: m}
}

func (f *fakeCustomerRepo) GetByID(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	c, ok := f.customers[customerID]
	if !ok {
		return nil, apperror.NewNotFound("customer", customerID.String())
	}
	return c, nil
}

func (f *fakeCustomerRepo) Exists(ctx context.Context, customerID id.ID) (bool, error) {
	_, ok := f.customers[customerID]
	return ok, nil
}

func (f *fakeCustomerRepo) List(ctx context.Context, filter customer.ListFilter) (domain.ListResult[*customer.Customer], error) {
	result := domain.ListResult[*customer.Customer]{}
	for _, c := range f.customers {
		result.Items = append(result.Items, c)
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

type fakeDeliveryRepo struct {
	deliveries []delivery.DeliveredTransaction
	billed     map[id.ID]bool
}

func (f *fakeDeliveryRepo) GetByID(ctx context.Context, deliveryID id.ID) (*delivery.DeliveredTransaction, error) {
	for i := range f.deliveries {
		if f.deliveries[i].ID == deliveryID {
			return &f.deliveries[i], nil
		}
	}
	return nil, apperror.NewNotFound("delivery", deliveryID.String())
}

func (f *fakeDeliveryRepo) ListUnbilled(ctx context.Context, customerID id.ID, from, to time.Time) ([]delivery.DeliveredTransaction, error) {
	var out []delivery.DeliveredTransaction
	for _, d := range f.deliveries {
		if d.CustomerID != customerID || f.billed[d.ID] {
			continue
		}
		if d.Date.Before(from) || d.Date.After(to) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeDeliveryRepo) ListByIDs(ctx context.Context, ids []id.ID) ([]delivery.DeliveredTransaction, error) {
	var out []delivery.DeliveredTransaction
	for _, d := range f.deliveries {
		for _, want := range ids {
			if d.ID == want {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

type fakeSaleRepo struct {
	sales map[id.ID]*sale.CreditSale
}

func newFakeSaleRepo(sales ...*sale.CreditSale) *fakeSaleRepo {
	m := make(map[id.ID]*sale.CreditSale)
	for _, s := range sales {
		m[s.ID] = s
	}
	return &fakeSaleRepo{sales: m}
}

func (f *fakeSaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.CreditSale, error) {
	s, ok := f.sales[saleID]
	if !ok {
		return nil, apperror.NewNotFound("credit sale", saleID.String())
	}
	return s, nil
}

func (f *fakeSaleRepo) ListPending(ctx context.Context, customerID id.ID, from, to time.Time) ([]sale.CreditSale, error) {
	var out []sale.CreditSale
	for _, s := range f.sales {
		if s.CustomerID != customerID || s.PaymentStatus != sale.StatusPending {
			continue
		}
		if s.Date.Before(from) || s.Date.After(to) {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeSaleRepo) ListByIDs(ctx context.Context, ids []id.ID) ([]sale.CreditSale, error) {
	var out []sale.CreditSale
	for _, want := range ids {
		if s, ok := f.sales[want]; ok {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSaleRepo) MarkBilled(ctx context.Context, saleIDs []id.ID) error {
	for _, saleID := range saleIDs {
		s, ok := f.sales[saleID]
		if !ok || s.PaymentStatus != sale.StatusPending {
			return apperror.NewConflict("sale not pending")
		}
	}
	for _, saleID := range saleIDs {
		f.sales[saleID].PaymentStatus = sale.StatusBilled
	}
	return nil
}

func (f *fakeSaleRepo) MarkPending(ctx context.Context, saleIDs []id.ID) error {
	for _, saleID := range saleIDs {
		s, ok := f.sales[saleID]
		if !ok || s.PaymentStatus != sale.StatusBilled {
			return apperror.NewConflict("sale not billed")
		}
	}
	for _, saleID := range saleIDs {
		f.sales[saleID].PaymentStatus = sale.StatusPending
	}
	return nil
}

type fakeInvoiceRepo struct {
	invoices map[id.ID]*Invoice
	lines    map[id.ID][]LineItem

	// calls records lock and overlap-check invocations in order.
	calls []string
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		invoices: make(map[id.ID]*Invoice),
		lines:    make(map[id.ID][]LineItem),
	}
}

func (f *fakeInvoiceRepo) Create(ctx context.Context, inv *Invoice) error {
	cp := *inv
	f.invoices[inv.ID] = &cp
	return nil
}

func (f *fakeInvoiceRepo) GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	inv, ok := f.invoices[invoiceID]
	if !ok {
		return nil, apperror.NewNotFound("invoice", invoiceID.String())
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInvoiceRepo) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	for _, inv := range f.invoices {
		if inv.Number == number {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("invoice", number)
}

// Update mirrors the SQL repository's contract: the entity must carry the
// version it was loaded with, and the store does the increment.
func (f *fakeInvoiceRepo) Update(ctx context.Context, inv *Invoice) error {
	stored, ok := f.invoices[inv.ID]
	if !ok {
		return apperror.NewNotFound("invoice", inv.ID.String())
	}
	if stored.Version != inv.Version {
		return apperror.NewConcurrentModification("invoice", inv.ID)
	}
	cp := *inv
	cp.Version++
	f.invoices[inv.ID] = &cp
	return nil
}

func (f *fakeInvoiceRepo) HardDelete(ctx context.Context, invoiceID id.ID) error {
	if _, ok := f.invoices[invoiceID]; !ok {
		return apperror.NewNotFound("invoice", invoiceID.String())
	}
	delete(f.invoices, invoiceID)
	return nil
}

func (f *fakeInvoiceRepo) GetLines(ctx context.Context, invoiceID id.ID) ([]LineItem, error) {
	return f.lines[invoiceID], nil
}

func (f *fakeInvoiceRepo) SaveLines(ctx context.Context, invoiceID id.ID, lines []LineItem) error {
	f.lines[invoiceID] = append([]LineItem(nil), lines...)
	return nil
}

func (f *fakeInvoiceRepo) DeleteLines(ctx context.Context, invoiceID id.ID) error {
	delete(f.lines, invoiceID)
	return nil
}

func (f *fakeInvoiceRepo) FindOverlapping(ctx context.Context, customerID id.ID, periodStart, periodEnd time.Time) (*Invoice, error) {
	f.calls = append(f.calls, "find_overlapping")
	for _, inv := range f.invoices {
		if inv.CustomerID != customerID {
			continue
		}
		if !inv.PeriodStart.After(periodEnd) && !inv.PeriodEnd.Before(periodStart) {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeInvoiceRepo) LockCustomerBilling(ctx context.Context, customerID id.ID) error {
	f.calls = append(f.calls, "lock:"+customerID.String())
	return nil
}

func (f *fakeInvoiceRepo) GetForUpdate(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	return f.GetByID(ctx, invoiceID)
}

func (f *fakeInvoiceRepo) ListUnpaid(ctx context.Context, customerID id.ID) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range f.invoices {
		if inv.CustomerID == customerID && inv.AmountOutstanding.IsPositive() {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeInvoiceRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error) {
	result := domain.ListResult[*Invoice]{}
	for _, inv := range f.invoices {
		if filter.CustomerID != nil && inv.CustomerID != *filter.CustomerID {
			continue
		}
		cp := *inv
		result.Items = append(result.Items, &cp)
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

// --- test fixtures ---

var (
	periodStart = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
)

func newDelivery(customerID id.ID, product string, qty, price, amount string, day int) delivery.DeliveredTransaction {
	return delivery.DeliveredTransaction{
		BaseEntity: entity.NewBaseEntity(),
		CustomerID: customerID,
		Product:    product,
		Quantity:   types.MustQuantity(qty),
		UnitPrice:  types.MustMoney(price),
		Amount:     types.MustMoney(amount),
		Date:       time.Date(2026, 6, day, 8, 0, 0, 0, time.UTC),
		Delivered:  true,
	}
}

func newCreditSale(customerID id.ID, product, amount, gst string, day int) *sale.CreditSale {
	return &sale.CreditSale{
		BaseEntity:    entity.NewBaseEntity(),
		CustomerID:    customerID,
		Product:       product,
		Amount:        types.MustMoney(amount),
		GSTAmount:     types.MustMoney(gst),
		Date:          time.Date(2026, 6, day, 12, 0, 0, 0, time.UTC),
		PaymentStatus: sale.StatusPending,
	}
}

type invoiceTestEnv struct {
	service      *Service
	invoiceRepo  *fakeInvoiceRepo
	saleRepo     *fakeSaleRepo
	deliveryRepo *fakeDeliveryRepo
	customer     *customer.Customer
}

func newInvoiceTestEnv(t *testing.T, deliveries []delivery.DeliveredTransaction, sales []*sale.CreditSale) *invoiceTestEnv {
	t.Helper()

	cust := customer.NewCustomer("Asha Dairy Stop", types.MustMoney("1000"))
	for i := range deliveries {
		deliveries[i].CustomerID = cust.ID
	}
	for _, s := range sales {
		s.CustomerID = cust.ID
	}

	invoiceRepo := newFakeInvoiceRepo()
	deliveryRepo := &fakeDeliveryRepo{deliveries: deliveries, billed: map[id.ID]bool{}}
	saleRepo := newFakeSaleRepo(sales...)

	service := NewService(
		invoiceRepo,
		newFakeCustomerRepo(cust),
		deliveryRepo,
		saleRepo,
		&fakeSequencer{},
		&fakeTxManager{},
	)

	return &invoiceTestEnv{
		service:      service,
		invoiceRepo:  invoiceRepo,
		saleRepo:     saleRepo,
		deliveryRepo: deliveryRepo,
		customer:     cust,
	}
}

// --- tests ---

func TestGenerate_DeliveriesAndSales(t *testing.T) {
	deliveries := []delivery.DeliveredTransaction{
		newDelivery(id.Nil(), "Milk 1L", "10", "50", "500", 5),
	}
	cs := newCreditSale(id.Nil(), "Paneer 500g", "300", "15", 10)
	env := newInvoiceTestEnv(t, deliveries, []*sale.CreditSale{cs})

	inv, err := env.service.Generate(context.Background(), env.customer.ID, periodStart, periodEnd)
	require.NoError(t, err)

	assert.Equal(t, "INV-2026-00001", inv.Number)
	assert.True(t, inv.DeliveryAmount.Equal(types.MustMoney("500")), "delivery amount %s", inv.DeliveryAmount)
	assert.True(t, inv.SalesAmount.Equal(types.MustMoney("300")))
	assert.True(t, inv.GSTAmount.Equal(types.MustMoney("15")))
	assert.True(t, inv.GrandTotal.Equal(types.MustMoney("800")))
	assert.True(t, inv.AmountOutstanding.Equal(types.MustMoney("800")))
	assert.Len(t, inv.Lines, 2)

	// Committed: sale flipped to Billed, lines persisted.
	assert.Equal(t, sale.StatusBilled, env.saleRepo.sales[cs.ID].PaymentStatus)
	saved, err := env.invoiceRepo.GetLines(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestGenerate_LineReferencesExactlyOneSource(t *testing.T) {
	deliveries := []delivery.DeliveredTransaction{
		newDelivery(id.Nil(), "Milk 1L", "4", "50", "200", 3),
	}
	cs := newCreditSale(id.Nil(), "Curd 1kg", "120", "6", 7)
	env := newInvoiceTestEnv(t, deliveries, []*sale.CreditSale{cs})

	inv, err := env.service.Generate(context.Background(), env.customer.ID, periodStart, periodEnd)
	require.NoError(t, err)

	for _, line := range inv.Lines {
		hasDelivery := line.DeliveryID != nil
		hasSale := line.SaleID != nil
		assert.NotEqual(t, hasDelivery, hasSale, "line %d must reference exactly one source", line.LineNo)
	}
}

func TestGenerate_DuplicatePeriodRejected(t *testing.T) {
	env := newInvoiceTestEnv(t, []delivery.DeliveredTransaction{
		newDelivery(id.Nil(), "Milk 1L", "10", "50", "500", 5),
		newDelivery(id.Nil(), "Milk 1L", "10", "50", "500", 20),
	}, nil)

	first, err := env.service.Generate(context.Background(), env.customer.ID, periodStart, periodEnd)
	require.NoError(t, err)

	// Overlapping second half of the month.
	mid := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	_, err = env.service.Generate(context.Background(), env.customer.ID, mid, periodEnd)
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDuplicatePeriod, appErr.Code)
	assert.Contains(t, appErr.Message, first.Number)
}

func TestCommit_LocksCustomerBeforeOverlapRecheck(t *testing.T) {
	env := newInvoiceTestEnv(t, []delivery.DeliveredTransaction{
		newDelivery(id.Nil(), "Milk 1L", "10", "50", "500", 5),
	}, nil)

	inv, err := env.service.Prepare(context.Background(), env.customer.ID, periodStart, periodEnd)
	require.NoError(t, err)

	env.invoiceRepo.calls = nil
	require.NoError(t, env.service.Commit(context.Background(), inv))

	// The per-customer lock precedes the in-transaction duplicate recheck,
	// so two concurrent commits for the same period cannot both pass it.
	require.GreaterOrEqual(t, len(env.invoiceRepo.calls), 2)
	assert.Equal(t, "lock:"+env.customer.ID.String(), env.invoiceRepo.calls[0])
	assert.Equal(t, "find_overlapping", env.invoiceRepo.calls[1])
}

func TestGenerate_NothingToBill(t *testing.T) {
	env := newInvoiceTestEnv(t, nil, nil)

	_, err := env.service.Generate(context.Background(), env.customer.ID, periodStart, periodEnd)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestGenerate_InvalidPeriod(t *testing.T) {
	env := newInvoiceTestEnv(t, nil, nil)

	_, err := env.service.Generate(context.Background(), env.customer.ID, periodEnd, periodStart)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestGenerate_UnknownCustomer(t *testing.T) {
	env := newInvoiceTestEnv(t, nil, nil)

	_, err := env.service.Generate(context.Background(), id.New(), periodStart, periodEnd)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestDelete_RevertsBilledSales(t *testing.T) {
	cs := newCreditSale(id.Nil(), "Ghee 250g", "250", "12", 12)
	unrelated := newCreditSale(id.Nil(), "Butter", "90", "4", 28)
	env := newInvoiceTestEnv(t, []delivery.DeliveredTransaction{
		newDelivery(id.Nil(), "Milk 1L", "10", "50", "500", 5),
	}, []*sale.CreditSale{cs, unrelated})

	// Bill only the first half of the month, so `unrelated` stays Pending.
	mid := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	inv, err := env.service.Generate(context.Background(), env.customer.ID, periodStart, mid)
	require.NoError(t, err)
	require.Equal(t, sale.StatusBilled, env.saleRepo.sales[cs.ID].PaymentStatus)
	require.Equal(t, sale.StatusPending, env.saleRepo.sales[unrelated.ID].PaymentStatus)

	reverted, err := env.service.Delete(context.Background(), inv.ID)
	require.NoError(t, err)

	// Exactly the billed sale reverts; the unrelated one is untouched.
	assert.Equal(t, 1, reverted)
	assert.Equal(t, sale.StatusPending, env.saleRepo.sales[cs.ID].PaymentStatus)
	assert.Equal(t, sale.StatusPending, env.saleRepo.sales[unrelated.ID].PaymentStatus)

	_, err = env.invoiceRepo.GetByID(context.Background(), inv.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestDelete_ThenRegenerate_NoDoubleBilling(t *testing.T) {
	cs := newCreditSale(id.Nil(), "Ghee 250g", "250", "12", 12)
	env := newInvoiceTestEnv(t, []delivery.DeliveredTransaction{
		newDelivery(id.Nil(), "Milk 1L", "10", "50", "500", 5),
	}, []*sale.CreditSale{cs})

	inv, err := env.service.Generate(context.Background(), env.customer.ID, periodStart, periodEnd)
	require.NoError(t, err)

	_, err = env.service.Delete(context.Background(), inv.ID)
	require.NoError(t, err)

	// Regeneration picks the same sources back up, exactly once.
	regen, err := env.service.Generate(context.Background(), env.customer.ID, periodStart, periodEnd)
	require.NoError(t, err)
	assert.Len(t, regen.Lines, 2)
	assert.True(t, regen.GrandTotal.Equal(inv.GrandTotal))
}

func TestDelete_PaidInvoiceRejected(t *testing.T) {
	env := newInvoiceTestEnv(t, []delivery.DeliveredTransaction{
		newDelivery(id.Nil(), "Milk 1L", "10", "50", "500", 5),
	}, nil)

	inv, err := env.service.Generate(context.Background(), env.customer.ID, periodStart, periodEnd)
	require.NoError(t, err)

	// Settle it fully.
	stored, err := env.invoiceRepo.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	stored.ApplyPayment(types.MustMoney("500"))
	require.NoError(t, env.invoiceRepo.Update(context.Background(), stored))

	_, err = env.service.Delete(context.Background(), inv.ID)
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvoicePaid, appErr.Code)

	// Invoice still present.
	_, err = env.invoiceRepo.GetByID(context.Background(), inv.ID)
	assert.NoError(t, err)
}

func TestBulkDelete_IsolatesFailures(t *testing.T) {
	env := newInvoiceTestEnv(t, []delivery.DeliveredTransaction{
		newDelivery(id.Nil(), "Milk 1L", "10", "50", "500", 5),
	}, nil)

	inv, err := env.service.Generate(context.Background(), env.customer.ID, periodStart, periodEnd)
	require.NoError(t, err)

	missing := id.New()
	result := env.service.BulkDelete(context.Background(), []id.ID{missing, inv.ID})

	assert.Equal(t, []id.ID{inv.ID}, result.Successful)
	assert.Equal(t, []id.ID{missing}, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, missing, result.Errors[0].ID)
}

func TestPrepare_SummariesSortedAndAggregated(t *testing.T) {
	env := newInvoiceTestEnv(t, []delivery.DeliveredTransaction{
		newDelivery(id.Nil(), "Milk 1L", "2", "50", "100", 5),
		newDelivery(id.Nil(), "Curd 1kg", "1", "80", "80", 5),
		newDelivery(id.Nil(), "Milk 1L", "2", "50", "100", 6),
	}, nil)

	inv, err := env.service.Prepare(context.Background(), env.customer.ID, periodStart, periodEnd)
	require.NoError(t, err)

	require.Len(t, inv.ProductSummary, 2)
	assert.Equal(t, "Curd 1kg", inv.ProductSummary[0].Product)
	assert.Equal(t, "Milk 1L", inv.ProductSummary[1].Product)
	assert.True(t, inv.ProductSummary[1].Quantity.Equal(types.MustQuantity("4")))
	assert.True(t, inv.ProductSummary[1].Amount.Equal(types.MustMoney("200")))

	require.Len(t, inv.DailySummary, 2)
	assert.True(t, inv.DailySummary[0].Date.Before(inv.DailySummary[1].Date))
}
