package invoice

import (
	"context"
	"fmt"
	"sort"
	"time"

	"dairyledger/internal/core/apperror"
	"dairyledger/internal/core/entity"
	"dairyledger/internal/core/id"
	"dairyledger/internal/core/tx"
	"dairyledger/internal/core/types"
	"dairyledger/internal/domain"
	"dairyledger/internal/domain/customer"
	"dairyledger/internal/domain/delivery"
	"dairyledger/internal/domain/sale"
	"dairyledger/pkg/logger"
	"dairyledger/pkg/numerator"
)

// NumberPrefix is the invoice numbering prefix (INV-2026-00001).
const NumberPrefix = "INV"

// Sequencer allocates the next document number. Satisfied by
// *numerator.Service; tests substitute a fake.
type Sequencer interface {
	Next(ctx context.Context, cfg numerator.Config, period time.Time) (string, error)
}

// Service provides invoice generation, lookup and deletion.
type Service struct {
	repo         Repository
	customerRepo customer.Repository
	deliveryRepo delivery.Repository
	saleRepo     sale.Repository
	sequencer    Sequencer
	txManager    tx.Manager
}

// NewService creates a new invoice service.
func NewService(
	repo Repository,
	customerRepo customer.Repository,
	deliveryRepo delivery.Repository,
	saleRepo sale.Repository,
	sequencer Sequencer,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:         repo,
		customerRepo: customerRepo,
		deliveryRepo: deliveryRepo,
		saleRepo:     saleRepo,
		sequencer:    sequencer,
		txManager:    txManager,
	}
}

// Prepare collects everything billable for the customer in the period and
// returns an unsaved invoice document with computed totals and summaries.
//
// Billable means: delivered transactions in range that no live line item
// references, and Pending credit sales in range. Anything already referenced
// by a live line item is excluded regardless of date, so regeneration after
// a deletion can never double-bill.
func (s *Service) Prepare(ctx context.Context, customerID id.ID, periodStart, periodEnd time.Time) (*Invoice, error) {
	if periodStart.IsZero() || periodEnd.IsZero() || periodEnd.Before(periodStart) {
		return nil, apperror.NewValidation("invalid billing period").
			WithDetail("periodStart", periodStart).
			WithDetail("periodEnd", periodEnd)
	}

	cust, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if existing, err := s.repo.FindOverlapping(ctx, customerID, periodStart, periodEnd); err != nil {
		return nil, fmt.Errorf("check overlapping invoice: %w", err)
	} else if existing != nil {
		return nil, apperror.NewDuplicatePeriod(cust.ID.String(), existing.Number)
	}

	deliveries, err := s.deliveryRepo.ListUnbilled(ctx, customerID, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("list unbilled deliveries: %w", err)
	}

	sales, err := s.saleRepo.ListPending(ctx, customerID, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("list pending sales: %w", err)
	}

	if len(deliveries) == 0 && len(sales) == 0 {
		return nil, apperror.NewValidation("nothing to bill in this period").
			WithDetail("customer_id", customerID.String())
	}

	number, err := s.sequencer.Next(ctx, numerator.DefaultConfig(NumberPrefix), time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("allocate invoice number: %w", err)
	}

	inv := &Invoice{
		Document:    entity.NewDocument(),
		CustomerID:  customerID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Status:      StatusGenerated,
	}
	inv.Number = number
	inv.DueDate = inv.Date.AddDate(0, 0, DueInDays)

	deliveryAmount := types.ZeroMoney()
	salesAmount := types.ZeroMoney()
	gstAmount := types.ZeroMoney()

	for _, d := range deliveries {
		deliveryID := d.ID
		inv.Lines = append(inv.Lines, LineItem{
			LineID:     id.New(),
			LineNo:     len(inv.Lines) + 1,
			DeliveryID: &deliveryID,
			Product:    d.Product,
			Quantity:   d.Quantity,
			UnitPrice:  d.UnitPrice,
			LineTotal:  d.Amount,
		})
		deliveryAmount = deliveryAmount.Add(d.Amount)
	}

	for _, cs := range sales {
		saleID := cs.ID
		inv.Lines = append(inv.Lines, LineItem{
			LineID:    id.New(),
			LineNo:    len(inv.Lines) + 1,
			SaleID:    &saleID,
			Product:   cs.Product,
			LineTotal: cs.Amount,
			GST:       cs.GSTAmount,
		})
		salesAmount = salesAmount.Add(cs.Amount)
		gstAmount = gstAmount.Add(cs.GSTAmount)
	}

	inv.DeliveryAmount = deliveryAmount
	inv.SalesAmount = salesAmount
	inv.GSTAmount = gstAmount
	inv.GrandTotal = deliveryAmount.Add(salesAmount)
	inv.AmountPaid = types.ZeroMoney()
	inv.AmountOutstanding = inv.GrandTotal

	inv.ProductSummary = summarizeByProduct(deliveries)
	inv.DailySummary = summarizeByDay(deliveries)

	return inv, nil
}

// Commit persists a prepared invoice: the invoice row, one line item per
// source, and the Billed flip of every included sale, all-or-nothing.
// Commits for one customer serialize on an advisory lock before the
// duplicate-period check is re-run: at ReadCommitted two concurrent commits
// would otherwise both see no overlapping invoice and both insert.
func (s *Service) Commit(ctx context.Context, inv *Invoice) error {
	if err := inv.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.LockCustomerBilling(ctx, inv.CustomerID); err != nil {
			return err
		}

		existing, err := s.repo.FindOverlapping(ctx, inv.CustomerID, inv.PeriodStart, inv.PeriodEnd)
		if err != nil {
			return fmt.Errorf("recheck overlapping invoice: %w", err)
		}
		if existing != nil {
			return apperror.NewDuplicatePeriod(inv.CustomerID.String(), existing.Number)
		}

		if err := s.repo.Create(ctx, inv); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		if err := s.repo.SaveLines(ctx, inv.ID, inv.Lines); err != nil {
			return fmt.Errorf("save line items: %w", err)
		}
		if saleIDs := inv.SaleIDs(); len(saleIDs) > 0 {
			if err := s.saleRepo.MarkBilled(ctx, saleIDs); err != nil {
				return fmt.Errorf("mark sales billed: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "invoice committed",
		"id", inv.ID,
		"number", inv.Number,
		"customer_id", inv.CustomerID,
		"grand_total", inv.GrandTotal,
	)
	return nil
}

// Generate is Prepare followed by Commit.
func (s *Service) Generate(ctx context.Context, customerID id.ID, periodStart, periodEnd time.Time) (*Invoice, error) {
	inv, err := s.Prepare(ctx, customerID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	if err := s.Commit(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// GetByID retrieves an invoice with its lines.
func (s *Service) GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	inv.Lines = lines

	return inv, nil
}

// List retrieves invoices with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error) {
	return s.repo.List(ctx, filter)
}

// Delete undoes a non-paid invoice: reverts every sale linked via a live
// line item of this invoice (and only those), deletes the line items so the
// sources become billable again, and deletes the invoice row. Outstanding
// is never touched anywhere; it is always recomputed, so deletion's effect
// on a customer's balance is automatic.
func (s *Service) Delete(ctx context.Context, invoiceID id.ID) (int, error) {
	revertedSales := 0

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// Lock the row so a concurrent allocation cannot pay the invoice
		// between the status check and the delete.
		inv, err := s.repo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.IsPaid() {
			return apperror.NewInvoicePaid(inv.Number)
		}

		lines, err := s.repo.GetLines(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		inv.Lines = lines

		if saleIDs := inv.SaleIDs(); len(saleIDs) > 0 {
			if err := s.saleRepo.MarkPending(ctx, saleIDs); err != nil {
				return fmt.Errorf("revert sales: %w", err)
			}
			revertedSales = len(saleIDs)
		}

		if err := s.repo.DeleteLines(ctx, invoiceID); err != nil {
			return fmt.Errorf("delete line items: %w", err)
		}
		if err := s.repo.HardDelete(ctx, invoiceID); err != nil {
			return fmt.Errorf("delete invoice: %w", err)
		}

		logger.Info(ctx, "invoice deleted",
			"id", invoiceID,
			"number", inv.Number,
			"reverted_sales", revertedSales,
		)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return revertedSales, nil
}

// BulkDeleteResult reports the outcome of a BulkDelete call.
type BulkDeleteResult struct {
	Successful         []id.ID     `json:"successful"`
	Failed             []id.ID     `json:"failed"`
	Errors             []ItemError `json:"errors,omitempty"`
	TotalRevertedSales int         `json:"totalRevertedSales"`
}

// ItemError records one failed item in a batch operation.
type ItemError struct {
	ID      id.ID  `json:"id"`
	Message string `json:"message"`
}

// BulkDelete applies Delete per id, isolating failures.
func (s *Service) BulkDelete(ctx context.Context, invoiceIDs []id.ID) BulkDeleteResult {
	result := BulkDeleteResult{}

	for _, invoiceID := range invoiceIDs {
		reverted, err := s.Delete(ctx, invoiceID)
		if err != nil {
			result.Failed = append(result.Failed, invoiceID)
			result.Errors = append(result.Errors, ItemError{ID: invoiceID, Message: err.Error()})
			continue
		}
		result.Successful = append(result.Successful, invoiceID)
		result.TotalRevertedSales += reverted
	}

	return result
}

func summarizeByProduct(deliveries []delivery.DeliveredTransaction) []ProductTotal {
	byProduct := make(map[string]*ProductTotal)
	for _, d := range deliveries {
		pt, ok := byProduct[d.Product]
		if !ok {
			pt = &ProductTotal{Product: d.Product, Quantity: types.ZeroMoney(), Amount: types.ZeroMoney()}
			byProduct[d.Product] = pt
		}
		pt.Quantity = pt.Quantity.Add(d.Quantity)
		pt.Amount = pt.Amount.Add(d.Amount)
	}

	totals := make([]ProductTotal, 0, len(byProduct))
	for _, pt := range byProduct {
		totals = append(totals, *pt)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Product < totals[j].Product })
	return totals
}

func summarizeByDay(deliveries []delivery.DeliveredTransaction) []DayTotal {
	byDay := make(map[time.Time]*DayTotal)
	for _, d := range deliveries {
		day := d.Date.Truncate(24 * time.Hour)
		dt, ok := byDay[day]
		if !ok {
			dt = &DayTotal{Date: day, Quantity: types.ZeroMoney(), Amount: types.ZeroMoney()}
			byDay[day] = dt
		}
		dt.Quantity = dt.Quantity.Add(d.Quantity)
		dt.Amount = dt.Amount.Add(d.Amount)
	}

	totals := make([]DayTotal, 0, len(byDay))
	for _, dt := range byDay {
		totals = append(totals, *dt)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Date.Before(totals[j].Date) })
	return totals
}
