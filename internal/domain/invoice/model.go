// Package invoice provides the invoice document: generation from unbilled
// deliveries and pending credit sales, and deletion with sale reversion.
package invoice

import (
	"context"
	"time"

	"dairyledger/internal/core/apperror"
	"dairyledger/internal/core/entity"
	"dairyledger/internal/core/id"
	"dairyledger/internal/core/types"
	"dairyledger/internal/domain"
)

// Status of an invoice.
type Status string

const (
	StatusGenerated     Status = "Generated"
	StatusSent          Status = "Sent"
	StatusPartiallyPaid Status = "PartiallyPaid"
	StatusPaid          Status = "Paid"
	StatusOverdue       Status = "Overdue"
)

// DueInDays is how long after the invoice date payment is due.
const DueInDays = 30

// Invoice bills one customer for one period.
//
// AmountPaid and AmountOutstanding are maintained exclusively by the payment
// allocation engine inside its transaction; every other reader treats them
// as derived. AmountOutstanding always equals max(0, GrandTotal-AmountPaid).
type Invoice struct {
	entity.Document

	CustomerID id.ID `db:"customer_id" json:"customerId"`

	PeriodStart time.Time `db:"period_start" json:"periodStart"`
	PeriodEnd   time.Time `db:"period_end" json:"periodEnd"`

	DeliveryAmount types.Money `db:"delivery_amount" json:"deliveryAmount"`
	SalesAmount    types.Money `db:"sales_amount" json:"salesAmount"`
	GSTAmount      types.Money `db:"gst_amount" json:"gstAmount"`
	GrandTotal     types.Money `db:"grand_total" json:"grandTotal"`

	AmountPaid        types.Money `db:"amount_paid" json:"amountPaid"`
	AmountOutstanding types.Money `db:"amount_outstanding" json:"amountOutstanding"`

	Status  Status    `db:"status" json:"status"`
	DueDate time.Time `db:"due_date" json:"dueDate"`

	// Table part: one line per source delivery or credit sale
	Lines []LineItem `db:"-" json:"lines"`

	// Presentation summaries computed during Prepare (not persisted)
	ProductSummary []ProductTotal `db:"-" json:"productSummary,omitempty"`
	DailySummary   []DayTotal     `db:"-" json:"dailySummary,omitempty"`
}

// LineItem links one delivery or one credit sale to the invoice that billed
// it. Its existence is what makes the source transaction "billed": a source
// id may appear in at most one live line item.
type LineItem struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	// Exactly one of DeliveryID / SaleID is set.
	DeliveryID *id.ID `db:"delivery_id" json:"deliveryId,omitempty"`
	SaleID     *id.ID `db:"sale_id" json:"saleId,omitempty"`

	Product   string         `db:"product" json:"product"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`
	LineTotal types.Money    `db:"line_total" json:"lineTotal"`
	GST       types.Money    `db:"gst" json:"gst"`
}

// ProductTotal aggregates delivered amounts by product for the period.
type ProductTotal struct {
	Product  string         `json:"product"`
	Quantity types.Quantity `json:"quantity"`
	Amount   types.Money    `json:"amount"`
}

// DayTotal summarizes one delivery day in the period.
type DayTotal struct {
	Date     time.Time      `json:"date"`
	Quantity types.Quantity `json:"quantity"`
	Amount   types.Money    `json:"amount"`
}

// Period returns the billing period as a range.
func (inv *Invoice) Period() domain.Period {
	return domain.Period{Start: inv.PeriodStart, End: inv.PeriodEnd}
}

// Validate implements entity.Validatable.
func (inv *Invoice) Validate(ctx context.Context) error {
	if err := inv.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(inv.CustomerID) {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerId")
	}

	if err := inv.Period().Validate(); err != nil {
		return apperror.NewValidation(err.Error()).
			WithDetail("field", "period")
	}

	if len(inv.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range inv.Lines {
		hasDelivery := line.DeliveryID != nil && !id.IsNil(*line.DeliveryID)
		hasSale := line.SaleID != nil && !id.IsNil(*line.SaleID)
		if hasDelivery == hasSale {
			return apperror.NewValidation("line must reference exactly one delivery or sale").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// ApplyPayment adds an allocated amount and recomputes the derived fields.
// Called by the payment allocation engine inside its transaction only.
func (inv *Invoice) ApplyPayment(amount types.Money) {
	inv.AmountPaid = inv.AmountPaid.Add(amount)
	inv.recompute()
}

// SetAmountPaid replaces the paid amount (used by rollback) and recomputes.
func (inv *Invoice) SetAmountPaid(amount types.Money) {
	inv.AmountPaid = amount
	inv.recompute()
}

// recompute derives outstanding and status from the paid amount. Version and
// UpdatedAt stay untouched: the repository's Update owns both, and it matches
// on the version the entity was loaded with.
func (inv *Invoice) recompute() {
	inv.AmountOutstanding = types.ClampNonNegative(inv.GrandTotal.Sub(inv.AmountPaid))

	switch {
	case inv.AmountOutstanding.IsZero():
		inv.Status = StatusPaid
	case inv.AmountPaid.IsPositive():
		inv.Status = StatusPartiallyPaid
	case time.Now().UTC().After(inv.DueDate):
		inv.Status = StatusOverdue
	default:
		inv.Status = StatusSent
	}
}

// IsPaid reports whether the invoice is fully settled.
func (inv *Invoice) IsPaid() bool {
	return inv.Status == StatusPaid
}

// SaleIDs returns the ids of credit sales billed by this invoice's lines.
func (inv *Invoice) SaleIDs() []id.ID {
	ids := make([]id.ID, 0, len(inv.Lines))
	for _, line := range inv.Lines {
		if line.SaleID != nil && !id.IsNil(*line.SaleID) {
			ids = append(ids, *line.SaleID)
		}
	}
	return ids
}

// DeliveryIDs returns the ids of deliveries billed by this invoice's lines.
func (inv *Invoice) DeliveryIDs() []id.ID {
	ids := make([]id.ID, 0, len(inv.Lines))
	for _, line := range inv.Lines {
		if line.DeliveryID != nil && !id.IsNil(*line.DeliveryID) {
			ids = append(ids, *line.DeliveryID)
		}
	}
	return ids
}
