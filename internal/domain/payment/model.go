// Package payment provides customer payments and the allocation engine that
// distributes a payment across invoices, opening balance and credit.
package payment

import (
	"context"
	"time"

	"dairyledger/internal/core/apperror"
	"dairyledger/internal/core/entity"
	"dairyledger/internal/core/id"
	"dairyledger/internal/core/types"
)

// Method of payment.
type Method string

const (
	MethodCash   Method = "Cash"
	MethodUPI    Method = "UPI"
	MethodBank   Method = "BankTransfer"
	MethodCheque Method = "Cheque"
)

// AllocationStatus of a payment.
type AllocationStatus string

const (
	StatusUnallocated      AllocationStatus = "unallocated"
	StatusPartiallyApplied AllocationStatus = "partially_applied"
	StatusFullyApplied     AllocationStatus = "fully_applied"
)

// Payment is money received from a customer.
//
// The conservation invariant holds at all times:
// Σ(invoice allocations) + Σ(opening-balance allocations) + AmountUnapplied
// == Amount. AmountApplied/AmountUnapplied are maintained only inside the
// allocation engine's transaction.
type Payment struct {
	entity.Document

	CustomerID id.ID       `db:"customer_id" json:"customerId"`
	Amount     types.Money `db:"amount" json:"amount"`
	Method     Method      `db:"method" json:"method"`

	AmountApplied    types.Money      `db:"amount_applied" json:"amountApplied"`
	AmountUnapplied  types.Money      `db:"amount_unapplied" json:"amountUnapplied"`
	AllocationStatus AllocationStatus `db:"allocation_status" json:"allocationStatus"`
}

// NewPayment records a received payment, initially unallocated.
func NewPayment(customerID id.ID, amount types.Money, method Method) *Payment {
	p := &Payment{
		Document:   entity.NewDocument(),
		CustomerID: customerID,
		Amount:     amount,
		Method:     method,
	}
	p.SetApplied(types.ZeroMoney())
	return p
}

// Validate implements entity.Validatable.
func (p *Payment) Validate(ctx context.Context) error {
	if err := p.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(p.CustomerID) {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerId")
	}
	if !p.Amount.IsPositive() {
		return apperror.NewValidation("amount must be positive").
			WithDetail("field", "amount")
	}
	return nil
}

// SetApplied replaces the applied amount and derives unapplied and status.
// Version stays untouched; the repository's Update owns the increment.
func (p *Payment) SetApplied(applied types.Money) {
	p.AmountApplied = applied
	p.AmountUnapplied = p.Amount.Sub(applied)

	switch {
	case applied.IsZero():
		p.AllocationStatus = StatusUnallocated
	case p.AmountUnapplied.IsZero():
		p.AllocationStatus = StatusFullyApplied
	default:
		p.AllocationStatus = StatusPartiallyApplied
	}
}

// UnappliedCredit returns the discoverable credit on this payment.
func (p *Payment) UnappliedCredit() types.Money {
	return types.ClampNonNegative(p.AmountUnapplied)
}

// InvoiceAllocation assigns part of a payment to one invoice.
// Many allocations per payment and per invoice are allowed, which is what
// enables split and partial payments.
type InvoiceAllocation struct {
	ID             id.ID       `db:"id" json:"id"`
	PaymentID      id.ID       `db:"payment_id" json:"paymentId"`
	InvoiceID      id.ID       `db:"invoice_id" json:"invoiceId"`
	Amount         types.Money `db:"amount" json:"amount"`
	AllocationDate time.Time   `db:"allocation_date" json:"allocationDate"`
}

// OpeningBalanceAllocation offsets part of a customer's opening balance.
// The customer's opening_balance field itself is never written; the
// effective opening balance is opening_balance minus the sum of these.
type OpeningBalanceAllocation struct {
	ID             id.ID       `db:"id" json:"id"`
	PaymentID      id.ID       `db:"payment_id" json:"paymentId"`
	CustomerID     id.ID       `db:"customer_id" json:"customerId"`
	Amount         types.Money `db:"amount" json:"amount"`
	AllocationDate time.Time   `db:"allocation_date" json:"allocationDate"`
}

// Breakdown is the reporting view of where a payment went.
type Breakdown struct {
	Payment            *Payment                   `json:"payment"`
	InvoiceAllocations []InvoiceAllocation        `json:"invoiceAllocations"`
	OpeningAllocations []OpeningBalanceAllocation `json:"openingAllocations"`
	Unapplied          types.Money                `json:"unapplied"`
}
