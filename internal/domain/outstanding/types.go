// Package outstanding derives what a customer currently owes. Nothing here
// writes to the ledger: outstanding is always a computed projection over
// opening balance, invoices and payments, never a persisted running total.
package outstanding

import (
	"dairyledger/internal/core/id"
	"dairyledger/internal/core/types"
)

// Record is the fully computed outstanding position of one customer.
type Record struct {
	CustomerID   id.ID  `json:"customerId"`
	CustomerName string `json:"customerName,omitempty"`

	OpeningBalance          types.Money `json:"openingBalance"`
	OpeningOffset           types.Money `json:"openingOffset"`
	EffectiveOpeningBalance types.Money `json:"effectiveOpeningBalance"`

	InvoiceOutstanding types.Money `json:"invoiceOutstanding"`
	SubscriptionDues   types.Money `json:"subscriptionDues"`

	// TotalOutstanding = EffectiveOpeningBalance + InvoiceOutstanding
	TotalOutstanding types.Money `json:"totalOutstanding"`

	UnappliedCredit types.Money `json:"unappliedCredit"`

	// NetOutstanding = max(0, TotalOutstanding - UnappliedCredit)
	NetOutstanding types.Money `json:"netOutstanding"`

	// Source records which path produced the figures:
	// "aggregate", "fallback" or "safe-default".
	Source string `json:"source"`
}

// Selection picks which computed records a bulk query returns. Filtering is
// always a predicate over the fully computed record, never a special-cased
// query, so every mode shares one calculation path.
type Selection string

const (
	SelectAll                Selection = "all"
	SelectHasOutstanding     Selection = "has-outstanding"
	SelectHasCredit          Selection = "has-credit"
	SelectHasDuesOutstanding Selection = "has-dues-and-outstanding"
	SelectByIDs              Selection = "ids"
)

// Query describes a bulk outstanding request.
type Query struct {
	Selection   Selection
	CustomerIDs []id.ID // used when Selection == SelectByIDs
}

// Matches applies the selection predicate to a computed record.
func (q Query) Matches(rec *Record) bool {
	switch q.Selection {
	case SelectHasOutstanding:
		return rec.TotalOutstanding.IsPositive()
	case SelectHasCredit:
		return rec.UnappliedCredit.IsPositive()
	case SelectHasDuesOutstanding:
		return rec.SubscriptionDues.IsPositive() && rec.TotalOutstanding.IsPositive()
	case SelectByIDs:
		for _, cid := range q.CustomerIDs {
			if cid == rec.CustomerID {
				return true
			}
		}
		return false
	default:
		return true
	}
}
