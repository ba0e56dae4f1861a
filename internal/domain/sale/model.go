// Package sale provides ad-hoc credit sales. A Pending sale is eligible for
// invoicing; a Billed sale is linked to exactly one invoice through a live
// line item, and reverts to Pending if that invoice is deleted.
package sale

import (
	"time"

	"dairyledger/internal/core/entity"
	"dairyledger/internal/core/id"
	"dairyledger/internal/core/types"
)

// PaymentStatus of a credit sale.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "Pending"
	StatusBilled  PaymentStatus = "Billed"
)

// CreditSale is an over-the-counter sale billed on the next invoice.
type CreditSale struct {
	entity.BaseEntity

	CustomerID    id.ID         `db:"customer_id" json:"customerId"`
	Product       string        `db:"product" json:"product"`
	Amount        types.Money   `db:"amount" json:"amount"`
	GSTAmount     types.Money   `db:"gst_amount" json:"gstAmount"`
	Date          time.Time     `db:"date" json:"date"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"paymentStatus"`
}
