// Package delivery provides delivered transactions: goods dropped at a
// customer's door by the (out-of-scope) route workflow. The billing core
// reads them; whether one is billed is implied purely by a live invoice
// line item referencing it, never by a stored flag.
package delivery

import (
	"time"

	"dairyledger/internal/core/entity"
	"dairyledger/internal/core/id"
	"dairyledger/internal/core/types"
)

// DeliveredTransaction is one delivered item on one date.
type DeliveredTransaction struct {
	entity.BaseEntity

	CustomerID id.ID          `db:"customer_id" json:"customerId"`
	Product    string         `db:"product" json:"product"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice  types.Money    `db:"unit_price" json:"unitPrice"`
	Amount     types.Money    `db:"amount" json:"amount"`
	Date       time.Time      `db:"date" json:"date"`
	Delivered  bool           `db:"delivered" json:"delivered"`
}
