// Package customer provides the customer catalog consumed by billing.
package customer

import (
	"context"

	"dairyledger/internal/core/apperror"
	"dairyledger/internal/core/entity"
	"dairyledger/internal/core/types"
)

// Status of a customer account.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// Customer is a subscription customer.
//
// OpeningBalance is the immutable historical seed debt. Billing operations
// never write this field; it is only offset by opening-balance allocation
// records on payments.
type Customer struct {
	entity.BaseEntity

	Name           string      `db:"name" json:"name"`
	Route          string      `db:"route" json:"route,omitempty"`
	Status         Status      `db:"status" json:"status"`
	OpeningBalance types.Money `db:"opening_balance" json:"openingBalance"`
}

// NewCustomer creates an active customer with the given opening balance.
func NewCustomer(name string, openingBalance types.Money) *Customer {
	return &Customer{
		BaseEntity:     entity.NewBaseEntity(),
		Name:           name,
		Status:         StatusActive,
		OpeningBalance: openingBalance,
	}
}

// Validate implements entity.Validatable.
func (c *Customer) Validate(ctx context.Context) error {
	if c.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if c.OpeningBalance.IsNegative() {
		return apperror.NewValidation("opening balance cannot be negative").
			WithDetail("field", "openingBalance")
	}
	return nil
}
