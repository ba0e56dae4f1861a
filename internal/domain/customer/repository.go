package customer

import (
	"context"

	"dairyledger/internal/core/id"
	"dairyledger/internal/domain"
)

// Repository defines read operations the billing core needs for customers.
// Customer CRUD itself belongs to the surrounding application.
type Repository interface {
	GetByID(ctx context.Context, customerID id.ID) (*Customer, error)
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Customer], error)
	Exists(ctx context.Context, customerID id.ID) (bool, error)
}

// ListFilter for selecting customer populations.
type ListFilter struct {
	domain.ListFilter

	Status *Status
}
