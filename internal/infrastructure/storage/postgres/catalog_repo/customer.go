// Package catalog_repo provides PostgreSQL implementations for catalog
// repositories (master data the billing core reads).
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"dairyledger/internal/core/apperror"
	"dairyledger/internal/core/id"
	"dairyledger/internal/domain"
	"dairyledger/internal/domain/customer"
	"dairyledger/internal/infrastructure/storage/postgres"
)

const customersTable = "cat_customers"

// Compile-time check.
var _ customer.Repository = (*CustomerRepo)(nil)

// CustomerRepo implements customer.Repository.
type CustomerRepo struct {
	txm        *postgres.TxManager
	selectCols []string
}

// NewCustomerRepo creates a new customer repository.
func NewCustomerRepo(txm *postgres.TxManager) *CustomerRepo {
	return &CustomerRepo{
		txm:        txm,
		selectCols: postgres.ExtractDBColumns[customer.Customer](),
	}
}

func (r *CustomerRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *CustomerRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().Select(r.selectCols...).From(customersTable)
}

func (r *CustomerRepo) GetByID(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	q := r.baseSelect().Where(squirrel.Eq{"id": customerID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var c customer.Customer
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("customer", customerID.String())
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}

	return &c, nil
}

func (r *CustomerRepo) Exists(ctx context.Context, customerID id.ID) (bool, error) {
	sql := "SELECT EXISTS(SELECT 1 FROM " + customersTable + " WHERE id = $1)"

	var exists bool
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, customerID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check customer exists: %w", err)
	}
	return exists, nil
}

func (r *CustomerRepo) List(ctx context.Context, filter customer.ListFilter) (domain.ListResult[*customer.Customer], error) {
	result := domain.ListResult[*customer.Customer]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": searchPattern},
			squirrel.ILike{"route": searchPattern},
		})
	}

	countQ := r.builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	q = q.OrderBy("name")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list customers: %w", err)
	}

	return result, nil
}
