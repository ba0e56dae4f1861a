package payment

import (
	"context"
	"fmt"
	"time"

	"dairyledger/internal/core/apperror"
	"dairyledger/internal/core/id"
	"dairyledger/internal/core/tx"
	"dairyledger/internal/core/types"
	"dairyledger/internal/domain"
	"dairyledger/internal/domain/customer"
	"dairyledger/internal/domain/invoice"
	"dairyledger/pkg/logger"
)

// AllocationRequest asks for part of a payment to be applied to an invoice.
type AllocationRequest struct {
	InvoiceID id.ID       `json:"invoiceId"`
	Amount    types.Money `json:"amount"`
}

// Service is the payment allocation engine.
type Service struct {
	repo         Repository
	invoiceRepo  invoice.Repository
	customerRepo customer.Repository
	txManager    tx.Manager
}

// NewService creates a new payment service.
func NewService(
	repo Repository,
	invoiceRepo invoice.Repository,
	customerRepo customer.Repository,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:         repo,
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		txManager:    txManager,
	}
}

// Record persists a new payment (unallocated).
func (s *Service) Record(ctx context.Context, p *Payment) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}
	if _, err := s.customerRepo.GetByID(ctx, p.CustomerID); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}

	logger.Info(ctx, "payment recorded",
		"id", p.ID,
		"customer_id", p.CustomerID,
		"amount", p.Amount,
	)
	return nil
}

// Allocate distributes parts of a payment across invoices, atomically.
//
// The over-allocation check runs inside the transaction, after the payment
// row is locked: two concurrent allocations of the same payment are
// serialized by the lock, and the later one re-reads the allocation sum the
// earlier one committed, so the two can never jointly exceed the payment
// amount. On any validation failure nothing is mutated.
func (s *Service) Allocate(ctx context.Context, paymentID id.ID, requests []AllocationRequest) error {
	if len(requests) == 0 {
		return apperror.NewValidation("at least one allocation is required")
	}

	requested := types.ZeroMoney()
	for i, req := range requests {
		if id.IsNil(req.InvoiceID) {
			return apperror.NewValidation("invoice is required").
				WithDetail("field", "invoiceId").
				WithDetail("index", i)
		}
		if !req.Amount.IsPositive() {
			return apperror.NewValidation("allocation amount must be positive").
				WithDetail("field", "amount").
				WithDetail("index", i)
		}
		requested = requested.Add(req.Amount)
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}

		existing, err := s.repo.SumAllocations(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("sum existing allocations: %w", err)
		}

		if existing.Add(requested).GreaterThan(p.Amount) {
			overage := existing.Add(requested).Sub(p.Amount)
			return apperror.NewOverAllocation(paymentID.String(), overage.String())
		}

		now := time.Now().UTC()
		for _, req := range requests {
			inv, err := s.invoiceRepo.GetForUpdate(ctx, req.InvoiceID)
			if err != nil {
				return err
			}

			if err := s.repo.InsertInvoiceAllocation(ctx, InvoiceAllocation{
				ID:             id.New(),
				PaymentID:      paymentID,
				InvoiceID:      req.InvoiceID,
				Amount:         req.Amount,
				AllocationDate: now,
			}); err != nil {
				return fmt.Errorf("insert allocation: %w", err)
			}

			inv.ApplyPayment(req.Amount)
			if err := s.invoiceRepo.Update(ctx, inv); err != nil {
				return fmt.Errorf("update invoice %s: %w", inv.Number, err)
			}
		}

		p.SetApplied(existing.Add(requested))
		if err := s.repo.Update(ctx, p); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "payment allocated",
		"payment_id", paymentID,
		"invoices", len(requests),
		"amount", requested,
	)
	return nil
}

// AllocateToOpeningBalance applies part of a payment against the customer's
// opening balance. The opening_balance field is never written; only an
// allocation record is inserted.
func (s *Service) AllocateToOpeningBalance(ctx context.Context, paymentID id.ID, amount types.Money) error {
	if !amount.IsPositive() {
		return apperror.NewValidation("allocation amount must be positive").
			WithDetail("field", "amount")
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}

		cust, err := s.customerRepo.GetByID(ctx, p.CustomerID)
		if err != nil {
			return err
		}

		alreadyOffset, err := s.repo.SumOpeningAllocationsByCustomer(ctx, cust.ID)
		if err != nil {
			return fmt.Errorf("sum opening allocations: %w", err)
		}

		effective := cust.OpeningBalance.Sub(alreadyOffset)
		if amount.GreaterThan(effective) {
			return apperror.NewValidation("allocation exceeds effective opening balance").
				WithDetail("customer_id", cust.ID.String()).
				WithDetail("effective_opening_balance", effective.String()).
				WithDetail("requested", amount.String())
		}

		existing, err := s.repo.SumAllocations(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("sum existing allocations: %w", err)
		}
		if existing.Add(amount).GreaterThan(p.Amount) {
			overage := existing.Add(amount).Sub(p.Amount)
			return apperror.NewOverAllocation(paymentID.String(), overage.String())
		}

		if err := s.repo.InsertOpeningAllocation(ctx, OpeningBalanceAllocation{
			ID:             id.New(),
			PaymentID:      paymentID,
			CustomerID:     cust.ID,
			Amount:         amount,
			AllocationDate: time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("insert opening allocation: %w", err)
		}

		p.SetApplied(existing.Add(amount))
		if err := s.repo.Update(ctx, p); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "payment allocated to opening balance",
		"payment_id", paymentID,
		"amount", amount,
	)
	return nil
}

// Rollback is the compensating primitive: it deletes all of a payment's
// allocation rows and restores the affected invoices' and the payment's
// prior numeric state. Idempotent: with nothing to roll back it is a no-op.
func (s *Service) Rollback(ctx context.Context, paymentID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}

		invoiceAllocs, err := s.repo.DeleteInvoiceAllocations(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("delete invoice allocations: %w", err)
		}

		for _, alloc := range invoiceAllocs {
			inv, err := s.invoiceRepo.GetForUpdate(ctx, alloc.InvoiceID)
			if err != nil {
				if apperror.IsNotFound(err) {
					// Invoice deleted since allocation; nothing to restore.
					continue
				}
				return err
			}
			inv.SetAmountPaid(inv.AmountPaid.Sub(alloc.Amount))
			if err := s.invoiceRepo.Update(ctx, inv); err != nil {
				return fmt.Errorf("restore invoice %s: %w", inv.Number, err)
			}
		}

		if _, err := s.repo.DeleteOpeningAllocations(ctx, paymentID); err != nil {
			return fmt.Errorf("delete opening allocations: %w", err)
		}

		if !p.AmountApplied.IsZero() || len(invoiceAllocs) > 0 {
			p.SetApplied(types.ZeroMoney())
			if err := s.repo.Update(ctx, p); err != nil {
				return fmt.Errorf("reset payment: %w", err)
			}
			logger.Info(ctx, "payment allocations rolled back",
				"payment_id", paymentID,
				"invoice_allocations", len(invoiceAllocs),
			)
		}
		return nil
	})
}

// GetBreakdown returns the reporting view of where a payment went.
func (s *Service) GetBreakdown(ctx context.Context, paymentID id.ID) (*Breakdown, error) {
	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	invoiceAllocs, err := s.repo.ListInvoiceAllocations(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("list invoice allocations: %w", err)
	}
	openingAllocs, err := s.repo.ListOpeningAllocations(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("list opening allocations: %w", err)
	}

	return &Breakdown{
		Payment:            p,
		InvoiceAllocations: invoiceAllocs,
		OpeningAllocations: openingAllocs,
		Unapplied:          p.UnappliedCredit(),
	}, nil
}

// List retrieves payments with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Payment], error) {
	return s.repo.List(ctx, filter)
}
