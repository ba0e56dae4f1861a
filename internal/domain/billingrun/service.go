package billingrun

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dairyledger/internal/core/apperror"
	"dairyledger/internal/core/id"
	"dairyledger/internal/domain/invoice"
	"dairyledger/pkg/logger"
)

const (
	renderAttempts = 3
	renderBackoff  = time.Second // doubles per attempt: 1s, 2s, 4s
)

// errRenderExhausted marks a render that stayed transient through every
// retry attempt.
var errRenderExhausted = errors.New("render attempts exhausted")

// Generator prepares and commits single invoices. Satisfied by
// *invoice.Service.
type Generator interface {
	Prepare(ctx context.Context, customerID id.ID, periodStart, periodEnd time.Time) (*invoice.Invoice, error)
	Commit(ctx context.Context, inv *invoice.Invoice) error
}

// OverlapChecker answers whether a customer already has an invoice touching
// a period. Satisfied by invoice.Repository.
type OverlapChecker interface {
	FindOverlapping(ctx context.Context, customerID id.ID, periodStart, periodEnd time.Time) (*invoice.Invoice, error)
}

// Service runs bulk invoice generation. Customers are processed one at a
// time: generation serializes on the shared number sequence anyway, and a
// sequential loop keeps per-customer failures trivially isolated.
type Service struct {
	generator Generator
	checker   OverlapChecker
	renderer  Renderer

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService creates a bulk run orchestrator.
func NewService(generator Generator, checker OverlapChecker, renderer Renderer) *Service {
	return &Service{
		generator: generator,
		checker:   checker,
		renderer:  renderer,
		sleep:     sleepCtx,
	}
}

// Run executes a batch: preflight gate, then one Prepare → Render → Commit
// cycle per customer.
//
// The preflight is all-or-nothing: if ANY selected customer already has an
// invoice overlapping the period, the whole batch is rejected before any
// invoice is created, and the error names every conflicting customer. Past
// the gate, failures are isolated: a customer that errors is recorded and
// the batch continues.
//
// Render happens BEFORE commit, so a customer whose render fails all
// attempts leaves no invoice behind and stays billable.
func (s *Service) Run(ctx context.Context, req Request, observe Observer) (*Result, error) {
	if len(req.CustomerIDs) == 0 {
		return nil, apperror.NewValidation("at least one customer is required")
	}
	if err := req.Period.Validate(); err != nil {
		return nil, apperror.NewValidation(err.Error())
	}
	if observe == nil {
		observe = func(Progress) {}
	}

	if err := s.preflight(ctx, req); err != nil {
		return nil, err
	}

	result := &Result{Artifacts: make(map[id.ID][]byte)}
	artifacts := make([]Artifact, 0, len(req.CustomerIDs))
	total := len(req.CustomerIDs)

	for i, customerID := range req.CustomerIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		artifact, invoiceID, err := s.generateOne(ctx, customerID, req)
		if err != nil {
			stage, msg := classify(err)
			result.Failed++
			result.Errors = append(result.Errors, ItemError{
				CustomerID: customerID,
				Stage:      stage,
				Message:    msg,
			})
			logger.Warn(ctx, "bulk run: customer failed",
				"customer_id", customerID, "stage", stage, "error", err)
		} else {
			result.Successful++
			result.InvoiceIDs = append(result.InvoiceIDs, invoiceID)
			result.Artifacts[invoiceID] = artifact.Data
			artifacts = append(artifacts, artifact)
		}

		observe(Progress{
			Completed:       i + 1,
			Total:           total,
			CurrentCustomer: customerID,
			Errors:          result.Errors,
			IsComplete:      i+1 == total,
		})
	}

	// No successes means nothing to combine; the per-customer errors in the
	// result are the whole story.
	if len(artifacts) > 0 {
		combined, err := s.renderer.Combine(ctx, artifacts)
		if err != nil {
			logger.Error(ctx, "bulk run: combining artifacts failed", "error", err)
		} else {
			result.Combined = &combined
		}
	}

	logger.Info(ctx, "bulk run finished",
		"total", total,
		"successful", result.Successful,
		"failed", result.Failed,
	)
	return result, nil
}

// preflight rejects the batch if any customer already has an overlapping
// invoice, naming all of them so the operator can fix the selection in one
// pass instead of discovering conflicts one retry at a time.
func (s *Service) preflight(ctx context.Context, req Request) error {
	var conflicts []string
	for _, customerID := range req.CustomerIDs {
		existing, err := s.checker.FindOverlapping(ctx, customerID, req.Period.Start, req.Period.End)
		if err != nil {
			return fmt.Errorf("preflight check for customer %s: %w", customerID, err)
		}
		if existing != nil {
			conflicts = append(conflicts,
				fmt.Sprintf("%s (invoice %s)", customerID, existing.Number))
		}
	}
	if len(conflicts) > 0 {
		return apperror.NewConflict(
			"batch rejected: customers already invoiced for an overlapping period: " +
				strings.Join(conflicts, ", "))
	}
	return nil
}

func (s *Service) generateOne(ctx context.Context, customerID id.ID, req Request) (Artifact, id.ID, error) {
	inv, err := s.generator.Prepare(ctx, customerID, req.Period.Start, req.Period.End)
	if err != nil {
		return Artifact{}, id.Nil(), err
	}

	artifact, err := s.renderWithRetry(ctx, inv)
	if err != nil {
		return Artifact{}, id.Nil(), err
	}

	if err := s.generator.Commit(ctx, inv); err != nil {
		return Artifact{}, id.Nil(), err
	}
	return artifact, inv.ID, nil
}

// renderWithRetry retries transient render failures with exponential
// backoff. Non-transient errors fail immediately.
func (s *Service) renderWithRetry(ctx context.Context, inv *invoice.Invoice) (Artifact, error) {
	var lastErr error
	backoff := renderBackoff

	for attempt := 1; attempt <= renderAttempts; attempt++ {
		artifact, err := s.renderer.Render(ctx, inv)
		if err == nil {
			return artifact, nil
		}
		lastErr = err

		if !apperror.IsTransientRender(err) {
			return Artifact{}, err
		}
		if attempt == renderAttempts {
			break
		}

		logger.Warn(ctx, "render attempt failed, retrying",
			"invoice", inv.Number,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		if err := s.sleep(ctx, backoff); err != nil {
			return Artifact{}, err
		}
		backoff *= 2
	}

	return Artifact{}, fmt.Errorf("%w after %d attempts: %w", errRenderExhausted, renderAttempts, lastErr)
}

// classify maps an error to the batch stage it belongs to for reporting.
func classify(err error) (stage, msg string) {
	if errors.Is(err, errRenderExhausted) {
		return "render", err.Error()
	}
	if appErr, ok := apperror.AsAppError(err); ok {
		switch appErr.Code {
		case apperror.CodeTransientRender:
			return "render", appErr.Message
		case apperror.CodeDuplicatePeriod, apperror.CodeConflict:
			return "commit", appErr.Message
		default:
			return "prepare", appErr.Message
		}
	}
	return "prepare", err.Error()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
