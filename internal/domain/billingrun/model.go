// Package billingrun generates invoices for many customers in one batch:
// preflight duplicate gate, sequential per-customer generation with render
// retries, per-customer failure isolation, and a combined artifact at the end.
package billingrun

import (
	"context"
	"time"

	"dairyledger/internal/core/id"
	"dairyledger/internal/domain"
	"dairyledger/internal/domain/invoice"
)

// Artifact is a rendered invoice document, typically a PDF.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Renderer turns committed invoices into artifacts. Render failures may be
// transient (remote renderer hiccup), in which case the orchestrator retries.
type Renderer interface {
	Render(ctx context.Context, inv *invoice.Invoice) (Artifact, error)
	Combine(ctx context.Context, artifacts []Artifact) (Artifact, error)
}

// Request describes a batch run.
type Request struct {
	CustomerIDs []id.ID
	Period      domain.Period
	Date        time.Time
}

// ItemError records one customer's failure without stopping the batch.
type ItemError struct {
	CustomerID id.ID  `json:"customerId"`
	Stage      string `json:"stage"` // "prepare", "render" or "commit"
	Message    string `json:"message"`
}

// Progress is a point-in-time snapshot emitted after each customer.
type Progress struct {
	Completed       int         `json:"completed"`
	Total           int         `json:"total"`
	CurrentCustomer id.ID       `json:"currentCustomer"`
	Errors          []ItemError `json:"errors,omitempty"`
	IsComplete      bool        `json:"isComplete"`
}

// Observer receives progress snapshots. Called synchronously from the batch
// loop; implementations must be fast and must not block.
type Observer func(Progress)

// Result is the outcome of a completed batch run.
type Result struct {
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Errors     []ItemError      `json:"errors,omitempty"`
	InvoiceIDs []id.ID          `json:"invoiceIds"`
	Combined   *Artifact        `json:"-"`
	Artifacts  map[id.ID][]byte `json:"-"`
}
