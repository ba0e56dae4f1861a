// Package render produces invoice artifacts and combines batch output into
// a single downloadable archive.
package render

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"dairyledger/internal/domain/billingrun"
	"dairyledger/internal/domain/invoice"
)

// statementTemplate is a plain-text invoice statement. Swapping in a PDF
// engine only means replacing this renderer; the orchestrator sees the same
// interface.
var statementTemplate = template.Must(template.New("invoice").Parse(`INVOICE {{.Number}}
Date: {{.Date.Format "2006-01-02"}}
Period: {{.PeriodStart.Format "2006-01-02"}} to {{.PeriodEnd.Format "2006-01-02"}}
Due: {{.DueDate.Format "2006-01-02"}}

{{range .Lines}}{{.LineNo}}. {{.Product}}  x{{.Quantity}}  @{{.UnitPrice}}  = {{.LineTotal}}
{{end}}
Deliveries: {{.DeliveryAmount}}
Credit sales: {{.SalesAmount}}
GST: {{.GSTAmount}}
TOTAL: {{.GrandTotal}}
`))

// StatementRenderer renders invoices as plain-text statements.
type StatementRenderer struct{}

// NewStatementRenderer creates a plain-text renderer.
func NewStatementRenderer() *StatementRenderer {
	return &StatementRenderer{}
}

// Render produces the statement artifact for one invoice. Failures here are
// deterministic template errors, never transient, so they are not retried.
func (r *StatementRenderer) Render(ctx context.Context, inv *invoice.Invoice) (billingrun.Artifact, error) {
	var buf bytes.Buffer
	if err := statementTemplate.Execute(&buf, inv); err != nil {
		return billingrun.Artifact{}, fmt.Errorf("render invoice %s: %w", inv.Number, err)
	}

	return billingrun.Artifact{
		Name:        inv.Number + ".txt",
		ContentType: "text/plain; charset=utf-8",
		Data:        buf.Bytes(),
	}, nil
}

// Combine delegates to the archive builder.
func (r *StatementRenderer) Combine(ctx context.Context, artifacts []billingrun.Artifact) (billingrun.Artifact, error) {
	return CombineArchive(artifacts)
}
