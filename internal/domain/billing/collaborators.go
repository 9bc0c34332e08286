package billing

import (
	"context"

	"clinibill/internal/core/id"
	"clinibill/internal/domain/documents/invoice"
)

// Renderer produces the printable document for an invoice.
// Rendering is best-effort: a failure never rolls back the persisted
// invoice, since the financial record is the primary guarantee and the
// document is a reproducible artifact.
type Renderer interface {
	Render(ctx context.Context, inv *invoice.Invoice, lines []invoice.Line) ([]byte, error)
}

// BlobStorage stores rendered documents and returns their location.
type BlobStorage interface {
	Store(ctx context.Context, data []byte, suggestedName string) (string, error)
}

// AuditSink records finished batch runs for operators. Optional; failures
// are logged, never propagated.
type AuditSink interface {
	SaveRun(ctx context.Context, orgID id.ID, report *Report) error
}
