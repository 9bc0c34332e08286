package invoice

import (
	"context"
	"time"

	"clinibill/internal/core/id"
)

// ListFilter narrows invoice listings.
type ListFilter struct {
	OrganizationID *id.ID
	CounterpartyID *id.ID
	DateFrom       *time.Time
	DateTo         *time.Time
	Limit          int
	Offset         int
}

// Repository defines persistence operations for invoices.
// The PostgreSQL implementation lives in infrastructure/storage/postgres.
type Repository interface {
	// Save persists the invoice header and all lines inside a single
	// transaction: both succeed or both are rolled back. This is the only
	// multi-record write in the billing core.
	Save(ctx context.Context, inv *Invoice, lines []Line) error

	// ExistsLineForSourceRecord reports whether any invoice line already
	// references the given source record. The batch engine consults it
	// before billing to keep re-runs idempotent.
	ExistsLineForSourceRecord(ctx context.Context, recordID id.ID) (bool, error)

	// SetDocumentURL records the location of the rendered document.
	// Executed outside the financial transaction; rendering is best-effort.
	SetDocumentURL(ctx context.Context, invID id.ID, url string) error

	GetByID(ctx context.Context, invID id.ID) (*Invoice, error)
	GetLines(ctx context.Context, invID id.ID) ([]Line, error)
	List(ctx context.Context, filter ListFilter) ([]*Invoice, error)
}
