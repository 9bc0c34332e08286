// Package billing provides the batch invoice generation engine: it turns a
// date range of billable service records into legally numbered invoices, one
// per counterparty, tolerating per-counterparty failure without aborting the
// whole run.
package billing

import (
	"context"
	"time"

	"clinibill/internal/core/id"
	"clinibill/internal/core/types"
	"clinibill/internal/domain/catalogs/counterparty"
	"clinibill/internal/domain/numbering"
)

// SourceRecord is a billable service event (e.g. a completed appointment).
// Read-only to this core; produced and mutated by scheduling.
type SourceRecord struct {
	ID             id.ID       `db:"id" json:"id"`
	OrganizationID id.ID       `db:"organization_id" json:"organizationId"`
	CounterpartyID id.ID       `db:"counterparty_id" json:"counterpartyId"`
	Date           time.Time   `db:"date" json:"date"`
	Status         string      `db:"status" json:"status"`
	Description    string      `db:"description" json:"description"`
	Price          *types.Money `db:"price" json:"price,omitempty"`
}

// Scope identifies what one batch run covers: an organization and an
// inclusive date range, billed into one numbering series.
type Scope struct {
	OrganizationID id.ID
	From           time.Time
	To             time.Time
	DocType        numbering.DocumentType

	// PolicyExpr is the explicit billable-status policy (CEL). Empty means
	// DefaultPolicyExpr: every record in range is billable regardless of
	// status. Which statuses are billable is a business decision made by
	// the caller, never an implicit filter in the aggregator.
	PolicyExpr string
}

// PricedRecord is a source record with its resolved unit price.
type PricedRecord struct {
	SourceRecord
	UnitPrice types.Money
}

// CounterpartyGroup is one counterparty's billable records for the scope.
type CounterpartyGroup struct {
	Counterparty *counterparty.Counterparty
	Records      []PricedRecord
	Total        types.Money

	// Set by the completeness validator
	Eligible      bool
	MissingFields []string
}

// RecordSource reads billable source records. Implementations return all
// records in range regardless of status; status policy is applied by the
// aggregator through the run's explicit BillablePolicy.
type RecordSource interface {
	ListBillable(ctx context.Context, orgID id.ID, from, to time.Time) ([]SourceRecord, error)
}

// PriceResolver resolves the unit price for a record. Returning false means
// no price is resolvable and the organization's fallback price applies.
type PriceResolver func(rec SourceRecord) (types.Money, bool)

// DefaultPriceResolver uses the price carried on the record itself.
func DefaultPriceResolver(rec SourceRecord) (types.Money, bool) {
	if rec.Price == nil {
		return types.Zero(), false
	}
	return *rec.Price, true
}
