// Package invoice provides the Invoice document: the persisted financial
// record produced by batch generation. Invoices are immutable once saved
// except for status transitions handled outside this core.
package invoice

import (
	"context"

	"clinibill/internal/core/apperror"
	"clinibill/internal/core/entity"
	"clinibill/internal/core/id"
	"clinibill/internal/core/types"
	"clinibill/internal/domain/numbering"
)

// Status represents the invoice lifecycle state. The batch engine only ever
// creates invoices in StatusIssued; later transitions belong to receivables
// management, not this core.
type Status string

const (
	StatusIssued    Status = "issued"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// Invoice represents a legally numbered invoice document.
type Invoice struct {
	entity.Document

	// CounterpartyID is the billed party
	CounterpartyID id.ID `db:"counterparty_id" json:"counterpartyId"`

	// Type selects the numbering series this invoice belongs to
	Type numbering.DocumentType `db:"document_type" json:"documentType"`

	// RawNumber is the counter value behind Number (gapless per org+type)
	RawNumber int64 `db:"raw_number" json:"rawNumber"`

	// Monetary totals. Tax and withholding are both computed off the
	// post-discount base; Total = Base + Tax - Withholding.
	Base        types.Money `db:"base" json:"base"`
	Tax         types.Money `db:"tax" json:"tax"`
	Withholding types.Money `db:"withholding" json:"withholding"`
	Discount    types.Money `db:"discount" json:"discount"`
	Total       types.Money `db:"total" json:"total"`

	Status Status `db:"status" json:"status"`

	// DocumentURL points at the rendered document, when rendering succeeded
	DocumentURL *string `db:"document_url" json:"documentUrl,omitempty"`

	// Table part: invoice lines
	Lines []Line `db:"-" json:"lines"`
}

// Line represents one invoice line.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	Description     string      `db:"description" json:"description"`
	Quantity        types.Money `db:"quantity" json:"quantity"`
	UnitPrice       types.Money `db:"unit_price" json:"unitPrice"`
	DiscountPct     types.Rate  `db:"discount_pct" json:"discountPct"`
	TaxRate         types.Rate  `db:"tax_rate" json:"taxRate"`
	WithholdingRate types.Rate  `db:"withholding_rate" json:"withholdingRate"`

	// Amount is the post-discount line base
	Amount types.Money `db:"amount" json:"amount"`

	// SourceRecordID links back to the billed source record. At most one
	// line may reference a given record - this is the double-billing guard.
	SourceRecordID *id.ID `db:"source_record_id" json:"sourceRecordId,omitempty"`
}

// Totals are the aggregate amounts of an assembled invoice.
type Totals struct {
	Base        types.Money
	Tax         types.Money
	Withholding types.Money
	Discount    types.Money
	Total       types.Money
}

// NewInvoice creates a new invoice shell for an organization and counterparty.
func NewInvoice(organizationID, counterpartyID id.ID, docType numbering.DocumentType) *Invoice {
	return &Invoice{
		Document:       entity.NewDocument(organizationID),
		CounterpartyID: counterpartyID,
		Type:           docType,
		Status:         StatusIssued,
	}
}

// ApplyTotals copies assembled totals onto the invoice.
func (inv *Invoice) ApplyTotals(t Totals) {
	inv.Base = t.Base
	inv.Tax = t.Tax
	inv.Withholding = t.Withholding
	inv.Discount = t.Discount
	inv.Total = t.Total
}

// Validate implements entity.Validatable.
func (inv *Invoice) Validate(ctx context.Context) error {
	if err := inv.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(inv.CounterpartyID) {
		return apperror.NewValidation("counterparty is required").
			WithDetail("field", "counterpartyId")
	}

	if !inv.Type.Valid() {
		return apperror.NewValidation("unknown document type").
			WithDetail("field", "documentType").
			WithDetail("value", string(inv.Type))
	}

	if inv.Number == "" {
		return apperror.NewValidation("number is required").
			WithDetail("field", "number")
	}

	if len(inv.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range inv.Lines {
		if line.Quantity.Sign() <= 0 {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}
