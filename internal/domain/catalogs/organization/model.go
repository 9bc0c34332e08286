// Package organization provides the Organization catalog.
// An organization is an issuing legal entity; it owns one numbering counter
// per invoice series.
package organization

import (
	"context"

	"clinibill/internal/core/entity"
	"clinibill/internal/core/types"
	"clinibill/internal/domain/numbering"
)

// Organization represents a clinic legal entity that issues invoices.
type Organization struct {
	entity.Catalog

	// LegalName is the official registered name printed on invoices
	LegalName *string `db:"legal_name" json:"legalName,omitempty"`

	// TaxID is the tax identification number
	TaxID *string `db:"tax_id" json:"taxId,omitempty"`

	// InvoicePrefix is prepended to normal invoice numbers (e.g. "FACT")
	InvoicePrefix string `db:"invoice_prefix" json:"invoicePrefix"`

	// NumberPadWidth is the zero-padding width for all series (default 4)
	NumberPadWidth int `db:"number_pad_width" json:"numberPadWidth"`

	// DefaultTaxRate is the tax percentage applied to invoice lines
	DefaultTaxRate types.Rate `db:"default_tax_rate" json:"defaultTaxRate"`

	// DefaultWithholdingRate is the retention percentage subtracted from
	// the payable total
	DefaultWithholdingRate types.Rate `db:"default_withholding_rate" json:"defaultWithholdingRate"`

	// FallbackPrice is billed when a source record carries no resolvable
	// price of its own
	FallbackPrice types.Money `db:"fallback_price" json:"fallbackPrice"`

	// Last issued numbers per series. Display bookkeeping only - the
	// counter of record is sys_sequences.
	LastInvoiceNumber       *string `db:"last_invoice_number" json:"lastInvoiceNumber,omitempty"`
	LastRectificativeNumber *string `db:"last_rectificative_number" json:"lastRectificativeNumber,omitempty"`
	LastSimplifiedNumber    *string `db:"last_simplified_number" json:"lastSimplifiedNumber,omitempty"`

	// IsDefault indicates if this is the default organization for new documents
	IsDefault bool `db:"is_default" json:"isDefault"`
}

// NewOrganization creates a new Organization with required fields.
func NewOrganization(code, name, invoicePrefix string) *Organization {
	return &Organization{
		Catalog:        entity.NewCatalog(code, name),
		InvoicePrefix:  invoicePrefix,
		NumberPadWidth: numbering.DefaultPadWidth,
	}
}

// NumberingConfig returns the numbering configuration for this organization.
func (o *Organization) NumberingConfig() numbering.Config {
	padWidth := o.NumberPadWidth
	if padWidth <= 0 {
		padWidth = numbering.DefaultPadWidth
	}
	return numbering.Config{
		Prefix:   o.InvoicePrefix,
		PadWidth: padWidth,
	}
}

// Validate implements entity.Validatable interface.
func (o *Organization) Validate(ctx context.Context) error {
	return o.Catalog.Validate(ctx)
}
