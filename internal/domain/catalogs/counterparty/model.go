// Package counterparty provides the Counterparty catalog.
// Counterparties are the billed parties: clinic clients and, occasionally,
// partner companies.
package counterparty

import (
	"context"
	"regexp"
	"strings"

	"clinibill/internal/core/apperror"
	"clinibill/internal/core/entity"
)

// Pre-compiled regex patterns for validation (performance optimization)
var (
	emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// RequiredInvoiceFields are the counterparty fields that must be non-blank
// before an invoice can be issued automatically. Order matters: missing-field
// reports list them in this order.
var RequiredInvoiceFields = []string{
	"legal_name",
	"tax_id",
	"address",
	"postal_code",
	"city",
}

// Counterparty represents a billed party (a clinic client).
type Counterparty struct {
	entity.Catalog

	// LegalName is the official name as it must appear on invoices
	LegalName *string `db:"legal_name" json:"legalName,omitempty"`

	// TaxID is the tax identification number
	TaxID *string `db:"tax_id" json:"taxId,omitempty"`

	// Address is the street address for invoicing
	Address *string `db:"address" json:"address,omitempty"`

	// PostalCode is the postal code for invoicing
	PostalCode *string `db:"postal_code" json:"postalCode,omitempty"`

	// City is the city for invoicing
	City *string `db:"city" json:"city,omitempty"`

	// Phone is the primary contact phone
	Phone *string `db:"phone" json:"phone,omitempty"`

	// Email is the primary contact email
	Email *string `db:"email" json:"email,omitempty"`

	// Comment is a free-form note
	Comment *string `db:"comment" json:"comment,omitempty"`
}

// NewCounterparty creates a new Counterparty with required fields.
func NewCounterparty(code, name string) *Counterparty {
	return &Counterparty{
		Catalog: entity.NewCatalog(code, name),
	}
}

// Validate implements entity.Validatable interface.
func (c *Counterparty) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}

	if c.Email != nil && *c.Email != "" && !emailRE.MatchString(*c.Email) {
		return apperror.NewValidation("invalid email format").
			WithDetail("field", "email")
	}

	return nil
}

// MissingInvoiceFields returns the names of required invoicing fields that
// are absent or blank, in RequiredInvoiceFields order. Empty result means
// the counterparty is eligible for automatic invoicing.
func (c *Counterparty) MissingInvoiceFields() []string {
	values := map[string]*string{
		"legal_name":  c.LegalName,
		"tax_id":      c.TaxID,
		"address":     c.Address,
		"postal_code": c.PostalCode,
		"city":        c.City,
	}

	var missing []string
	for _, field := range RequiredInvoiceFields {
		v := values[field]
		if v == nil || strings.TrimSpace(*v) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// IsInvoiceable reports whether all required invoicing fields are present.
func (c *Counterparty) IsInvoiceable() bool {
	return len(c.MissingInvoiceFields()) == 0
}
