package dto

import (
	"clinibill/internal/domain/catalogs/counterparty"
)

// CreateCounterpartyRequest is the payload for creating a counterparty.
type CreateCounterpartyRequest struct {
	Code       string  `json:"code" binding:"required"`
	Name       string  `json:"name" binding:"required"`
	LegalName  *string `json:"legalName"`
	TaxID      *string `json:"taxId"`
	Address    *string `json:"address"`
	PostalCode *string `json:"postalCode"`
	City       *string `json:"city"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
	Comment    *string `json:"comment"`
}

// ToEntity converts the request into a new Counterparty.
func (r CreateCounterpartyRequest) ToEntity() *counterparty.Counterparty {
	cp := counterparty.NewCounterparty(r.Code, r.Name)
	cp.LegalName = r.LegalName
	cp.TaxID = r.TaxID
	cp.Address = r.Address
	cp.PostalCode = r.PostalCode
	cp.City = r.City
	cp.Phone = r.Phone
	cp.Email = r.Email
	cp.Comment = r.Comment
	return cp
}

// UpdateCounterpartyRequest is the payload for updating a counterparty.
type UpdateCounterpartyRequest struct {
	Name       *string `json:"name"`
	LegalName  *string `json:"legalName"`
	TaxID      *string `json:"taxId"`
	Address    *string `json:"address"`
	PostalCode *string `json:"postalCode"`
	City       *string `json:"city"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
	Comment    *string `json:"comment"`
	Version    int     `json:"version" binding:"required"`
}

// ApplyTo merges the request into an existing Counterparty.
func (r UpdateCounterpartyRequest) ApplyTo(cp *counterparty.Counterparty) {
	cp.Version = r.Version

	if r.Name != nil {
		cp.Name = *r.Name
	}
	if r.LegalName != nil {
		cp.LegalName = r.LegalName
	}
	if r.TaxID != nil {
		cp.TaxID = r.TaxID
	}
	if r.Address != nil {
		cp.Address = r.Address
	}
	if r.PostalCode != nil {
		cp.PostalCode = r.PostalCode
	}
	if r.City != nil {
		cp.City = r.City
	}
	if r.Phone != nil {
		cp.Phone = r.Phone
	}
	if r.Email != nil {
		cp.Email = r.Email
	}
	if r.Comment != nil {
		cp.Comment = r.Comment
	}
}

// CompletenessResponse reports invoiceability of a counterparty.
type CompletenessResponse struct {
	Invoiceable   bool     `json:"invoiceable"`
	MissingFields []string `json:"missingFields,omitempty"`
}
