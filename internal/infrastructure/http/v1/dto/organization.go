package dto

import (
	"clinibill/internal/core/apperror"
	"clinibill/internal/core/types"
	"clinibill/internal/domain/catalogs/organization"
)

// CreateOrganizationRequest is the payload for creating an organization.
type CreateOrganizationRequest struct {
	Code                   string  `json:"code" binding:"required"`
	Name                   string  `json:"name" binding:"required"`
	LegalName              *string `json:"legalName"`
	TaxID                  *string `json:"taxId"`
	InvoicePrefix          string  `json:"invoicePrefix" binding:"required"`
	NumberPadWidth         int     `json:"numberPadWidth"`
	DefaultTaxRate         string  `json:"defaultTaxRate"`
	DefaultWithholdingRate string  `json:"defaultWithholdingRate"`
	FallbackPrice          string  `json:"fallbackPrice"`
	IsDefault              bool    `json:"isDefault"`
}

// ToEntity converts the request into a new Organization.
func (r CreateOrganizationRequest) ToEntity() (*organization.Organization, error) {
	org := organization.NewOrganization(r.Code, r.Name, r.InvoicePrefix)
	org.LegalName = r.LegalName
	org.TaxID = r.TaxID
	org.IsDefault = r.IsDefault
	if r.NumberPadWidth > 0 {
		org.NumberPadWidth = r.NumberPadWidth
	}

	var err error
	if org.DefaultTaxRate, err = parseRate("defaultTaxRate", r.DefaultTaxRate); err != nil {
		return nil, err
	}
	if org.DefaultWithholdingRate, err = parseRate("defaultWithholdingRate", r.DefaultWithholdingRate); err != nil {
		return nil, err
	}
	if org.FallbackPrice, err = parseMoney("fallbackPrice", r.FallbackPrice); err != nil {
		return nil, err
	}

	return org, nil
}

// UpdateOrganizationRequest is the payload for updating an organization.
type UpdateOrganizationRequest struct {
	Name                   *string `json:"name"`
	LegalName              *string `json:"legalName"`
	TaxID                  *string `json:"taxId"`
	InvoicePrefix          *string `json:"invoicePrefix"`
	NumberPadWidth         *int    `json:"numberPadWidth"`
	DefaultTaxRate         *string `json:"defaultTaxRate"`
	DefaultWithholdingRate *string `json:"defaultWithholdingRate"`
	FallbackPrice          *string `json:"fallbackPrice"`
	IsDefault              *bool   `json:"isDefault"`
	Version                int     `json:"version" binding:"required"`
}

// ApplyTo merges the request into an existing Organization.
func (r UpdateOrganizationRequest) ApplyTo(org *organization.Organization) error {
	org.Version = r.Version

	if r.Name != nil {
		org.Name = *r.Name
	}
	if r.LegalName != nil {
		org.LegalName = r.LegalName
	}
	if r.TaxID != nil {
		org.TaxID = r.TaxID
	}
	if r.InvoicePrefix != nil {
		org.InvoicePrefix = *r.InvoicePrefix
	}
	if r.NumberPadWidth != nil {
		org.NumberPadWidth = *r.NumberPadWidth
	}
	if r.IsDefault != nil {
		org.IsDefault = *r.IsDefault
	}

	var err error
	if r.DefaultTaxRate != nil {
		if org.DefaultTaxRate, err = parseRate("defaultTaxRate", *r.DefaultTaxRate); err != nil {
			return err
		}
	}
	if r.DefaultWithholdingRate != nil {
		if org.DefaultWithholdingRate, err = parseRate("defaultWithholdingRate", *r.DefaultWithholdingRate); err != nil {
			return err
		}
	}
	if r.FallbackPrice != nil {
		if org.FallbackPrice, err = parseMoney("fallbackPrice", *r.FallbackPrice); err != nil {
			return err
		}
	}

	return nil
}

// RaiseSequenceFloorRequest is the payload for a numbering floor override.
type RaiseSequenceFloorRequest struct {
	DocumentType string `json:"documentType" binding:"required"`
	Floor        int64  `json:"floor" binding:"required"`
}

func parseRate(field, value string) (types.Rate, error) {
	return parseMoney(field, value)
}

func parseMoney(field, value string) (types.Money, error) {
	if value == "" {
		return types.Zero(), nil
	}
	m, err := types.NewMoneyFromString(value)
	if err != nil {
		return types.Zero(), apperror.NewValidation("invalid decimal value").
			WithDetail("field", field).
			WithDetail("value", value)
	}
	return m, nil
}
