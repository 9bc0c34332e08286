package dto

import (
	"clinibill/internal/core/apperror"
	"clinibill/internal/core/id"
	"clinibill/internal/domain/billing"
	"clinibill/internal/domain/numbering"
)

// RunBatchRequest starts a batch invoice generation run.
type RunBatchRequest struct {
	OrganizationID string `json:"organizationId" binding:"required"`
	From           string `json:"from" binding:"required"`
	To             string `json:"to" binding:"required"`
	DocumentType   string `json:"documentType"`

	// PolicyExpr is an optional CEL expression selecting billable records.
	// Empty means every record in range is billable.
	PolicyExpr string `json:"policyExpr"`
}

// ToScope validates the request and builds the run scope.
func (r RunBatchRequest) ToScope() (billing.Scope, error) {
	orgID, err := id.Parse(r.OrganizationID)
	if err != nil {
		return billing.Scope{}, apperror.NewValidation("invalid organization id").
			WithDetail("field", "organizationId")
	}

	from, err := ParseDate("from", r.From)
	if err != nil {
		return billing.Scope{}, err
	}
	to, err := ParseDate("to", r.To)
	if err != nil {
		return billing.Scope{}, err
	}

	docType := numbering.TypeNormal
	if r.DocumentType != "" {
		docType, err = numbering.ParseDocumentType(r.DocumentType)
		if err != nil {
			return billing.Scope{}, err
		}
	}

	return billing.Scope{
		OrganizationID: orgID,
		From:           from,
		To:             to,
		DocType:        docType,
		PolicyExpr:     r.PolicyExpr,
	}, nil
}
