package organization

import (
	"context"

	"clinibill/internal/core/id"
	"clinibill/internal/domain/numbering"
)

// Repository defines persistence operations for organizations.
type Repository interface {
	GetByID(ctx context.Context, orgID id.ID) (*Organization, error)
	List(ctx context.Context) ([]*Organization, error)
	Create(ctx context.Context, org *Organization) error
	Update(ctx context.Context, org *Organization) error

	// SetLastIssuedNumber updates the display bookkeeping for the most
	// recently issued number of the given series.
	SetLastIssuedNumber(ctx context.Context, orgID id.ID, docType numbering.DocumentType, number string) error
}
