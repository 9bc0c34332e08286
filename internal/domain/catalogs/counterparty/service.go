package counterparty

import (
	"context"

	"clinibill/internal/core/id"
)

// Service provides business logic for the Counterparty catalog.
type Service struct {
	repo Repository
}

// NewService creates a new Counterparty service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetByID retrieves a counterparty.
func (s *Service) GetByID(ctx context.Context, cpID id.ID) (*Counterparty, error) {
	return s.repo.GetByID(ctx, cpID)
}

// List retrieves all counterparties.
func (s *Service) List(ctx context.Context) ([]*Counterparty, error) {
	return s.repo.List(ctx)
}

// Create validates and persists a new counterparty.
func (s *Service) Create(ctx context.Context, cp *Counterparty) error {
	if err := cp.Validate(ctx); err != nil {
		return err
	}
	return s.repo.Create(ctx, cp)
}

// Update validates and persists counterparty changes.
func (s *Service) Update(ctx context.Context, cp *Counterparty) error {
	if err := cp.Validate(ctx); err != nil {
		return err
	}
	return s.repo.Update(ctx, cp)
}

// Completeness reports whether the counterparty can be invoiced
// automatically, and which required fields are missing if not.
// Surfaced to operators so records can be corrected before the next batch.
func (s *Service) Completeness(ctx context.Context, cpID id.ID) (bool, []string, error) {
	cp, err := s.repo.GetByID(ctx, cpID)
	if err != nil {
		return false, nil, err
	}
	missing := cp.MissingInvoiceFields()
	return len(missing) == 0, missing, nil
}
