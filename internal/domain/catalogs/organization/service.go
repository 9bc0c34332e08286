package organization

import (
	"context"

	"clinibill/internal/core/id"
	"clinibill/internal/domain/numbering"
	"clinibill/pkg/logger"
)

// Service provides business logic for the Organization catalog,
// including administrative control over numbering sequences.
type Service struct {
	repo      Repository
	allocator *numbering.Allocator
}

// NewService creates a new Organization service.
func NewService(repo Repository, allocator *numbering.Allocator) *Service {
	return &Service{repo: repo, allocator: allocator}
}

// GetByID retrieves an organization.
func (s *Service) GetByID(ctx context.Context, orgID id.ID) (*Organization, error) {
	return s.repo.GetByID(ctx, orgID)
}

// List retrieves all organizations.
func (s *Service) List(ctx context.Context) ([]*Organization, error) {
	return s.repo.List(ctx)
}

// Create validates and persists a new organization.
func (s *Service) Create(ctx context.Context, org *Organization) error {
	if err := org.Validate(ctx); err != nil {
		return err
	}
	return s.repo.Create(ctx, org)
}

// Update validates and persists organization changes.
func (s *Service) Update(ctx context.Context, org *Organization) error {
	if err := org.Validate(ctx); err != nil {
		return err
	}
	return s.repo.Update(ctx, org)
}

// RaiseSequenceFloor raises the numbering counter of one series so the next
// issued number is floor+1. Used to align with a legally pre-printed range.
// Rejected if the organization does not exist or floor is not above the
// current counter.
func (s *Service) RaiseSequenceFloor(ctx context.Context, orgID id.ID, docType numbering.DocumentType, floor int64) error {
	org, err := s.repo.GetByID(ctx, orgID)
	if err != nil {
		return err
	}

	if err := s.allocator.RaiseFloor(ctx, orgID, docType, floor); err != nil {
		return err
	}

	logger.Info(ctx, "sequence floor raised",
		"organization", org.Name,
		"document_type", string(docType),
		"floor", floor,
	)
	return nil
}
