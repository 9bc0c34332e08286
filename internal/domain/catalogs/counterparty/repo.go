package counterparty

import (
	"context"

	"clinibill/internal/core/id"
)

// Repository defines persistence operations for counterparties.
type Repository interface {
	GetByID(ctx context.Context, cpID id.ID) (*Counterparty, error)
	GetByIDs(ctx context.Context, ids []id.ID) (map[id.ID]*Counterparty, error)
	List(ctx context.Context) ([]*Counterparty, error)
	Create(ctx context.Context, cp *Counterparty) error
	Update(ctx context.Context, cp *Counterparty) error
}
