package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"clinibill/internal/core/id"
	"clinibill/internal/domain/numbering"
)

const sequencesTable = "sys_sequences"

// SequenceStore is the PostgreSQL implementation of numbering.SequenceStore.
//
// The counter row is keyed by (organization_id, document_type), so contention
// is isolated per organization and series: two organizations, or two series
// of one organization, never serialize on each other.
type SequenceStore struct {
	txm *TxManager
}

// Ensure compile-time interface compliance.
var _ numbering.SequenceStore = (*SequenceStore)(nil)

// NewSequenceStore creates a sequence store.
func NewSequenceStore(txm *TxManager) *SequenceStore {
	return &SequenceStore{txm: txm}
}

// Increment advances the counter by one and returns the new value, creating
// the row lazily at zero.
//
// The UPSERT executes read-increment-write as one statement under the row
// lock, so concurrent callers each get a distinct value. Reading current_val
// and writing current_val+1 in two statements would hand the same number to
// two callers.
func (s *SequenceStore) Increment(ctx context.Context, orgID id.ID, docType numbering.DocumentType) (int64, error) {
	querier := s.txm.GetQuerier(ctx)

	var val int64
	err := querier.QueryRow(ctx, `
        INSERT INTO `+sequencesTable+` (organization_id, document_type, current_val)
        VALUES ($1, $2, 1)
        ON CONFLICT (organization_id, document_type)
        DO UPDATE SET current_val = `+sequencesTable+`.current_val + 1
        RETURNING current_val
	`, orgID, string(docType)).Scan(&val)
	if err != nil {
		return 0, fmt.Errorf("increment sequence: %w", err)
	}

	return val, nil
}

// SetFloor raises the counter to floor. Compare-and-set: the guarded UPDATE
// only fires while floor is still greater than the stored value, so a
// concurrent allocation racing past the floor turns the override into a
// clean rejection instead of a counter rollback.
func (s *SequenceStore) SetFloor(ctx context.Context, orgID id.ID, docType numbering.DocumentType, floor int64) (bool, error) {
	querier := s.txm.GetQuerier(ctx)

	var val int64
	err := querier.QueryRow(ctx, `
        INSERT INTO `+sequencesTable+` (organization_id, document_type, current_val)
        VALUES ($1, $2, $3)
        ON CONFLICT (organization_id, document_type)
        DO UPDATE SET current_val = EXCLUDED.current_val
        WHERE `+sequencesTable+`.current_val < EXCLUDED.current_val
        RETURNING current_val
	`, orgID, string(docType), floor).Scan(&val)

	if errors.Is(err, pgx.ErrNoRows) {
		// Guard clause rejected the write: floor <= current.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("set sequence floor: %w", err)
	}

	return true, nil
}
