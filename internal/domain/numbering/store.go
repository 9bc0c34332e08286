package numbering

import (
	"context"

	"clinibill/internal/core/id"
)

// SequenceStore is the durable per-(organization, document type) counter.
// This is the domain contract - the PostgreSQL implementation lives in
// infrastructure/storage/postgres.
type SequenceStore interface {
	// Increment atomically advances the counter by one and returns the new
	// value. The counter is created lazily at zero, so the first call
	// returns 1.
	//
	// Read-increment-write MUST be a single atomic unit (e.g. an
	// UPSERT ... RETURNING statement or a CAS loop). A plain read followed
	// by a write is a duplicate-number race under concurrent callers.
	Increment(ctx context.Context, orgID id.ID, docType DocumentType) (int64, error)

	// SetFloor raises the counter to floor so the next Increment returns
	// floor+1. The write is compare-and-set: it succeeds only if floor is
	// still greater than the counter at the moment of the write, and
	// returns false otherwise. Lowering the counter is never possible.
	SetFloor(ctx context.Context, orgID id.ID, docType DocumentType, floor int64) (bool, error)
}
