package numbering

import (
	"context"
	"fmt"
	"time"

	"clinibill/internal/core/apperror"
	"clinibill/internal/core/id"
)

// DefaultPadWidth is the zero-padding applied when an organization does not
// configure one.
const DefaultPadWidth = 4

// Config holds per-organization numbering configuration.
type Config struct {
	// Prefix is prepended to normal invoice numbers (e.g. "FACT")
	Prefix string

	// PadWidth is the minimum number width (default 4)
	PadWidth int
}

// DefaultConfig returns sensible defaults for a prefix.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:   prefix,
		PadWidth: DefaultPadWidth,
	}
}

// Number is one allocated document number.
type Number struct {
	// Formatted is the legal document number as printed on the invoice
	Formatted string

	// Value is the raw counter value behind Formatted. Values issued over
	// time for one (organization, document type) form a contiguous,
	// strictly increasing sequence.
	Value int64
}

// Allocator turns counter values into formatted document numbers.
// All uniqueness and gaplessness guarantees are delegated to the store's
// atomic increment; the allocator never caches or pre-fetches values.
type Allocator struct {
	store SequenceStore
}

// NewAllocator creates an allocator backed by store.
func NewAllocator(store SequenceStore) *Allocator {
	return &Allocator{store: store}
}

// Allocate advances the (orgID, docType) counter and formats the result.
// period supplies the year component for rectificative numbers.
//
// No two calls - concurrent or sequential - return the same Value for the
// same (orgID, docType). A gap can appear only through RaiseFloor, never
// through this method.
func (a *Allocator) Allocate(ctx context.Context, orgID id.ID, docType DocumentType, cfg Config, period time.Time) (Number, error) {
	if !docType.Valid() {
		return Number{}, apperror.NewValidation("unknown document type").
			WithDetail("field", "documentType").
			WithDetail("value", string(docType))
	}

	val, err := a.store.Increment(ctx, orgID, docType)
	if err != nil {
		return Number{}, apperror.NewAllocation(string(docType), err)
	}

	return Number{
		Formatted: FormatNumber(docType, cfg, period, val),
		Value:     val,
	}, nil
}

// RaiseFloor raises the counter so the next Allocate returns floor+1.
// Used to deliberately skip numbers, e.g. to align with a legally
// pre-printed range. Raising to a value at or below the current counter is
// rejected; the underlying write is compare-and-set, so a concurrent
// allocation racing past the floor also causes rejection.
func (a *Allocator) RaiseFloor(ctx context.Context, orgID id.ID, docType DocumentType, floor int64) error {
	if !docType.Valid() {
		return apperror.NewValidation("unknown document type").
			WithDetail("field", "documentType").
			WithDetail("value", string(docType))
	}
	if floor <= 0 {
		return apperror.NewValidation("floor must be positive").
			WithDetail("field", "floor").
			WithDetail("value", floor)
	}

	ok, err := a.store.SetFloor(ctx, orgID, docType, floor)
	if err != nil {
		return apperror.NewAllocation(string(docType), err)
	}
	if !ok {
		return apperror.NewSequenceFloorRejected(string(docType), floor)
	}
	return nil
}

// FormatNumber applies the per-type formatting rule:
//
//	normal:        {prefix}{zero-padded value}
//	rectificative: REC{year}{zero-padded value}
//	simplified:    SIMP{zero-padded value}
func FormatNumber(docType DocumentType, cfg Config, period time.Time, value int64) string {
	padWidth := cfg.PadWidth
	if padWidth <= 0 {
		padWidth = DefaultPadWidth
	}

	switch docType {
	case TypeRectificative:
		return fmt.Sprintf("REC%d%0*d", period.Year(), padWidth, value)
	case TypeSimplified:
		return fmt.Sprintf("SIMP%0*d", padWidth, value)
	default:
		return fmt.Sprintf("%s%0*d", cfg.Prefix, padWidth, value)
	}
}
