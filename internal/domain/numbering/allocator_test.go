package numbering

import (
	"context"
	"sync"
	"testing"
	"time"

	"clinibill/internal/core/apperror"
	"clinibill/internal/core/id"
)

// fakeStore simulates the database counter with the same semantics:
// atomic increment, compare-and-set floor.
type fakeStore struct {
	mu       sync.Mutex
	counters map[string]int64
	err      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{counters: make(map[string]int64)}
}

func (s *fakeStore) key(orgID id.ID, docType DocumentType) string {
	return orgID.String() + "/" + string(docType)
}

func (s *fakeStore) Increment(_ context.Context, orgID id.ID, docType DocumentType) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(orgID, docType)
	s.counters[k]++
	return s.counters[k], nil
}

func (s *fakeStore) SetFloor(_ context.Context, orgID id.ID, docType DocumentType, floor int64) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(orgID, docType)
	if s.counters[k] >= floor {
		return false, nil
	}
	s.counters[k] = floor
	return true, nil
}

func TestFormatNumber(t *testing.T) {
	period := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		docType DocumentType
		cfg     Config
		value   int64
		want    string
	}{
		{
			name:    "normal with prefix and default padding",
			docType: TypeNormal,
			cfg:     Config{Prefix: "FACT", PadWidth: 4},
			value:   42,
			want:    "FACT0042",
		},
		{
			name:    "normal overflows padding without truncation",
			docType: TypeNormal,
			cfg:     Config{Prefix: "FACT", PadWidth: 4},
			value:   123456,
			want:    "FACT123456",
		},
		{
			name:    "rectificative embeds year, ignores prefix",
			docType: TypeRectificative,
			cfg:     Config{Prefix: "FACT", PadWidth: 4},
			value:   6,
			want:    "REC20240006",
		},
		{
			name:    "simplified ignores prefix",
			docType: TypeSimplified,
			cfg:     Config{Prefix: "FACT", PadWidth: 4},
			value:   7,
			want:    "SIMP0007",
		},
		{
			name:    "zero pad width falls back to default",
			docType: TypeNormal,
			cfg:     Config{Prefix: "A"},
			value:   3,
			want:    "A0003",
		},
		{
			name:    "custom pad width",
			docType: TypeNormal,
			cfg:     Config{Prefix: "INV", PadWidth: 6},
			value:   99,
			want:    "INV000099",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatNumber(tt.docType, tt.cfg, period, tt.value)
			if got != tt.want {
				t.Errorf("FormatNumber() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAllocator_Allocate_Sequential(t *testing.T) {
	store := newFakeStore()
	alloc := NewAllocator(store)
	ctx := context.Background()
	orgID := id.New()
	cfg := Config{Prefix: "FACT", PadWidth: 4}

	for i := int64(1); i <= 5; i++ {
		num, err := alloc.Allocate(ctx, orgID, TypeNormal, cfg, time.Now())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if num.Value != i {
			t.Errorf("call %d: Value = %d, want %d", i, num.Value, i)
		}
	}
}

func TestAllocator_Allocate_IndependentSeries(t *testing.T) {
	store := newFakeStore()
	alloc := NewAllocator(store)
	ctx := context.Background()
	orgA, orgB := id.New(), id.New()
	cfg := DefaultConfig("FACT")

	// Each (org, type) pair advances independently.
	n1, _ := alloc.Allocate(ctx, orgA, TypeNormal, cfg, time.Now())
	n2, _ := alloc.Allocate(ctx, orgA, TypeSimplified, cfg, time.Now())
	n3, _ := alloc.Allocate(ctx, orgB, TypeNormal, cfg, time.Now())

	if n1.Value != 1 || n2.Value != 1 || n3.Value != 1 {
		t.Errorf("independent series must each start at 1, got %d, %d, %d",
			n1.Value, n2.Value, n3.Value)
	}
}

func TestAllocator_Allocate_ConcurrentUniqueness(t *testing.T) {
	store := newFakeStore()
	alloc := NewAllocator(store)
	ctx := context.Background()
	orgID := id.New()
	cfg := DefaultConfig("FACT")

	const goroutines = 50

	var wg sync.WaitGroup
	results := make(chan int64, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := alloc.Allocate(ctx, orgID, TypeNormal, cfg, time.Now())
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results <- num.Value
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool)
	for v := range results {
		if seen[v] {
			t.Fatalf("duplicate value issued: %d", v)
		}
		seen[v] = true
	}
	if len(seen) != goroutines {
		t.Errorf("issued %d distinct values, want %d", len(seen), goroutines)
	}
	// Gapless: exactly 1..goroutines.
	for i := int64(1); i <= goroutines; i++ {
		if !seen[i] {
			t.Errorf("gap in sequence: %d never issued", i)
		}
	}
}

func TestAllocator_Allocate_InvalidType(t *testing.T) {
	alloc := NewAllocator(newFakeStore())

	_, err := alloc.Allocate(context.Background(), id.New(), DocumentType("bogus"), DefaultConfig("X"), time.Now())
	if err == nil {
		t.Fatal("expected validation error for unknown document type")
	}
}

func TestAllocator_RaiseFloor(t *testing.T) {
	store := newFakeStore()
	alloc := NewAllocator(store)
	ctx := context.Background()
	orgID := id.New()
	cfg := DefaultConfig("FACT")

	// Burn a few numbers first.
	for i := 0; i < 3; i++ {
		if _, err := alloc.Allocate(ctx, orgID, TypeNormal, cfg, time.Now()); err != nil {
			t.Fatalf("allocate: %v", err)
		}
	}

	// Raise above current: accepted, next number is floor+1.
	if err := alloc.RaiseFloor(ctx, orgID, TypeNormal, 100); err != nil {
		t.Fatalf("RaiseFloor(100): %v", err)
	}
	num, err := alloc.Allocate(ctx, orgID, TypeNormal, cfg, time.Now())
	if err != nil {
		t.Fatalf("allocate after floor: %v", err)
	}
	if num.Value != 101 {
		t.Errorf("Value after floor = %d, want 101", num.Value)
	}

	// Raise at or below current: rejected with typed error.
	err = alloc.RaiseFloor(ctx, orgID, TypeNormal, 50)
	if !apperror.IsSequenceFloorRejected(err) {
		t.Errorf("expected SequenceFloorRejected, got %v", err)
	}
	err = alloc.RaiseFloor(ctx, orgID, TypeNormal, 101)
	if !apperror.IsSequenceFloorRejected(err) {
		t.Errorf("expected SequenceFloorRejected for floor == current, got %v", err)
	}

	// Non-positive floor and bad type rejected before hitting the store.
	if err := alloc.RaiseFloor(ctx, orgID, TypeNormal, 0); err == nil {
		t.Error("expected error for zero floor")
	}
	if err := alloc.RaiseFloor(ctx, orgID, DocumentType("bogus"), 10); err == nil {
		t.Error("expected error for unknown document type")
	}
}
