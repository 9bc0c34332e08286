package billing

import (
	"testing"

	"clinibill/internal/core/types"
)

func TestCompileBillablePolicy_EmptyMeansEverything(t *testing.T) {
	policy, err := CompileBillablePolicy("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policy.Expr() != DefaultPolicyExpr {
		t.Errorf("Expr() = %q, want %q", policy.Expr(), DefaultPolicyExpr)
	}

	// Cancelled records are billable under the default policy: exclusion is
	// an explicit operator decision, never an implicit filter.
	ok, err := policy.Billable(SourceRecord{Status: "cancelled"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("default policy must bill every record regardless of status")
	}
}

func TestBillablePolicy_StatusFilter(t *testing.T) {
	policy, err := CompileBillablePolicy(`status in ["completed", "no_show"]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		status string
		want   bool
	}{
		{"completed", true},
		{"no_show", true},
		{"cancelled", false},
		{"scheduled", false},
	}
	for _, tt := range tests {
		got, err := policy.Billable(SourceRecord{Status: tt.status})
		if err != nil {
			t.Fatalf("status %q: %v", tt.status, err)
		}
		if got != tt.want {
			t.Errorf("status %q: billable = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestBillablePolicy_PricePresence(t *testing.T) {
	policy, err := CompileBillablePolicy(`status != "cancelled" && has_price`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	price := types.MustMoney("50")

	ok, _ := policy.Billable(SourceRecord{Status: "completed", Price: &price})
	if !ok {
		t.Error("priced completed record must be billable")
	}
	ok, _ = policy.Billable(SourceRecord{Status: "completed"})
	if ok {
		t.Error("unpriced record must not be billable under has_price policy")
	}
}

func TestCompileBillablePolicy_Invalid(t *testing.T) {
	if _, err := CompileBillablePolicy(`status +`); err == nil {
		t.Error("expected error for malformed expression")
	}

	// Valid CEL but not boolean.
	if _, err := CompileBillablePolicy(`status`); err == nil {
		t.Error("expected error for non-boolean expression")
	}
}
