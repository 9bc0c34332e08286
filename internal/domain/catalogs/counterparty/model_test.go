package counterparty

import (
	"context"
	"testing"
)

func strPtr(s string) *string { return &s }

func fullCounterparty() *Counterparty {
	cp := NewCounterparty("CP001", "Acme")
	cp.LegalName = strPtr("Acme S.L.")
	cp.TaxID = strPtr("B12345678")
	cp.Address = strPtr("Calle Mayor 1")
	cp.PostalCode = strPtr("28001")
	cp.City = strPtr("Madrid")
	return cp
}

func TestMissingInvoiceFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Counterparty)
		want   []string
	}{
		{
			name:   "complete",
			mutate: func(cp *Counterparty) {},
			want:   nil,
		},
		{
			name:   "nil field",
			mutate: func(cp *Counterparty) { cp.TaxID = nil },
			want:   []string{"tax_id"},
		},
		{
			name:   "empty string counts as missing",
			mutate: func(cp *Counterparty) { cp.City = strPtr("") },
			want:   []string{"city"},
		},
		{
			name:   "whitespace counts as missing",
			mutate: func(cp *Counterparty) { cp.Address = strPtr("   ") },
			want:   []string{"address"},
		},
		{
			name: "multiple missing, declaration order",
			mutate: func(cp *Counterparty) {
				cp.LegalName = nil
				cp.PostalCode = nil
			},
			want: []string{"legal_name", "postal_code"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp := fullCounterparty()
			tt.mutate(cp)

			got := cp.MissingInvoiceFields()
			if len(got) != len(tt.want) {
				t.Fatalf("missing = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("missing[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}

			if cp.IsInvoiceable() != (len(tt.want) == 0) {
				t.Errorf("IsInvoiceable() inconsistent with MissingInvoiceFields()")
			}
		})
	}
}

func TestValidate_Email(t *testing.T) {
	ctx := context.Background()

	cp := fullCounterparty()
	cp.Email = strPtr("billing@acme.example")
	if err := cp.Validate(ctx); err != nil {
		t.Errorf("valid email rejected: %v", err)
	}

	cp.Email = strPtr("not-an-email")
	if err := cp.Validate(ctx); err == nil {
		t.Error("invalid email accepted")
	}

	// Email is optional; empty passes.
	cp.Email = strPtr("")
	if err := cp.Validate(ctx); err != nil {
		t.Errorf("empty email rejected: %v", err)
	}
}
