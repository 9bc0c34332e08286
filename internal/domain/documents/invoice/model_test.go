package invoice

import (
	"context"
	"testing"

	"clinibill/internal/core/id"
	"clinibill/internal/core/types"
	"clinibill/internal/domain/numbering"
)

func validInvoice() *Invoice {
	inv := NewInvoice(id.New(), id.New(), numbering.TypeNormal)
	inv.Number = "FACT0001"
	inv.RawNumber = 1
	inv.Lines = []Line{{
		LineID:    id.New(),
		LineNo:    1,
		Quantity:  types.MustMoney("1"),
		UnitPrice: types.MustMoney("100"),
		Amount:    types.MustMoney("100"),
	}}
	return inv
}

func TestInvoice_Validate(t *testing.T) {
	ctx := context.Background()

	if err := validInvoice().Validate(ctx); err != nil {
		t.Fatalf("valid invoice rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Invoice)
	}{
		{"missing number", func(inv *Invoice) { inv.Number = "" }},
		{"missing counterparty", func(inv *Invoice) { inv.CounterpartyID = id.Nil() }},
		{"missing organization", func(inv *Invoice) { inv.OrganizationID = id.Nil() }},
		{"unknown type", func(inv *Invoice) { inv.Type = "bogus" }},
		{"no lines", func(inv *Invoice) { inv.Lines = nil }},
		{"zero quantity", func(inv *Invoice) { inv.Lines[0].Quantity = types.Zero() }},
		{"negative quantity", func(inv *Invoice) { inv.Lines[0].Quantity = types.MustMoney("-1") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := validInvoice()
			tt.mutate(inv)
			if err := inv.Validate(ctx); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestInvoice_ApplyTotals(t *testing.T) {
	inv := validInvoice()
	inv.ApplyTotals(Totals{
		Base:        types.MustMoney("180"),
		Tax:         types.MustMoney("37.80"),
		Withholding: types.MustMoney("27"),
		Discount:    types.MustMoney("20"),
		Total:       types.MustMoney("190.80"),
	})

	if !inv.Total.Equal(types.MustMoney("190.80")) {
		t.Errorf("total = %s", inv.Total)
	}
	if !inv.Base.Equal(types.MustMoney("180")) {
		t.Errorf("base = %s", inv.Base)
	}
}

func TestNewInvoice_Defaults(t *testing.T) {
	inv := NewInvoice(id.New(), id.New(), numbering.TypeSimplified)

	if inv.Status != StatusIssued {
		t.Errorf("status = %s, want issued", inv.Status)
	}
	if inv.Type != numbering.TypeSimplified {
		t.Errorf("type = %s", inv.Type)
	}
	if id.IsNil(inv.ID) {
		t.Error("id must be generated")
	}
	if inv.Date.IsZero() {
		t.Error("date must default to now")
	}
}
