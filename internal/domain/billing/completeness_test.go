package billing

import (
	"testing"

	"clinibill/internal/domain/catalogs/counterparty"
)

func TestCompletenessValidator_Partition(t *testing.T) {
	complete := invoiceableCounterparty("CP001", "Complete")

	incomplete := counterparty.NewCounterparty("CP002", "Incomplete")
	incomplete.LegalName = strPtr("Incomplete S.L.")
	incomplete.TaxID = strPtr("B87654321")
	incomplete.Address = strPtr("Calle Sol 2")
	// postal_code and city missing

	blank := counterparty.NewCounterparty("CP003", "Blank")
	blank.LegalName = strPtr("   ") // whitespace counts as missing
	blank.TaxID = strPtr("B11111111")
	blank.Address = strPtr("Calle Luna 3")
	blank.PostalCode = strPtr("28002")
	blank.City = strPtr("Madrid")

	groups := []*CounterpartyGroup{
		{Counterparty: complete},
		{Counterparty: incomplete},
		{Counterparty: blank},
	}

	v := NewCompletenessValidator()
	eligible, ineligible := v.Partition(groups)

	if len(eligible) != 1 || eligible[0].Counterparty.Name != "Complete" {
		t.Errorf("eligible = %d, want only Complete", len(eligible))
	}
	if len(ineligible) != 2 {
		t.Fatalf("ineligible = %d, want 2", len(ineligible))
	}

	// Missing fields reported in declaration order.
	missing := ineligible[0].MissingFields
	if len(missing) != 2 || missing[0] != "postal_code" || missing[1] != "city" {
		t.Errorf("missing = %v, want [postal_code city]", missing)
	}

	if ineligible[1].MissingFields[0] != "legal_name" {
		t.Errorf("whitespace-only legal_name must count as missing, got %v", ineligible[1].MissingFields)
	}

	// Groups are annotated in place.
	if !groups[0].Eligible || groups[1].Eligible || groups[2].Eligible {
		t.Error("Eligible flags not annotated correctly")
	}
}
