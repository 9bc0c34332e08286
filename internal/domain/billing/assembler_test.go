package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"clinibill/internal/core/id"
	"clinibill/internal/core/types"
	"clinibill/internal/domain/catalogs/counterparty"
)

func TestComputeLine_OrderOfOperations(t *testing.T) {
	// qty=2, price=100, discount=10%, tax=21%, withholding=15%
	amounts := ComputeLine(
		types.MustMoney("2"),
		types.MustMoney("100"),
		types.MustRate("10"),
		types.MustRate("21"),
		types.MustRate("15"),
	)

	assert.True(t, amounts.Subtotal.Equal(types.MustMoney("200")), "subtotal = qty × price")
	assert.True(t, amounts.Discount.Equal(types.MustMoney("20")), "discount = subtotal × 10%%")
	assert.True(t, amounts.Base.Equal(types.MustMoney("180")), "base = subtotal − discount")
	assert.True(t, amounts.Tax.Equal(types.MustMoney("37.8")), "tax off post-discount base")
	assert.True(t, amounts.Withholding.Equal(types.MustMoney("27")), "withholding off post-discount base")
}

func TestComputeLine_ZeroRates(t *testing.T) {
	amounts := ComputeLine(
		types.MustMoney("1"),
		types.MustMoney("55.50"),
		types.Zero(), types.Zero(), types.Zero(),
	)

	assert.True(t, amounts.Base.Equal(types.MustMoney("55.50")))
	assert.True(t, amounts.Tax.IsZero())
	assert.True(t, amounts.Withholding.IsZero())
	assert.True(t, amounts.Discount.IsZero())
}

func testGroup(prices ...string) *CounterpartyGroup {
	cp := counterparty.NewCounterparty("CP001", "Acme Clinic")
	group := &CounterpartyGroup{Counterparty: cp}
	for _, p := range prices {
		group.Records = append(group.Records, PricedRecord{
			SourceRecord: SourceRecord{
				ID:   id.New(),
				Date: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			},
			UnitPrice: types.MustMoney(p),
		})
	}
	return group
}

func TestAssembler_Assemble_Totals(t *testing.T) {
	asm := NewAssembler()

	lines, totals := asm.Assemble(testGroup("100", "50.25"), Rates{
		TaxRate:         types.MustRate("21"),
		WithholdingRate: types.MustRate("15"),
	})

	assert.Len(t, lines, 2)

	// base = 150.25; tax = 31.5525 → 31.55; withholding = 22.5375 → 22.54
	// total = base + tax − withholding, rounded after summation
	assert.True(t, totals.Base.Equal(types.MustMoney("150.25")), "base: %s", totals.Base)
	assert.True(t, totals.Tax.Equal(types.MustMoney("31.55")), "tax: %s", totals.Tax)
	assert.True(t, totals.Withholding.Equal(types.MustMoney("22.54")), "withholding: %s", totals.Withholding)
	assert.True(t, totals.Total.Equal(types.MustMoney("159.27")), "total: %s", totals.Total)
}

func TestAssembler_Assemble_TotalLaw(t *testing.T) {
	asm := NewAssembler()

	_, totals := asm.Assemble(testGroup("100", "200", "300"), Rates{
		TaxRate:         types.MustRate("21"),
		WithholdingRate: types.MustRate("15"),
	})

	want := totals.Base.Add(totals.Tax).Sub(totals.Withholding)
	assert.True(t, totals.Total.Equal(want),
		"total must equal base + tax − withholding: %s vs %s", totals.Total, want)
}

func TestAssembler_Assemble_LineDetails(t *testing.T) {
	asm := NewAssembler()
	group := testGroup("75")
	group.Records[0].Description = "Physiotherapy session"

	lines, _ := asm.Assemble(group, Rates{TaxRate: types.MustRate("21")})

	line := lines[0]
	assert.Equal(t, 1, line.LineNo)
	assert.Equal(t, "Physiotherapy session", line.Description)
	assert.True(t, line.Quantity.Equal(types.MustMoney("1")))
	assert.True(t, line.UnitPrice.Equal(types.MustMoney("75")))
	assert.NotNil(t, line.SourceRecordID, "line must link back to its source record")
	assert.Equal(t, group.Records[0].ID, *line.SourceRecordID)
}

func TestAssembler_Assemble_FallbackDescription(t *testing.T) {
	asm := NewAssembler()

	lines, _ := asm.Assemble(testGroup("75"), Rates{})

	assert.Equal(t, "Service on 2024-03-10", lines[0].Description)
}

func TestAssembler_Assemble_RoundsAfterSummation(t *testing.T) {
	asm := NewAssembler()

	// Three lines of 33.333... tax each would round to 7.00 per line (3×2.33=6.99)
	// if rounded early; rounding after summation gives 7.00 vs 6.99 difference.
	_, totals := asm.Assemble(testGroup("33.33", "33.33", "33.33"), Rates{
		TaxRate: types.MustRate("7"),
	})

	// tax = 99.99 × 7% = 6.9993 → 7.00 after summation
	assert.True(t, totals.Tax.Equal(types.MustMoney("7.00")), "tax: %s", totals.Tax)
}
