package billing

import (
	"clinibill/internal/core/id"
	"clinibill/internal/core/types"
	"clinibill/internal/domain/documents/invoice"
)

// Rates are the percentage rates applied to every line of one assembled
// invoice, taken from the issuing organization's configuration.
type Rates struct {
	TaxRate         types.Rate
	WithholdingRate types.Rate
	DiscountPct     types.Rate
}

// LineAmounts are the intermediate values of one line computation, exposed
// so the order of operations is verifiable in isolation.
type LineAmounts struct {
	Subtotal    types.Money
	Discount    types.Money
	Base        types.Money
	Tax         types.Money
	Withholding types.Money
}

// ComputeLine applies the fixed order of operations:
//
//	subtotal    = quantity × unit price
//	discount    = subtotal × discount% / 100
//	base        = subtotal − discount
//	tax         = base × tax rate / 100
//	withholding = base × withholding rate / 100
//
// Discount comes before tax, and tax and withholding are both computed off
// the post-discount base. Reordering changes rounding results and is a
// correctness defect, not a style choice.
func ComputeLine(quantity, unitPrice types.Money, discountPct, taxRate, withholdingRate types.Rate) LineAmounts {
	subtotal := quantity.Mul(unitPrice)
	discount := types.PercentOf(subtotal, discountPct)
	base := subtotal.Sub(discount)

	return LineAmounts{
		Subtotal:    subtotal,
		Discount:    discount,
		Base:        base,
		Tax:         types.PercentOf(base, taxRate),
		Withholding: types.PercentOf(base, withholdingRate),
	}
}

// Assembler builds invoice lines and aggregate totals from a counterparty
// group. Pure computation; no I/O.
type Assembler struct{}

// NewAssembler creates an assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble builds one line per priced record (quantity 1, the record's
// resolved unit price) and sums the aggregates:
//
//	base = Σ line base, tax = Σ line tax, withholding = Σ line withholding,
//	discount = Σ line discount, total = base + tax − withholding
//
// Withholding reduces the payable total; tax increases it. Totals are
// rounded to 2 decimal places only after summation.
func (a *Assembler) Assemble(group *CounterpartyGroup, rates Rates) ([]invoice.Line, invoice.Totals) {
	lines := make([]invoice.Line, 0, len(group.Records))

	base := types.Zero()
	tax := types.Zero()
	withholding := types.Zero()
	discount := types.Zero()

	one := types.MustMoney("1")

	for i, rec := range group.Records {
		amounts := ComputeLine(one, rec.UnitPrice, rates.DiscountPct, rates.TaxRate, rates.WithholdingRate)

		recID := rec.ID
		lines = append(lines, invoice.Line{
			LineID:          id.New(),
			LineNo:          i + 1,
			Description:     lineDescription(rec),
			Quantity:        one,
			UnitPrice:       rec.UnitPrice,
			DiscountPct:     rates.DiscountPct,
			TaxRate:         rates.TaxRate,
			WithholdingRate: rates.WithholdingRate,
			Amount:          amounts.Base,
			SourceRecordID:  &recID,
		})

		base = base.Add(amounts.Base)
		tax = tax.Add(amounts.Tax)
		withholding = withholding.Add(amounts.Withholding)
		discount = discount.Add(amounts.Discount)
	}

	total := base.Add(tax).Sub(withholding)

	return lines, invoice.Totals{
		Base:        types.RoundMoney(base),
		Tax:         types.RoundMoney(tax),
		Withholding: types.RoundMoney(withholding),
		Discount:    types.RoundMoney(discount),
		Total:       types.RoundMoney(total),
	}
}

func lineDescription(rec PricedRecord) string {
	if rec.Description != "" {
		return rec.Description
	}
	return "Service on " + rec.Date.Format("2006-01-02")
}
