// Package pricing computes line-item and estimate totals. Everything here is
// pure and deterministic: no I/O, no clock, no state. All money math uses
// decimals; results are rounded to 2 places (half away from zero) at the
// boundaries stated below.
package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LineInput carries the raw fields a line total is computed from.
type LineInput struct {
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	LaborHours  decimal.Decimal
	LaborRate   decimal.Decimal
	MarkupPct   decimal.Decimal
	DiscountPct decimal.Decimal
	TaxPct      decimal.Decimal
}

// LineTotal computes a single line item's total. The application order is
// fixed: markup before discount, discount before tax. Reordering changes the
// result and is a behavior change, not a refactor.
func LineTotal(in LineInput) decimal.Decimal {
	net := in.Quantity.Mul(in.UnitPrice)
	labor := in.LaborHours.Mul(in.LaborRate)
	subtotal := net.Add(labor)

	markup := subtotal.Mul(in.MarkupPct).Div(hundred)
	discount := subtotal.Add(markup).Mul(in.DiscountPct).Div(hundred)
	tax := subtotal.Add(markup).Sub(discount).Mul(in.TaxPct).Div(hundred)

	return subtotal.Add(markup).Sub(discount).Add(tax).Round(2)
}

// Terms carries the estimate-level commercial terms.
type Terms struct {
	DiscountPct    decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxPct         decimal.Decimal
	ExtraFees      decimal.Decimal
	DepositPct     decimal.Decimal
	DepositAmount  decimal.Decimal
}

// Totals is the derived money block stored on an estimate.
type Totals struct {
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	TaxAmount  decimal.Decimal
	Total      decimal.Decimal
	Deposit    decimal.Decimal
	BalanceDue decimal.Decimal
}

// EstimateTotals aggregates line totals into the estimate money block.
//
// Discount and deposit each have a percent and an absolute representation;
// they are alternatives, not additive — the larger magnitude wins. An absolute
// floor can override a small percentage and vice versa. Downstream totals
// depend on this exact max() rule.
func EstimateTotals(lineTotals []decimal.Decimal, t Terms) Totals {
	subtotal := decimal.Zero
	for _, lt := range lineTotals {
		subtotal = subtotal.Add(lt)
	}

	discount := decimal.Max(subtotal.Mul(t.DiscountPct).Div(hundred), t.DiscountAmount)

	taxBase := subtotal.Sub(discount)
	tax := taxBase.Mul(t.TaxPct).Div(hundred)
	total := taxBase.Add(tax).Add(t.ExtraFees)

	deposit := decimal.Max(total.Mul(t.DepositPct).Div(hundred), t.DepositAmount)

	return Totals{
		Subtotal:   subtotal.Round(2),
		Discount:   discount.Round(2),
		TaxAmount:  tax.Round(2),
		Total:      total.Round(2),
		Deposit:    deposit.Round(2),
		BalanceDue: total.Sub(deposit).Round(2),
	}
}
