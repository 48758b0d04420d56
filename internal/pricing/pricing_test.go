package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestLineTotal(t *testing.T) {
	tests := []struct {
		name string
		in   LineInput
		want string
	}{
		{
			name: "quantity times unit price",
			in:   LineInput{Quantity: d("3"), UnitPrice: d("100")},
			want: "300.00",
		},
		{
			name: "markup applied",
			in:   LineInput{Quantity: d("1"), UnitPrice: d("100"), MarkupPct: d("10")},
			want: "110.00",
		},
		{
			name: "discount applied after markup",
			in:   LineInput{Quantity: d("1"), UnitPrice: d("100"), MarkupPct: d("10"), DiscountPct: d("10")},
			want: "99.00",
		},
		{
			name: "tax applied last",
			in:   LineInput{Quantity: d("1"), UnitPrice: d("100"), DiscountPct: d("10"), TaxPct: d("20")},
			want: "108.00",
		},
		{
			name: "labor only",
			in:   LineInput{LaborHours: d("4"), LaborRate: d("50")},
			want: "200.00",
		},
		{
			name: "material plus labor with full chain",
			in: LineInput{
				Quantity: d("2"), UnitPrice: d("100"),
				LaborHours: d("3"), LaborRate: d("50"),
				MarkupPct: d("10"), DiscountPct: d("10"), TaxPct: d("20"),
			},
			want: "415.80",
		},
		{
			name: "fractional quantity rounds to two places",
			in:   LineInput{Quantity: d("0.333"), UnitPrice: d("10")},
			want: "3.33",
		},
		{
			name: "zero everything",
			in:   LineInput{},
			want: "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LineTotal(tt.in)
			if got.StringFixed(2) != tt.want {
				t.Errorf("LineTotal() = %s, want %s", got.StringFixed(2), tt.want)
			}
		})
	}
}

func TestEstimateTotals(t *testing.T) {
	lines := []decimal.Decimal{d("1500"), d("500")}

	t.Run("plain sum without terms", func(t *testing.T) {
		got := EstimateTotals(lines, Terms{})
		if got.Subtotal.StringFixed(2) != "2000.00" {
			t.Errorf("Subtotal = %s, want 2000.00", got.Subtotal.StringFixed(2))
		}
		if got.Total.StringFixed(2) != "2000.00" {
			t.Errorf("Total = %s, want 2000.00", got.Total.StringFixed(2))
		}
		if got.BalanceDue.StringFixed(2) != "2000.00" {
			t.Errorf("BalanceDue = %s, want 2000.00", got.BalanceDue.StringFixed(2))
		}
	})

	t.Run("discount then tax then fees", func(t *testing.T) {
		got := EstimateTotals(lines, Terms{
			DiscountPct: d("10"),
			TaxPct:      d("20"),
			ExtraFees:   d("40"),
		})
		if got.Discount.StringFixed(2) != "200.00" {
			t.Errorf("Discount = %s, want 200.00", got.Discount.StringFixed(2))
		}
		// tax base is 1800 after discount; fees are added after tax
		if got.TaxAmount.StringFixed(2) != "360.00" {
			t.Errorf("TaxAmount = %s, want 360.00", got.TaxAmount.StringFixed(2))
		}
		if got.Total.StringFixed(2) != "2200.00" {
			t.Errorf("Total = %s, want 2200.00", got.Total.StringFixed(2))
		}
	})

	t.Run("larger of percent and absolute discount wins", func(t *testing.T) {
		pctWins := EstimateTotals(lines, Terms{DiscountPct: d("10"), DiscountAmount: d("150")})
		if pctWins.Discount.StringFixed(2) != "200.00" {
			t.Errorf("Discount = %s, want 200.00 (10%% of 2000)", pctWins.Discount.StringFixed(2))
		}

		absWins := EstimateTotals(lines, Terms{DiscountPct: d("10"), DiscountAmount: d("250")})
		if absWins.Discount.StringFixed(2) != "250.00" {
			t.Errorf("Discount = %s, want 250.00 (absolute floor)", absWins.Discount.StringFixed(2))
		}
	})

	t.Run("larger of percent and absolute deposit wins", func(t *testing.T) {
		got := EstimateTotals(lines, Terms{DepositPct: d("30"), DepositAmount: d("700")})
		// 30% of 2000 is 600; the absolute 700 is larger
		if got.Deposit.StringFixed(2) != "700.00" {
			t.Errorf("Deposit = %s, want 700.00", got.Deposit.StringFixed(2))
		}
		if got.BalanceDue.StringFixed(2) != "1300.00" {
			t.Errorf("BalanceDue = %s, want 1300.00", got.BalanceDue.StringFixed(2))
		}
	})

	t.Run("deposit computed from total after discount and tax", func(t *testing.T) {
		got := EstimateTotals(lines, Terms{DiscountPct: d("10"), TaxPct: d("20"), DepositPct: d("50")})
		// total is 2160; deposit is half of that
		if got.Deposit.StringFixed(2) != "1080.00" {
			t.Errorf("Deposit = %s, want 1080.00", got.Deposit.StringFixed(2))
		}
		if got.BalanceDue.StringFixed(2) != "1080.00" {
			t.Errorf("BalanceDue = %s, want 1080.00", got.BalanceDue.StringFixed(2))
		}
	})

	t.Run("no line items", func(t *testing.T) {
		got := EstimateTotals(nil, Terms{TaxPct: d("20")})
		if !got.Total.IsZero() {
			t.Errorf("Total = %s, want 0", got.Total)
		}
	})
}
