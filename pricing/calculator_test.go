package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/skuportal/inventory/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCompute(t *testing.T) {
	calc := Default()

	testCases := []struct {
		name           string
		price          string
		cost           string
		fees           string
		expectedFees   string
		expectedNet    string
		expectedProfit string
		expectedMargin string
	}{
		{
			name:           "Platform fee applied when fees missing",
			price:          "100.00",
			cost:           "0",
			fees:           "0",
			expectedFees:   "5.70",
			expectedNet:    "94.30",
			expectedProfit: "94.30",
			expectedMargin: "94.30",
		},
		{
			name:           "Fee rounds half-up",
			price:          "12.50",
			cost:           "4.00",
			fees:           "0",
			expectedFees:   "1.33", // 0.625 + 0.70 = 1.325
			expectedNet:    "11.17",
			expectedProfit: "7.17",
			expectedMargin: "57.36",
		},
		{
			name:           "Explicit fees kept",
			price:          "20.00",
			cost:           "5.00",
			fees:           "2.50",
			expectedFees:   "2.50",
			expectedNet:    "17.50",
			expectedProfit: "12.50",
			expectedMargin: "62.50",
		},
		{
			name:           "Loss gives negative margin",
			price:          "10.00",
			cost:           "15.00",
			fees:           "1.00",
			expectedFees:   "1.00",
			expectedNet:    "9.00",
			expectedProfit: "-6.00",
			expectedMargin: "-60.00",
		},
		{
			name:           "Zero price has zero margin",
			price:          "0",
			cost:           "8.00",
			fees:           "0",
			expectedFees:   "0.70",
			expectedNet:    "-0.70",
			expectedProfit: "-8.70",
			expectedMargin: "0.00",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := calc.Compute(d(tc.price), d(tc.cost), d(tc.fees))

			assert.Equal(t, tc.expectedFees, b.Fees.StringFixed(2))
			assert.Equal(t, tc.expectedNet, b.Net.StringFixed(2))
			assert.Equal(t, tc.expectedProfit, b.Profit.StringFixed(2))
			assert.Equal(t, tc.expectedMargin, b.Margin.StringFixed(2))
		})
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	calc := Default()

	for _, price := range []string{"0", "0.01", "9.99", "100.00", "1234.56"} {
		first := calc.Compute(d(price), d("3.00"), decimal.Zero)
		second := calc.Compute(d(price), d("3.00"), decimal.Zero)
		assert.True(t, first.Fees.Equal(second.Fees), "price %s", price)

		// Feeding the computed fees back in must not change anything.
		again := calc.Compute(d(price), d("3.00"), first.Fees)
		assert.Equal(t, first.Fees.String(), again.Fees.String(), "price %s", price)
		assert.Equal(t, first.Net.String(), again.Net.String(), "price %s", price)
		assert.Equal(t, first.Profit.String(), again.Profit.String(), "price %s", price)
		assert.Equal(t, first.Margin.String(), again.Margin.String(), "price %s", price)
	}
}

func TestZeroPriceNeverDividesByZero(t *testing.T) {
	calc := Default()

	for _, fees := range []string{"0", "0.70", "12.00"} {
		b := calc.Compute(decimal.Zero, d("50"), d(fees))
		assert.True(t, b.Margin.IsZero())
	}
}

func TestCustomRates(t *testing.T) {
	calc := NewCalculator(d("0.10"), d("0.30"))

	assert.Equal(t, "5.30", calc.Fee(d("50")).StringFixed(2))
}

func TestApply(t *testing.T) {
	v := &models.Variant{Price: d("100.00"), Cost: d("40.00")}

	Default().Apply(v)

	assert.Equal(t, "5.70", v.Fees.StringFixed(2))
	assert.Equal(t, "94.30", v.Net.StringFixed(2))
	assert.Equal(t, "54.30", v.Profit.StringFixed(2))
	assert.Equal(t, "54.30", v.Margin.StringFixed(2))

	// Re-applying on an already computed variant is a no-op.
	before := *v
	Default().Apply(v)
	assert.Equal(t, before.Fees.String(), v.Fees.String())
	assert.Equal(t, before.Margin.String(), v.Margin.String())
}
