// Package pricing turns a variant's price, cost and fees into the derived
// net, profit and margin figures.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/skuportal/inventory/models"
)

// Platform fee defaults: 5% of the price plus a fixed 0.70.
var (
	DefaultFeePercent = decimal.RequireFromString("0.05")
	DefaultFixedFee   = decimal.RequireFromString("0.70")
)

var hundred = decimal.NewFromInt(100)

// Calculator computes the financial breakdown of a sale.
type Calculator struct {
	FeePercent decimal.Decimal
	FixedFee   decimal.Decimal
}

// Breakdown holds the derived financial fields of a variant.
type Breakdown struct {
	Fees   decimal.Decimal
	Net    decimal.Decimal
	Profit decimal.Decimal
	Margin decimal.Decimal
}

func NewCalculator(feePercent, fixedFee decimal.Decimal) Calculator {
	return Calculator{FeePercent: feePercent, FixedFee: fixedFee}
}

// Default returns a Calculator using DefaultFeePercent and DefaultFixedFee.
func Default() Calculator {
	return NewCalculator(DefaultFeePercent, DefaultFixedFee)
}

// Fee is the platform fee charged on price, rounded half-up to 2 decimals.
func (c Calculator) Fee(price decimal.Decimal) decimal.Decimal {
	return price.Mul(c.FeePercent).Add(c.FixedFee).Round(2)
}

// Compute derives fees, net, profit and margin. A zero fees value means the
// caller did not supply one and the platform fee is used instead.
func (c Calculator) Compute(price, cost, fees decimal.Decimal) Breakdown {
	if fees.IsZero() {
		fees = c.Fee(price)
	}
	net := price.Sub(fees)
	profit := net.Sub(cost)
	margin := decimal.Zero
	if price.IsPositive() {
		margin = profit.Div(price).Mul(hundred).Round(2)
	}
	return Breakdown{
		Fees:   fees.Round(2),
		Net:    net.Round(2),
		Profit: profit.Round(2),
		Margin: margin,
	}
}

// Apply recomputes the derived fields of v in place.
func (c Calculator) Apply(v *models.Variant) {
	b := c.Compute(v.Price, v.Cost, v.Fees)
	v.Fees = b.Fees
	v.Net = b.Net
	v.Profit = b.Profit
	v.Margin = b.Margin
}
