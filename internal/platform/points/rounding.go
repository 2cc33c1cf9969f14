// Package points implements the fee-schedule arithmetic shared by the
// derivation engine: yen-to-point conversion for drugs and materials and the
// per-encounter totals split between patient and insurer.
package points

import "github.com/shopspring/decimal"

var (
	ten       = decimal.NewFromInt(10)
	fifteen   = decimal.NewFromInt(15)
	half      = decimal.NewFromFloat(0.5)
	yenFactor = decimal.NewFromInt(10)
)

// FromYen converts a drug or material price in yen to fee-schedule points.
// Amounts up to 15 yen are one point; above that the amount is divided by ten
// and rounded with RoundGoshaGochonyu.
//
//	15 -> 1, 16 -> 2, 25 -> 2, 26 -> 3, 150 -> 15
func FromYen(total decimal.Decimal) int {
	if total.LessThanOrEqual(fifteen) {
		return 1
	}
	return int(RoundGoshaGochonyu(total.Div(ten)))
}

// RoundGoshaGochonyu rounds to an integer under the 五捨五超入 rule: a
// fractional part of exactly .5 is dropped, anything above .5 rounds up.
// This is neither banker's rounding nor half-up.
func RoundGoshaGochonyu(d decimal.Decimal) int64 {
	floor := d.Floor()
	if d.Sub(floor).GreaterThan(half) {
		floor = floor.Add(decimal.NewFromInt(1))
	}
	return floor.IntPart()
}
