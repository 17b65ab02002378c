package schedule

import (
	"math"

	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

var quartersPerYear = decimal.NewFromInt(4)

// RoundMoney rounds half away from zero to two decimal places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

// ApplyGST adds tax on top of an already rounded base amount.
func ApplyGST(base decimal.Decimal, gstRate float64) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(gstRate))
	return RoundMoney(base.Mul(factor))
}

// FullQuarterAmount is a contract year's charge for one whole quarter.
func FullQuarterAmount(total decimal.Decimal, rate float64) decimal.Decimal {
	return total.Mul(decimal.NewFromFloat(rate)).Div(quartersPerYear)
}

func validRate(rate float64) bool {
	return !math.IsNaN(rate) && !math.IsInf(rate, 0) && rate >= 0
}

func validGST(rate float64) bool {
	return !math.IsNaN(rate) && rate >= 0 && rate <= 1
}
