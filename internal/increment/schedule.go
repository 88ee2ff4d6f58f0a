// Package increment holds the minimum bid increment ladder.
package increment

import "github.com/shopspring/decimal"

type band struct {
	below decimal.Decimal
	step  decimal.Decimal
}

// bands are ascending; a price falls in the first band whose upper bound it is strictly below.
var bands = []band{
	{decimal.NewFromInt(25_000), decimal.NewFromInt(1_250)},
	{decimal.NewFromInt(125_000), decimal.NewFromInt(6_250)},
	{decimal.NewFromInt(625_000), decimal.NewFromInt(12_500)},
	{decimal.NewFromInt(2_500_000), decimal.NewFromInt(25_000)},
	{decimal.NewFromInt(6_250_000), decimal.NewFromInt(62_500)},
	{decimal.NewFromInt(12_500_000), decimal.NewFromInt(125_000)},
	{decimal.NewFromInt(25_000_000), decimal.NewFromInt(250_000)},
	{decimal.NewFromInt(62_500_000), decimal.NewFromInt(625_000)},
	{decimal.NewFromInt(125_000_000), decimal.NewFromInt(1_250_000)},
}

var top = decimal.NewFromInt(2_500_000)

// For returns the minimum increment allowed on top of the given current price.
func For(price decimal.Decimal) decimal.Decimal {
	for _, b := range bands {
		if price.LessThan(b.below) {
			return b.step
		}
	}
	return top
}

// Next returns the smallest bid that clears price by one increment.
func Next(price decimal.Decimal) decimal.Decimal {
	return price.Add(For(price))
}

// Minimum returns the smallest increment in the schedule.
func Minimum() decimal.Decimal {
	return bands[0].step
}
