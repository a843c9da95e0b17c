package domain

import "github.com/shopspring/decimal"

var two = decimal.NewFromInt(2)

// VenuePrice is a normalized price observed on one venue.
type VenuePrice struct {
	Venue string
	Price decimal.Decimal
}

// Spread is the price gap between two venues for the same pair.
type Spread struct {
	Buy      VenuePrice      // cheaper venue
	Sell     VenuePrice      // dearer venue
	Absolute decimal.Decimal // Sell - Buy, never negative
	Relative decimal.Decimal // Absolute / mean(Buy, Sell)
}

// Percent returns Relative as a percentage.
func (s Spread) Percent() decimal.Decimal {
	return s.Relative.Mul(decimal.NewFromInt(100))
}

// CalculateSpread compares two venue prices. The result does not depend on argument order
// except when prices are equal, in which case a is reported as the buy side.
func CalculateSpread(a, b VenuePrice) Spread {
	buy, sell := a, b
	if b.Price.LessThan(a.Price) {
		buy, sell = b, a
	}

	absolute := sell.Price.Sub(buy.Price)
	mean := buy.Price.Add(sell.Price).Div(two)

	relative := decimal.Zero
	if !mean.IsZero() {
		relative = absolute.Div(mean)
	}

	return Spread{
		Buy:      buy,
		Sell:     sell,
		Absolute: absolute,
		Relative: relative,
	}
}
