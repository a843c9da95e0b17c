package domain

import (
	"github.com/shopspring/decimal"
)

var (
	gweiPerNative = decimal.New(1, 9)
	bpsDivisor    = decimal.NewFromInt(10_000)
)

// Costs are the inputs to the per-trade cost estimate.
// NativeUSDPrice is a configured approximation, not a live feed.
type Costs struct {
	GasUnits       uint64
	NativeUSDPrice decimal.Decimal
	LoanFeeBps     decimal.Decimal
}

// GasCostUSD converts a gas price in gwei into the USD cost of GasUnits.
func (c Costs) GasCostUSD(gasGwei decimal.Decimal) decimal.Decimal {
	return gasGwei.
		Mul(decimal.NewFromInt(int64(c.GasUnits))).
		Div(gweiPerNative).
		Mul(c.NativeUSDPrice)
}

// LoanFeeUSD is the flash-loan premium charged on notionalUSD.
func (c Costs) LoanFeeUSD(notionalUSD decimal.Decimal) decimal.Decimal {
	return notionalUSD.Mul(c.LoanFeeBps).Div(bpsDivisor)
}

// Thresholds must all hold for a candidate to qualify.
type Thresholds struct {
	GrossPercent decimal.Decimal
	NetPercent   decimal.Decimal
	MinProfitUSD decimal.Decimal
}

// Qualifies reports whether o clears gross percent, net percent and minimum USD profit.
func (t Thresholds) Qualifies(o Opportunity) bool {
	return o.GrossProfitPercent.GreaterThanOrEqual(t.GrossPercent) &&
		o.NetProfitPercent().GreaterThanOrEqual(t.NetPercent) &&
		o.EstimatedProfitUSD().GreaterThanOrEqual(t.MinProfitUSD)
}
