// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/token"
)

var hundred = decimal.NewFromInt(100)

// Leg is one venue's side of the round trip as it was quoted during the scan.
type Leg struct {
	Venue     string              `json:"venue"`
	AmountIn  *big.Int            `json:"amountIn"`
	AmountOut *big.Int            `json:"amountOut"`
	Route     pricingDomain.Route `json:"route"`
}

// LegFromQuote copies the parts of a quote the executor needs.
func LegFromQuote(q *pricingDomain.Quote) Leg {
	return Leg{
		Venue:     q.Venue,
		AmountIn:  new(big.Int).Set(q.AmountIn),
		AmountOut: new(big.Int).Set(q.AmountOut),
		Route:     q.Route,
	}
}

// Opportunity is a price gap between two venues that cleared every threshold.
// Values are never mutated in place; the registry stores replacements.
type Opportunity struct {
	ID   string
	Pair token.Pair

	BuyVenue  string
	SellVenue string
	// USD per Pair.In on each venue.
	BuyPrice  decimal.Decimal
	SellPrice decimal.Decimal

	GrossProfitPercent decimal.Decimal
	NotionalUSD        decimal.Decimal
	GasCostUSD         decimal.Decimal
	FlashLoanFeeUSD    decimal.Decimal

	// LoanAmount is the flash-loan size in raw Pair.In units.
	LoanAmount *big.Int
	BuyLeg     Leg
	SellLeg    Leg

	DiscoveredAt time.Time
	Valid        bool
}

// NewOpportunityID builds the identifier for a route discovered at t.
func NewOpportunityID(pair token.Pair, buyVenue, sellVenue string, t time.Time) string {
	return fmt.Sprintf("%s-%s-%s-%d", pair.Key(), buyVenue, sellVenue, t.UnixNano())
}

// RouteKey identifies the pair and venue direction; a newer opportunity with the same
// key supersedes an older one.
func (o Opportunity) RouteKey() string {
	return o.Pair.Key() + "|" + o.BuyVenue + ">" + o.SellVenue
}

// GrossProfitUSD is the spread value captured on the notional before costs.
func (o Opportunity) GrossProfitUSD() decimal.Decimal {
	return o.GrossProfitPercent.Div(hundred).Mul(o.NotionalUSD)
}

// EstimatedProfitUSD is gross value minus gas and loan fee.
func (o Opportunity) EstimatedProfitUSD() decimal.Decimal {
	return o.GrossProfitUSD().Sub(o.GasCostUSD).Sub(o.FlashLoanFeeUSD)
}

// NetProfitPercent is gross percent minus the gas and fee ratios of the notional.
func (o Opportunity) NetProfitPercent() decimal.Decimal {
	if o.NotionalUSD.IsZero() {
		return decimal.Zero
	}
	costs := o.GasCostUSD.Add(o.FlashLoanFeeUSD).Div(o.NotionalUSD).Mul(hundred)
	return o.GrossProfitPercent.Sub(costs)
}

// Age returns how long ago the opportunity was discovered.
func (o Opportunity) Age(now time.Time) time.Duration {
	return now.Sub(o.DiscoveredAt)
}

// Consumed returns a copy marked invalid.
func (o Opportunity) Consumed() Opportunity {
	o.Valid = false
	return o
}

type opportunityJSON struct {
	ID                 string          `json:"id"`
	Pair               token.Pair      `json:"pair"`
	BuyVenue           string          `json:"buyVenue"`
	SellVenue          string          `json:"sellVenue"`
	BuyPrice           decimal.Decimal `json:"buyPrice"`
	SellPrice          decimal.Decimal `json:"sellPrice"`
	GrossProfitPercent decimal.Decimal `json:"grossProfitPercent"`
	NetProfitPercent   decimal.Decimal `json:"netProfitPercent"`
	EstimatedProfitUSD decimal.Decimal `json:"estimatedProfitUsd"`
	NotionalUSD        decimal.Decimal `json:"notionalUsd"`
	GasCostUSD         decimal.Decimal `json:"estimatedGasCostUsd"`
	FlashLoanFeeUSD    decimal.Decimal `json:"flashLoanFeeUsd"`
	LoanAmount         string          `json:"loanAmount"`
	BuyLeg             Leg             `json:"buyLeg"`
	SellLeg            Leg             `json:"sellLeg"`
	DiscoveredAt       time.Time       `json:"discoveredAt"`
	Valid              bool            `json:"valid"`
}

// MarshalJSON includes the derived profit fields.
func (o Opportunity) MarshalJSON() ([]byte, error) {
	loan := "0"
	if o.LoanAmount != nil {
		loan = o.LoanAmount.String()
	}
	return json.Marshal(opportunityJSON{
		ID:                 o.ID,
		Pair:               o.Pair,
		BuyVenue:           o.BuyVenue,
		SellVenue:          o.SellVenue,
		BuyPrice:           o.BuyPrice,
		SellPrice:          o.SellPrice,
		GrossProfitPercent: o.GrossProfitPercent,
		NetProfitPercent:   o.NetProfitPercent(),
		EstimatedProfitUSD: o.EstimatedProfitUSD(),
		NotionalUSD:        o.NotionalUSD,
		GasCostUSD:         o.GasCostUSD,
		FlashLoanFeeUSD:    o.FlashLoanFeeUSD,
		LoanAmount:         loan,
		BuyLeg:             o.BuyLeg,
		SellLeg:            o.SellLeg,
		DiscoveredAt:       o.DiscoveredAt,
		Valid:              o.Valid,
	})
}
