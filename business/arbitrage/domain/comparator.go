package domain

import (
	"time"

	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
)

// Comparator turns venue quotes for one pair into priced candidates.
type Comparator struct {
	Thresholds Thresholds
	Costs      Costs
}

// Comparison is the outcome of evaluating quotes for one pair.
type Comparison struct {
	Evaluated  int
	Qualifying []Opportunity
}

// Best returns the qualifying candidate with the highest estimated profit.
func (c Comparison) Best() (Opportunity, bool) {
	if len(c.Qualifying) == 0 {
		return Opportunity{}, false
	}
	best := c.Qualifying[0]
	for _, o := range c.Qualifying[1:] {
		if o.EstimatedProfitUSD().GreaterThan(best.EstimatedProfitUSD()) {
			best = o
		}
	}
	return best, true
}

// Evaluate prices a candidate from two quotes of the same pair. The cheaper venue
// is the buy side; ties keep a as the buy side.
func (c Comparator) Evaluate(pair TokenPair, a, b *pricingDomain.Quote, gasGwei decimal.Decimal, now time.Time) Opportunity {
	spread := pricingDomain.CalculateSpread(
		pricingDomain.VenuePrice{Venue: a.Venue, Price: a.Rate()},
		pricingDomain.VenuePrice{Venue: b.Venue, Price: b.Rate()},
	)

	buyQuote, sellQuote := a, b
	if spread.Buy.Venue != a.Venue {
		buyQuote, sellQuote = b, a
	}

	notionalUSD := pair.NotionalUSD()

	return Opportunity{
		ID:                 NewOpportunityID(pair.Pair, spread.Buy.Venue, spread.Sell.Venue, now),
		Pair:               pair.Pair,
		BuyVenue:           spread.Buy.Venue,
		SellVenue:          spread.Sell.Venue,
		BuyPrice:           spread.Buy.Price.Mul(pair.OutUSDPrice),
		SellPrice:          spread.Sell.Price.Mul(pair.OutUSDPrice),
		GrossProfitPercent: spread.Percent(),
		NotionalUSD:        notionalUSD,
		GasCostUSD:         c.Costs.GasCostUSD(gasGwei),
		FlashLoanFeeUSD:    c.Costs.LoanFeeUSD(notionalUSD),
		LoanAmount:         pair.LoanAmount(),
		BuyLeg:             LegFromQuote(buyQuote),
		SellLeg:            LegFromQuote(sellQuote),
		DiscoveredAt:       now,
		Valid:              true,
	}
}

// Compare evaluates every unordered venue pair and keeps the candidates that clear all
// thresholds. Fewer than two quotes yields an empty comparison.
func (c Comparator) Compare(pair TokenPair, quotes []*pricingDomain.Quote, gasGwei decimal.Decimal, now time.Time) Comparison {
	var out Comparison
	for i := 0; i < len(quotes); i++ {
		for j := i + 1; j < len(quotes); j++ {
			if quotes[i].Venue == quotes[j].Venue {
				continue
			}
			out.Evaluated++
			opp := c.Evaluate(pair, quotes[i], quotes[j], gasGwei, now)
			if c.Thresholds.Qualifies(opp) {
				out.Qualifying = append(out.Qualifying, opp)
			}
		}
	}
	return out
}
