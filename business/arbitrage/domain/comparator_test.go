package domain

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/token"
)

var (
	usdc = token.Token{Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), Symbol: "USDC", Decimals: 6}
	dai  = token.Token{Address: common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), Symbol: "DAI", Decimals: 18}
)

func stablePair() TokenPair {
	return TokenPair{
		Pair:        token.Pair{In: usdc, Out: dai},
		Notional:    decimal.NewFromInt(10_000),
		InUSDPrice:  decimal.NewFromInt(1),
		OutUSDPrice: decimal.NewFromInt(1),
	}
}

func quoteAt(venue string, pair TokenPair, rate string) *pricingDomain.Quote {
	in := pair.LoanAmount()
	out := pair.Pair.Out.ToRaw(pair.Notional.Mul(decimal.RequireFromString(rate)))
	return &pricingDomain.Quote{
		Venue:     venue,
		Pair:      pair.Pair,
		AmountIn:  in,
		AmountOut: out,
	}
}

// 10 gwei * 150k gas * 2000 USD = 3 USD gas; 5 bps of 10k = 5 USD fee.
func scenarioComparator() Comparator {
	return Comparator{
		Thresholds: Thresholds{
			GrossPercent: decimal.RequireFromString("0.3"),
			NetPercent:   decimal.RequireFromString("0.15"),
			MinProfitUSD: decimal.RequireFromString("1.5"),
		},
		Costs: Costs{
			GasUnits:       150_000,
			NativeUSDPrice: decimal.NewFromInt(2000),
			LoanFeeBps:     decimal.NewFromInt(5),
		},
	}
}

func TestComparator_StableScenario(t *testing.T) {
	pair := stablePair()
	now := time.Unix(1_700_000_000, 0)
	c := scenarioComparator()

	got := c.Compare(pair, []*pricingDomain.Quote{
		quoteAt("curve", pair, "1.012"),
		quoteAt("uniswap_v3", pair, "1.000"),
	}, decimal.NewFromInt(10), now)

	if got.Evaluated != 1 {
		t.Fatalf("Evaluated = %d, want 1", got.Evaluated)
	}
	if len(got.Qualifying) != 1 {
		t.Fatalf("Qualifying = %d, want 1", len(got.Qualifying))
	}

	opp := got.Qualifying[0]
	if opp.BuyVenue != "uniswap_v3" || opp.SellVenue != "curve" {
		t.Errorf("buy/sell = %s/%s, want uniswap_v3/curve", opp.BuyVenue, opp.SellVenue)
	}
	if s := opp.GasCostUSD.String(); s != "3" {
		t.Errorf("GasCostUSD = %s, want 3", s)
	}
	if s := opp.FlashLoanFeeUSD.String(); s != "5" {
		t.Errorf("FlashLoanFeeUSD = %s, want 5", s)
	}
	if s := opp.GrossProfitPercent.Round(2).String(); s != "1.19" {
		t.Errorf("GrossProfitPercent = %s, want 1.19", s)
	}
	if s := opp.EstimatedProfitUSD().Round(2).String(); s != "111.28" {
		t.Errorf("EstimatedProfitUSD = %s, want 111.28", s)
	}
	if s := opp.NetProfitPercent().Round(2).String(); s != "1.11" {
		t.Errorf("NetProfitPercent = %s, want 1.11", s)
	}
	if opp.BuyLeg.Venue != "uniswap_v3" || opp.SellLeg.Venue != "curve" {
		t.Errorf("legs = %s/%s", opp.BuyLeg.Venue, opp.SellLeg.Venue)
	}
	if opp.LoanAmount.Cmp(big.NewInt(10_000_000_000)) != 0 {
		t.Errorf("LoanAmount = %s", opp.LoanAmount)
	}
	if want := "USDC-DAI-uniswap_v3-curve-1700000000000000000"; opp.ID != want {
		t.Errorf("ID = %s, want %s", opp.ID, want)
	}
	if !opp.Valid || !opp.DiscoveredAt.Equal(now) {
		t.Errorf("lifecycle = valid %v at %s", opp.Valid, opp.DiscoveredAt)
	}
}

func TestComparator_SpreadIsSymmetric(t *testing.T) {
	pair := stablePair()
	now := time.Now()
	c := scenarioComparator()

	rates := [][2]string{
		{"1.000", "1.012"},
		{"0.998", "1.003"},
		{"1.5", "1.25"},
		{"1.000", "1.000"},
	}

	for _, r := range rates {
		a := quoteAt("a", pair, r[0])
		b := quoteAt("b", pair, r[1])

		ab := c.Evaluate(pair, a, b, decimal.NewFromInt(10), now)
		ba := c.Evaluate(pair, b, a, decimal.NewFromInt(10), now)

		if !ab.GrossProfitPercent.Equal(ba.GrossProfitPercent) {
			t.Errorf("%v: gross %s != %s", r, ab.GrossProfitPercent, ba.GrossProfitPercent)
		}
		if !ab.SellPrice.Sub(ab.BuyPrice).Equal(ba.SellPrice.Sub(ba.BuyPrice)) {
			t.Errorf("%v: |delta| differs", r)
		}
		if ab.BuyPrice.GreaterThan(ab.SellPrice) {
			t.Errorf("%v: buy price above sell price", r)
		}
		if ab.BuyVenue == ab.SellVenue {
			t.Errorf("%v: venue on both sides", r)
		}
		if r[0] != r[1] && ab.BuyVenue != ba.BuyVenue {
			t.Errorf("%v: buy venue depends on order", r)
		}
	}
}

func TestComparator_Compare(t *testing.T) {
	pair := stablePair()
	now := time.Now()
	gas := decimal.NewFromInt(10)

	tests := []struct {
		name          string
		rates         map[string]string
		wantEvaluated int
		wantQualify   int
	}{
		{"single_quote", map[string]string{"a": "1.0"}, 0, 0},
		{"tiny_spread", map[string]string{"a": "1.000", "b": "1.001"}, 1, 0},
		{"three_venues_all_pairs", map[string]string{"a": "1.000", "b": "1.012", "c": "1.020"}, 3, 3},
		{"three_venues_one_outlier", map[string]string{"a": "1.000", "b": "1.0005", "c": "1.015"}, 3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var quotes []*pricingDomain.Quote
			for _, v := range []string{"a", "b", "c"} {
				if r, ok := tt.rates[v]; ok {
					quotes = append(quotes, quoteAt(v, pair, r))
				}
			}

			got := scenarioComparator().Compare(pair, quotes, gas, now)
			if got.Evaluated != tt.wantEvaluated {
				t.Errorf("Evaluated = %d, want %d", got.Evaluated, tt.wantEvaluated)
			}
			if len(got.Qualifying) != tt.wantQualify {
				t.Errorf("Qualifying = %d, want %d", len(got.Qualifying), tt.wantQualify)
			}
		})
	}
}

func TestComparison_Best(t *testing.T) {
	pair := stablePair()
	now := time.Now()

	got := scenarioComparator().Compare(pair, []*pricingDomain.Quote{
		quoteAt("a", pair, "1.000"),
		quoteAt("b", pair, "1.012"),
		quoteAt("c", pair, "1.020"),
	}, decimal.NewFromInt(10), now)

	best, ok := got.Best()
	if !ok {
		t.Fatal("Best() found nothing")
	}
	if best.BuyVenue != "a" || best.SellVenue != "c" {
		t.Errorf("best = %s>%s, want a>c", best.BuyVenue, best.SellVenue)
	}

	if _, ok := (Comparison{}).Best(); ok {
		t.Error("empty comparison returned a best candidate")
	}
}
