package app

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/token"
)

// NewScanConfig resolves a scanning session's settings from configuration.
func NewScanConfig(cfg *config.Config) (domain.ScanConfig, error) {
	pairs := make([]domain.TokenPair, 0, len(cfg.Scanner.Pairs))
	for i, pc := range cfg.Scanner.Pairs {
		in, err := token.New(pc.TokenIn.Address, pc.TokenIn.Symbol, pc.TokenIn.Decimals)
		if err != nil {
			return domain.ScanConfig{}, fmt.Errorf("scanner.pairs[%d].token_in: %w", i, err)
		}
		out, err := token.New(pc.TokenOut.Address, pc.TokenOut.Symbol, pc.TokenOut.Decimals)
		if err != nil {
			return domain.ScanConfig{}, fmt.Errorf("scanner.pairs[%d].token_out: %w", i, err)
		}
		pair, err := token.NewPair(in, out)
		if err != nil {
			return domain.ScanConfig{}, fmt.Errorf("scanner.pairs[%d]: %w", i, err)
		}

		pairs = append(pairs, domain.TokenPair{
			Pair:        pair,
			Notional:    decimal.NewFromFloat(pc.Notional),
			InUSDPrice:  decimal.NewFromFloat(pc.TokenIn.USDPrice),
			OutUSDPrice: decimal.NewFromFloat(pc.TokenOut.USDPrice),
		})
	}

	venues := make([]string, 0, len(cfg.Pricing.Venues))
	for _, v := range cfg.Pricing.Venues {
		venues = append(venues, v.Name)
	}

	sc := domain.ScanConfig{
		Thresholds:      thresholdsFrom(cfg),
		MaxGasGwei:      cfg.Scanner.MaxGasGweiDecimal(),
		Interval:        cfg.Scanner.Interval,
		StalenessWindow: cfg.Scanner.StalenessWindow,
		Pairs:           pairs,
		Venues:          venues,
		Costs:           costsFrom(cfg),
		AutoExecute:     cfg.Scanner.AutoExecute,
	}.WithDefaults()

	return sc, sc.Validate()
}

func thresholdsFrom(cfg *config.Config) domain.Thresholds {
	return domain.Thresholds{
		GrossPercent: cfg.Scanner.GrossThresholdDecimal(),
		NetPercent:   cfg.Scanner.NetThresholdDecimal(),
		MinProfitUSD: cfg.Scanner.MinProfitUSDDecimal(),
	}
}

func costsFrom(cfg *config.Config) domain.Costs {
	return domain.Costs{
		GasUnits:       cfg.Scanner.GasUnits,
		NativeUSDPrice: cfg.Chain.NativeUSDPriceDecimal(),
		LoanFeeBps:     cfg.Scanner.LoanFeeBpsDecimal(),
	}
}
