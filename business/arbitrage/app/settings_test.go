package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/config"
)

func pairConfig() config.PairConfig {
	return config.PairConfig{
		TokenIn:  config.TokenConfig{Address: usdc.Address.Hex(), Symbol: "USDC", Decimals: 6, USDPrice: 1},
		TokenOut: config.TokenConfig{Address: dai.Address.Hex(), Symbol: "DAI", Decimals: 18, USDPrice: 1},
		Notional: 10_000,
	}
}

func TestNewScanConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Scanner.Pairs = []config.PairConfig{pairConfig()}
	cfg.Scanner.AutoExecute = true
	cfg.Pricing.Venues = []config.VenueConfig{
		{Name: "uniswap_v3", Source: config.SourceUniswap},
		{Name: "curve", Source: config.SourceAggregator},
	}

	sc, err := NewScanConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"uniswap_v3", "curve"}, sc.Venues)
	require.Len(t, sc.Pairs, 1)
	assert.Equal(t, "USDC-DAI", sc.Pairs[0].Pair.Key())
	assert.Equal(t, "10000000000", sc.Pairs[0].LoanAmount().String())
	assert.Equal(t, "60", sc.MaxGasGwei.String())
	assert.Equal(t, "1.5", sc.Thresholds.MinProfitUSD.String())
	assert.Equal(t, uint64(150_000), sc.Costs.GasUnits)
	assert.True(t, sc.AutoExecute)

	assert.Equal(t, domain.DefaultScanInterval, sc.Interval)
	assert.Equal(t, domain.DefaultStalenessWindow, sc.StalenessWindow)
}

func TestNewScanConfig_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad_token_address", func(c *config.Config) { c.Scanner.Pairs[0].TokenIn.Address = "nope" }},
		{"same_token", func(c *config.Config) { c.Scanner.Pairs[0].TokenOut = c.Scanner.Pairs[0].TokenIn }},
		{"one_venue", func(c *config.Config) { c.Pricing.Venues = c.Pricing.Venues[:1] }},
		{"no_pairs", func(c *config.Config) { c.Scanner.Pairs = nil }},
		{"zero_notional", func(c *config.Config) { c.Scanner.Pairs[0].Notional = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Scanner.Interval = time.Second
			cfg.Scanner.Pairs = []config.PairConfig{pairConfig()}
			cfg.Pricing.Venues = []config.VenueConfig{{Name: "a"}, {Name: "b"}}
			tt.mutate(cfg)

			_, err := NewScanConfig(cfg)
			assert.Error(t, err)
		})
	}
}
