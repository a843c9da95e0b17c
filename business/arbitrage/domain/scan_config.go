package domain

import (
	"errors"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/internal/token"
)

const (
	DefaultScanInterval    = 30 * time.Second
	DefaultStalenessWindow = 60 * time.Second
)

// TokenPair is one scanned direction with its loan notional and USD reference prices.
type TokenPair struct {
	Pair        token.Pair
	Notional    decimal.Decimal // in Pair.In display units
	InUSDPrice  decimal.Decimal
	OutUSDPrice decimal.Decimal
}

// LoanAmount is the notional in raw Pair.In units.
func (p TokenPair) LoanAmount() *big.Int {
	return p.Pair.In.ToRaw(p.Notional)
}

// NotionalUSD values the notional in USD.
func (p TokenPair) NotionalUSD() decimal.Decimal {
	return p.Notional.Mul(p.InUSDPrice)
}

// ScanConfig is resolved once per scanning session and never changes during it.
type ScanConfig struct {
	Thresholds      Thresholds
	MaxGasGwei      decimal.Decimal
	Interval        time.Duration
	StalenessWindow time.Duration
	Pairs           []TokenPair
	Venues          []string
	Costs           Costs
	AutoExecute     bool
}

// WithDefaults fills zero durations.
func (c ScanConfig) WithDefaults() ScanConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultScanInterval
	}
	if c.StalenessWindow <= 0 {
		c.StalenessWindow = DefaultStalenessWindow
	}
	return c
}

// Validate checks the session can compare at least two venues for at least one pair.
func (c ScanConfig) Validate() error {
	if len(c.Pairs) == 0 {
		return errors.New("scan config: no pairs")
	}
	if len(c.Venues) < 2 {
		return errors.New("scan config: at least two venues are required")
	}
	for _, p := range c.Pairs {
		if !p.Notional.IsPositive() {
			return errors.New("scan config: pair " + p.Pair.Key() + " has no notional")
		}
	}
	return nil
}
