// Package domain contains the core domain types for the pricing context.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/internal/token"
)

// Route is the encoded swap a venue expects: call Target with CallData.
type Route struct {
	Target   common.Address `json:"target"`
	CallData []byte         `json:"callData,omitempty"`
}

// Quote is a venue's answer for swapping AmountIn of Pair.In into Pair.Out.
type Quote struct {
	Venue       string     `json:"venue"`
	Pair        token.Pair `json:"pair"`
	AmountIn    *big.Int   `json:"amountIn"`
	AmountOut   *big.Int   `json:"amountOut"`
	Route       Route      `json:"route"`
	GasEstimate uint64     `json:"gasEstimate,omitempty"`
	FeeTier     int        `json:"feeTier,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// Rate returns Pair.Out received per one Pair.In, in display units.
func (q Quote) Rate() decimal.Decimal {
	in := q.Pair.In.FromRaw(q.AmountIn)
	if in.IsZero() {
		return decimal.Zero
	}
	return q.Pair.Out.FromRaw(q.AmountOut).Div(in)
}

// HasRoute reports whether the quote carries executable call data.
func (q Quote) HasRoute() bool {
	return q.Route.Target != (common.Address{}) && len(q.Route.CallData) > 0
}
