package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Gate answers the two pre-trade questions: is gas cheap enough, is the wallet funded.
// Threshold misses come back as ok=false with a nil error; only RPC failures are errors.
type Gate struct {
	chain ChainReader
}

// NewGate creates a Gate over chain.
func NewGate(chain ChainReader) *Gate {
	return &Gate{chain: chain}
}

// CheckGasAcceptable reports the current gas price and whether it is at or below maxGwei.
func (g *Gate) CheckGasAcceptable(ctx context.Context, maxGwei decimal.Decimal) (decimal.Decimal, bool, error) {
	price, err := g.chain.GetGasPrice(ctx)
	if err != nil {
		return decimal.Zero, false, err
	}

	gwei := price.Gwei()
	return gwei, gwei.LessThanOrEqual(maxGwei), nil
}

// CheckNativeBalance reports the balance of addr and whether it covers minimum wei.
func (g *Gate) CheckNativeBalance(ctx context.Context, addr common.Address, minimum *big.Int) (*big.Int, bool, error) {
	balance, err := g.chain.GetNativeBalance(ctx, addr)
	if err != nil {
		return nil, false, err
	}

	return balance, balance.Cmp(minimum) >= 0, nil
}
