// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/token"
)

// QuoteRequest asks a venue how much Pair.Out it gives for AmountIn of Pair.In.
type QuoteRequest struct {
	Venue    string
	Pair     token.Pair
	AmountIn *big.Int
}

// SwapRequest asks for an executable route. From is the transaction origin;
// Recipient holds the input and receives the output, defaulting to From.
type SwapRequest struct {
	QuoteRequest
	From        common.Address
	Recipient   common.Address
	SlippageBps int
}

// Receiver returns the account that swaps and receives the output.
func (r SwapRequest) Receiver() common.Address {
	if r.Recipient == (common.Address{}) {
		return r.From
	}
	return r.Recipient
}

// QuoteSource is implemented by every venue adapter.
type QuoteSource interface {
	// GetQuote returns a price-only quote.
	GetQuote(ctx context.Context, req QuoteRequest) (*domain.Quote, error)

	// BuildSwapTransaction returns a quote carrying route target and call data.
	BuildSwapTransaction(ctx context.Context, req SwapRequest) (*domain.Quote, error)
}
