package uniswap

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/business/pricing/app"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/token"
)

// fakeQuoter answers quoteExactInputSingle with a fixed output per fee tier.
// Tiers missing from outputs revert like a pool that does not exist.
type fakeQuoter struct {
	t       *testing.T
	p       *Provider
	outputs map[int64]int64

	mu    sync.Mutex
	calls []int64
}

func (f *fakeQuoter) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	// Static tuple: tokenIn, tokenOut, amountIn, fee, sqrtPriceLimit.
	fee := new(big.Int).SetBytes(msg.Data[4+96 : 4+128]).Int64()

	f.mu.Lock()
	f.calls = append(f.calls, fee)
	f.mu.Unlock()

	out, ok := f.outputs[fee]
	if !ok {
		return nil, errors.New("execution reverted")
	}

	packed, err := f.p.quoterABI.Methods[quoteMethod].Outputs.Pack(
		big.NewInt(out), big.NewInt(0), uint32(1), big.NewInt(90_000),
	)
	require.NoError(f.t, err)
	return packed, nil
}

func (f *fakeQuoter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var testPair = token.Pair{
	In:  token.Token{Address: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), Symbol: "WETH", Decimals: 18},
	Out: token.Token{Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), Symbol: "USDC", Decimals: 6},
}

func newTestProvider(t *testing.T, outputs map[int64]int64) (*Provider, *fakeQuoter) {
	t.Helper()
	fq := &fakeQuoter{t: t, outputs: outputs}
	p, err := NewProvider(fq, Config{
		Quoter: common.HexToAddress("0x61fFE014bA17989E743c5F6cB21bF9697530B21e"),
		Router: common.HexToAddress("0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45"),
	}, logger.New(io.Discard, logger.LevelDebug, "test", nil))
	require.NoError(t, err)
	fq.p = p
	return p, fq
}

func TestProvider_PicksBestTierAndCachesIt(t *testing.T) {
	p, fq := newTestProvider(t, map[int64]int64{
		FeeTier005: 2_501_000_000,
		FeeTier030: 2_498_000_000,
	})

	req := app.QuoteRequest{Venue: "uniswap_v3", Pair: testPair, AmountIn: big.NewInt(1e18)}

	q, err := p.GetQuote(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, FeeTier005, q.FeeTier)
	assert.Equal(t, int64(2_501_000_000), q.AmountOut.Int64())
	assert.Equal(t, uint64(90_000), q.GasEstimate)
	assert.Equal(t, 3, fq.callCount())

	_, err = p.GetQuote(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 4, fq.callCount(), "second quote should only hit the cached tier")
}

func TestProvider_NoPoolIsVenueUnavailable(t *testing.T) {
	p, _ := newTestProvider(t, map[int64]int64{})

	_, err := p.GetQuote(context.Background(), app.QuoteRequest{Venue: "uniswap_v3", Pair: testPair, AmountIn: big.NewInt(1)})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeVenueUnavailable, apperror.GetCode(err))
}

func TestProvider_BuildSwapTransaction(t *testing.T) {
	p, _ := newTestProvider(t, map[int64]int64{FeeTier030: 2_000_000})

	recipient := common.HexToAddress("0x00000000000000000000000000000000000000c0")
	q, err := p.BuildSwapTransaction(context.Background(), app.SwapRequest{
		QuoteRequest: app.QuoteRequest{Venue: "uniswap_v3", Pair: testPair, AmountIn: big.NewInt(1e15)},
		From:         recipient,
		SlippageBps:  50,
	})
	require.NoError(t, err)
	require.True(t, q.HasRoute())
	assert.Equal(t, p.config.Router, q.Route.Target)

	method := p.routerABI.Methods[swapMethod]
	assert.Equal(t, method.ID, q.Route.CallData[:4])

	// Static tuple words: tokenIn, tokenOut, fee, recipient, amountIn, amountOutMinimum, sqrtPriceLimit.
	word := func(i int) *big.Int {
		return new(big.Int).SetBytes(q.Route.CallData[4+32*i : 4+32*(i+1)])
	}
	assert.Equal(t, int64(FeeTier030), word(2).Int64())
	assert.Equal(t, recipient, common.BigToAddress(word(3)))
	assert.Equal(t, int64(1_990_000), word(5).Int64()) // 2_000_000 * 9950 / 10000
}

func TestProvider_BuildSwapTransactionPaysRecipient(t *testing.T) {
	p, _ := newTestProvider(t, map[int64]int64{FeeTier030: 2_000_000})

	signer := common.HexToAddress("0x00000000000000000000000000000000000000c0")
	contract := common.HexToAddress("0x00000000000000000000000000000000000000f1")
	q, err := p.BuildSwapTransaction(context.Background(), app.SwapRequest{
		QuoteRequest: app.QuoteRequest{Venue: "uniswap_v3", Pair: testPair, AmountIn: big.NewInt(1e15)},
		From:         signer,
		Recipient:    contract,
		SlippageBps:  50,
	})
	require.NoError(t, err)

	recipient := new(big.Int).SetBytes(q.Route.CallData[4+32*3 : 4+32*4])
	assert.Equal(t, contract, common.BigToAddress(recipient))
}
