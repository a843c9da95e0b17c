package app

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/token"
)

type stubSource struct {
	rate  int64
	err   error
	delay time.Duration
	route bool
	calls atomic.Int32
}

func (s *stubSource) GetQuote(ctx context.Context, req QuoteRequest) (*domain.Quote, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Quote{
		Venue:     req.Venue,
		Pair:      req.Pair,
		AmountIn:  req.AmountIn,
		AmountOut: new(big.Int).Mul(req.AmountIn, big.NewInt(s.rate)),
		Timestamp: time.Now(),
	}, nil
}

func (s *stubSource) BuildSwapTransaction(ctx context.Context, req SwapRequest) (*domain.Quote, error) {
	q, err := s.GetQuote(ctx, req.QuoteRequest)
	if err != nil {
		return nil, err
	}
	if s.route {
		q.Route = domain.Route{Target: common.HexToAddress("0xabc"), CallData: []byte{1}}
	}
	return q, nil
}

func testPair() token.Pair {
	return token.Pair{
		In:  token.Token{Address: common.HexToAddress("0x01"), Symbol: "WETH", Decimals: 18},
		Out: token.Token{Address: common.HexToAddress("0x02"), Symbol: "DAI", Decimals: 18},
	}
}

func newService(t *testing.T, sources map[string]QuoteSource, timeout time.Duration) *QuoteService {
	t.Helper()
	svc, err := NewQuoteService(sources, timeout, 4, logger.New(io.Discard, logger.LevelDebug, "test", nil))
	require.NoError(t, err)
	return svc
}

func TestQuoteService_FetchQuotesToleratesPartialFailure(t *testing.T) {
	svc := newService(t, map[string]QuoteSource{
		"uni":   &stubSource{rate: 2500},
		"sushi": &stubSource{rate: 2510},
		"curve": &stubSource{err: errors.New("502 bad gateway")},
	}, time.Second)

	pair := testPair()
	res := svc.FetchQuotes(context.Background(),
		[]PairAmount{{Pair: pair, AmountIn: big.NewInt(1e18)}},
		[]string{"uni", "curve", "sushi"},
	)

	quotes := res.Quotes[pair.Key()]
	require.Len(t, quotes, 2)
	assert.Equal(t, "uni", quotes[0].Venue)
	assert.Equal(t, "sushi", quotes[1].Venue)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, "curve", res.Failures[0].Venue)
	assert.Equal(t, apperror.CodeVenueUnavailable, apperror.GetCode(res.Failures[0].Err))
	assert.Equal(t, apperror.ClassInfrastructure, apperror.ClassOf(res.Failures[0].Err))
}

func TestQuoteService_PerCallTimeout(t *testing.T) {
	slow := &stubSource{rate: 1, delay: time.Second}
	svc := newService(t, map[string]QuoteSource{
		"slow": slow,
		"fast": &stubSource{rate: 1},
	}, 20*time.Millisecond)

	start := time.Now()
	res := svc.FetchQuotes(context.Background(),
		[]PairAmount{{Pair: testPair(), AmountIn: big.NewInt(1)}},
		[]string{"slow", "fast"},
	)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 1, res.Count())
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "slow", res.Failures[0].Venue)
}

func TestQuoteService_UnknownVenue(t *testing.T) {
	svc := newService(t, map[string]QuoteSource{"uni": &stubSource{rate: 1}}, time.Second)

	_, err := svc.GetQuote(context.Background(), QuoteRequest{Venue: "nope", Pair: testPair(), AmountIn: big.NewInt(1)})
	assert.Equal(t, apperror.CodeUnknownVenue, apperror.GetCode(err))
	assert.Equal(t, apperror.ClassConfiguration, apperror.ClassOf(err))
}

func TestQuoteService_ZeroOutputIsInvalid(t *testing.T) {
	svc := newService(t, map[string]QuoteSource{"uni": &stubSource{rate: 0}}, time.Second)

	_, err := svc.GetQuote(context.Background(), QuoteRequest{Venue: "uni", Pair: testPair(), AmountIn: big.NewInt(1)})
	assert.Equal(t, apperror.CodeInvalidQuote, apperror.GetCode(err))
}

func TestQuoteService_BuildSwapTransactionPassesRouteThrough(t *testing.T) {
	svc := newService(t, map[string]QuoteSource{
		"routed":   &stubSource{rate: 1, route: true},
		"unrouted": &stubSource{rate: 1},
	}, time.Second)

	req := SwapRequest{QuoteRequest: QuoteRequest{Pair: testPair(), AmountIn: big.NewInt(5)}, SlippageBps: 50}

	req.Venue = "routed"
	q, err := svc.BuildSwapTransaction(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, q.HasRoute())

	req.Venue = "unrouted"
	q, err = svc.BuildSwapTransaction(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, q.HasRoute())
}

func TestQuoteService_Venues(t *testing.T) {
	svc := newService(t, map[string]QuoteSource{"b": &stubSource{}, "a": &stubSource{}}, 0)
	assert.Equal(t, []string{"a", "b"}, svc.Venues())
}
