// Package synthetic is a deterministic quote source. Rates follow a configured base with
// per-venue jitter drawn from a fixed-seed generator, so runs are reproducible.
package synthetic

import (
	"context"
	"hash/fnv"
	"math/big"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/business/pricing/app"
	"github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
)

var _ app.QuoteSource = (*Source)(nil)

var swapSelector = crypto.Keccak256([]byte("swap(address,address,uint256,uint256,address)"))[:4]

// Config tunes the generator.
type Config struct {
	Seed      uint64
	JitterBps float64
	// BaseRates maps a pair key ("WETH-USDC") to Out per In in display units.
	BaseRates map[string]float64
	// GasEstimate is reported on every quote.
	GasEstimate uint64
}

// Source implements app.QuoteSource without any network access.
type Source struct {
	cfg Config

	mu     sync.Mutex
	rngs   map[string]*rand.Rand
	fixed  map[string]decimal.Decimal
	failed map[string]error
}

// New creates a synthetic source.
func New(cfg Config) *Source {
	if cfg.GasEstimate == 0 {
		cfg.GasEstimate = 150_000
	}
	return &Source{
		cfg:    cfg,
		rngs:   make(map[string]*rand.Rand),
		fixed:  make(map[string]decimal.Decimal),
		failed: make(map[string]error),
	}
}

func fixedKey(venue, pairKey string) string {
	return venue + "|" + pairKey
}

// WithRate pins the rate a venue returns for a pair, bypassing jitter.
func (s *Source) WithRate(venue, pairKey string, rate decimal.Decimal) *Source {
	s.mu.Lock()
	s.fixed[fixedKey(venue, pairKey)] = rate
	s.mu.Unlock()
	return s
}

// WithFailure makes every call for venue fail with err. A nil err clears it.
func (s *Source) WithFailure(venue string, err error) *Source {
	s.mu.Lock()
	if err == nil {
		delete(s.failed, venue)
	} else {
		s.failed[venue] = err
	}
	s.mu.Unlock()
	return s
}

// rate returns the next rate for venue and pair. Caller holds s.mu.
func (s *Source) rate(venue, pairKey, reverseKey string) decimal.Decimal {
	if r, ok := s.fixed[fixedKey(venue, pairKey)]; ok {
		return r
	}

	base := decimal.NewFromInt(1)
	if r, ok := s.cfg.BaseRates[pairKey]; ok && r > 0 {
		base = decimal.NewFromFloat(r)
	} else if r, ok := s.cfg.BaseRates[reverseKey]; ok && r > 0 {
		base = decimal.NewFromInt(1).Div(decimal.NewFromFloat(r))
	}

	rng, ok := s.rngs[venue]
	if !ok {
		h := fnv.New64a()
		h.Write([]byte(venue))
		rng = rand.New(rand.NewPCG(s.cfg.Seed, h.Sum64()))
		s.rngs[venue] = rng
	}

	// uniform in [-JitterBps, +JitterBps]
	jitter := (rng.Float64()*2 - 1) * s.cfg.JitterBps / 10_000
	return base.Mul(decimal.NewFromFloat(1 + jitter))
}

func (s *Source) quote(req app.QuoteRequest) (*domain.Quote, error) {
	s.mu.Lock()
	if err, ok := s.failed[req.Venue]; ok {
		s.mu.Unlock()
		return nil, apperror.New(apperror.CodeVenueUnavailable,
			apperror.WithContext(req.Venue),
			apperror.WithCause(err))
	}
	rate := s.rate(req.Venue, req.Pair.Key(), req.Pair.Reverse().Key())
	s.mu.Unlock()

	out := req.Pair.Out.ToRaw(req.Pair.In.FromRaw(req.AmountIn).Mul(rate))

	return &domain.Quote{
		Venue:       req.Venue,
		Pair:        req.Pair,
		AmountIn:    new(big.Int).Set(req.AmountIn),
		AmountOut:   out,
		GasEstimate: s.cfg.GasEstimate,
		Timestamp:   time.Now(),
	}, nil
}

// GetQuote implements app.QuoteSource.
func (s *Source) GetQuote(ctx context.Context, req app.QuoteRequest) (*domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.quote(req)
}

// BuildSwapTransaction returns a quote with a venue-specific router and packed call data.
func (s *Source) BuildSwapTransaction(ctx context.Context, req app.SwapRequest) (*domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q, err := s.quote(req.QuoteRequest)
	if err != nil {
		return nil, err
	}

	minOut := new(big.Int).Mul(q.AmountOut, big.NewInt(int64(10_000-req.SlippageBps)))
	minOut.Quo(minOut, big.NewInt(10_000))

	data := make([]byte, 0, 4+32*5)
	data = append(data, swapSelector...)
	data = append(data, common.LeftPadBytes(req.Pair.In.Address.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(req.Pair.Out.Address.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(req.AmountIn.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(minOut.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(req.From.Bytes(), 32)...)

	q.Route = domain.Route{Target: RouterFor(req.Venue), CallData: data}
	return q, nil
}

// RouterFor derives a stable pseudo router address for venue.
func RouterFor(venue string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("synthetic-router:" + venue)))
}
