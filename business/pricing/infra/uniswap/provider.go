// Package uniswap quotes Uniswap V3 pools on-chain and builds SwapRouter02 calls.
package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/pricing/app"
	"github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/cache"
	"github.com/fd1az/flashloan-arb/internal/circuitbreaker"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const (
	tracerName = "uniswap"
	meterName  = "uniswap"

	feeTierCacheTTL = 10 * time.Minute
)

// Ensure Provider implements QuoteSource.
var _ app.QuoteSource = (*Provider)(nil)

// ContractCaller is satisfied by *ethclient.Client.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Config holds Uniswap contract addresses.
type Config struct {
	Quoter   common.Address
	Router   common.Address
	FeeTiers []int
}

// providerMetrics holds OTEL metric instruments.
type providerMetrics struct {
	quotesTotal  metric.Int64Counter
	quoteLatency metric.Float64Histogram
	quoteErrors  metric.Int64Counter
}

// Provider implements QuoteSource for Uniswap V3.
type Provider struct {
	client    ContractCaller
	config    Config
	quoterABI abi.ABI
	routerABI abi.ABI

	// best fee tier per pair key
	feeTiers *cache.Cache[string, int]

	logger logger.LoggerInterface
	cb     *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *providerMetrics
}

// NewProvider creates a new Uniswap V3 provider.
func NewProvider(client ContractCaller, cfg Config, log logger.LoggerInterface) (*Provider, error) {
	quoterABI, err := abi.JSON(strings.NewReader(QuoterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse quoter ABI: %w", err)
	}
	routerABI, err := abi.JSON(strings.NewReader(SwapRouter02ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}

	if len(cfg.FeeTiers) == 0 {
		cfg.FeeTiers = []int{FeeTier005, FeeTier030, FeeTier100}
	}

	p := &Provider{
		client:    client,
		config:    cfg,
		quoterABI: quoterABI,
		routerABI: routerABI,
		feeTiers:  cache.New[string, int](256, feeTierCacheTTL),
		logger:    log,
		tracer:    otel.Tracer(tracerName),
	}

	p.cb = circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("uniswap-quoter"))

	if err := p.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return p, nil
}

func (p *Provider) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	p.metrics = &providerMetrics{}

	p.metrics.quotesTotal, err = meter.Int64Counter(
		"uniswap_quotes_total",
		metric.WithDescription("Total quote requests"),
	)
	if err != nil {
		return err
	}

	p.metrics.quoteLatency, err = meter.Float64Histogram(
		"uniswap_quote_latency_ms",
		metric.WithDescription("Quote request latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	p.metrics.quoteErrors, err = meter.Int64Counter(
		"uniswap_quote_errors_total",
		metric.WithDescription("Total quote errors"),
	)
	return err
}

// GetQuote returns the best quote across fee tiers. The winning tier is cached per pair.
func (p *Provider) GetQuote(ctx context.Context, req app.QuoteRequest) (*domain.Quote, error) {
	ctx, span := p.tracer.Start(ctx, "uniswap.get_quote",
		trace.WithAttributes(
			attribute.String("pair", req.Pair.Key()),
			attribute.String("amount_in", req.AmountIn.String()),
		),
	)
	defer span.End()

	start := time.Now()
	p.metrics.quotesTotal.Add(ctx, 1)

	tiers := p.config.FeeTiers
	if tier, ok := p.feeTiers.Get(ctx, req.Pair.Key()); ok {
		tiers = []int{tier}
		span.AddEvent("fee_tier_cache_hit", trace.WithAttributes(attribute.Int("fee_tier", tier)))
	}

	var (
		best     *QuoteResult
		bestTier int
		lastErr  error
	)
	for _, tier := range tiers {
		quote, err := p.quoteTier(ctx, req, tier)
		if err != nil {
			lastErr = err
			span.AddEvent("fee_tier_failed",
				trace.WithAttributes(
					attribute.Int("fee_tier", tier),
					attribute.String("error", err.Error()),
				),
			)
			continue
		}
		if best == nil || quote.AmountOut.Cmp(best.AmountOut) > 0 {
			best = quote
			bestTier = tier
		}
	}

	p.metrics.quoteLatency.Record(ctx, float64(time.Since(start).Milliseconds()))

	if best == nil {
		p.metrics.quoteErrors.Add(ctx, 1)
		p.feeTiers.Delete(ctx, req.Pair.Key())
		span.SetStatus(codes.Error, "no valid quote")
		return nil, apperror.New(apperror.CodeVenueUnavailable,
			apperror.WithContext("no pool answered for "+req.Pair.Key()),
			apperror.WithCause(lastErr))
	}
	p.feeTiers.Set(ctx, req.Pair.Key(), bestTier)

	span.SetAttributes(
		attribute.String("amount_out", best.AmountOut.String()),
		attribute.Int("fee_tier", bestTier),
	)
	span.SetStatus(codes.Ok, "quote received")

	p.logger.Debug(ctx, "uniswap quote",
		"pair", req.Pair.Key(),
		"amount_in", req.AmountIn.String(),
		"amount_out", best.AmountOut.String(),
		"fee_tier", bestTier,
	)

	return &domain.Quote{
		Venue:       req.Venue,
		Pair:        req.Pair,
		AmountIn:    new(big.Int).Set(req.AmountIn),
		AmountOut:   best.AmountOut,
		GasEstimate: best.GasEstimate.Uint64(),
		FeeTier:     bestTier,
		Timestamp:   time.Now(),
	}, nil
}

// BuildSwapTransaction quotes, then encodes exactInputSingle with a slippage-bounded minimum.
func (p *Provider) BuildSwapTransaction(ctx context.Context, req app.SwapRequest) (*domain.Quote, error) {
	q, err := p.GetQuote(ctx, req.QuoteRequest)
	if err != nil {
		return nil, err
	}

	minOut := new(big.Int).Mul(q.AmountOut, big.NewInt(int64(10_000-req.SlippageBps)))
	minOut.Quo(minOut, big.NewInt(10_000))

	data, err := p.routerABI.Pack(swapMethod, ExactInputSingleParams{
		TokenIn:           req.Pair.In.Address,
		TokenOut:          req.Pair.Out.Address,
		Fee:               big.NewInt(int64(q.FeeTier)),
		Recipient:         req.Receiver(),
		AmountIn:          req.AmountIn,
		AmountOutMinimum:  minOut,
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeMalformedRoute, apperror.WithCause(err))
	}

	q.Route = domain.Route{Target: p.config.Router, CallData: data}
	return q, nil
}

// quoteTier calls QuoterV2.quoteExactInputSingle for a specific fee tier.
func (p *Provider) quoteTier(ctx context.Context, req app.QuoteRequest, feeTier int) (*QuoteResult, error) {
	callData, err := p.quoterABI.Pack(quoteMethod, QuoteExactInputSingleParams{
		TokenIn:           req.Pair.In.Address,
		TokenOut:          req.Pair.Out.Address,
		AmountIn:          req.AmountIn,
		Fee:               big.NewInt(int64(feeTier)),
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := p.cb.Execute(func() ([]byte, error) {
		return p.client.CallContract(ctx, ethereum.CallMsg{
			To:   &p.config.Quoter,
			Data: callData,
		}, nil)
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("quoter call failed for fee tier %d", feeTier)))
	}

	outputs, err := p.quoterABI.Unpack(quoteMethod, result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	if len(outputs) < 4 {
		return nil, fmt.Errorf("unexpected output length: %d", len(outputs))
	}

	return &QuoteResult{
		AmountOut:               outputs[0].(*big.Int),
		SqrtPriceX96After:       outputs[1].(*big.Int),
		InitializedTicksCrossed: outputs[2].(uint32),
		GasEstimate:             outputs[3].(*big.Int),
	}, nil
}
