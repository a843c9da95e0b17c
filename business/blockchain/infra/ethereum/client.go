// Package ethereum implements the chain ports over a go-ethereum RPC client.
package ethereum

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/blockchain/app"
	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/cache"
	"github.com/fd1az/flashloan-arb/internal/circuitbreaker"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const (
	tracerName = "blockchain.ethereum"
	meterName  = "blockchain.ethereum"

	gasPriceKey = "current"
)

var _ app.ChainReader = (*Client)(nil)

// Backend is the subset of *ethclient.Client used by this package.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// ClientConfig holds configuration for the chain client.
type ClientConfig struct {
	CallTimeout time.Duration
	GasCacheTTL time.Duration
}

type clientMetrics struct {
	rpcCalls     metric.Int64Counter
	rpcLatency   metric.Float64Histogram
	gasPriceGwei metric.Float64Gauge
	cacheHits    metric.Int64Counter
	cacheMisses  metric.Int64Counter
}

// Client serves gas price, balances and bytecode with caching and a circuit breaker.
type Client struct {
	backend Backend
	config  ClientConfig
	logger  logger.LoggerInterface

	gasCache *cache.Cache[string, *domain.GasPrice]
	cb       *circuitbreaker.CircuitBreaker[any]

	tracer  trace.Tracer
	metrics *clientMetrics
}

// NewClient creates a chain client over backend.
func NewClient(backend Backend, cfg ClientConfig, log logger.LoggerInterface) (*Client, error) {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}
	if cfg.GasCacheTTL <= 0 {
		cfg.GasCacheTTL = 3 * time.Second
	}

	c := &Client{
		backend:  backend,
		config:   cfg,
		logger:   log,
		gasCache: cache.New[string, *domain.GasPrice](1, cfg.GasCacheTTL),
		tracer:   otel.Tracer(tracerName),
	}

	cbCfg := circuitbreaker.DefaultConfig("chain-rpc")
	cbCfg.OnStateChange = stateLogger(log)
	c.cb = circuitbreaker.New[any](cbCfg)

	if err := c.initMetrics(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.rpcCalls, err = meter.Int64Counter(
		"chain_rpc_calls_total",
		metric.WithDescription("Total chain RPC calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	c.metrics.rpcLatency, err = meter.Float64Histogram(
		"chain_rpc_latency_ms",
		metric.WithDescription("Chain RPC latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	c.metrics.gasPriceGwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Current gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	c.metrics.cacheHits, err = meter.Int64Counter(
		"gas_cache_hits_total",
		metric.WithDescription("Gas price cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	c.metrics.cacheMisses, err = meter.Int64Counter(
		"gas_cache_misses_total",
		metric.WithDescription("Gas price cache misses"),
		metric.WithUnit("{miss}"),
	)
	return err
}

// call runs fn through the breaker with a timeout, recording latency and outcome.
func (c *Client) call(ctx context.Context, method string, fn func(ctx context.Context) (any, error)) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	start := time.Now()
	res, err := c.cb.Execute(func() (any, error) {
		return fn(ctx)
	})

	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.Bool("success", err == nil),
	)
	c.metrics.rpcCalls.Add(ctx, 1, attrs)
	c.metrics.rpcLatency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)

	if err != nil && !apperror.IsAppError(err) {
		err = apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext(method))
	}
	return res, err
}

// GetGasPrice retrieves the current gas price, served from cache for a few seconds.
func (c *Client) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	ctx, span := c.tracer.Start(ctx, "chain.gas_price")
	defer span.End()

	if price, ok := c.gasCache.Get(ctx, gasPriceKey); ok {
		c.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return price, nil
	}
	c.metrics.cacheMisses.Add(ctx, 1)

	res, err := c.call(ctx, "eth_gasPrice", func(ctx context.Context) (any, error) {
		return c.backend.SuggestGasPrice(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}

	price := domain.NewGasPrice(res.(*big.Int))
	c.gasCache.Set(ctx, gasPriceKey, price)

	gwei := price.Gwei().InexactFloat64()
	c.metrics.gasPriceGwei.Record(ctx, gwei)
	span.SetAttributes(attribute.Float64("gwei", gwei))
	span.SetStatus(codes.Ok, "fetched")

	return price, nil
}

// GetNativeBalance returns the latest native balance of addr.
func (c *Client) GetNativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	ctx, span := c.tracer.Start(ctx, "chain.balance",
		trace.WithAttributes(attribute.String("address", addr.Hex())),
	)
	defer span.End()

	res, err := c.call(ctx, "eth_getBalance", func(ctx context.Context) (any, error) {
		return c.backend.BalanceAt(ctx, addr, nil)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "fetched")
	return res.(*big.Int), nil
}

// GetCode returns the bytecode deployed at addr.
func (c *Client) GetCode(ctx context.Context, addr common.Address) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "chain.code",
		trace.WithAttributes(attribute.String("address", addr.Hex())),
	)
	defer span.End()

	res, err := c.call(ctx, "eth_getCode", func(ctx context.Context) (any, error) {
		return c.backend.CodeAt(ctx, addr, nil)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}

	code := res.([]byte)
	span.SetAttributes(attribute.Int("code_len", len(code)))
	span.SetStatus(codes.Ok, "fetched")
	return code, nil
}

// LatestBlock returns the head block number. Used by the health check.
func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	res, err := c.call(ctx, "eth_getBlockByNumber", func(ctx context.Context) (any, error) {
		return c.backend.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		return 0, err
	}
	return res.(*types.Header).Number.Uint64(), nil
}

// Close releases the cache.
func (c *Client) Close() {
	c.gasCache.Close()
}
