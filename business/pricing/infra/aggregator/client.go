// Package aggregator quotes and routes swaps through a DEX aggregator HTTP API
// (1inch v6 compatible: /{chain}/quote and /{chain}/swap).
package aggregator

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/pricing/app"
	"github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/circuitbreaker"
	"github.com/fd1az/flashloan-arb/internal/httpclient"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/ratelimit"
)

const (
	tracerName = "aggregator"
	meterName  = "aggregator"
)

var _ app.QuoteSource = (*Client)(nil)

// Config holds aggregator settings.
type Config struct {
	BaseURL           string
	APIKey            string
	ChainID           uint64
	RequestsPerMinute int
	Timeout           time.Duration
	// Protocols maps a venue name to the aggregator's protocols filter.
	// An empty filter lets the aggregator route freely.
	Protocols map[string]string
}

type quoteResponse struct {
	DstAmount string `json:"dstAmount"`
	Gas       uint64 `json:"gas"`
}

type swapResponse struct {
	DstAmount string `json:"dstAmount"`
	Tx        struct {
		To   string `json:"to"`
		Data string `json:"data"`
		Gas  uint64 `json:"gas"`
	} `json:"tx"`
}

type clientMetrics struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

// Client implements app.QuoteSource over the aggregator API.
type Client struct {
	http      *httpclient.Client
	chainPath string
	protocols map[string]string
	limiter   *ratelimit.Limiter
	cb        *circuitbreaker.CircuitBreaker[any]
	logger    logger.LoggerInterface

	tracer  trace.Tracer
	metrics *clientMetrics
}

// NewClient creates an aggregator client.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	opts := []httpclient.Option{
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithProvider("aggregator"),
		httpclient.WithTimeout(cfg.Timeout),
	}
	if cfg.APIKey != "" {
		opts = append(opts, httpclient.WithHeader("Authorization", "Bearer "+cfg.APIKey))
	}

	hc, err := httpclient.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	c := &Client{
		http:      hc,
		chainPath: strconv.FormatUint(cfg.ChainID, 10),
		protocols: cfg.Protocols,
		limiter:   ratelimit.New(cfg.RequestsPerMinute),
		cb:        circuitbreaker.New[any](circuitbreaker.DefaultConfig("aggregator")),
		logger:    log,
		tracer:    otel.Tracer(tracerName),
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.requests, err = meter.Int64Counter(
		"aggregator_requests_total",
		metric.WithDescription("Aggregator API requests by endpoint and outcome"),
	)
	if err != nil {
		return err
	}

	c.metrics.latency, err = meter.Float64Histogram(
		"aggregator_latency_ms",
		metric.WithDescription("Aggregator API latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

func (c *Client) baseQuery(req app.QuoteRequest) url.Values {
	q := url.Values{}
	q.Set("src", req.Pair.In.Address.Hex())
	q.Set("dst", req.Pair.Out.Address.Hex())
	q.Set("amount", req.AmountIn.String())
	if p := c.protocols[req.Venue]; p != "" {
		q.Set("protocols", p)
	}
	return q
}

// get waits for the limiter and calls endpoint through the breaker.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
	}

	start := time.Now()
	_, err := c.cb.Execute(func() (any, error) {
		return nil, c.http.GetJSON(ctx, c.chainPath+"/"+endpoint, query, out)
	})

	attrs := metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.Bool("success", err == nil),
	)
	c.metrics.requests.Add(ctx, 1, attrs)
	c.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)

	return err
}

// GetQuote implements app.QuoteSource.
func (c *Client) GetQuote(ctx context.Context, req app.QuoteRequest) (*domain.Quote, error) {
	ctx, span := c.tracer.Start(ctx, "aggregator.quote",
		trace.WithAttributes(
			attribute.String("venue", req.Venue),
			attribute.String("pair", req.Pair.Key()),
			attribute.String("amount_in", req.AmountIn.String()),
		),
	)
	defer span.End()

	query := c.baseQuery(req)
	query.Set("includeGas", "true")

	var resp quoteResponse
	if err := c.get(ctx, "quote", query, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote failed")
		return nil, venueError(req.Venue, err)
	}

	out, ok := new(big.Int).SetString(resp.DstAmount, 10)
	if !ok {
		err := apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("dstAmount %q", resp.DstAmount)))
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("amount_out", out.String()))
	span.SetStatus(codes.Ok, "quote received")

	return &domain.Quote{
		Venue:       req.Venue,
		Pair:        req.Pair,
		AmountIn:    new(big.Int).Set(req.AmountIn),
		AmountOut:   out,
		GasEstimate: resp.Gas,
		Timestamp:   time.Now(),
	}, nil
}

// BuildSwapTransaction implements app.QuoteSource.
func (c *Client) BuildSwapTransaction(ctx context.Context, req app.SwapRequest) (*domain.Quote, error) {
	ctx, span := c.tracer.Start(ctx, "aggregator.swap",
		trace.WithAttributes(
			attribute.String("venue", req.Venue),
			attribute.String("pair", req.Pair.Key()),
			attribute.String("from", req.Receiver().Hex()),
		),
	)
	defer span.End()

	query := c.baseQuery(req.QuoteRequest)
	query.Set("from", req.Receiver().Hex())
	query.Set("origin", req.From.Hex())
	query.Set("slippage", strconv.FormatFloat(float64(req.SlippageBps)/100, 'f', -1, 64))
	query.Set("disableEstimate", "true")

	var resp swapResponse
	if err := c.get(ctx, "swap", query, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "swap failed")
		return nil, venueError(req.Venue, err)
	}

	out, ok := new(big.Int).SetString(resp.DstAmount, 10)
	if !ok {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("dstAmount %q", resp.DstAmount)))
	}

	var route domain.Route
	if common.IsHexAddress(resp.Tx.To) {
		route.Target = common.HexToAddress(resp.Tx.To)
	}
	if data, err := hexutil.Decode(resp.Tx.Data); err == nil {
		route.CallData = data
	}

	span.SetAttributes(
		attribute.String("router", route.Target.Hex()),
		attribute.Int("calldata_len", len(route.CallData)),
	)
	span.SetStatus(codes.Ok, "route built")

	return &domain.Quote{
		Venue:       req.Venue,
		Pair:        req.Pair,
		AmountIn:    new(big.Int).Set(req.AmountIn),
		AmountOut:   out,
		Route:       route,
		GasEstimate: resp.Tx.Gas,
		Timestamp:   time.Now(),
	}, nil
}

func venueError(venue string, err error) error {
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.New(apperror.CodeVenueUnavailable,
		apperror.WithContext(venue),
		apperror.WithCause(err))
}
