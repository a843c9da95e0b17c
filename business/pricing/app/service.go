package app

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/token"
)

const (
	tracerName = "pricing"
	meterName  = "pricing"

	defaultQuoteTimeout = 5 * time.Second
	defaultConcurrency  = 8
)

var _ QuoteSource = (*QuoteService)(nil)

// PairAmount is one pair to quote with its input size in raw units.
type PairAmount struct {
	Pair     token.Pair
	AmountIn *big.Int
}

// QuoteFailure records a venue that did not answer for a pair.
type QuoteFailure struct {
	Venue string
	Pair  string
	Err   error
}

// FetchResult holds every successful quote grouped by pair key, in venue order.
type FetchResult struct {
	Quotes   map[string][]*domain.Quote
	Failures []QuoteFailure
}

// Count returns the number of successful quotes.
func (r FetchResult) Count() int {
	n := 0
	for _, qs := range r.Quotes {
		n += len(qs)
	}
	return n
}

// QuoteService routes requests to the source configured for each venue.
type QuoteService struct {
	sources     map[string]QuoteSource
	timeout     time.Duration
	concurrency int
	logger      logger.LoggerInterface

	tracer   trace.Tracer
	requests metric.Int64Counter
}

// NewQuoteService creates the venue router. sources maps venue name to adapter.
func NewQuoteService(sources map[string]QuoteSource, timeout time.Duration, concurrency int, log logger.LoggerInterface) (*QuoteService, error) {
	if timeout <= 0 {
		timeout = defaultQuoteTimeout
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	requests, err := otel.Meter(meterName).Int64Counter(
		"quotes_total",
		metric.WithDescription("Quote requests by venue and outcome"),
		metric.WithUnit("{quote}"),
	)
	if err != nil {
		return nil, err
	}

	return &QuoteService{
		sources:     sources,
		timeout:     timeout,
		concurrency: concurrency,
		logger:      log,
		tracer:      otel.Tracer(tracerName),
		requests:    requests,
	}, nil
}

// Venues lists configured venue names in sorted order.
func (s *QuoteService) Venues() []string {
	venues := make([]string, 0, len(s.sources))
	for v := range s.sources {
		venues = append(venues, v)
	}
	sort.Strings(venues)
	return venues
}

func (s *QuoteService) source(venue string) (QuoteSource, error) {
	src, ok := s.sources[venue]
	if !ok {
		return nil, apperror.New(apperror.CodeUnknownVenue, apperror.WithContext(venue))
	}
	return src, nil
}

// GetQuote quotes one venue with the per-call timeout applied.
func (s *QuoteService) GetQuote(ctx context.Context, req QuoteRequest) (*domain.Quote, error) {
	src, err := s.source(req.Venue)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	q, err := src.GetQuote(ctx, req)
	s.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("venue", req.Venue),
		attribute.Bool("success", err == nil),
	))
	if err != nil {
		return nil, asVenueError(req.Venue, err)
	}
	if q == nil || q.AmountOut == nil || q.AmountOut.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("%s returned empty output for %s", req.Venue, req.Pair.Key())))
	}
	return q, nil
}

// BuildSwapTransaction fetches a routed quote and rejects routes without target or call data.
func (s *QuoteService) BuildSwapTransaction(ctx context.Context, req SwapRequest) (*domain.Quote, error) {
	src, err := s.source(req.Venue)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "pricing.build_route",
		trace.WithAttributes(
			attribute.String("venue", req.Venue),
			attribute.String("pair", req.Pair.Key()),
		),
	)
	defer span.End()

	q, err := src.BuildSwapTransaction(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, asVenueError(req.Venue, err)
	}
	// an empty route is returned as is; the executor validates both legs together
	if q == nil {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("%s %s", req.Venue, req.Pair.Key())))
	}
	return q, nil
}

// FetchQuotes asks every venue for every pair concurrently and waits for all of them.
// Individual failures are collected, never fatal.
func (s *QuoteService) FetchQuotes(ctx context.Context, pairs []PairAmount, venues []string) FetchResult {
	ctx, span := s.tracer.Start(ctx, "pricing.fetch_quotes",
		trace.WithAttributes(
			attribute.Int("pairs", len(pairs)),
			attribute.Int("venues", len(venues)),
		),
	)
	defer span.End()

	slots := make([][]*domain.Quote, len(pairs))
	for i := range slots {
		slots[i] = make([]*domain.Quote, len(venues))
	}

	var (
		mu       sync.Mutex
		failures []QuoteFailure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for pi, pa := range pairs {
		for vi, venue := range venues {
			g.Go(func() error {
				q, err := s.GetQuote(gctx, QuoteRequest{Venue: venue, Pair: pa.Pair, AmountIn: pa.AmountIn})
				if err != nil {
					mu.Lock()
					failures = append(failures, QuoteFailure{Venue: venue, Pair: pa.Pair.Key(), Err: err})
					mu.Unlock()
					s.logger.Warn(gctx, "quote failed",
						append([]any{"venue", venue, "pair", pa.Pair.Key()}, apperror.LogArgs(err)...)...)
					return nil
				}
				slots[pi][vi] = q
				return nil
			})
		}
	}
	_ = g.Wait()

	result := FetchResult{Quotes: make(map[string][]*domain.Quote, len(pairs)), Failures: failures}
	for pi, pa := range pairs {
		for _, q := range slots[pi] {
			if q != nil {
				result.Quotes[pa.Pair.Key()] = append(result.Quotes[pa.Pair.Key()], q)
			}
		}
	}

	span.SetAttributes(
		attribute.Int("quotes", result.Count()),
		attribute.Int("failures", len(failures)),
	)
	return result
}

func asVenueError(venue string, err error) error {
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.New(apperror.CodeVenueUnavailable,
		apperror.WithContext(venue),
		apperror.WithCause(err))
}
