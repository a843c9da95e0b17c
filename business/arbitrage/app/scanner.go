package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	pricingApp "github.com/fd1az/flashloan-arb/business/pricing/app"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const (
	tracerName = "arbitrage"
	meterName  = "arbitrage"
)

// Phase is the scanner's position inside a cycle.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseGating
	PhaseFetching
	PhaseComparing
	PhaseDispatching
)

func (p Phase) String() string {
	switch p {
	case PhaseGating:
		return "gating"
	case PhaseFetching:
		return "fetching"
	case PhaseComparing:
		return "comparing"
	case PhaseDispatching:
		return "dispatching"
	default:
		return "idle"
	}
}

// scannerMetrics holds OTEL metric instruments.
type scannerMetrics struct {
	cycles        metric.Int64Counter
	cycleDuration metric.Float64Histogram
	opportunities metric.Int64Counter
	refused       metric.Int64Counter
	registrySize  metric.Int64Gauge
}

// ScannerDeps are the collaborators of a Scanner. Dispatcher and Storage may be nil.
type ScannerDeps struct {
	Quotes     QuoteFetcher
	Gate       GasGate
	Registry   *Registry
	Hub        *Hub
	Storage    Storage
	Dispatcher Dispatcher
	Logger     logger.LoggerInterface
}

// Scanner periodically compares venue quotes and dispatches qualifying candidates.
type Scanner struct {
	quotes     QuoteFetcher
	gate       GasGate
	registry   *Registry
	hub        *Hub
	storage    Storage
	dispatcher Dispatcher
	logger     logger.LoggerInterface
	now        func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	session domain.ScanConfig

	// held for the whole cycle; a tick that finds it taken is dropped
	cycleMu   sync.Mutex
	phase     atomic.Int32
	cycles    atomic.Uint64
	lastCycle atomic.Pointer[domain.CycleReport]

	tracer  trace.Tracer
	metrics *scannerMetrics
}

// NewScanner creates an idle scanner.
func NewScanner(deps ScannerDeps) (*Scanner, error) {
	if deps.Registry == nil {
		deps.Registry = NewRegistry(domain.DefaultStalenessWindow)
	}
	if deps.Hub == nil {
		deps.Hub = NewHub()
	}

	s := &Scanner{
		quotes:     deps.Quotes,
		gate:       deps.Gate,
		registry:   deps.Registry,
		hub:        deps.Hub,
		storage:    deps.Storage,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        time.Now,
		tracer:     otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init scanner metrics: %w", err)
	}
	return s, nil
}

func (s *Scanner) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &scannerMetrics{}

	s.metrics.cycles, err = meter.Int64Counter(
		"scan_cycles_total",
		metric.WithDescription("Scan cycles by outcome"),
	)
	if err != nil {
		return err
	}

	s.metrics.cycleDuration, err = meter.Float64Histogram(
		"scan_cycle_duration_ms",
		metric.WithDescription("Scan cycle duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	s.metrics.opportunities, err = meter.Int64Counter(
		"opportunities_found_total",
		metric.WithDescription("Qualifying opportunities by pair"),
	)
	if err != nil {
		return err
	}

	s.metrics.refused, err = meter.Int64Counter(
		"dispatch_refused_total",
		metric.WithDescription("Candidates refused by a full execution queue"),
	)
	if err != nil {
		return err
	}

	s.metrics.registrySize, err = meter.Int64Gauge(
		"registry_opportunities",
		metric.WithDescription("Opportunities currently held in the registry"),
	)
	return err
}

// Start begins a scanning session: one cycle immediately, then one per interval.
func (s *Scanner) Start(ctx context.Context, cfg domain.ScanConfig) error {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return apperror.New(apperror.CodeConfigurationError, apperror.WithCause(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return apperror.New(apperror.CodeScannerRunning)
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.running = true
	s.cancel = cancel
	s.done = done
	s.session = cfg
	s.registry.SetStaleness(cfg.StalenessWindow)

	s.logger.Info(ctx, "scanner started",
		"interval", cfg.Interval.String(),
		"pairs", len(cfg.Pairs),
		"venues", cfg.Venues,
		"auto_execute", cfg.AutoExecute,
	)

	go s.run(runCtx, cfg, done)
	return nil
}

func (s *Scanner) run(ctx context.Context, cfg domain.ScanConfig, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		if s.done == done {
			s.running = false
		}
		s.mu.Unlock()
		close(done)
	}()

	s.RunCycle(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(context.WithoutCancel(ctx), "scanner stopped", "cycles", s.cycles.Load())
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				continue
			}
			s.RunCycle(ctx, cfg)
		}
	}
}

// Stop cancels the timer and waits for the current cycle to return. Executions
// already handed to the pool keep running.
func (s *Scanner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.mu.Unlock()

	cancel()
	<-done
}

// IsRunning reports whether a session is active.
func (s *Scanner) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Opportunities returns the registry contents, newest first.
func (s *Scanner) Opportunities() []domain.Opportunity {
	return s.registry.List()
}

// Registry exposes the opportunity registry for read access.
func (s *Scanner) Registry() *Registry {
	return s.registry
}

// Phase returns the current cycle phase.
func (s *Scanner) Phase() Phase {
	return Phase(s.phase.Load())
}

// Session returns the active scan configuration.
func (s *Scanner) Session() (domain.ScanConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session, s.running
}

// LastCycle returns the most recent cycle report, or nil before the first cycle.
func (s *Scanner) LastCycle() *domain.CycleReport {
	return s.lastCycle.Load()
}

// CheckHealth fails when a running scanner has not completed a cycle for three intervals.
func (s *Scanner) CheckHealth(_ context.Context) error {
	cfg, running := s.Session()
	if !running {
		return nil
	}
	last := s.LastCycle()
	if last == nil {
		return nil
	}
	if age := s.now().Sub(last.StartedAt); age > 3*cfg.Interval {
		return fmt.Errorf("last scan cycle started %s ago", age.Round(time.Second))
	}
	return nil
}

func (s *Scanner) setPhase(p Phase) {
	s.phase.Store(int32(p))
}

// RunCycle performs one gate, fetch, compare, dispatch pass. It returns false without
// doing anything when another cycle holds the cycle lock.
func (s *Scanner) RunCycle(ctx context.Context, cfg domain.ScanConfig) (domain.CycleReport, bool) {
	if !s.cycleMu.TryLock() {
		s.logger.Debug(ctx, "previous scan cycle still running, tick dropped")
		return domain.CycleReport{}, false
	}
	defer s.cycleMu.Unlock()
	defer s.setPhase(PhaseIdle)

	n := s.cycles.Add(1)
	start := s.now()
	report := domain.CycleReport{Cycle: n, StartedAt: start}

	ctx, span := s.tracer.Start(ctx, "arbitrage.scan_cycle",
		trace.WithAttributes(attribute.Int64("cycle", int64(n))),
	)
	defer span.End()

	s.setPhase(PhaseGating)
	gwei, ok, err := s.gate.CheckGasAcceptable(ctx, cfg.MaxGasGwei)
	report.GasGwei = gwei

	switch {
	case err != nil:
		span.RecordError(err)
		s.logger.Warn(ctx, "gas check failed, skipping cycle",
			append([]any{"cycle", n}, apperror.LogArgs(err)...)...)
		report.Skipped = true
		report.SkipReason = string(apperror.ClassOf(err))

	case !ok:
		s.logger.Info(ctx, "gas too high, skipping cycle",
			"cycle", n,
			"gas_gwei", gwei.String(),
			"max_gwei", cfg.MaxGasGwei.String(),
		)
		report.Skipped = true
		report.SkipReason = "gas_too_high"

	default:
		s.scan(ctx, cfg, gwei, start, &report)
	}

	// after this cycle's inserts, so a fresh candidate is never evicted by the cycle that found it
	report.Evicted = s.registry.Evict(s.now())
	report.Duration = s.now().Sub(start)
	s.lastCycle.Store(&report)

	s.metrics.cycles.Add(ctx, 1, metric.WithAttributes(attribute.Bool("skipped", report.Skipped)))
	s.metrics.cycleDuration.Record(ctx, float64(report.Duration.Milliseconds()))
	s.metrics.registrySize.Record(ctx, int64(s.registry.Len()))

	span.SetAttributes(
		attribute.Bool("skipped", report.Skipped),
		attribute.Int("opportunities", report.Opportunities),
		attribute.Int("dispatched", report.Dispatched),
	)

	rep := report
	s.hub.Publish(domain.Event{Type: domain.EventScanCycleCompleted, Timestamp: s.now(), Cycle: &rep})

	s.logger.Debug(ctx, "scan cycle completed",
		"cycle", n,
		"skipped", report.Skipped,
		"quotes", report.QuotesSucceeded,
		"quote_failures", report.QuotesFailed,
		"opportunities", report.Opportunities,
		"dispatched", report.Dispatched,
		"evicted", report.Evicted,
		"duration_ms", report.Duration.Milliseconds(),
	)

	return report, true
}

func (s *Scanner) scan(ctx context.Context, cfg domain.ScanConfig, gwei decimal.Decimal, now time.Time, report *domain.CycleReport) {
	s.setPhase(PhaseFetching)

	amounts := make([]pricingApp.PairAmount, 0, len(cfg.Pairs))
	for _, p := range cfg.Pairs {
		amounts = append(amounts, pricingApp.PairAmount{Pair: p.Pair, AmountIn: p.LoanAmount()})
	}

	fetched := s.quotes.FetchQuotes(ctx, amounts, cfg.Venues)
	report.QuotesRequested = len(cfg.Pairs) * len(cfg.Venues)
	report.QuotesSucceeded = fetched.Count()
	report.QuotesFailed = len(fetched.Failures)

	s.setPhase(PhaseComparing)
	comparator := domain.Comparator{Thresholds: cfg.Thresholds, Costs: cfg.Costs}

	var found []domain.Comparison
	for _, p := range cfg.Pairs {
		quotes := fetched.Quotes[p.Pair.Key()]
		if len(quotes) < 2 {
			report.PairsSkipped++
			s.logger.Info(ctx, "not enough quotes, skipping pair",
				"pair", p.Pair.Key(),
				"quotes", len(quotes),
			)
			continue
		}

		cmp := comparator.Compare(p, quotes, gwei, now)
		report.Evaluated += cmp.Evaluated
		if len(cmp.Qualifying) > 0 {
			found = append(found, cmp)
		}
	}

	s.setPhase(PhaseDispatching)
	for _, cmp := range found {
		for _, opp := range cmp.Qualifying {
			s.registry.Put(opp)
			report.Opportunities++
			s.metrics.opportunities.Add(ctx, 1, metric.WithAttributes(attribute.String("pair", opp.Pair.Key())))

			s.logger.Info(ctx, "opportunity found",
				"opportunity_id", opp.ID,
				"pair", opp.Pair.Key(),
				"buy_venue", opp.BuyVenue,
				"sell_venue", opp.SellVenue,
				"gross_pct", opp.GrossProfitPercent.StringFixed(4),
				"net_pct", opp.NetProfitPercent().StringFixed(4),
				"profit_usd", opp.EstimatedProfitUSD().StringFixed(2),
			)

			o := opp
			s.hub.Publish(domain.Event{Type: domain.EventOpportunityFound, Timestamp: now, Opportunity: &o})
			s.appendActivity(ctx, domain.Activity{
				Kind:          string(domain.EventOpportunityFound),
				Message:       describe(opp),
				OpportunityID: opp.ID,
				CreatedAt:     now,
			})
		}

		if !cfg.AutoExecute || s.dispatcher == nil {
			continue
		}

		best, _ := cmp.Best()
		if s.dispatcher.Dispatch(best) {
			s.registry.MarkConsumed(best.ID)
			report.Dispatched++
			continue
		}
		report.Refused++
		s.metrics.refused.Add(ctx, 1)
	}
}

func (s *Scanner) appendActivity(ctx context.Context, a domain.Activity) {
	if s.storage == nil {
		return
	}
	if err := s.storage.AppendActivity(ctx, a); err != nil {
		s.logger.Warn(ctx, "failed to append activity", apperror.LogArgs(err)...)
	}
}

func describe(o domain.Opportunity) string {
	return fmt.Sprintf("%s: buy on %s at %s, sell on %s at %s, net %s%% (~$%s)",
		o.Pair.Key(),
		o.BuyVenue, o.BuyPrice.StringFixed(6),
		o.SellVenue, o.SellPrice.StringFixed(6),
		o.NetProfitPercent().StringFixed(3),
		o.EstimatedProfitUSD().StringFixed(2),
	)
}
