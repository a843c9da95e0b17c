package app

import (
	"bytes"
	"context"
	"io"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	blockchainApp "github.com/fd1az/flashloan-arb/business/blockchain/app"
	blockchainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	pricingApp "github.com/fd1az/flashloan-arb/business/pricing/app"
	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/token"
)

const testSignerKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

var (
	usdc = token.Token{Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), Symbol: "USDC", Decimals: 6}
	dai  = token.Token{Address: common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), Symbol: "DAI", Decimals: 18}

	contractAddr = common.HexToAddress("0x00000000000000000000000000000000000000c0")
)

func discardLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

// syncBuffer lets several goroutines log into one buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig() *config.Config {
	return &config.Config{
		Chain: config.ChainConfig{NativeUSDPrice: 2000},
		Scanner: config.ScannerConfig{
			GrossThresholdPct: 0.3,
			NetThresholdPct:   0.15,
			MinProfitUSD:      1.5,
			MaxGasGwei:        60,
			GasUnits:          150_000,
			LoanFeeBps:        5,
		},
		Executor: config.ExecutorConfig{
			Mode:               config.ModeSimulation,
			FreshnessWindow:    30 * time.Second,
			StageTimeout:       2 * time.Second,
			SlippageBps:        50,
			MinProfitFloorBps:  10,
			NotifyThresholdUSD: 10,
		},
	}
}

func realConfig() *config.Config {
	cfg := testConfig()
	cfg.Executor.Mode = config.ModeReal
	cfg.Executor.RealTradingEnabled = true
	cfg.Executor.SignerKey = "0x" + testSignerKey
	cfg.Executor.ContractAddress = contractAddr.Hex()
	return cfg
}

type staticSettings struct {
	mu  sync.Mutex
	cfg *config.Config
}

func (s *staticSettings) Current() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *staticSettings) set(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func stableTokenPair() domain.TokenPair {
	return domain.TokenPair{
		Pair:        token.Pair{In: usdc, Out: dai},
		Notional:    decimal.NewFromInt(10_000),
		InUSDPrice:  decimal.NewFromInt(1),
		OutUSDPrice: decimal.NewFromInt(1),
	}
}

func scanConfig(venues ...string) domain.ScanConfig {
	cfg := testConfig()
	return domain.ScanConfig{
		Thresholds:      thresholdsFrom(cfg),
		MaxGasGwei:      cfg.Scanner.MaxGasGweiDecimal(),
		Interval:        time.Hour,
		StalenessWindow: time.Minute,
		Pairs:           []domain.TokenPair{stableTokenPair()},
		Venues:          venues,
		Costs:           costsFrom(cfg),
	}
}

func quoteAt(venue string, pair domain.TokenPair, rate string) *pricingDomain.Quote {
	return &pricingDomain.Quote{
		Venue:     venue,
		Pair:      pair.Pair,
		AmountIn:  pair.LoanAmount(),
		AmountOut: pair.Pair.Out.ToRaw(pair.Notional.Mul(decimal.RequireFromString(rate))),
	}
}

// stableOpportunity is the 1.000 vs 1.012 candidate: buy on uniswap_v3, sell on curve.
func stableOpportunity(now time.Time) domain.Opportunity {
	pair := stableTokenPair()
	cfg := testConfig()
	c := domain.Comparator{Thresholds: thresholdsFrom(cfg), Costs: costsFrom(cfg)}
	return c.Evaluate(pair,
		quoteAt("uniswap_v3", pair, "1.000"),
		quoteAt("curve", pair, "1.012"),
		decimal.NewFromInt(10), now)
}

// stubChain implements blockchainApp.ChainReader and counts every call.
type stubChain struct {
	gasGwei int64
	balance *big.Int
	code    []byte
	err     error

	gasCalls     atomic.Int32
	balanceCalls atomic.Int32
	codeCalls    atomic.Int32
}

var _ blockchainApp.ChainReader = (*stubChain)(nil)

func newStubChain(gasGwei int64) *stubChain {
	return &stubChain{
		gasGwei: gasGwei,
		balance: new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18)),
		code:    []byte{0x60, 0x80},
	}
}

func (s *stubChain) GetGasPrice(context.Context) (*blockchainDomain.GasPrice, error) {
	s.gasCalls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	wei := new(big.Int).Mul(big.NewInt(s.gasGwei), big.NewInt(1_000_000_000))
	return blockchainDomain.NewGasPrice(wei), nil
}

func (s *stubChain) GetNativeBalance(context.Context, common.Address) (*big.Int, error) {
	s.balanceCalls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.balance, nil
}

func (s *stubChain) GetCode(context.Context, common.Address) ([]byte, error) {
	s.codeCalls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.code, nil
}

func (s *stubChain) calls() int32 {
	return s.gasCalls.Load() + s.balanceCalls.Load() + s.codeCalls.Load()
}

type stubInvoker struct {
	mu    sync.Mutex
	calls []blockchainDomain.FlashLoanRequest
	err   error
}

func (s *stubInvoker) InvokeFlashLoan(_ context.Context, req blockchainDomain.FlashLoanRequest) (*blockchainDomain.FlashLoanReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if s.err != nil {
		return nil, s.err
	}
	return &blockchainDomain.FlashLoanReceipt{TxHash: common.HexToHash("0xabc123"), Nonce: 7}, nil
}

func (s *stubInvoker) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// stubRoutes answers BuildSwapTransaction with a fixed rate per venue.
type stubRoutes struct {
	mu       sync.Mutex
	rates    map[string]string
	failures map[string]error
	unrouted map[string]bool
	requests []pricingApp.SwapRequest
}

func (s *stubRoutes) BuildSwapTransaction(_ context.Context, req pricingApp.SwapRequest) (*pricingDomain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)

	if err := s.failures[req.Venue]; err != nil {
		return nil, err
	}

	rate := decimal.RequireFromString(s.rates[req.Venue])
	in := req.Pair.In.FromRaw(req.AmountIn)
	if s.unrouted[req.Venue] {
		return &pricingDomain.Quote{
			Venue:     req.Venue,
			Pair:      req.Pair,
			AmountIn:  req.AmountIn,
			AmountOut: req.Pair.Out.ToRaw(in.Mul(rate)),
		}, nil
	}
	return &pricingDomain.Quote{
		Venue:     req.Venue,
		Pair:      req.Pair,
		AmountIn:  req.AmountIn,
		AmountOut: req.Pair.Out.ToRaw(in.Mul(rate)),
		Route: pricingDomain.Route{
			Target:   common.BytesToAddress([]byte(req.Venue)),
			CallData: []byte{0xde, 0xad, 0xbe, 0xef},
		},
	}, nil
}

func (s *stubRoutes) recorded() []pricingApp.SwapRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pricingApp.SwapRequest(nil), s.requests...)
}

// memStorage is an in-memory Storage.
type memStorage struct {
	mu         sync.Mutex
	activities []domain.Activity
	results    map[string]domain.TradeExecutionResult
	upserts    int
}

func newMemStorage() *memStorage {
	return &memStorage{results: make(map[string]domain.TradeExecutionResult)}
}

func (m *memStorage) AppendActivity(_ context.Context, a domain.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities = append(m.activities, a)
	return nil
}

func (m *memStorage) UpsertExecution(_ context.Context, r domain.TradeExecutionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[r.ID] = r
	m.upserts++
	return nil
}

func (m *memStorage) RecentExecutions(_ context.Context, limit int) ([]domain.TradeExecutionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.TradeExecutionResult, 0, len(m.results))
	for _, r := range m.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStorage) Close() error { return nil }

func (m *memStorage) executions() []domain.TradeExecutionResult {
	out, _ := m.RecentExecutions(context.Background(), 0)
	return out
}

func (m *memStorage) activityCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.activities)
}

type stubNotifier struct {
	mu    sync.Mutex
	notes []domain.Notification
	err   error
}

func (s *stubNotifier) Notify(_ context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, n)
	return s.err
}

func (s *stubNotifier) sent() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notification(nil), s.notes...)
}

// countingFetcher wraps a QuoteFetcher and counts calls.
type countingFetcher struct {
	next  QuoteFetcher
	calls atomic.Int32
}

func (c *countingFetcher) FetchQuotes(ctx context.Context, pairs []pricingApp.PairAmount, venues []string) pricingApp.FetchResult {
	c.calls.Add(1)
	if c.next == nil {
		return pricingApp.FetchResult{Quotes: map[string][]*pricingDomain.Quote{}}
	}
	return c.next.FetchQuotes(ctx, pairs, venues)
}

// recordingDispatcher accepts up to limit candidates.
type recordingDispatcher struct {
	mu     sync.Mutex
	limit  int
	queued []domain.Opportunity
}

func (r *recordingDispatcher) Dispatch(opp domain.Opportunity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queued) >= r.limit {
		return false
	}
	r.queued = append(r.queued, opp)
	return true
}

func (r *recordingDispatcher) dispatched() []domain.Opportunity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Opportunity(nil), r.queued...)
}
