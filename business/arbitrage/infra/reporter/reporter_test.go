package reporter

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/token"
	"github.com/fd1az/flashloan-arb/pkg/ui"
)

var at = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func opportunity(buy, sell string) *domain.Opportunity {
	usdc := token.Token{Address: common.HexToAddress("0x01"), Symbol: "USDC", Decimals: 6}
	dai := token.Token{Address: common.HexToAddress("0x02"), Symbol: "DAI", Decimals: 18}
	return &domain.Opportunity{
		ID:                 "USDC-DAI-" + buy + "-" + sell,
		Pair:               token.Pair{In: usdc, Out: dai},
		BuyVenue:           buy,
		SellVenue:          sell,
		GrossProfitPercent: decimal.RequireFromString("1.19"),
		NotionalUSD:        decimal.NewFromInt(10_000),
		GasCostUSD:         decimal.NewFromInt(3),
		FlashLoanFeeUSD:    decimal.NewFromInt(5),
		LoanAmount:         big.NewInt(10_000_000_000),
		DiscoveredAt:       at,
		Valid:              true,
	}
}

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

func TestConsole_PrintsCycleTable(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, nil)

	c.Handle(domain.Event{Type: domain.EventOpportunityFound, Opportunity: opportunity("uniswap_v3", "curve")})
	c.Handle(domain.Event{Type: domain.EventOpportunityFound, Opportunity: opportunity("sushiswap", "curve")})
	c.Handle(domain.Event{Type: domain.EventScanCycleCompleted, Cycle: &domain.CycleReport{
		Cycle: 1, StartedAt: at, QuotesRequested: 3, QuotesSucceeded: 3, Evaluated: 3, Opportunities: 2,
	}})

	out := buf.String()
	assert.Contains(t, out, "cycle 1: 3/3 quotes, 3 evaluated, 2 opportunities")
	assert.Contains(t, out, "uniswap_v3")
	assert.Contains(t, out, "sushiswap")
	assert.Contains(t, out, "111.00")
	assert.Contains(t, out, "1.190")

	// the next cycle starts empty
	buf.Reset()
	c.Handle(domain.Event{Type: domain.EventScanCycleCompleted, Cycle: &domain.CycleReport{Cycle: 2, StartedAt: at}})
	assert.NotContains(t, buf.String(), "uniswap_v3")
}

func TestConsole_SkippedCycle(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, nil)

	c.Handle(domain.Event{Type: domain.EventScanCycleCompleted, Cycle: &domain.CycleReport{
		Cycle: 4, StartedAt: at, Skipped: true, SkipReason: "gas_too_high", GasGwei: decimal.NewFromInt(80),
	}})
	assert.Contains(t, buf.String(), "cycle 4 skipped (gas_too_high) gas 80.0 gwei")
}

func TestConsole_PrintsResult(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, nil)

	c.Handle(domain.Event{Type: domain.EventTradeExecuted, Result: &domain.TradeExecutionResult{
		Pair:       "USDC-DAI",
		Mode:       "real",
		Status:     domain.StatusFailed,
		FailedStep: "5d",
		ErrorCode:  "CONTRACT_NOT_DEPLOYED",
		Hint:       "deploy the execution contract",
		CreatedAt:  at,
	}})

	out := buf.String()
	assert.Contains(t, out, "USDC-DAI REAL failed")
	assert.Contains(t, out, "step 5d CONTRACT_NOT_DEPLOYED")
	assert.Contains(t, out, "hint: deploy the execution contract")
}

func TestConsole_SubscribesToHub(t *testing.T) {
	hub := app.NewHub()
	defer hub.Close()

	var buf syncBuffer
	c := NewConsoleWriter(&buf, hub)
	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(domain.Event{Type: domain.EventTradeExecuted, Result: &domain.TradeExecutionResult{
		Pair: "USDC-DAI", Mode: "simulation", Status: domain.StatusSimulated, Success: true, CreatedAt: at,
	}})
	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(buf.String()), []byte("USDC-DAI SIMULATION simulated"))
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Stop())
	assert.Equal(t, 0, hub.Subscribers())
	assert.Contains(t, buf.String(), "Stopped")

	// stopping twice is harmless
	require.NoError(t, c.Stop())
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingSender) received() []tea.Msg {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tea.Msg(nil), r.msgs...)
}

func TestTUI_ForwardsEvents(t *testing.T) {
	hub := app.NewHub()
	defer hub.Close()

	sender := &recordingSender{}
	r := NewTUI(hub, sender)
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	hub.Publish(domain.Event{Type: domain.EventOpportunityFound, Opportunity: opportunity("uniswap_v3", "curve")})
	require.Eventually(t, func() bool { return len(sender.received()) == 1 }, time.Second, 5*time.Millisecond)

	msg, ok := sender.received()[0].(ui.EventMsg)
	require.True(t, ok)
	assert.Equal(t, domain.EventOpportunityFound, msg.Event.Type)

	r.ScannerState(true, "simulation")
	r.Error(errors.New("rpc down"))

	msgs := sender.received()
	require.Len(t, msgs, 3)
	assert.Equal(t, ui.ScannerStateMsg{Running: true, Mode: "simulation"}, msgs[1])
	assert.IsType(t, ui.ErrorMsg{}, msgs[2])
}
