package ui

import (
	"errors"
	"math/big"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/token"
)

var clock = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return clock }

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sampleOpportunity() *domain.Opportunity {
	usdc := token.Token{Address: common.HexToAddress("0x01"), Symbol: "USDC", Decimals: 6}
	dai := token.Token{Address: common.HexToAddress("0x02"), Symbol: "DAI", Decimals: 18}
	return &domain.Opportunity{
		ID:                 "USDC-DAI-uniswap_v3-curve-1",
		Pair:               token.Pair{In: usdc, Out: dai},
		BuyVenue:           "uniswap_v3",
		SellVenue:          "curve",
		GrossProfitPercent: decimal.RequireFromString("1.2"),
		NotionalUSD:        decimal.NewFromInt(10_000),
		GasCostUSD:         decimal.NewFromInt(3),
		FlashLoanFeeUSD:    decimal.NewFromInt(5),
		LoanAmount:         big.NewInt(10_000_000_000),
		DiscoveredAt:       clock,
		Valid:              true,
	}
}

func dashboard(t *testing.T, opts ...Option) Model {
	t.Helper()
	m := New(append([]Option{WithClock(fixedClock)}, opts...)...)
	m = update(t, m, tea.WindowSizeMsg{Width: 400, Height: 60})
	return update(t, m, StartModulesMsg{})
}

func TestModel_WelcomeAdvancesAndStarts(t *testing.T) {
	started := make(chan struct{}, 1)
	m := New(WithClock(fixedClock), WithOnStart(func() { started <- struct{}{} }))
	assert.Equal(t, PhaseWelcome, m.phase)
	assert.Contains(t, m.View(), "Press any key")

	m = update(t, m, runes("x"))
	assert.Equal(t, PhaseDashboard, m.phase)

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("start callback not called")
	}
}

func TestModel_WelcomeTimesOut(t *testing.T) {
	now := clock
	m := New(WithClock(func() time.Time { return now }))

	m = update(t, m, TickMsg{})
	assert.Equal(t, PhaseWelcome, m.phase)

	now = now.Add(WelcomeDuration)
	m = update(t, m, TickMsg{})
	assert.Equal(t, PhaseDashboard, m.phase)
}

func TestModel_OpportunityEvent(t *testing.T) {
	m := dashboard(t, WithMode("simulation"))

	m = update(t, m, EventMsg{Event: domain.Event{Type: domain.EventOpportunityFound, Opportunity: sampleOpportunity()}})

	assert.Equal(t, 1, m.opportunities.Len())
	view := m.View()
	assert.Contains(t, view, "USDC-DAI")
	assert.Contains(t, view, "uniswap_v3 > curve")
	assert.Contains(t, view, "$112.00")
	assert.Contains(t, view, "SIMULATION")
}

func TestModel_PauseDropsOpportunities(t *testing.T) {
	m := dashboard(t)
	m = update(t, m, runes("p"))
	assert.True(t, m.paused)

	m = update(t, m, EventMsg{Event: domain.Event{Type: domain.EventOpportunityFound, Opportunity: sampleOpportunity()}})
	assert.Equal(t, 0, m.opportunities.Len())
	assert.Contains(t, m.View(), "PAUSED")
}

func TestModel_TradeExecutedEvent(t *testing.T) {
	m := dashboard(t)

	failed := &domain.TradeExecutionResult{
		OpportunityID: "x",
		Pair:          "USDC-DAI",
		Mode:          "real",
		Status:        domain.StatusFailed,
		FailedStep:    "5d",
		ErrorCode:     "CONTRACT_NOT_DEPLOYED",
		CreatedAt:     clock,
	}
	m = update(t, m, EventMsg{Event: domain.Event{Type: domain.EventTradeExecuted, Result: failed}})

	assert.Equal(t, 1, m.executions.Len())
	assert.Equal(t, int64(1), m.stats.Stats().Failures)
	require.Len(t, m.errors, 1)
	assert.Contains(t, m.View(), "step 5d CONTRACT_NOT_DEPLOYED")

	m = update(t, m, runes("e"))
	assert.Empty(t, m.errors)
}

func TestModel_CycleEvent(t *testing.T) {
	m := dashboard(t)

	m = update(t, m, EventMsg{Event: domain.Event{Type: domain.EventScanCycleCompleted, Cycle: &domain.CycleReport{
		Cycle:      3,
		StartedAt:  clock.Add(-5 * time.Second),
		GasGwei:    decimal.NewFromInt(80),
		Skipped:    true,
		SkipReason: "gas_too_high",
	}}})

	assert.Equal(t, uint64(3), m.stats.Stats().Cycles)
	assert.Equal(t, uint64(1), m.stats.Stats().SkippedCycles)
	view := m.View()
	assert.Contains(t, view, "Gas: 80.0 gwei")
	assert.Contains(t, view, "cycle 3 skipped: gas_too_high")
}

func TestModel_ScannerToggleAndState(t *testing.T) {
	toggled := make(chan struct{}, 1)
	m := dashboard(t, WithOnToggleScanner(func() { toggled <- struct{}{} }))

	m = update(t, m, runes("s"))
	select {
	case <-toggled:
	case <-time.After(time.Second):
		t.Fatal("toggle callback not called")
	}

	m = update(t, m, ScannerStateMsg{Running: true, Mode: "real"})
	assert.True(t, m.status.Status().Running)
	assert.Contains(t, m.View(), "REAL")
}

func TestModel_ErrorsKeepLastThree(t *testing.T) {
	m := dashboard(t)
	for i := 0; i < 5; i++ {
		m = update(t, m, ErrorMsg{Error: errors.New("boom")})
	}
	assert.Len(t, m.errors, maxErrors)
}

func TestModel_Quit(t *testing.T) {
	m := dashboard(t)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Contains(t, next.View(), "Goodbye")
}
