// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	pricingApp "github.com/fd1az/flashloan-arb/business/pricing/app"
	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/config"
)

// QuoteFetcher runs the per-cycle fan-out. Satisfied by *pricingApp.QuoteService.
type QuoteFetcher interface {
	FetchQuotes(ctx context.Context, pairs []pricingApp.PairAmount, venues []string) pricingApp.FetchResult
}

// RouteBuilder returns executable swap routes. Satisfied by *pricingApp.QuoteService.
type RouteBuilder interface {
	BuildSwapTransaction(ctx context.Context, req pricingApp.SwapRequest) (*pricingDomain.Quote, error)
}

// GasGate is the pre-trade gate. Satisfied by *blockchainApp.Gate.
type GasGate interface {
	CheckGasAcceptable(ctx context.Context, maxGwei decimal.Decimal) (decimal.Decimal, bool, error)
	CheckNativeBalance(ctx context.Context, addr common.Address, minimum *big.Int) (*big.Int, bool, error)
}

// CodeReader checks whether a contract is deployed.
type CodeReader interface {
	GetCode(ctx context.Context, addr common.Address) ([]byte, error)
}

// SettingsSource serves the live configuration. Satisfied by *config.Watcher.
type SettingsSource interface {
	Current() *config.Config
}

// Storage persists the activity log and execution records.
type Storage interface {
	// AppendActivity writes one activity line. Lines are never updated.
	AppendActivity(ctx context.Context, a domain.Activity) error

	// UpsertExecution inserts or replaces an execution record by ID.
	UpsertExecution(ctx context.Context, r domain.TradeExecutionResult) error

	// RecentExecutions returns up to limit records, newest first.
	RecentExecutions(ctx context.Context, limit int) ([]domain.TradeExecutionResult, error)

	Close() error
}

// Notifier delivers a message to an external channel. Errors never fail a trade.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Dispatcher hands a candidate to background execution without blocking.
type Dispatcher interface {
	Dispatch(opp domain.Opportunity) bool
}
