package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType names what happened.
type EventType string

const (
	EventOpportunityFound   EventType = "opportunityFound"
	EventTradeExecuted      EventType = "tradeExecuted"
	EventScanCycleCompleted EventType = "scanCycleCompleted"
)

// Event is broadcast to every subscriber. Exactly one payload field is set.
type Event struct {
	Type        EventType             `json:"type"`
	Timestamp   time.Time             `json:"timestamp"`
	Opportunity *Opportunity          `json:"opportunity,omitempty"`
	Result      *TradeExecutionResult `json:"result,omitempty"`
	Cycle       *CycleReport          `json:"cycle,omitempty"`
}

// CycleReport summarizes one scan cycle.
type CycleReport struct {
	Cycle           uint64          `json:"cycle"`
	StartedAt       time.Time       `json:"startedAt"`
	Duration        time.Duration   `json:"duration"`
	GasGwei         decimal.Decimal `json:"gasGwei"`
	Skipped         bool            `json:"skipped"`
	SkipReason      string          `json:"skipReason,omitempty"`
	QuotesRequested int             `json:"quotesRequested"`
	QuotesSucceeded int             `json:"quotesSucceeded"`
	QuotesFailed    int             `json:"quotesFailed"`
	PairsSkipped    int             `json:"pairsSkipped"`
	Evaluated       int             `json:"evaluated"`
	Opportunities   int             `json:"opportunities"`
	Dispatched      int             `json:"dispatched"`
	Refused         int             `json:"refused"`
	Evicted         int             `json:"evicted"`
}

// Activity is one append-only log line kept by storage.
type Activity struct {
	Kind          string    `json:"kind"`
	Message       string    `json:"message"`
	OpportunityID string    `json:"opportunityId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Notification is a formatted message keyed by event.
type Notification struct {
	Event string
	Text  string
}

// Notification events.
const (
	NotifyTradeSuccess = "trade_success"
	NotifyTradePending = "trade_pending"
	NotifyTradeFailed  = "trade_failed"
)
