package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the recorded outcome of one execution attempt.
type Status string

const (
	StatusSimulated Status = "simulated"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// TradeExecutionResult is built once per attempt and persisted verbatim.
type TradeExecutionResult struct {
	ID            string          `json:"id"`
	OpportunityID string          `json:"opportunityId"`
	Pair          string          `json:"pair"`
	Mode          string          `json:"mode"`
	Status        Status          `json:"status"`
	Success       bool            `json:"success"`
	TxHash        string          `json:"txHash,omitempty"`
	ProfitUSD     decimal.Decimal `json:"profitUsd"`
	GasCostUSD    decimal.Decimal `json:"gasCostUsd"`
	Message       string          `json:"message"`
	ErrorClass    string          `json:"errorClass,omitempty"`
	ErrorCode     string          `json:"errorCode,omitempty"`
	Hint          string          `json:"hint,omitempty"`
	FailedStep    string          `json:"failedStep,omitempty"`
	Duration      time.Duration   `json:"duration"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// NewResultID returns a random result identifier.
func NewResultID() string {
	return uuid.NewString()
}
