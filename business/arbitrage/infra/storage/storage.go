// Package storage persists the activity log and execution results.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/config"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

var (
	_ app.Storage = (*SQLite)(nil)
	_ app.Storage = (*Postgres)(nil)
)

// Open returns the storage selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (app.Storage, error) {
	switch cfg.Driver {
	case "", config.StorageSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "flasharb.db"
		}
		return NewSQLite(dsn)
	case config.StoragePostgres:
		return NewPostgres(ctx, cfg.DSN)
	default:
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(fmt.Sprintf("unknown storage.driver %q", cfg.Driver)))
	}
}

// executionRow is the column form shared by both drivers.
type executionRow struct {
	ID            string
	OpportunityID string
	Pair          string
	Mode          string
	Status        string
	Success       bool
	TxHash        string
	ProfitUSD     string
	GasCostUSD    string
	Message       string
	ErrorClass    string
	ErrorCode     string
	Hint          string
	FailedStep    string
	DurationNS    int64
	CreatedAt     int64
}

func (r executionRow) result() (domain.TradeExecutionResult, error) {
	profit, err := decimal.NewFromString(r.ProfitUSD)
	if err != nil {
		return domain.TradeExecutionResult{}, fmt.Errorf("profit_usd: %w", err)
	}
	gas, err := decimal.NewFromString(r.GasCostUSD)
	if err != nil {
		return domain.TradeExecutionResult{}, fmt.Errorf("gas_cost_usd: %w", err)
	}

	return domain.TradeExecutionResult{
		ID:            r.ID,
		OpportunityID: r.OpportunityID,
		Pair:          r.Pair,
		Mode:          r.Mode,
		Status:        domain.Status(r.Status),
		Success:       r.Success,
		TxHash:        r.TxHash,
		ProfitUSD:     profit,
		GasCostUSD:    gas,
		Message:       r.Message,
		ErrorClass:    r.ErrorClass,
		ErrorCode:     r.ErrorCode,
		Hint:          r.Hint,
		FailedStep:    r.FailedStep,
		Duration:      time.Duration(r.DurationNS),
		CreatedAt:     time.Unix(0, r.CreatedAt).UTC(),
	}, nil
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultLimit
	case limit > maxLimit:
		return maxLimit
	default:
		return limit
	}
}

func storageError(err error, op string) error {
	return apperror.New(apperror.CodeStorageError, apperror.WithCause(err), apperror.WithContext(op))
}
