package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS activity (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    kind           TEXT    NOT NULL,
    message        TEXT    NOT NULL,
    opportunity_id TEXT    NOT NULL DEFAULT '',
    created_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS executions (
    id             TEXT PRIMARY KEY,
    opportunity_id TEXT    NOT NULL,
    pair           TEXT    NOT NULL,
    mode           TEXT    NOT NULL,
    status         TEXT    NOT NULL,
    success        INTEGER NOT NULL DEFAULT 0,
    tx_hash        TEXT    NOT NULL DEFAULT '',
    profit_usd     TEXT    NOT NULL DEFAULT '0',
    gas_cost_usd   TEXT    NOT NULL DEFAULT '0',
    message        TEXT    NOT NULL DEFAULT '',
    error_class    TEXT    NOT NULL DEFAULT '',
    error_code     TEXT    NOT NULL DEFAULT '',
    hint           TEXT    NOT NULL DEFAULT '',
    failed_step    TEXT    NOT NULL DEFAULT '',
    duration_ns    INTEGER NOT NULL DEFAULT 0,
    created_at     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activity_at   ON activity(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_executions_at ON executions(created_at DESC);
`

// SQLite implements app.Storage on a local SQLite file (pure Go driver).
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and applies the schema.
// ":memory:" gives a throwaway database.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperror.New(apperror.CodeStorageError,
			apperror.WithCause(err), apperror.WithContext(fmt.Sprintf("open %q", path)))
	}
	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, apperror.New(apperror.CodeStorageError,
			apperror.WithCause(err), apperror.WithContext("apply schema"))
	}
	return &SQLite{db: db}, nil
}

// AppendActivity adds one line to the activity log.
func (s *SQLite) AppendActivity(ctx context.Context, a domain.Activity) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity (kind, message, opportunity_id, created_at) VALUES (?, ?, ?, ?)`,
		a.Kind, a.Message, a.OpportunityID, timestamp(a.CreatedAt),
	)
	if err != nil {
		return storageError(err, "append activity")
	}
	return nil
}

// UpsertExecution inserts r, replacing any previous row with the same ID.
func (s *SQLite) UpsertExecution(ctx context.Context, r domain.TradeExecutionResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions (
			id, opportunity_id, pair, mode, status, success, tx_hash, profit_usd, gas_cost_usd,
			message, error_class, error_code, hint, failed_step, duration_ns, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status       = excluded.status,
			success      = excluded.success,
			tx_hash      = excluded.tx_hash,
			profit_usd   = excluded.profit_usd,
			gas_cost_usd = excluded.gas_cost_usd,
			message      = excluded.message,
			error_class  = excluded.error_class,
			error_code   = excluded.error_code,
			hint         = excluded.hint,
			failed_step  = excluded.failed_step,
			duration_ns  = excluded.duration_ns`,
		r.ID, r.OpportunityID, r.Pair, r.Mode, string(r.Status), boolToInt(r.Success), r.TxHash,
		r.ProfitUSD.String(), r.GasCostUSD.String(),
		r.Message, r.ErrorClass, r.ErrorCode, r.Hint, r.FailedStep,
		int64(r.Duration), timestamp(r.CreatedAt),
	)
	if err != nil {
		return storageError(err, "upsert execution "+r.ID)
	}
	return nil
}

// RecentExecutions returns up to limit results, newest first.
func (s *SQLite) RecentExecutions(ctx context.Context, limit int) ([]domain.TradeExecutionResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, opportunity_id, pair, mode, status, success, tx_hash, profit_usd, gas_cost_usd,
		       message, error_class, error_code, hint, failed_step, duration_ns, created_at
		FROM executions
		ORDER BY created_at DESC, id
		LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		return nil, storageError(err, "query executions")
	}
	defer rows.Close()

	var out []domain.TradeExecutionResult
	for rows.Next() {
		var (
			rec     executionRow
			success int
		)
		if err := rows.Scan(
			&rec.ID, &rec.OpportunityID, &rec.Pair, &rec.Mode, &rec.Status, &success, &rec.TxHash,
			&rec.ProfitUSD, &rec.GasCostUSD, &rec.Message, &rec.ErrorClass, &rec.ErrorCode,
			&rec.Hint, &rec.FailedStep, &rec.DurationNS, &rec.CreatedAt,
		); err != nil {
			return nil, storageError(err, "scan execution")
		}
		rec.Success = success != 0
		r, err := rec.result()
		if err != nil {
			return nil, storageError(err, "decode execution "+rec.ID)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "iterate executions")
	}
	return out, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func timestamp(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().UnixNano()
}
