package storage

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS activity (
    id             BIGSERIAL PRIMARY KEY,
    kind           VARCHAR(64)  NOT NULL,
    message        TEXT         NOT NULL,
    opportunity_id VARCHAR(200) NOT NULL DEFAULT '',
    created_at     BIGINT       NOT NULL
);

CREATE TABLE IF NOT EXISTS executions (
    id             VARCHAR(64) PRIMARY KEY,
    opportunity_id VARCHAR(200)   NOT NULL,
    pair           VARCHAR(64)    NOT NULL,
    mode           VARCHAR(16)    NOT NULL,
    status         VARCHAR(16)    NOT NULL,
    success        BOOLEAN        NOT NULL DEFAULT FALSE,
    tx_hash        VARCHAR(66)    NOT NULL DEFAULT '',
    profit_usd     NUMERIC(38, 18) NOT NULL DEFAULT 0,
    gas_cost_usd   NUMERIC(38, 18) NOT NULL DEFAULT 0,
    message        TEXT           NOT NULL DEFAULT '',
    error_class    VARCHAR(32)    NOT NULL DEFAULT '',
    error_code     VARCHAR(64)    NOT NULL DEFAULT '',
    hint           TEXT           NOT NULL DEFAULT '',
    failed_step    VARCHAR(8)     NOT NULL DEFAULT '',
    duration_ns    BIGINT         NOT NULL DEFAULT 0,
    created_at     BIGINT         NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activity_at   ON activity(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_executions_at ON executions(created_at DESC);
`

// Postgres implements app.Storage on a pgx connection pool.
type Postgres struct {
	Pool *pgxpool.Pool
}

// NewPostgres connects to dsn and applies the schema.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("storage.dsn is required for the postgres driver"))
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, storageError(err, "connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, storageError(err, "ping")
	}

	p := &Postgres{Pool: pool}
	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.Pool.Exec(ctx, postgresSchema); err != nil {
		return storageError(err, "apply schema")
	}
	return nil
}

// AppendActivity adds one line to the activity log.
func (p *Postgres) AppendActivity(ctx context.Context, a domain.Activity) error {
	_, err := p.Pool.Exec(ctx,
		`INSERT INTO activity (kind, message, opportunity_id, created_at) VALUES ($1, $2, $3, $4)`,
		a.Kind, a.Message, a.OpportunityID, timestamp(a.CreatedAt),
	)
	if err != nil {
		return storageError(err, "append activity")
	}
	return nil
}

// UpsertExecution inserts r, replacing any previous row with the same ID.
func (p *Postgres) UpsertExecution(ctx context.Context, r domain.TradeExecutionResult) error {
	_, err := p.Pool.Exec(ctx, `
		INSERT INTO executions (
			id, opportunity_id, pair, mode, status, success, tx_hash, profit_usd, gas_cost_usd,
			message, error_class, error_code, hint, failed_step, duration_ns, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::text::numeric, $9::text::numeric,
			$10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			status       = EXCLUDED.status,
			success      = EXCLUDED.success,
			tx_hash      = EXCLUDED.tx_hash,
			profit_usd   = EXCLUDED.profit_usd,
			gas_cost_usd = EXCLUDED.gas_cost_usd,
			message      = EXCLUDED.message,
			error_class  = EXCLUDED.error_class,
			error_code   = EXCLUDED.error_code,
			hint         = EXCLUDED.hint,
			failed_step  = EXCLUDED.failed_step,
			duration_ns  = EXCLUDED.duration_ns`,
		r.ID, r.OpportunityID, r.Pair, r.Mode, string(r.Status), r.Success, r.TxHash,
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
func (p *Postgres) RecentExecutions(ctx context.Context, limit int) ([]domain.TradeExecutionResult, error) {
	rows, err := p.Pool.Query(ctx, `
		SELECT id, opportunity_id, pair, mode, status, success, tx_hash,
		       profit_usd::text, gas_cost_usd::text,
		       message, error_class, error_code, hint, failed_step, duration_ns, created_at
		FROM executions
		ORDER BY created_at DESC, id
		LIMIT $1`, normalizeLimit(limit))
	if err != nil {
		return nil, storageError(err, "query executions")
	}
	defer rows.Close()

	var out []domain.TradeExecutionResult
	for rows.Next() {
		var rec executionRow
		if err := rows.Scan(
			&rec.ID, &rec.OpportunityID, &rec.Pair, &rec.Mode, &rec.Status, &rec.Success, &rec.TxHash,
			&rec.ProfitUSD, &rec.GasCostUSD, &rec.Message, &rec.ErrorClass, &rec.ErrorCode,
			&rec.Hint, &rec.FailedStep, &rec.DurationNS, &rec.CreatedAt,
		); err != nil {
			return nil, storageError(err, "scan execution")
		}
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

// Close releases the pool.
func (p *Postgres) Close() error {
	p.Pool.Close()
	return nil
}
