package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gaming/risk-service/internal/config"
)

// ErrNotFound is returned when a lookup matches no rows
var ErrNotFound = errors.New("repository: not found")

// DB is the subset of pgx used by the repositories. *pgxpool.Pool satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var _ DB = (*pgxpool.Pool)(nil)

// NewPostgresPool creates a new PostgreSQL connection pool
func NewPostgresPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}

// Schema creates the tables used by the service
const Schema = `
CREATE TABLE IF NOT EXISTS risk_assessments (
	id              UUID PRIMARY KEY,
	user_id         UUID NOT NULL,
	withdrawal_id   UUID,
	score           INTEGER NOT NULL,
	level           TEXT NOT NULL,
	recommendation  TEXT NOT NULL,
	findings        JSONB NOT NULL,
	critical_count  INTEGER NOT NULL,
	warning_count   INTEGER NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_risk_assessments_user ON risk_assessments (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS fraud_alerts (
	id             UUID PRIMARY KEY,
	alert_number   TEXT NOT NULL UNIQUE,
	user_id        UUID NOT NULL,
	withdrawal_id  UUID,
	status         TEXT NOT NULL,
	level          TEXT NOT NULL,
	risk_score     INTEGER NOT NULL,
	decision       TEXT NOT NULL,
	title          TEXT NOT NULL,
	description    TEXT NOT NULL,
	finding_codes  TEXT[] NOT NULL DEFAULT '{}',
	detected_at    TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fraud_alerts_user ON fraud_alerts (user_id, detected_at DESC);
`

// Migrate applies Schema
func Migrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
