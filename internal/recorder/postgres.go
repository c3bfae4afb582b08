package recorder

import (
	"context"
	"fmt"
	"time"

	"MarketPsyche/internal/logger"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresRecorder persists analysis history to PostgreSQL.
type PostgresRecorder struct {
	*sqlStore
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS analysis_snapshots (
		id             TEXT PRIMARY KEY,
		timestamp      BIGINT NOT NULL,
		instrument     TEXT NOT NULL,
		market_kind    TEXT NOT NULL,
		period         TEXT NOT NULL,
		current_price  DOUBLE PRECISION,
		current_return DOUBLE PRECISION,
		percentile     DOUBLE PRECISION,
		buyers         DOUBLE PRECISION,
		holders        DOUBLE PRECISION,
		sellers        DOUBLE PRECISION,
		sentiment      DOUBLE PRECISION,
		risk_level     TEXT,
		confidence     DOUBLE PRECISION,
		data_points    INTEGER,
		dist_std       DOUBLE PRECISION,
		dist_skewness  DOUBLE PRECISION,
		dist_kurtosis  DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_instrument_ts ON analysis_snapshots(instrument, market_kind, timestamp)`,

	`CREATE TABLE IF NOT EXISTS analysis_failures (
		id          BIGSERIAL PRIMARY KEY,
		timestamp   BIGINT NOT NULL,
		instrument  TEXT NOT NULL,
		market_kind TEXT,
		period      TEXT,
		stage       TEXT,
		error_kind  TEXT,
		message     TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_failures_ts ON analysis_failures(timestamp)`,
}

// NewPostgresRecorder connects with dsn, checks the connection and runs migrations.
func NewPostgresRecorder(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	r := &PostgresRecorder{sqlStore: &sqlStore{db: db, now: time.Now}}
	if err := r.migrate(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info().Msg("postgres recorder opened")
	return r, nil
}
