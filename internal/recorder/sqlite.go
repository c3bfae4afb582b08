package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"MarketPsyche/internal/logger"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists analysis history to a SQLite database.
type SQLiteRecorder struct {
	*sqlStore
	path string
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS analysis_snapshots (
		id             TEXT PRIMARY KEY,
		timestamp      INTEGER NOT NULL,
		instrument     TEXT NOT NULL,
		market_kind    TEXT NOT NULL,
		period         TEXT NOT NULL,
		current_price  REAL,
		current_return REAL,
		percentile     REAL,
		buyers         REAL,
		holders        REAL,
		sellers        REAL,
		sentiment      REAL,
		risk_level     TEXT,
		confidence     REAL,
		data_points    INTEGER,
		dist_std       REAL,
		dist_skewness  REAL,
		dist_kurtosis  REAL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_instrument_ts ON analysis_snapshots(instrument, market_kind, timestamp)`,

	`CREATE TABLE IF NOT EXISTS analysis_failures (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp   INTEGER NOT NULL,
		instrument  TEXT NOT NULL,
		market_kind TEXT,
		period      TEXT,
		stage       TEXT,
		error_kind  TEXT,
		message     TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_failures_ts ON analysis_failures(timestamp)`,
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{sqlStore: &sqlStore{db: db, now: time.Now}, path: dbPath}
	if err := r.migrate(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) Close() error {
	logger.Info().Str("path", r.path).Msg("closing sqlite recorder")
	return r.sqlStore.Close()
}
