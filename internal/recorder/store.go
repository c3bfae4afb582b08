package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MarketPsyche/internal/model"

	"github.com/jmoiron/sqlx"
)

// DefaultHistoryLimit caps History when limit is not positive.
const DefaultHistoryLimit = 10

// sqlStore implements Recorder over any sqlx database. Queries are written
// with ? placeholders and rebound for the driver.
type sqlStore struct {
	db  *sqlx.DB
	mu  sync.Mutex
	now func() time.Time
}

func (s *sqlStore) migrate(stmts []string) error {
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			head := stmt
			if len(head) > 40 {
				head = head[:40]
			}
			return fmt.Errorf("exec %q: %w", head, err)
		}
	}
	return nil
}

func (s *sqlStore) RecordAnalysis(ctx context.Context, res *model.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshotOf(res)
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO analysis_snapshots
		(id, timestamp, instrument, market_kind, period, current_price, current_return,
		 percentile, buyers, holders, sellers, sentiment, risk_level, confidence,
		 data_points, dist_std, dist_skewness, dist_kurtosis)
		VALUES (:id, :timestamp, :instrument, :market_kind, :period, :current_price, :current_return,
		 :percentile, :buyers, :holders, :sellers, :sentiment, :risk_level, :confidence,
		 :data_points, :dist_std, :dist_skewness, :dist_kurtosis)`, snap)
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", res.Instrument, err)
	}
	return nil
}

func (s *sqlStore) RecordFailure(ctx context.Context, evt *FailureEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO analysis_failures
		(timestamp, instrument, market_kind, period, stage, error_kind, message)
		VALUES (?,?,?,?,?,?,?)`),
		s.now().Unix(), evt.Instrument, string(evt.Kind), string(evt.Period),
		evt.Stage, evt.ErrorKind, evt.Message,
	)
	if err != nil {
		return fmt.Errorf("insert failure %s: %w", evt.Instrument, err)
	}
	return nil
}

func (s *sqlStore) History(ctx context.Context, instrument string, kind model.MarketKind, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var rows []Snapshot
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT id, timestamp, instrument, market_kind, period,
		current_price, current_return, percentile, buyers, holders, sellers, sentiment,
		risk_level, confidence, data_points, dist_std, dist_skewness, dist_kurtosis
		FROM analysis_snapshots
		WHERE instrument = ? AND market_kind = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`), instrument, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("select history %s: %w", instrument, err)
	}
	for i := range rows {
		rows[i].CreatedAt = time.Unix(rows[i].Timestamp, 0).UTC()
	}
	return rows, nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
