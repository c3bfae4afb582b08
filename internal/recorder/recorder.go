package recorder

import (
	"context"
	"time"

	"MarketPsyche/internal/model"
)

// Snapshot is one stored analysis reading.
type Snapshot struct {
	ID         string    `db:"id"`
	Timestamp  int64     `db:"timestamp"`
	Instrument string    `db:"instrument"`
	Kind       string    `db:"market_kind"`
	Period     string    `db:"period"`
	Price      float64   `db:"current_price"`
	Return     float64   `db:"current_return"`
	Percentile float64   `db:"percentile"`
	Buyers     float64   `db:"buyers"`
	Holders    float64   `db:"holders"`
	Sellers    float64   `db:"sellers"`
	Sentiment  float64   `db:"sentiment"`
	Risk       string    `db:"risk_level"`
	Confidence float64   `db:"confidence"`
	DataPoints int       `db:"data_points"`
	Std        float64   `db:"dist_std"`
	Skewness   float64   `db:"dist_skewness"`
	Kurtosis   float64   `db:"dist_kurtosis"`
	CreatedAt  time.Time `db:"-"`
}

// FailureEvent records an analysis that could not be produced.
type FailureEvent struct {
	Instrument string
	Kind       model.MarketKind
	Period     model.Period
	Stage      string
	ErrorKind  string
	Message    string
}

// Recorder persists analysis history.
type Recorder interface {
	RecordAnalysis(ctx context.Context, res *model.AnalysisResult) error
	RecordFailure(ctx context.Context, evt *FailureEvent) error
	// History returns the newest snapshots of an instrument, newest first.
	History(ctx context.Context, instrument string, kind model.MarketKind, limit int) ([]Snapshot, error)
	Close() error
}

func snapshotOf(res *model.AnalysisResult) Snapshot {
	return Snapshot{
		ID:         res.ID,
		Timestamp:  res.CreatedAt.Unix(),
		Instrument: res.Instrument,
		Kind:       string(res.Kind),
		Period:     string(res.Period),
		Price:      res.CurrentPrice,
		Return:     res.CurrentReturn,
		Percentile: res.Percentile,
		Buyers:     res.Ratios.Buyers,
		Holders:    res.Ratios.Holders,
		Sellers:    res.Ratios.Sellers,
		Sentiment:  res.Sentiment,
		Risk:       string(res.Risk),
		Confidence: res.Confidence,
		DataPoints: res.DataPoints,
		Std:        res.Distribution.Std,
		Skewness:   res.Distribution.Skewness,
		Kurtosis:   res.Distribution.Kurtosis,
	}
}
