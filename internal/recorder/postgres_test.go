package recorder

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"MarketPsyche/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only when POSTGRES_TEST_DSN points at a disposable database.
func openPostgresRecorder(t *testing.T) *PostgresRecorder {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	r, err := NewPostgresRecorder(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestPostgresRecorder_RecordAndHistory(t *testing.T) {
	r := openPostgresRecorder(t)
	ctx := context.Background()
	instrument := "T" + strings.ToUpper(uuid.NewString()[:8])
	t.Cleanup(func() {
		r.db.MustExec(r.db.Rebind(`DELETE FROM analysis_snapshots WHERE instrument = ?`), instrument)
		r.db.MustExec(r.db.Rebind(`DELETE FROM analysis_failures WHERE instrument = ?`), instrument)
	})
	t0 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	older := result(uuid.NewString(), instrument, t0, model.RiskHigh)
	newer := result(uuid.NewString(), instrument, t0.Add(time.Hour), model.RiskExtreme)
	require.NoError(t, r.RecordAnalysis(ctx, older))
	require.NoError(t, r.RecordAnalysis(ctx, newer))
	assert.Error(t, r.RecordAnalysis(ctx, newer), "duplicate id")

	rows, err := r.History(ctx, instrument, model.MarketStock, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID)
	assert.Equal(t, "extreme", rows[0].Risk)
	assert.Equal(t, t0.Add(time.Hour), rows[0].CreatedAt.UTC())
	assert.InDelta(t, 0.65, rows[1].Sellers, 1e-12)

	rows, err = r.History(ctx, instrument, model.MarketStock, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = r.History(ctx, instrument, model.MarketCrypto, 5)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestPostgresRecorder_RecordFailure(t *testing.T) {
	r := openPostgresRecorder(t)
	instrument := "F" + strings.ToUpper(uuid.NewString()[:8])
	t.Cleanup(func() {
		r.db.MustExec(r.db.Rebind(`DELETE FROM analysis_failures WHERE instrument = ?`), instrument)
	})

	require.NoError(t, r.RecordFailure(context.Background(), &FailureEvent{
		Instrument: instrument,
		Kind:       model.MarketStock,
		Period:     model.Period1M,
		Stage:      "fetching",
		ErrorKind:  "data_unavailable",
		Message:    "market data unavailable",
	}))

	var n int
	require.NoError(t, r.db.Get(&n, r.db.Rebind(`SELECT COUNT(*) FROM analysis_failures WHERE instrument = ?`), instrument))
	assert.Equal(t, 1, n)
}
