package analysis

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"MarketPsyche/internal/cache"
	"MarketPsyche/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pattern = []float64{-1.5, 0.3, -0.8, 1.1, 0.0, -0.4, 1.6, -1.1, 0.6, -0.2, 0.9, -0.6, 0.2, 1.3, -1.3, 0.4}

func returnsFrom(n int, mu, sigma float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = mu + sigma*pattern[i%len(pattern)]
	}
	return out
}

func seriesFromReturns(instrument string, returns []float64) *model.PriceSeries {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	price := 100.0
	bars := []model.OHLCV{{Time: start, Open: price, High: price, Low: price, Close: price, Volume: 500}}
	for i, r := range returns {
		price *= math.Exp(r)
		bars = append(bars, model.OHLCV{Time: start.AddDate(0, 0, i+1), Open: price, High: price, Low: price, Close: price, Volume: 500})
	}
	return &model.PriceSeries{Instrument: instrument, Bars: bars}
}

type stubSource struct {
	calls  atomic.Int64
	series *model.PriceSeries
	err    error
	gate   chan struct{}
}

func (s *stubSource) Fetch(ctx context.Context, instrument string, kind model.MarketKind, period model.Period) (*model.PriceSeries, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if s.err != nil {
		return nil, s.err
	}
	cp := *s.series
	cp.Instrument, cp.Kind, cp.Period = instrument, kind, period
	return &cp, nil
}

func errorKind(t *testing.T, err error) Kind {
	t.Helper()
	var ae *Error
	require.ErrorAs(t, err, &ae)
	return ae.Kind
}

func newTestEngine(t *testing.T, src Source) *Engine {
	t.Helper()
	c, err := cache.New(cache.Options{})
	require.NoError(t, err)
	return NewEngine(src, c, Options{})
}

func TestAnalyze_Success(t *testing.T) {
	src := &stubSource{series: seriesFromReturns("AAPL", returnsFrom(60, 0.0005, 0.01))}
	e := newTestEngine(t, src)

	res, err := e.Analyze(context.Background(), "aapl", model.MarketStock, "")
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "AAPL", res.Instrument)
	assert.Equal(t, model.DefaultPeriod, res.Period)
	assert.Equal(t, 61, res.DataPoints)
	assert.InDelta(t, 1.0, res.Ratios.Sum(), 1e-9)
	assert.GreaterOrEqual(t, res.Percentile, 0.0)
	assert.LessOrEqual(t, res.Percentile, 1.0)
	assert.GreaterOrEqual(t, res.Sentiment, -1.0)
	assert.LessOrEqual(t, res.Sentiment, 1.0)
	assert.True(t, res.Risk.Valid())
	assert.NotEmpty(t, res.Interpretation)
	assert.Len(t, res.Visualization.X, 100)
	assert.Len(t, res.Visualization.Zones, 3)
	assert.GreaterOrEqual(t, res.Confidence, 0.1)
	assert.LessOrEqual(t, res.Confidence, 1.0)
}

func TestAnalyze_ElevenClosesIsEnough(t *testing.T) {
	src := &stubSource{series: seriesFromReturns("ETH/USDT", returnsFrom(10, 0, 0.02))}
	e := newTestEngine(t, src)

	res, err := e.Analyze(context.Background(), "ETH/USDT", model.MarketCrypto, model.Period1M)
	require.NoError(t, err)
	assert.Equal(t, 11, res.DataPoints)
}

func TestAnalyze_CachedWithinTTL(t *testing.T) {
	src := &stubSource{series: seriesFromReturns("AAPL", returnsFrom(40, 0, 0.01))}
	e := newTestEngine(t, src)

	first, err := e.Analyze(context.Background(), "AAPL", model.MarketStock, model.Period3M)
	require.NoError(t, err)
	second, err := e.Analyze(context.Background(), "AAPL", model.MarketStock, model.Period3M)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int64(1), src.calls.Load())
}

func TestAnalyze_ConcurrentCallersShareOneFetch(t *testing.T) {
	src := &stubSource{
		series: seriesFromReturns("BTC/USDT", returnsFrom(40, 0, 0.02)),
		gate:   make(chan struct{}),
	}
	e := newTestEngine(t, src)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Analyze(context.Background(), "BTC/USDT", model.MarketCrypto, model.Period3M)
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.Equal(t, int64(1), src.calls.Load())
}

func TestAnalyze_FlatMarketIsDegenerate(t *testing.T) {
	src := &stubSource{series: seriesFromReturns("KO", make([]float64, 30))}
	e := newTestEngine(t, src)

	_, err := e.Analyze(context.Background(), "KO", model.MarketStock, model.Period3M)
	require.Error(t, err)

	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, KindDegenerateDistribution, ae.Kind)
	assert.Equal(t, StageEstimating, ae.Stage)
	assert.Equal(t, "flat market, analysis not meaningful", ae.Message)

	var dd *model.DegenerateDistributionError
	assert.ErrorAs(t, err, &dd)
}

func TestAnalyze_ReturnsBeyondGridStillSucceed(t *testing.T) {
	src := &stubSource{series: seriesFromReturns("MSTR", returnsFrom(30, 0.25, 0.001))}
	e := newTestEngine(t, src)

	res, err := e.Analyze(context.Background(), "MSTR", model.MarketStock, model.Period1M)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Percentile)
	assert.Greater(t, res.Ratios.Sellers, res.Ratios.Buyers)
	assert.NotEqual(t, model.RiskLow, res.Risk)
}

func TestAnalyze_InsufficientData(t *testing.T) {
	src := &stubSource{series: seriesFromReturns("KO", returnsFrom(4, 0, 0.01))}
	e := newTestEngine(t, src)

	_, err := e.Analyze(context.Background(), "KO", model.MarketStock, model.Period1M)
	assert.Equal(t, KindInsufficientData, errorKind(t, err))

	var id *model.InsufficientDataError
	require.ErrorAs(t, err, &id)
	assert.Equal(t, 4, id.Have)
	assert.Equal(t, 10, id.Need)
}

func TestAnalyze_DataUnavailableIsNotCached(t *testing.T) {
	upstream := errors.New("connection refused")
	src := &stubSource{err: upstream}
	e := newTestEngine(t, src)

	for i := 0; i < 2; i++ {
		_, err := e.Analyze(context.Background(), "TSLA", model.MarketStock, model.Period3M)
		require.Error(t, err)
		assert.Equal(t, KindDataUnavailable, errorKind(t, err))
		assert.ErrorIs(t, err, upstream)
	}
	assert.Equal(t, int64(2), src.calls.Load())
	assert.Equal(t, 0, e.Health().Cache.Entries)
}

func TestAnalyze_UnorderedSeriesIsUnavailable(t *testing.T) {
	s := seriesFromReturns("MSFT", returnsFrom(20, 0, 0.01))
	s.Bars[5].Time = s.Bars[4].Time
	e := newTestEngine(t, &stubSource{series: s})

	_, err := e.Analyze(context.Background(), "MSFT", model.MarketStock, model.Period3M)
	assert.Equal(t, KindDataUnavailable, errorKind(t, err))
}

func TestAnalyze_RejectsBadArguments(t *testing.T) {
	e := newTestEngine(t, &stubSource{series: seriesFromReturns("X", returnsFrom(20, 0, 0.01))})

	cases := []struct {
		instrument string
		kind       model.MarketKind
		period     model.Period
		message    string
	}{
		{" ", model.MarketStock, model.Period3M, "invalid request: instrument is required"},
		{"AAPL", "forex", model.Period3M, "invalid request: unsupported market kind"},
		{"AAPL", model.MarketStock, "5y", "invalid request: unsupported period"},
	}
	for _, tc := range cases {
		_, err := e.Analyze(context.Background(), tc.instrument, tc.kind, tc.period)
		var ae *Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, KindInvalidRequest, ae.Kind)
		assert.Equal(t, tc.message, ae.Message)
	}
}

// A series trending upward whose last move sits in the upper tail reads as
// seller-dominated with elevated risk, and less bullish than a median close.
func TestAnalyze_UpperTailLeansSellers(t *testing.T) {
	tail := append(returnsFrom(59, 0.001, 0.01), 0.022)
	hot := newTestEngine(t, &stubSource{series: seriesFromReturns("NVDA", tail)})

	res, err := hot.Analyze(context.Background(), "NVDA", model.MarketStock, model.Period3M)
	require.NoError(t, err)
	require.Greater(t, res.Percentile, 0.84)

	assert.Greater(t, res.Ratios.Sellers, res.Ratios.Buyers)
	assert.True(t, res.Risk.AtLeast(model.RiskMedium), "risk %s", res.Risk)

	median := append(returnsFrom(59, 0.001, 0.01), 0.001)
	calm := newTestEngine(t, &stubSource{series: seriesFromReturns("NVDA", median)})
	base, err := calm.Analyze(context.Background(), "NVDA", model.MarketStock, model.Period3M)
	require.NoError(t, err)
	assert.Less(t, res.Sentiment, base.Sentiment)
}

func TestQuickAnalyzeAndDistribution(t *testing.T) {
	src := &stubSource{series: seriesFromReturns("SOL/USDT", returnsFrom(40, 0, 0.03))}
	e := newTestEngine(t, src)

	q, err := e.QuickAnalyze(context.Background(), "SOL/USDT", model.MarketCrypto, model.Period3M)
	require.NoError(t, err)
	assert.Equal(t, "SOL/USDT", q.Instrument)

	v, err := e.Distribution(context.Background(), "SOL/USDT", model.MarketCrypto, model.Period3M)
	require.NoError(t, err)
	assert.Len(t, v.Y, len(v.X))
	assert.Equal(t, int64(1), src.calls.Load())

	assert.Equal(t, 1, e.InvalidateCache(model.MarketCrypto, "sol/usdt"))
	assert.Equal(t, 0, e.Health().Cache.Entries)
}

func TestSupportedSymbols(t *testing.T) {
	assert.Len(t, SupportedSymbols(model.MarketCrypto, 5), 5)
	assert.Equal(t, "AAPL", SupportedSymbols(model.MarketStock, 1)[0])
	assert.Len(t, SupportedSymbols(model.MarketStock, 0), 25)
	assert.Empty(t, SupportedSymbols("forex", 10))
}
