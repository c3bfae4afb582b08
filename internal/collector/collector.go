package collector

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"MarketPsyche/internal/logger"
	"MarketPsyche/internal/model"
)

// MockFetcher returns deterministic bars for development and testing.
type MockFetcher struct {
	Price float64
	Bars  []model.OHLCV
	Err   error

	calls atomic.Int64
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls reports how many times FetchBars ran.
func (m *MockFetcher) Calls() int { return int(m.calls.Load()) }

func (m *MockFetcher) FetchBars(_ context.Context, _ string, period model.Period) ([]model.OHLCV, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Bars != nil {
		return m.Bars, nil
	}
	price := m.Price
	if price <= 0 {
		price = 100
	}
	return generateMockBars(price, period.Days()), nil
}

// generateMockBars oscillates around basePrice with a slow upward drift.
func generateMockBars(basePrice float64, count int) []model.OHLCV {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001 + 0.02*math.Sin(float64(i)/3))
		bars[i] = model.OHLCV{
			Time:   end.AddDate(0, 0, -(count - 1 - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

var (
	stockSymbol  = regexp.MustCompile(`^\^?[A-Z0-9][A-Z0-9.\-]{0,9}$`)
	cryptoSymbol = regexp.MustCompile(`^[A-Z0-9]{2,10}/[A-Z0-9]{2,10}$`)
)

// ValidSymbol reports whether symbol is well-formed for kind: a ticker such as
// "AAPL" or "BRK.B" for stocks, a "BASE/QUOTE" pair for crypto.
func ValidSymbol(kind model.MarketKind, symbol string) bool {
	switch kind {
	case model.MarketStock:
		return stockSymbol.MatchString(symbol)
	case model.MarketCrypto:
		return cryptoSymbol.MatchString(symbol)
	}
	return false
}

// Collector routes requests to the fetcher of each market kind and turns the
// bars into a validated PriceSeries.
type Collector struct {
	fetchers map[model.MarketKind]Fetcher
	bars     BarCache
	now      func() time.Time
}

// Option configures a Collector.
type Option func(*Collector)

// WithBarCache reuses recently fetched bars from bc.
func WithBarCache(bc BarCache) Option {
	return func(c *Collector) { c.bars = bc }
}

// WithClock overrides the fetch timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// NewCollector creates a Collector. A nil fetcher leaves that market unsupported.
func NewCollector(stock, crypto Fetcher, opts ...Option) *Collector {
	c := &Collector{
		fetchers: map[model.MarketKind]Fetcher{},
		now:      time.Now,
	}
	if stock != nil {
		c.fetchers[model.MarketStock] = stock
	}
	if crypto != nil {
		c.fetchers[model.MarketCrypto] = crypto
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the price series of instrument over period. Every failure is
// a *model.DataUnavailableError wrapping the cause.
func (c *Collector) Fetch(ctx context.Context, instrument string, kind model.MarketKind, period model.Period) (*model.PriceSeries, error) {
	fail := func(err error) error {
		return &model.DataUnavailableError{Instrument: instrument, Kind: kind, Cause: err}
	}

	symbol := strings.ToUpper(strings.TrimSpace(instrument))
	if !ValidSymbol(kind, symbol) {
		return nil, fail(fmt.Errorf("invalid %s symbol %q", kind, instrument))
	}
	f, ok := c.fetchers[kind]
	if !ok {
		return nil, fail(fmt.Errorf("no fetcher for market %q", kind))
	}

	bars, err := c.fetchBars(ctx, f, kind, symbol, period)
	if err != nil {
		return nil, fail(err)
	}

	series := &model.PriceSeries{
		Instrument: symbol,
		Kind:       kind,
		Period:     period,
		Bars:       bars,
		FetchedAt:  c.now(),
	}
	if err := series.Validate(); err != nil {
		return nil, fail(fmt.Errorf("%s: %w", f.Name(), err))
	}
	return series, nil
}

func (c *Collector) fetchBars(ctx context.Context, f Fetcher, kind model.MarketKind, symbol string, period model.Period) ([]model.OHLCV, error) {
	key := barKey(kind, symbol, period)
	if c.bars != nil {
		bars, ok, err := c.bars.Get(ctx, key)
		if err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("bar cache read failed")
		} else if ok {
			logger.Debug().Str("key", key).Int("bars", len(bars)).Msg("bar cache hit")
			return bars, nil
		}
	}

	bars, err := f.FetchBars(ctx, symbol, period)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name(), err)
	}
	logger.Info().Str("source", f.Name()).Str("symbol", symbol).Str("period", string(period)).
		Int("bars", len(bars)).Msg("fetched bars")

	if c.bars != nil && len(bars) > 0 {
		if err := c.bars.Set(ctx, key, bars); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("bar cache write failed")
		}
	}
	return bars, nil
}
