package model

import (
	"fmt"
	"time"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// MarketKind selects which upstream serves an instrument.
type MarketKind string

const (
	MarketStock  MarketKind = "stock"
	MarketCrypto MarketKind = "crypto"
)

// ParseMarketKind accepts "stock" or "crypto".
func ParseMarketKind(s string) (MarketKind, error) {
	switch MarketKind(s) {
	case MarketStock, MarketCrypto:
		return MarketKind(s), nil
	}
	return "", fmt.Errorf("unsupported market kind %q", s)
}

// Period is the look-back window of a price series.
type Period string

const (
	Period1M Period = "1mo"
	Period3M Period = "3mo"
	Period6M Period = "6mo"
	Period1Y Period = "1y"
	Period2Y Period = "2y"
)

// DefaultPeriod is used when a caller does not name one.
const DefaultPeriod = Period3M

var periodDays = map[Period]int{
	Period1M: 30,
	Period3M: 90,
	Period6M: 180,
	Period1Y: 365,
	Period2Y: 730,
}

// ParsePeriod validates a period string. An empty string yields DefaultPeriod.
func ParsePeriod(s string) (Period, error) {
	if s == "" {
		return DefaultPeriod, nil
	}
	p := Period(s)
	if _, ok := periodDays[p]; !ok {
		return "", fmt.Errorf("unsupported period %q", s)
	}
	return p, nil
}

// Days returns the number of calendar days covered by the period.
func (p Period) Days() int {
	if d, ok := periodDays[p]; ok {
		return d
	}
	return periodDays[DefaultPeriod]
}

// PriceSeries holds the bars of one instrument over one period, oldest first.
type PriceSeries struct {
	Instrument string     `json:"instrument"`
	Kind       MarketKind `json:"market_kind"`
	Period     Period     `json:"period"`
	Bars       []OHLCV    `json:"bars"`
	FetchedAt  time.Time  `json:"fetched_at"`
}

// CurrentPrice is the close of the most recent bar, or 0 for an empty series.
func (s *PriceSeries) CurrentPrice() float64 {
	if len(s.Bars) == 0 {
		return 0
	}
	return s.Bars[len(s.Bars)-1].Close
}

// Validate checks the series is non-empty, strictly chronological and carries positive closes.
func (s *PriceSeries) Validate() error {
	if len(s.Bars) == 0 {
		return fmt.Errorf("empty price series")
	}
	for i, b := range s.Bars {
		if b.Close <= 0 {
			return fmt.Errorf("bar %d: non-positive close %v", i, b.Close)
		}
		if i > 0 && !b.Time.After(s.Bars[i-1].Time) {
			return fmt.Errorf("bar %d: timestamp %s not after %s", i, b.Time.Format(time.RFC3339), s.Bars[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}
