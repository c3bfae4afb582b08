package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, Period3M, p)

	p, err = ParsePeriod("2y")
	require.NoError(t, err)
	assert.Equal(t, 730, p.Days())

	_, err = ParsePeriod("5y")
	assert.Error(t, err)
}

func TestParseMarketKind(t *testing.T) {
	k, err := ParseMarketKind("crypto")
	require.NoError(t, err)
	assert.Equal(t, MarketCrypto, k)

	_, err = ParseMarketKind("forex")
	assert.Error(t, err)
}

func TestPriceSeries_Validate(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ok := &PriceSeries{Bars: []OHLCV{{Time: t0, Close: 1}, {Time: t0.Add(time.Hour), Close: 2}}}
	assert.NoError(t, ok.Validate())
	assert.Equal(t, 2.0, ok.CurrentPrice())

	assert.Error(t, (&PriceSeries{}).Validate())
	assert.Error(t, (&PriceSeries{Bars: []OHLCV{{Time: t0, Close: 0}}}).Validate())
	assert.Error(t, (&PriceSeries{Bars: []OHLCV{{Time: t0, Close: 1}, {Time: t0, Close: 1}}}).Validate())
}

func TestRiskLevel_Order(t *testing.T) {
	assert.True(t, RiskExtreme.AtLeast(RiskHigh))
	assert.True(t, RiskHigh.AtLeast(RiskHigh))
	assert.False(t, RiskMedium.AtLeast(RiskHigh))
	assert.False(t, RiskLevel("severe").AtLeast(RiskLow))
	assert.Equal(t, -1, RiskLevel("").Rank())
}

func TestPsychologyRatios(t *testing.T) {
	r := PsychologyRatios{Buyers: 0.2, Holders: 0.5, Sellers: 0.3}
	assert.InDelta(t, 1.0, r.Sum(), 1e-12)
	assert.Equal(t, 0.5, r.Max())
}
