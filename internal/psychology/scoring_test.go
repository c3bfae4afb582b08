package psychology

import (
	"math"
	"testing"

	"MarketPsyche/internal/calculator"
	"MarketPsyche/internal/model"

	"github.com/stretchr/testify/assert"
)

// flatDensity returns the same value everywhere, so the dispersion term is zero.
type flatDensity float64

func (f flatDensity) DensityAt(xs []float64) []float64 {
	ys := make([]float64, len(xs))
	for i := range ys {
		ys[i] = float64(f)
	}
	return ys
}

// spikyDensity alternates between 0 and h, giving a large variance.
type spikyDensity float64

func (s spikyDensity) DensityAt(xs []float64) []float64 {
	ys := make([]float64, len(xs))
	for i := range ys {
		if i%2 == 0 {
			ys[i] = float64(s)
		}
	}
	return ys
}

func TestScore_Base(t *testing.T) {
	grid := DefaultVolatilityGrid()
	r := model.PsychologyRatios{Buyers: 0.5, Holders: 0.3, Sellers: 0.2}
	assert.InDelta(t, 0.5, Score(r, flatDensity(1), grid), 1e-12)

	r = model.PsychologyRatios{Buyers: 0.2, Holders: 0.4, Sellers: 0.4}
	assert.InDelta(t, -0.5, Score(r, flatDensity(1), grid), 1e-12)
}

func TestScore_VolatilityAmplifiesTilt(t *testing.T) {
	grid := DefaultVolatilityGrid()
	up := model.PsychologyRatios{Buyers: 0.5, Holders: 0.3, Sellers: 0.2}
	down := model.PsychologyRatios{Buyers: 0.2, Holders: 0.4, Sellers: 0.4}

	assert.InDelta(t, 0.8, Score(up, spikyDensity(10), grid), 1e-12)
	assert.InDelta(t, -0.8, Score(down, spikyDensity(10), grid), 1e-12)
}

func TestScore_Clamped(t *testing.T) {
	r := model.PsychologyRatios{Buyers: 0.15, Holders: 0.122, Sellers: 0.728}
	assert.Equal(t, -1.0, Score(r, spikyDensity(10), DefaultVolatilityGrid()))
}

func TestVolatilityAdjustment_Capped(t *testing.T) {
	assert.Equal(t, 0.3, VolatilityAdjustment(spikyDensity(10), DefaultVolatilityGrid()))
	assert.Equal(t, 0.0, VolatilityAdjustment(flatDensity(3), DefaultVolatilityGrid()))
	// 0/0.02 alternating: variance 1e-4, scaled 0.01
	assert.InDelta(t, 0.01, VolatilityAdjustment(spikyDensity(0.02), calculator.Grid{Min: -1, Max: 1, Points: 10}), 1e-12)
}

func TestRiskClassifier_Tiers(t *testing.T) {
	c := NewRiskClassifier(RiskThresholds{})
	calm := model.PsychologyRatios{Buyers: 0.4, Holders: 0.4, Sellers: 0.2}
	tilted := model.PsychologyRatios{Buyers: 0.7, Holders: 0.2, Sellers: 0.1}
	extremeRatios := model.PsychologyRatios{Buyers: 0.8, Holders: 0.1, Sellers: 0.1}

	tests := []struct {
		sentiment float64
		ratios    model.PsychologyRatios
		want      model.RiskLevel
	}{
		{0.1, calm, model.RiskLow},
		{-0.29, calm, model.RiskLow},
		{0.3, calm, model.RiskMedium},
		{0.1, tilted, model.RiskMedium},
		{0.59, tilted, model.RiskMedium},
		{0.1, extremeRatios, model.RiskHigh},
		{-0.6, calm, model.RiskHigh},
		{0.84, calm, model.RiskHigh},
		{0.85, calm, model.RiskExtreme},
		{-1, extremeRatios, model.RiskExtreme},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Classify(tt.sentiment, tt.ratios), "sentiment %.2f ratios %+v", tt.sentiment, tt.ratios)
	}
}

func TestRiskClassifier_CustomThresholds(t *testing.T) {
	c := NewRiskClassifier(RiskThresholds{LowSentiment: 0.1, LowRatio: 0.5, MediumSentiment: 0.2, MediumRatio: 0.6, HighSentiment: 0.3})
	r := model.PsychologyRatios{Buyers: 0.4, Holders: 0.4, Sellers: 0.2}
	assert.Equal(t, model.RiskExtreme, c.Classify(0.35, r))
	assert.Equal(t, model.RiskHigh, c.Classify(0.25, r))
}

func TestInterpret(t *testing.T) {
	r := model.PsychologyRatios{Buyers: 0.15, Holders: 0.22, Sellers: 0.63}
	text := Interpret(r, -0.9, model.RiskExtreme, 0.92)
	assert.Contains(t, text, "Selling pressure")
	assert.Contains(t, text, "Fear")
	assert.Contains(t, text, "Risk is extreme")
	assert.Contains(t, text, "top quarter")

	text = Interpret(model.PsychologyRatios{Buyers: 0.4, Holders: 0.4, Sellers: 0.2}, 0.1, model.RiskLow, math.NaN())
	assert.Contains(t, text, "sidelines")
	assert.NotContains(t, text, "quarter")
}

func TestInterpret_MissingFields(t *testing.T) {
	ok := model.PsychologyRatios{Buyers: 0.4, Holders: 0.4, Sellers: 0.2}
	assert.Equal(t, InsufficientSignal, Interpret(model.PsychologyRatios{}, 0.1, model.RiskLow, 0.5))
	assert.Equal(t, InsufficientSignal, Interpret(ok, math.NaN(), model.RiskLow, 0.5))
	assert.Equal(t, InsufficientSignal, Interpret(ok, 0.1, "", 0.5))
	nan := model.PsychologyRatios{Buyers: math.NaN(), Holders: 0.5, Sellers: 0.5}
	assert.Equal(t, InsufficientSignal, Interpret(nan, 0.1, model.RiskLow, 0.5))
}

func TestConfidence(t *testing.T) {
	steady := model.DistributionStats{Std: 0.01, Kurtosis: 0}
	assert.InDelta(t, 0.4+0.3+0.3*0.8, Confidence(150, steady), 1e-12)

	wild := model.DistributionStats{Std: 0.2, Kurtosis: 25}
	assert.InDelta(t, 0.1*0.4+0.03+0.03, Confidence(10, wild), 1e-12)
}

func TestVisualize(t *testing.T) {
	s := model.DistributionStats{Mean: 0.001, Std: 0.01}
	v := Visualize(flatDensity(2), 0.015, s)

	assert.Len(t, v.X, curvePoints)
	assert.Len(t, v.Y, curvePoints)
	assert.InDelta(t, -0.029, v.X[0], 1e-12)
	assert.InDelta(t, 0.031, v.X[len(v.X)-1], 1e-12)
	assert.Equal(t, 0.015, v.CurrentPosition)
	if assert.Len(t, v.Zones, 3) {
		assert.Equal(t, ZoneOversold, v.Zones[0].Name)
		assert.InDelta(t, -0.019, v.Zones[0].End, 1e-12)
		assert.Equal(t, ZoneOverbought, v.Zones[2].Name)
		assert.InDelta(t, 0.021, v.Zones[2].Start, 1e-12)
	}
}
