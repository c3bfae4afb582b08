package psychology

import "MarketPsyche/internal/model"

// Bands holds the percentile cut points between the oversold, normal and
// overbought regimes. The defaults are the one-sigma points of a standard normal.
type Bands struct {
	Oversold   float64 `yaml:"oversold"`
	Overbought float64 `yaml:"overbought"`
}

// DefaultBands returns 0.16 / 0.84.
func DefaultBands() Bands {
	return Bands{Oversold: 0.16, Overbought: 0.84}
}

// Percentiler answers "how much probability mass lies at or below x".
type Percentiler interface {
	Percentile(x float64) float64
}

// Upper bounds applied to each share before renormalization.
const (
	maxBuyers  = 0.9
	maxHolders = 0.8
	maxSellers = 0.9
)

// MapPosition locates current within dist and converts the percentile into ratios.
func MapPosition(dist Percentiler, current float64, bands Bands) (float64, model.PsychologyRatios) {
	p := dist.Percentile(current)
	return p, RatiosForPercentile(p, bands)
}

// RatiosForPercentile applies the three-band rule to percentile p.
// Both thresholds are strict: p equal to a threshold belongs to the normal band.
func RatiosForPercentile(p float64, bands Bands) model.PsychologyRatios {
	var buyers, sellers float64
	switch {
	case p < bands.Oversold:
		buyers = 0.70 + (bands.Oversold-p)*0.5
		sellers = 0.10
	case p > bands.Overbought:
		sellers = 0.60 + (p-bands.Overbought)*0.8
		buyers = 0.15
	default:
		buyers = 0.40 + (0.5-p)*0.6
		sellers = 0.20 + (p-0.5)*0.6
	}
	holders := 1 - buyers - sellers

	buyers = clamp(buyers, 0, maxBuyers)
	holders = clamp(holders, 0, maxHolders)
	sellers = clamp(sellers, 0, maxSellers)

	total := buyers + holders + sellers
	if total <= 0 {
		return model.PsychologyRatios{Buyers: 1.0 / 3, Holders: 1.0 / 3, Sellers: 1.0 / 3}
	}
	return model.PsychologyRatios{
		Buyers:  buyers / total,
		Holders: holders / total,
		Sellers: sellers / total,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
