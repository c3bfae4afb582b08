package psychology

import (
	"math"

	"MarketPsyche/internal/calculator"
	"MarketPsyche/internal/model"

	"gonum.org/v1/gonum/stat"
)

// Densitier evaluates a fitted density over many points.
type Densitier interface {
	DensityAt(xs []float64) []float64
}

// DefaultVolatilityGrid is the narrow return window the dispersion adjustment samples.
func DefaultVolatilityGrid() calculator.Grid {
	return calculator.Grid{Min: -0.05, Max: 0.05, Points: 500}
}

const maxVolatilityAdjustment = 0.3

// Score reduces ratios and the density's dispersion to a value in [-1, 1].
// The dispersion term pushes the score further in the direction it already leans.
func Score(r model.PsychologyRatios, dist Densitier, grid calculator.Grid) float64 {
	base := (r.Buyers-r.Sellers)*2 - 0.1
	adj := VolatilityAdjustment(dist, grid)

	score := base
	switch {
	case base > 0:
		score += adj
	case base < 0:
		score -= adj
	}
	return clamp(score, -1, 1)
}

// VolatilityAdjustment is the variance of density samples over grid, scaled
// by 100 and capped at 0.3.
func VolatilityAdjustment(dist Densitier, grid calculator.Grid) float64 {
	if grid.Points < 2 || grid.Max <= grid.Min {
		grid = DefaultVolatilityGrid()
	}
	ys := dist.DensityAt(grid.Values())
	v := stat.PopVariance(ys, nil) * 100
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(maxVolatilityAdjustment, v)
}
