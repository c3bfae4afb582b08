package calculator

import (
	"math"
	"sort"

	"MarketPsyche/internal/model"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Grid is an evenly spaced discretization of the return axis.
type Grid struct {
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	Points int     `yaml:"points"`
}

// Values returns the grid points from Min to Max inclusive.
func (g Grid) Values() []float64 {
	xs := make([]float64, g.Points)
	return floats.Span(xs, g.Min, g.Max)
}

// KDEOptions tunes the density fit.
type KDEOptions struct {
	// BandwidthScale multiplies the Scott's-rule bandwidth. Values below 1 sharpen the fit.
	BandwidthScale float64
	// Grid is integrated over to answer percentile queries.
	Grid Grid
}

// DefaultKDEOptions returns a 0.8 bandwidth scale over [-0.10, 0.10] with 1000 points.
func DefaultKDEOptions() KDEOptions {
	return KDEOptions{
		BandwidthScale: 0.8,
		Grid:           Grid{Min: -0.10, Max: 0.10, Points: 1000},
	}
}

// KDE is a Gaussian kernel density estimate fitted to a filtered return sample.
type KDE struct {
	sample    []float64
	bandwidth float64
	outliers  int

	grid       []float64
	cumulative []float64 // trapezoidal mass from grid[0] to grid[i]
	total      float64
	peak       float64

	mean, std, skew, kurt float64
}

// FitKDE filters outliers from returns and fits a Gaussian KDE.
// A zero-variance sample or fewer than two surviving points yields
// *model.DegenerateDistributionError. A sample lying wholly outside the grid
// still fits; its percentiles fall back to the empirical fraction.
func FitKDE(returns []float64, opts KDEOptions) (*KDE, error) {
	def := DefaultKDEOptions()
	if opts.BandwidthScale <= 0 {
		opts.BandwidthScale = def.BandwidthScale
	}
	if opts.Grid.Points < 2 || opts.Grid.Max <= opts.Grid.Min {
		opts.Grid = def.Grid
	}

	filtered := FilterOutliers(returns)
	if len(filtered) < 2 {
		return nil, &model.DegenerateDistributionError{Reason: "fewer than two returns after outlier filtering"}
	}
	mean, std := stat.MeanStdDev(filtered, nil)
	if std == 0 || math.IsNaN(std) {
		return nil, &model.DegenerateDistributionError{Reason: "zero variance in returns"}
	}

	n := float64(len(filtered))
	k := &KDE{
		sample:    filtered,
		bandwidth: math.Pow(n, -0.2) * std * opts.BandwidthScale,
		outliers:  len(returns) - len(filtered),
		mean:      mean,
		std:       std,
		skew:      stat.Skew(filtered, nil),
		kurt:      stat.ExKurtosis(filtered, nil),
	}

	k.grid = opts.Grid.Values()
	density := k.DensityAt(k.grid)
	k.peak = k.grid[floats.MaxIdx(density)]
	k.cumulative = make([]float64, len(k.grid))
	for i := 1; i < len(k.grid); i++ {
		k.cumulative[i] = k.cumulative[i-1] + (density[i]+density[i-1])/2*(k.grid[i]-k.grid[i-1])
	}
	k.total = integrate.Trapezoidal(k.grid, density)
	if !(k.total > 0) {
		// Density underflows on every grid point.
		k.total = 0
		k.peak = math.Max(k.grid[0], math.Min(k.grid[len(k.grid)-1], mean))
	}
	return k, nil
}

// Bandwidth returns the kernel standard deviation in return units.
func (k *KDE) Bandwidth() float64 { return k.bandwidth }

// Density evaluates the estimate at x.
func (k *KDE) Density(x float64) float64 {
	sum := 0.0
	for _, xi := range k.sample {
		sum += distuv.UnitNormal.Prob((x - xi) / k.bandwidth)
	}
	return sum / (float64(len(k.sample)) * k.bandwidth)
}

// DensityAt evaluates the estimate at each of xs.
func (k *KDE) DensityAt(xs []float64) []float64 {
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = k.Density(x)
	}
	return ys
}

// Percentile returns the share of grid mass at or below x, in [0, 1].
// Values outside the grid are clamped to its edges.
func (k *KDE) Percentile(x float64) float64 {
	lo, hi := k.grid[0], k.grid[len(k.grid)-1]
	switch {
	case x <= lo:
		return 0
	case x >= hi:
		return 1
	}
	if k.total == 0 {
		return k.empiricalPercentile(x)
	}
	i := sort.SearchFloat64s(k.grid, x)
	// grid[i-1] < x <= grid[i]
	x0, x1 := k.grid[i-1], k.grid[i]
	d0 := k.Density(x0)
	dx := k.Density(x)
	mass := k.cumulative[i-1] + (d0+dx)/2*(x-x0)
	if x == x1 {
		mass = k.cumulative[i]
	}
	p := mass / k.total
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// empiricalPercentile is the share of the sample at or below x.
func (k *KDE) empiricalPercentile(x float64) float64 {
	n := 0
	for _, xi := range k.sample {
		if xi <= x {
			n++
		}
	}
	return float64(n) / float64(len(k.sample))
}

// Stats summarizes the filtered sample and the fitted density.
func (k *KDE) Stats() model.DistributionStats {
	sorted := make([]float64, len(k.sample))
	copy(sorted, k.sample)
	sort.Float64s(sorted)
	q := func(p float64) float64 { return stat.Quantile(p, stat.LinInterp, sorted, nil) }

	return model.DistributionStats{
		Mean:         k.mean,
		Std:          k.std,
		Skewness:     k.skew,
		Kurtosis:     k.kurt,
		PeakPosition: k.peak,
		Percentile5:  q(0.05),
		Percentile25: q(0.25),
		Percentile50: q(0.50),
		Percentile75: q(0.75),
		Percentile95: q(0.95),
		SampleSize:   len(k.sample),
		Outliers:     k.outliers,
	}
}
