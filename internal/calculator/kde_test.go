package calculator

import (
	"testing"

	"MarketPsyche/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitKDE_DensityAndPercentile(t *testing.T) {
	k, err := FitKDE(returnsFrom(100, 0, 0.02), DefaultKDEOptions())
	require.NoError(t, err)

	for _, x := range []float64{-0.05, -0.01, 0, 0.01, 0.05} {
		assert.GreaterOrEqual(t, k.Density(x), 0.0)
	}
	assert.Greater(t, k.Density(0), k.Density(0.06))

	assert.Equal(t, 0.0, k.Percentile(-0.5), "below the grid clamps to 0")
	assert.Equal(t, 1.0, k.Percentile(0.5), "above the grid clamps to 1")
	assert.InDelta(t, 0.5, k.Percentile(0), 0.08)

	prev := -1.0
	for x := -0.1; x <= 0.1; x += 0.005 {
		p := k.Percentile(x)
		assert.GreaterOrEqual(t, p, prev, "percentile must be monotone")
		prev = p
	}
}

func TestFitKDE_BandwidthScale(t *testing.T) {
	returns := returnsFrom(64, 0, 0.01)
	sharp, err := FitKDE(returns, DefaultKDEOptions())
	require.NoError(t, err)
	wide, err := FitKDE(returns, KDEOptions{BandwidthScale: 1, Grid: DefaultKDEOptions().Grid})
	require.NoError(t, err)

	assert.InDelta(t, 0.8, sharp.Bandwidth()/wide.Bandwidth(), 1e-12)
}

func TestFitKDE_Stats(t *testing.T) {
	returns := returnsFrom(80, 0.002, 0.01)
	k, err := FitKDE(returns, DefaultKDEOptions())
	require.NoError(t, err)

	s := k.Stats()
	assert.InDelta(t, 0.002, s.Mean, 0.002)
	assert.Greater(t, s.Std, 0.0)
	assert.Equal(t, 80, s.SampleSize)
	assert.Equal(t, 0, s.Outliers)
	assert.Less(t, s.Percentile5, s.Percentile25)
	assert.Less(t, s.Percentile25, s.Percentile75)
	assert.Less(t, s.Percentile75, s.Percentile95)
	assert.InDelta(t, s.Mean, s.PeakPosition, 3*s.Std)
}

func TestFitKDE_Degenerate(t *testing.T) {
	_, err := FitKDE(make([]float64, 30), DefaultKDEOptions())

	var degenerate *model.DegenerateDistributionError
	require.ErrorAs(t, err, &degenerate)
	assert.Contains(t, degenerate.Error(), "zero variance")
}

// A lone move on a flat tape survives the 3σ filter only while it stays within
// √(n-1) population σ of the mean, i.e. for up to nine zero returns.
func TestFitKDE_SingleMoveOnFlatTape(t *testing.T) {
	short := make([]float64, 9)
	short[8] = 0.02
	_, err := FitKDE(short, DefaultKDEOptions())
	require.NoError(t, err)

	long := make([]float64, 11)
	long[10] = 0.02
	_, err = FitKDE(long, DefaultKDEOptions())
	var degenerate *model.DegenerateDistributionError
	require.ErrorAs(t, err, &degenerate)
	assert.Contains(t, degenerate.Error(), "zero variance")
}

func TestFitKDE_SampleOutsideGrid(t *testing.T) {
	above, err := FitKDE(returnsFrom(30, 0.25, 0.001), DefaultKDEOptions())
	require.NoError(t, err)
	assert.Equal(t, 1.0, above.Percentile(0.25), "current return clamps to the upper edge")
	assert.Equal(t, 0.0, above.Percentile(0.05), "no sample lies at or below an in-grid point")
	assert.Equal(t, 0.10, above.Stats().PeakPosition)
	assert.Equal(t, 30, above.Stats().SampleSize)

	below, err := FitKDE(returnsFrom(30, -0.25, 0.001), DefaultKDEOptions())
	require.NoError(t, err)
	assert.Equal(t, 0.0, below.Percentile(-0.25))
	assert.Equal(t, 1.0, below.Percentile(0.0))
	assert.Equal(t, -0.10, below.Stats().PeakPosition)
}
