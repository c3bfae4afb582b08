package calculator

import (
	"math"

	"MarketPsyche/internal/model"

	"gonum.org/v1/gonum/stat"
)

// DefaultMinReturns is the smallest sample a density is fitted to.
const DefaultMinReturns = 10

// LogReturns computes ln(close_t / close_{t-1}) over consecutive bars.
// Pairs with a non-positive close or a non-finite result are skipped.
// Fewer than minReturns surviving values yields *model.InsufficientDataError.
func LogReturns(bars []model.OHLCV, minReturns int) ([]float64, error) {
	if minReturns <= 0 {
		minReturns = DefaultMinReturns
	}
	closes := extractCloses(bars)
	returns := make([]float64, 0, len(closes))
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if prev <= 0 || cur <= 0 {
			continue
		}
		r := math.Log(cur / prev)
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		returns = append(returns, r)
	}
	if len(returns) < minReturns {
		return nil, &model.InsufficientDataError{Have: len(returns), Need: minReturns}
	}
	return returns, nil
}

// FilterOutliers drops values further than 3 population standard deviations
// from the mean of the unfiltered sample. It is a single pass: the surviving
// values are not filtered again against their own moments.
func FilterOutliers(returns []float64) []float64 {
	if len(returns) == 0 {
		return nil
	}
	mean, std := stat.PopMeanStdDev(returns, nil)
	kept := make([]float64, 0, len(returns))
	for _, r := range returns {
		if math.Abs(r-mean) > 3*std {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func extractCloses(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
