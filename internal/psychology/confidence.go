package psychology

import (
	"math"

	"MarketPsyche/internal/model"
)

// Confidence rates how much weight a reading deserves, in [0.1, 1].
// Larger samples, near-normal tails and moderate volatility score higher.
func Confidence(returns int, s model.DistributionStats) float64 {
	data := math.Min(1, float64(returns)/100)
	tails := math.Max(0.1, 1-math.Abs(s.Kurtosis)/10)
	calm := math.Max(0.1, 1-math.Min(1, s.Std*20))

	c := data*0.4 + tails*0.3 + calm*0.3
	if math.IsNaN(c) {
		return 0.1
	}
	return clamp(c, 0.1, 1)
}
