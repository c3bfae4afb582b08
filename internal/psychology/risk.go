package psychology

import (
	"math"

	"MarketPsyche/internal/model"
)

// RiskThresholds configures the tier boundaries. A reading is low when both
// |sentiment| < LowSentiment and max(ratio) < LowRatio, medium under the
// Medium pair, high when |sentiment| < HighSentiment, and extreme otherwise.
type RiskThresholds struct {
	LowSentiment    float64 `yaml:"low_sentiment"`
	LowRatio        float64 `yaml:"low_ratio"`
	MediumSentiment float64 `yaml:"medium_sentiment"`
	MediumRatio     float64 `yaml:"medium_ratio"`
	HighSentiment   float64 `yaml:"high_sentiment"`
}

// DefaultRiskThresholds returns 0.3/0.6, 0.6/0.75, 0.85.
func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{
		LowSentiment:    0.3,
		LowRatio:        0.6,
		MediumSentiment: 0.6,
		MediumRatio:     0.75,
		HighSentiment:   0.85,
	}
}

// RiskClassifier maps sentiment and ratio extremity to a tier.
type RiskClassifier struct {
	Thresholds RiskThresholds
}

// NewRiskClassifier creates a classifier; zero thresholds take the defaults.
func NewRiskClassifier(t RiskThresholds) *RiskClassifier {
	if t == (RiskThresholds{}) {
		t = DefaultRiskThresholds()
	}
	return &RiskClassifier{Thresholds: t}
}

// Classify returns the tier for a sentiment score and ratios.
func (c *RiskClassifier) Classify(sentiment float64, r model.PsychologyRatios) model.RiskLevel {
	t := c.Thresholds
	s := math.Abs(sentiment)
	peak := r.Max()
	switch {
	case s < t.LowSentiment && peak < t.LowRatio:
		return model.RiskLow
	case s < t.MediumSentiment && peak < t.MediumRatio:
		return model.RiskMedium
	case s < t.HighSentiment:
		return model.RiskHigh
	default:
		return model.RiskExtreme
	}
}
