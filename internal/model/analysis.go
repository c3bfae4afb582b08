package model

import "time"

// PsychologyRatios splits market participants into buyers, holders and sellers.
// The three shares sum to 1.
type PsychologyRatios struct {
	Buyers  float64 `json:"buyers"`
	Holders float64 `json:"holders"`
	Sellers float64 `json:"sellers"`
}

// Sum returns buyers + holders + sellers.
func (r PsychologyRatios) Sum() float64 {
	return r.Buyers + r.Holders + r.Sellers
}

// Max returns the largest of the three shares.
func (r PsychologyRatios) Max() float64 {
	m := r.Buyers
	if r.Holders > m {
		m = r.Holders
	}
	if r.Sellers > m {
		m = r.Sellers
	}
	return m
}

// RiskLevel is an ordered risk tier.
type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskExtreme RiskLevel = "extreme"
)

// RiskLevels lists every tier from least to most severe.
var RiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskExtreme}

// Rank returns the tier's position in RiskLevels, or -1 for an unknown tier.
func (l RiskLevel) Rank() int {
	for i, r := range RiskLevels {
		if r == l {
			return i
		}
	}
	return -1
}

// Valid reports whether l is one of the known tiers.
func (l RiskLevel) Valid() bool { return l.Rank() >= 0 }

// AtLeast reports whether l is as severe as other or more.
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return l.Valid() && l.Rank() >= other.Rank()
}

// DistributionStats summarizes the fitted return distribution.
type DistributionStats struct {
	Mean         float64 `json:"mean"`
	Std          float64 `json:"std"`
	Skewness     float64 `json:"skewness"`
	Kurtosis     float64 `json:"kurtosis"`
	PeakPosition float64 `json:"peak_position"`
	Percentile5  float64 `json:"percentile_5"`
	Percentile25 float64 `json:"percentile_25"`
	Percentile50 float64 `json:"percentile_50"`
	Percentile75 float64 `json:"percentile_75"`
	Percentile95 float64 `json:"percentile_95"`
	SampleSize   int     `json:"sample_size"`
	Outliers     int     `json:"outliers"`
}

// Zone is a named shaded band of the density chart.
type Zone struct {
	Name  string  `json:"name"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// VisualizationData holds density curve samples for charting.
type VisualizationData struct {
	X               []float64 `json:"x_values"`
	Y               []float64 `json:"y_values"`
	CurrentPosition float64   `json:"current_position"`
	Zones           []Zone    `json:"zones"`
}

// AnalysisResult is the complete, cacheable outcome of one analysis.
type AnalysisResult struct {
	ID             string            `json:"id"`
	Instrument     string            `json:"instrument"`
	Kind           MarketKind        `json:"market_kind"`
	Period         Period            `json:"period"`
	CurrentPrice   float64           `json:"current_price"`
	CurrentReturn  float64           `json:"current_return"`
	Percentile     float64           `json:"percentile"`
	Ratios         PsychologyRatios  `json:"psychology_ratios"`
	Sentiment      float64           `json:"sentiment_score"`
	Risk           RiskLevel         `json:"risk_level"`
	Interpretation string            `json:"interpretation"`
	Distribution   DistributionStats `json:"distribution_stats"`
	Visualization  VisualizationData `json:"visualization_data"`
	Confidence     float64           `json:"confidence_score"`
	DataPoints     int               `json:"data_points_count"`
	CreatedAt      time.Time         `json:"created_at"`
}
