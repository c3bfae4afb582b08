package psychology

import (
	"math"
	"strings"

	"MarketPsyche/internal/model"
)

// InsufficientSignal is returned when an upstream field is missing.
const InsufficientSignal = "Insufficient signal: the market position could not be characterized."

var riskMessages = map[model.RiskLevel]string{
	model.RiskLow:     "Risk is low; conditions look stable.",
	model.RiskMedium:  "Risk is moderate; a careful approach is warranted.",
	model.RiskHigh:    "Risk is high; caution is advised.",
	model.RiskExtreme: "Risk is extreme; the crowd is at a rare imbalance.",
}

// Interpret renders a short explanation of a reading. It never fails: when the
// ratios are empty, the sentiment is not a number or the tier is unknown it
// returns InsufficientSignal. percentile may be NaN to omit the position sentence.
func Interpret(r model.PsychologyRatios, sentiment float64, risk model.RiskLevel, percentile float64) string {
	if !(r.Sum() > 0) || math.IsNaN(sentiment) || !risk.Valid() {
		return InsufficientSignal
	}

	parts := make([]string, 0, 4)

	switch {
	case r.Buyers > 0.6:
		parts = append(parts, "Buying interest dominates.")
	case r.Sellers > 0.5:
		parts = append(parts, "Selling pressure is elevated.")
	default:
		parts = append(parts, "Most participants are waiting on the sidelines.")
	}

	switch {
	case sentiment > 0.5:
		parts = append(parts, "Greed is running high and the move may be overheating.")
	case sentiment < -0.5:
		parts = append(parts, "Fear is running high and the decline may be overdone.")
	default:
		parts = append(parts, "Sentiment is broadly balanced.")
	}

	parts = append(parts, riskMessages[risk])

	switch {
	case math.IsNaN(percentile):
	case percentile > 0.75:
		parts = append(parts, "The latest return sits in the top quarter of its distribution.")
	case percentile < 0.25:
		parts = append(parts, "The latest return sits in the bottom quarter of its distribution.")
	default:
		parts = append(parts, "The latest return sits within the normal range.")
	}

	return strings.Join(parts, " ")
}
