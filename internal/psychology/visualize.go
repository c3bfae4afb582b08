package psychology

import (
	"MarketPsyche/internal/calculator"
	"MarketPsyche/internal/model"
)

// Zone names.
const (
	ZoneOversold   = "oversold"
	ZoneNormal     = "normal"
	ZoneOverbought = "overbought"
)

const curvePoints = 100

// Visualize samples the density over mean ± 3σ and marks the ±2σ zones.
func Visualize(dist Densitier, current float64, s model.DistributionStats) model.VisualizationData {
	lo := s.Mean - 3*s.Std
	hi := s.Mean + 3*s.Std
	xs := calculator.Grid{Min: lo, Max: hi, Points: curvePoints}.Values()

	oversold := s.Mean - 2*s.Std
	overbought := s.Mean + 2*s.Std

	return model.VisualizationData{
		X:               xs,
		Y:               dist.DensityAt(xs),
		CurrentPosition: current,
		Zones: []model.Zone{
			{Name: ZoneOversold, Start: lo, End: oversold},
			{Name: ZoneNormal, Start: oversold, End: overbought},
			{Name: ZoneOverbought, Start: overbought, End: hi},
		},
	}
}
