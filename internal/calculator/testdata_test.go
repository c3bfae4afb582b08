package calculator

import (
	"math"
	"time"

	"MarketPsyche/internal/model"
)

// zigzag is a fixed pattern of standardized moves reused across tests.
var zigzag = []float64{-1.5, 0.3, -0.8, 1.1, 0.0, -0.4, 1.6, -1.1, 0.6, -0.2, 0.9, -0.6, 0.2, 1.3, -1.3, 0.4}

// returnsFrom builds n returns of mean mu and scale sigma from the zigzag pattern.
func returnsFrom(n int, mu, sigma float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = mu + sigma*zigzag[i%len(zigzag)]
	}
	return out
}

// barsFromReturns compounds returns into daily bars starting at 100.
func barsFromReturns(returns []float64) []model.OHLCV {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	bars := []model.OHLCV{{Time: start, Open: price, High: price, Low: price, Close: price, Volume: 1000}}
	for i, r := range returns {
		price *= math.Exp(r)
		bars = append(bars, model.OHLCV{
			Time:   start.AddDate(0, 0, i+1),
			Open:   price,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: 1000,
		})
	}
	return bars
}
