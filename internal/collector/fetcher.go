package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"MarketPsyche/internal/model"

	"golang.org/x/time/rate"
)

// Fetcher retrieves daily bars for one market.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol string, period model.Period) ([]model.OHLCV, error)
	Name() string
}

// DefaultTimeout bounds a single upstream request.
const DefaultTimeout = 30 * time.Second

// DefaultRequestsPerSecond is the per-upstream request rate when none is configured.
const DefaultRequestsPerSecond = 5

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{Timeout: DefaultTimeout, Transport: transport}
}

func newLimiter(rps int) *rate.Limiter {
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	return rate.NewLimiter(rate.Limit(rps), rps)
}
