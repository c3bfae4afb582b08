package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"MarketPsyche/internal/logger"
	"MarketPsyche/internal/model"

	"golang.org/x/time/rate"
)

// DefaultExchangeBaseURL is the public spot klines API root.
const DefaultExchangeBaseURL = "https://api.binance.com"

// maxKlines is the largest page the klines endpoint serves.
const maxKlines = 1000

// ExchangeFetcher serves crypto pairs such as "BTC/USDT" from a klines REST API.
type ExchangeFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	limiter *rate.Limiter
}

// NewExchangeFetcher creates a fetcher with optional proxy support.
func NewExchangeFetcher(baseURL, apiKey, proxyURL string, rps int) *ExchangeFetcher {
	if baseURL == "" {
		baseURL = DefaultExchangeBaseURL
	}
	return &ExchangeFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
		limiter: newLimiter(rps),
	}
}

func (f *ExchangeFetcher) Name() string { return "exchange" }

// exchangeSymbol turns "BTC/USDT" into "BTCUSDT".
func exchangeSymbol(pair string) string {
	return strings.ToUpper(strings.ReplaceAll(pair, "/", ""))
}

// FetchBars returns one daily kline per day of period, oldest first.
func (f *ExchangeFetcher) FetchBars(ctx context.Context, symbol string, period model.Period) ([]model.OHLCV, error) {
	limit := period.Days()
	if limit <= 0 {
		return nil, fmt.Errorf("unsupported period %q", period)
	}
	if limit > maxKlines {
		limit = maxKlines
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("exchange rate limit: %w", err)
	}

	params := url.Values{}
	params.Set("symbol", exchangeSymbol(symbol))
	params.Set("interval", "1d")
	params.Set("limit", strconv.Itoa(limit))
	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", f.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("X-MBX-APIKEY", f.APIKey)
	}

	logger.Debug().Str("symbol", symbol).Int("limit", limit).Msg("klines request")
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch klines: status %d, body: %s", resp.StatusCode, string(body))
	}

	var rows [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	bars := make([]model.OHLCV, 0, len(rows))
	for i, row := range rows {
		bar, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("kline %d: %w", i, err)
		}
		bars = append(bars, bar)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// parseKline reads [openTime, "open", "high", "low", "close", "volume", ...].
func parseKline(row []json.RawMessage) (model.OHLCV, error) {
	if len(row) < 6 {
		return model.OHLCV{}, fmt.Errorf("expected at least 6 fields, got %d", len(row))
	}
	var openTime int64
	if err := json.Unmarshal(row[0], &openTime); err != nil {
		return model.OHLCV{}, fmt.Errorf("open time: %w", err)
	}
	var vals [5]float64
	for j := range vals {
		var s string
		if err := json.Unmarshal(row[j+1], &s); err != nil {
			return model.OHLCV{}, fmt.Errorf("field %d: %w", j+1, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.OHLCV{}, fmt.Errorf("field %d: %w", j+1, err)
		}
		vals[j] = v
	}
	return model.OHLCV{
		Time:   time.UnixMilli(openTime).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
