package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"MarketPsyche/internal/analysis"
	"MarketPsyche/internal/calculator"
	"MarketPsyche/internal/model"
	"MarketPsyche/internal/psychology"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram   TelegramConfig   `yaml:"telegram"`
	DataSource DataSourceConfig `yaml:"data_source"`
	Cache      CacheConfig      `yaml:"cache"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Watchlist  []WatchItem      `yaml:"watchlist" validate:"dive"`
	Database   DatabaseConfig   `yaml:"database"`
	LogLevel   string           `yaml:"log_level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// TelegramConfig enables the bot when BotToken is set.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
}

// DataSourceConfig selects and tunes the market data upstreams.
type DataSourceConfig struct {
	// Mode is "live" for the real APIs or "mock" for generated bars.
	Mode              string `yaml:"mode" validate:"oneof=live mock"`
	ExchangeBaseURL   string `yaml:"exchange_base_url" validate:"omitempty,url"`
	ExchangeAPIKey    string `yaml:"exchange_api_key"`
	YahooBaseURL      string `yaml:"yahoo_base_url" validate:"omitempty,url"`
	RequestsPerSecond int    `yaml:"requests_per_second" validate:"gte=0"`
	Proxy             string `yaml:"proxy"`
}

// CacheConfig tunes the in-process analysis cache and the optional Redis bar cache.
type CacheConfig struct {
	TTLSeconds    int    `yaml:"ttl_seconds" validate:"gt=0"`
	MaxEntries    int    `yaml:"max_entries" validate:"gte=0"`
	RedisAddr     string `yaml:"redis_addr" validate:"omitempty,hostname_port"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db" validate:"gte=0"`
	BarTTLSeconds int    `yaml:"bar_ttl_seconds" validate:"gte=0"`
}

// AnalysisConfig carries the pipeline tuning knobs.
type AnalysisConfig struct {
	MinReturns     int                       `yaml:"min_returns" validate:"gte=2"`
	BandwidthScale float64                   `yaml:"bandwidth_scale" validate:"gt=0,lte=5"`
	Grid           calculator.Grid           `yaml:"grid"`
	VolatilityGrid calculator.Grid           `yaml:"volatility_grid"`
	Bands          psychology.Bands          `yaml:"bands"`
	Risk           psychology.RiskThresholds `yaml:"risk"`
	// AlertRisk is the lowest tier pushed as an alert after a scheduled refresh.
	AlertRisk string `yaml:"alert_risk" validate:"oneof=low medium high extreme"`
}

// ScheduleConfig holds cron expressions with a seconds field.
type ScheduleConfig struct {
	RefreshCron string `yaml:"refresh_cron" validate:"required"`
	SweepCron   string `yaml:"sweep_cron" validate:"required"`
}

// WatchItem is one instrument refreshed on schedule.
type WatchItem struct {
	Symbol string `yaml:"symbol" validate:"required"`
	Kind   string `yaml:"kind" validate:"oneof=stock crypto"`
	Period string `yaml:"period" validate:"omitempty,oneof=1mo 3mo 6mo 1y 2y"`
}

// DatabaseConfig picks the snapshot recorder. PostgresDSN wins over SQLitePath.
type DatabaseConfig struct {
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Load reads config from a YAML file, loads a .env file next to the working
// directory if present, then applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"TELEGRAM_BOT_TOKEN": &cfg.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &cfg.Telegram.ChatID,
		"DATA_SOURCE_MODE":   &cfg.DataSource.Mode,
		"EXCHANGE_BASE_URL":  &cfg.DataSource.ExchangeBaseURL,
		"EXCHANGE_API_KEY":   &cfg.DataSource.ExchangeAPIKey,
		"YAHOO_BASE_URL":     &cfg.DataSource.YahooBaseURL,
		"HTTPS_PROXY":        &cfg.DataSource.Proxy,
		"REDIS_ADDR":         &cfg.Cache.RedisAddr,
		"REDIS_PASSWORD":     &cfg.Cache.RedisPassword,
		"CRON_REFRESH":       &cfg.Schedule.RefreshCron,
		"SQLITE_PATH":        &cfg.Database.SQLitePath,
		"POSTGRES_DSN":       &cfg.Database.PostgresDSN,
		"LOG_LEVEL":          &cfg.LogLevel,
	}
	for name, dst := range str {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"CACHE_TTL_SECONDS":   &cfg.Cache.TTLSeconds,
		"CACHE_MAX_ENTRIES":   &cfg.Cache.MaxEntries,
		"REDIS_DB":            &cfg.Cache.RedisDB,
		"REQUESTS_PER_SECOND": &cfg.DataSource.RequestsPerSecond,
	}
	for name, dst := range ints {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env %s: %w", name, err)
		}
		*dst = n
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.DataSource.Mode == "" {
		cfg.DataSource.Mode = "live"
	}
	if cfg.Cache.TTLSeconds == 0 {
		cfg.Cache.TTLSeconds = 900
	}
	if cfg.Cache.BarTTLSeconds == 0 {
		cfg.Cache.BarTTLSeconds = 300
	}

	a := &cfg.Analysis
	if a.MinReturns == 0 {
		a.MinReturns = calculator.DefaultMinReturns
	}
	kde := calculator.DefaultKDEOptions()
	if a.BandwidthScale == 0 {
		a.BandwidthScale = kde.BandwidthScale
	}
	if a.Grid == (calculator.Grid{}) {
		a.Grid = kde.Grid
	}
	if a.VolatilityGrid == (calculator.Grid{}) {
		a.VolatilityGrid = psychology.DefaultVolatilityGrid()
	}
	if a.Bands == (psychology.Bands{}) {
		a.Bands = psychology.DefaultBands()
	}
	if a.Risk == (psychology.RiskThresholds{}) {
		a.Risk = psychology.DefaultRiskThresholds()
	}
	if a.AlertRisk == "" {
		a.AlertRisk = string(model.RiskHigh)
	}

	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 */15 * * * *"
	}
	if cfg.Schedule.SweepCron == "" {
		cfg.Schedule.SweepCron = "0 0 * * * *"
	}
	for i := range cfg.Watchlist {
		w := &cfg.Watchlist[i]
		w.Symbol = strings.ToUpper(strings.TrimSpace(w.Symbol))
		if w.Period == "" {
			w.Period = string(model.DefaultPeriod)
		}
	}
	if cfg.Database.SQLitePath == "" && cfg.Database.PostgresDSN == "" {
		cfg.Database.SQLitePath = "data/market_psyche.db"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "INFO"
	}
}

// Validate checks struct constraints and the ordering of analysis thresholds.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	a := c.Analysis
	for name, g := range map[string]calculator.Grid{"analysis.grid": a.Grid, "analysis.volatility_grid": a.VolatilityGrid} {
		if g.Points < 2 || g.Max <= g.Min {
			return fmt.Errorf("%s must span min < max with at least 2 points", name)
		}
	}
	if !(0 < a.Bands.Oversold && a.Bands.Oversold < a.Bands.Overbought && a.Bands.Overbought < 1) {
		return fmt.Errorf("analysis.bands must satisfy 0 < oversold < overbought < 1")
	}
	r := a.Risk
	if !(0 < r.LowSentiment && r.LowSentiment <= r.MediumSentiment && r.MediumSentiment <= r.HighSentiment) {
		return fmt.Errorf("analysis.risk sentiment thresholds must be positive and ascending")
	}
	if !(0 < r.LowRatio && r.LowRatio <= r.MediumRatio) {
		return fmt.Errorf("analysis.risk ratio thresholds must be positive and ascending")
	}
	return nil
}

// CacheTTL returns the analysis cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// BarTTL returns how long fetched bars stay in Redis.
func (c *Config) BarTTL() time.Duration {
	return time.Duration(c.Cache.BarTTLSeconds) * time.Second
}

// EngineOptions converts the analysis section into pipeline options.
func (c *Config) EngineOptions() analysis.Options {
	return analysis.Options{
		MinReturns: c.Analysis.MinReturns,
		KDE: calculator.KDEOptions{
			BandwidthScale: c.Analysis.BandwidthScale,
			Grid:           c.Analysis.Grid,
		},
		Bands:          c.Analysis.Bands,
		VolatilityGrid: c.Analysis.VolatilityGrid,
		Risk:           c.Analysis.Risk,
	}
}
