package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"MarketPsyche/internal/analysis"
	"MarketPsyche/internal/cache"
	"MarketPsyche/internal/collector"
	"MarketPsyche/internal/config"
	"MarketPsyche/internal/logger"
	"MarketPsyche/internal/model"
	"MarketPsyche/internal/notifier"
	"MarketPsyche/internal/recorder"
	"MarketPsyche/internal/scheduler"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Init("market-psyche", "INFO")
		logger.Fatal().Err(err).Msg("load config")
	}
	logger.Init("market-psyche", cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("config validation")
	}
	logger.Info().Str("config", cfgPath).Msg("MarketPsyche starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	col, bars := newCollector(ctx, cfg)
	if bars != nil {
		defer bars.Close()
	}

	ac, err := cache.New(cache.Options{TTL: cfg.CacheTTL(), MaxEntries: cfg.Cache.MaxEntries})
	if err != nil {
		logger.Fatal().Err(err).Msg("init analysis cache")
	}
	engine := analysis.NewEngine(col, ac, cfg.EngineOptions())

	rec := newRecorder(ctx, cfg)
	defer rec.Close()

	var tn *notifier.TelegramNotifier
	var sender scheduler.Sender
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.DataSource.Proxy)
		sender = tn
	} else {
		logger.Warn().Msg("telegram not configured, alerts disabled")
	}

	watch := make([]scheduler.WatchItem, 0, len(cfg.Watchlist))
	for _, w := range cfg.Watchlist {
		watch = append(watch, scheduler.WatchItem{
			Symbol: w.Symbol,
			Kind:   model.MarketKind(w.Kind),
			Period: model.Period(w.Period),
		})
	}

	sched := scheduler.NewScheduler(ctx, engine, sender, rec, watch, model.RiskLevel(cfg.Analysis.AlertRisk))
	if err := sched.RegisterAll(cfg.Schedule.RefreshCron, cfg.Schedule.SweepCron); err != nil {
		logger.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info().Msg("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info().Msg("RUN_ON_START enabled, refreshing watchlist now")
		go sched.RefreshWatchlist(ctx)
	}

	logger.Info().Msg("MarketPsyche is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutdown signal received, stopping")
	cancel()
}

// newCollector also returns the Redis bar cache, if one was connected, so the caller can close it.
func newCollector(ctx context.Context, cfg *config.Config) (*collector.Collector, *collector.RedisBarCache) {
	ds := cfg.DataSource
	var stock, crypto collector.Fetcher
	if ds.Mode == "mock" {
		stock = &collector.MockFetcher{Price: 150}
		crypto = &collector.MockFetcher{Price: 60000}
	} else {
		stock = collector.NewYahooFetcher(ds.YahooBaseURL, ds.Proxy, ds.RequestsPerSecond)
		crypto = collector.NewExchangeFetcher(ds.ExchangeBaseURL, ds.ExchangeAPIKey, ds.Proxy, ds.RequestsPerSecond)
	}
	logger.Info().Str("stock", stock.Name()).Str("crypto", crypto.Name()).Msg("data sources")

	var (
		opts []collector.Option
		bc   *collector.RedisBarCache
	)
	if cfg.Cache.RedisAddr != "" {
		var err error
		bc, err = collector.NewRedisBarCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.BarTTL())
		if err != nil {
			logger.Warn().Err(err).Msg("redis bar cache unavailable, fetching directly")
			bc = nil
		} else {
			opts = append(opts, collector.WithBarCache(bc))
		}
	}
	return collector.NewCollector(stock, crypto, opts...), bc
}

func newRecorder(ctx context.Context, cfg *config.Config) recorder.Recorder {
	db := cfg.Database
	switch {
	case db.PostgresDSN != "":
		pr, err := recorder.NewPostgresRecorder(ctx, db.PostgresDSN)
		if err != nil {
			logger.Warn().Err(err).Msg("init postgres recorder failed, using noop")
			return recorder.NewNoopRecorder()
		}
		return pr
	case db.SQLitePath != "":
		sr, err := recorder.NewSQLiteRecorder(db.SQLitePath)
		if err != nil {
			logger.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			return recorder.NewNoopRecorder()
		}
		return sr
	}
	return recorder.NewNoopRecorder()
}
