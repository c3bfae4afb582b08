package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"MarketPsyche/internal/analysis"
	"MarketPsyche/internal/logger"
	"MarketPsyche/internal/model"
	"MarketPsyche/internal/notifier"
	"MarketPsyche/internal/recorder"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// Analyzer is the part of analysis.Engine the scheduler drives.
type Analyzer interface {
	Analyze(ctx context.Context, instrument string, kind model.MarketKind, period model.Period) (*model.AnalysisResult, error)
	QuickAnalyze(ctx context.Context, instrument string, kind model.MarketKind, period model.Period) (*analysis.QuickResult, error)
	Health() analysis.HealthStatus
	SweepCache() int
}

// Sender delivers chat messages.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// WatchItem is one instrument refreshed on schedule.
type WatchItem struct {
	Symbol string
	Kind   model.MarketKind
	Period model.Period
}

func (w WatchItem) key() string {
	return fmt.Sprintf("%s:%s:%s", w.Kind, w.Symbol, w.Period)
}

// refreshConcurrency bounds parallel analyses during a watchlist refresh.
const refreshConcurrency = 4

// Scheduler runs the cron jobs and answers chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Engine    Analyzer
	Notifier  Sender
	Recorder  recorder.Recorder
	Watchlist []WatchItem
	AlertRisk model.RiskLevel
	Ctx       context.Context

	mu         sync.Mutex
	recorded   map[string]string          // watch key -> last recorded result ID
	lastAlerts map[string]model.RiskLevel // watch key -> tier of the last alert
}

// NewScheduler creates a Scheduler. A nil sender disables chat delivery.
func NewScheduler(ctx context.Context, engine Analyzer, sender Sender, rec recorder.Recorder, watchlist []WatchItem, alertRisk model.RiskLevel) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if !alertRisk.Valid() {
		alertRisk = model.RiskHigh
	}
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Engine:     engine,
		Notifier:   sender,
		Recorder:   rec,
		Watchlist:  watchlist,
		AlertRisk:  alertRisk,
		Ctx:        ctx,
		recorded:   map[string]string{},
		lastAlerts: map[string]model.RiskLevel{},
	}
}

// RegisterAll registers the watchlist refresh and cache sweep.
func (s *Scheduler) RegisterAll(refreshCron, sweepCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, func() { s.RefreshWatchlist(s.Ctx) }); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	if _, err := s.Cron.AddFunc(sweepCron, s.sweepTask); err != nil {
		return fmt.Errorf("register sweep task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Info().Int("watchlist", len(s.Watchlist)).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.Info().Msg("scheduler stopped")
}

// RefreshWatchlist analyzes every watched instrument, records new readings and
// alerts when a reading reaches AlertRisk. It returns the number of failures.
func (s *Scheduler) RefreshWatchlist(ctx context.Context) int {
	logger.Info().Int("instruments", len(s.Watchlist)).Msg("refreshing watchlist")

	var (
		g      errgroup.Group
		failMu sync.Mutex
		failed int
	)
	g.SetLimit(refreshConcurrency)
	for _, item := range s.Watchlist {
		item := item
		g.Go(func() error {
			if err := s.refreshOne(ctx, item); err != nil {
				failMu.Lock()
				failed++
				failMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Info().Int("instruments", len(s.Watchlist)).Int("failed", failed).Msg("watchlist refreshed")
	return failed
}

func (s *Scheduler) refreshOne(ctx context.Context, item WatchItem) error {
	res, err := s.Engine.Analyze(ctx, item.Symbol, item.Kind, item.Period)
	if err != nil {
		s.recordFailure(ctx, item, err)
		return err
	}
	s.recordResult(ctx, item, res)

	if !res.Risk.AtLeast(s.AlertRisk) {
		s.mu.Lock()
		delete(s.lastAlerts, item.key())
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	prev, alerted := s.lastAlerts[item.key()]
	s.lastAlerts[item.key()] = res.Risk
	s.mu.Unlock()
	if alerted && prev == res.Risk {
		return nil
	}
	logger.Warn().Str("instrument", item.Symbol).Str("risk", string(res.Risk)).Msg("risk alert")
	s.trySend(ctx, notifier.FormatRiskAlert(res))
	return nil
}

// recordResult stores res once; cached readings served again are skipped.
func (s *Scheduler) recordResult(ctx context.Context, item WatchItem, res *model.AnalysisResult) {
	s.mu.Lock()
	if s.recorded[item.key()] == res.ID {
		s.mu.Unlock()
		return
	}
	s.recorded[item.key()] = res.ID
	s.mu.Unlock()

	if err := s.Recorder.RecordAnalysis(ctx, res); err != nil {
		logger.Error().Err(err).Str("instrument", res.Instrument).Msg("record analysis")
	}
}

func (s *Scheduler) recordFailure(ctx context.Context, item WatchItem, err error) {
	evt := &recorder.FailureEvent{
		Instrument: item.Symbol,
		Kind:       item.Kind,
		Period:     item.Period,
		ErrorKind:  string(analysis.KindInternal),
		Message:    err.Error(),
	}
	var ae *analysis.Error
	if errors.As(err, &ae) {
		evt.Stage = string(ae.Stage)
		evt.ErrorKind = string(ae.Kind)
	}
	if rerr := s.Recorder.RecordFailure(ctx, evt); rerr != nil {
		logger.Error().Err(rerr).Str("instrument", item.Symbol).Msg("record failure")
	}
}

func (s *Scheduler) sweepTask() {
	n := s.Engine.SweepCache()
	logger.Debug().Int("removed", n).Msg("cache swept")
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		logger.Error().Err(err).Msg("send notification")
	}
}

// guessKind treats "BASE/QUOTE" pairs as crypto and anything else as a stock.
func guessKind(symbol string) model.MarketKind {
	if strings.Contains(symbol, "/") {
		return model.MarketCrypto
	}
	return model.MarketStock
}

// parseTarget reads "SYMBOL [kind] [period]" in any order after the symbol.
func parseTarget(args []string) (WatchItem, error) {
	if len(args) == 0 {
		return WatchItem{}, errors.New("symbol is required")
	}
	item := WatchItem{Symbol: strings.ToUpper(args[0]), Period: model.DefaultPeriod}
	item.Kind = guessKind(item.Symbol)
	for _, a := range args[1:] {
		a = strings.ToLower(a)
		if k, err := model.ParseMarketKind(a); err == nil {
			item.Kind = k
			continue
		}
		p, err := model.ParsePeriod(a)
		if err != nil {
			return WatchItem{}, fmt.Errorf("unknown argument %q", a)
		}
		item.Period = p
	}
	return item, nil
}

// HandleCommand answers a chat command.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i] // "/analyze@MyBot"
	}
	args := fields[1:]

	switch cmd {
	case "/analyze", "/quick":
		item, err := parseTarget(args)
		if err != nil {
			return "⚠️ " + err.Error() + "\n\n" + notifier.HelpText
		}
		if cmd == "/quick" {
			q, err := s.Engine.QuickAnalyze(ctx, item.Symbol, item.Kind, item.Period)
			if err != nil {
				return notifier.FormatError(item.Symbol, err)
			}
			return fmt.Sprintf("%s: sentiment %+.2f, risk %s\n%s", q.Instrument, q.Sentiment, q.Risk, q.Interpretation)
		}
		res, err := s.Engine.Analyze(ctx, item.Symbol, item.Kind, item.Period)
		if err != nil {
			s.recordFailure(ctx, item, err)
			return notifier.FormatError(item.Symbol, err)
		}
		s.recordResult(ctx, item, res)
		return notifier.FormatAnalysisReport(res)

	case "/history":
		item, err := parseTarget(args)
		if err != nil {
			return "⚠️ " + err.Error()
		}
		rows, err := s.Recorder.History(ctx, item.Symbol, item.Kind, 0)
		if err != nil {
			logger.Error().Err(err).Str("instrument", item.Symbol).Msg("load history")
			return "⚠️ history unavailable"
		}
		return notifier.FormatHistory(item.Symbol, rows)

	case "/symbols":
		kind := model.MarketStock
		if len(args) > 0 {
			k, err := model.ParseMarketKind(strings.ToLower(args[0]))
			if err != nil {
				return "⚠️ " + err.Error()
			}
			kind = k
		}
		return notifier.FormatSymbols(kind, analysis.SupportedSymbols(kind, 0))

	case "/refresh":
		failed := s.RefreshWatchlist(ctx)
		return fmt.Sprintf("Refreshed %d instruments, %d failed.", len(s.Watchlist), failed)

	case "/status":
		return notifier.FormatHealth(s.Engine.Health())

	default:
		return notifier.HelpText
	}
}
