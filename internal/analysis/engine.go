package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"MarketPsyche/internal/cache"
	"MarketPsyche/internal/calculator"
	"MarketPsyche/internal/logger"
	"MarketPsyche/internal/model"
	"MarketPsyche/internal/psychology"

	"github.com/google/uuid"
)

// Source supplies price history for an instrument.
type Source interface {
	Fetch(ctx context.Context, instrument string, kind model.MarketKind, period model.Period) (*model.PriceSeries, error)
}

// Options tunes the pipeline. Zero values take the package defaults.
type Options struct {
	MinReturns     int
	KDE            calculator.KDEOptions
	Bands          psychology.Bands
	VolatilityGrid calculator.Grid
	Risk           psychology.RiskThresholds
	Now            func() time.Time
}

// Engine runs the analysis pipeline and memoizes results in an AnalysisCache.
// It keeps no per-request state.
type Engine struct {
	source     Source
	cache      *cache.AnalysisCache
	opts       Options
	classifier *psychology.RiskClassifier
	startedAt  time.Time
}

// NewEngine creates an Engine reading from src and caching into c.
func NewEngine(src Source, c *cache.AnalysisCache, opts Options) *Engine {
	if opts.MinReturns <= 0 {
		opts.MinReturns = calculator.DefaultMinReturns
	}
	if opts.Bands == (psychology.Bands{}) {
		opts.Bands = psychology.DefaultBands()
	}
	if opts.VolatilityGrid.Points < 2 {
		opts.VolatilityGrid = psychology.DefaultVolatilityGrid()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		source:     src,
		cache:      c,
		opts:       opts,
		classifier: psychology.NewRiskClassifier(opts.Risk),
		startedAt:  opts.Now(),
	}
}

// Analyze returns the psychology reading for an instrument. Results are
// shared between concurrent callers and reused until the cache TTL passes.
// Failures return *Error and are never cached.
func (e *Engine) Analyze(ctx context.Context, instrument string, kind model.MarketKind, period model.Period) (*model.AnalysisResult, error) {
	key, err := e.key(instrument, kind, period)
	if err != nil {
		return nil, err
	}
	res, err := e.cache.GetOrCompute(ctx, key, func(ctx context.Context) (*model.AnalysisResult, error) {
		return e.run(ctx, key)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, newError(StageCached, err)
	}
	return res, nil
}

func (e *Engine) key(instrument string, kind model.MarketKind, period model.Period) (cache.Key, error) {
	instrument = strings.ToUpper(strings.TrimSpace(instrument))
	if instrument == "" {
		return cache.Key{}, invalidRequest("instrument is required", nil)
	}
	if _, err := model.ParseMarketKind(string(kind)); err != nil {
		return cache.Key{}, invalidRequest("unsupported market kind", err)
	}
	p, err := model.ParsePeriod(string(period))
	if err != nil {
		return cache.Key{}, invalidRequest("unsupported period", err)
	}
	return cache.Key{Instrument: instrument, Kind: kind, Period: p}, nil
}

// run executes every stage once for key.
func (e *Engine) run(ctx context.Context, key cache.Key) (*model.AnalysisResult, error) {
	start := e.opts.Now()
	log := func(stage Stage, err error) error {
		ae := newError(stage, err)
		logger.Warn().Str("instrument", key.Instrument).Str("kind", string(key.Kind)).
			Str("period", string(key.Period)).Str("stage", string(stage)).Str("error_kind", string(ae.Kind)).
			Err(err).Msg("analysis failed")
		return ae
	}

	series, err := e.source.Fetch(ctx, key.Instrument, key.Kind, key.Period)
	if err == nil && series == nil {
		err = errors.New("source returned no series")
	}
	if err == nil {
		err = series.Validate()
	}
	if err != nil {
		var du *model.DataUnavailableError
		if !errors.As(err, &du) {
			err = &model.DataUnavailableError{Instrument: key.Instrument, Kind: key.Kind, Cause: err}
		}
		return nil, log(StageFetching, err)
	}

	returns, err := calculator.LogReturns(series.Bars, e.opts.MinReturns)
	if err != nil {
		return nil, log(StageBuilding, err)
	}
	current := returns[len(returns)-1]

	dist, err := calculator.FitKDE(returns, e.opts.KDE)
	if err != nil {
		return nil, log(StageEstimating, err)
	}
	stats := dist.Stats()

	percentile, ratios := psychology.MapPosition(dist, current, e.opts.Bands)
	if ratios.Sum() == 0 {
		return nil, log(StageMapping, fmt.Errorf("percentile %v produced empty ratios", percentile))
	}

	sentiment := psychology.Score(ratios, dist, e.opts.VolatilityGrid)
	risk := e.classifier.Classify(sentiment, ratios)
	if !risk.Valid() {
		return nil, log(StageClassifying, fmt.Errorf("unknown risk tier %q", risk))
	}

	res := &model.AnalysisResult{
		ID:             uuid.NewString(),
		Instrument:     key.Instrument,
		Kind:           key.Kind,
		Period:         key.Period,
		CurrentPrice:   series.CurrentPrice(),
		CurrentReturn:  current,
		Percentile:     percentile,
		Ratios:         ratios,
		Sentiment:      sentiment,
		Risk:           risk,
		Interpretation: psychology.Interpret(ratios, sentiment, risk, percentile),
		Distribution:   stats,
		Visualization:  psychology.Visualize(dist, current, stats),
		Confidence:     psychology.Confidence(len(returns), stats),
		DataPoints:     len(series.Bars),
		CreatedAt:      e.opts.Now(),
	}

	logger.Info().Str("instrument", key.Instrument).Str("kind", string(key.Kind)).
		Str("period", string(key.Period)).Float64("percentile", percentile).
		Float64("sentiment", sentiment).Str("risk", string(risk)).
		Dur("elapsed", e.opts.Now().Sub(start)).Msg("analysis complete")
	return res, nil
}

// QuickResult is the headline subset of an AnalysisResult.
type QuickResult struct {
	Instrument     string                 `json:"instrument"`
	CurrentPrice   float64                `json:"current_price"`
	Ratios         model.PsychologyRatios `json:"psychology_ratios"`
	Sentiment      float64                `json:"sentiment_score"`
	Risk           model.RiskLevel        `json:"risk_level"`
	Interpretation string                 `json:"interpretation"`
	Confidence     float64                `json:"confidence_score"`
	CreatedAt      time.Time              `json:"created_at"`
}

// QuickAnalyze runs Analyze and keeps only the headline fields.
func (e *Engine) QuickAnalyze(ctx context.Context, instrument string, kind model.MarketKind, period model.Period) (*QuickResult, error) {
	res, err := e.Analyze(ctx, instrument, kind, period)
	if err != nil {
		return nil, err
	}
	return &QuickResult{
		Instrument:     res.Instrument,
		CurrentPrice:   res.CurrentPrice,
		Ratios:         res.Ratios,
		Sentiment:      res.Sentiment,
		Risk:           res.Risk,
		Interpretation: res.Interpretation,
		Confidence:     res.Confidence,
		CreatedAt:      res.CreatedAt,
	}, nil
}

// Distribution returns only the density chart data of an analysis.
func (e *Engine) Distribution(ctx context.Context, instrument string, kind model.MarketKind, period model.Period) (*model.VisualizationData, error) {
	res, err := e.Analyze(ctx, instrument, kind, period)
	if err != nil {
		return nil, err
	}
	v := res.Visualization
	return &v, nil
}

// InvalidateCache drops cached results; empty arguments match everything.
func (e *Engine) InvalidateCache(kind model.MarketKind, instrument string) int {
	n := e.cache.Invalidate(kind, strings.ToUpper(strings.TrimSpace(instrument)))
	logger.Info().Str("kind", string(kind)).Str("instrument", instrument).Int("removed", n).Msg("cache invalidated")
	return n
}

// SweepCache drops expired results.
func (e *Engine) SweepCache() int { return e.cache.Sweep() }

// HealthStatus reports engine uptime and cache state.
type HealthStatus struct {
	Status    string        `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	Uptime    time.Duration `json:"uptime"`
	Cache     cache.Stats   `json:"cache"`
}

// Health reports uptime and cache counters.
func (e *Engine) Health() HealthStatus {
	return HealthStatus{
		Status:    "healthy",
		StartedAt: e.startedAt,
		Uptime:    e.opts.Now().Sub(e.startedAt),
		Cache:     e.cache.Stats(),
	}
}
