package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wonny/dqguard/internal/alert"
	"github.com/wonny/dqguard/internal/contracts"
	"github.com/wonny/dqguard/internal/history"
	"github.com/wonny/dqguard/internal/quality"
	"github.com/wonny/dqguard/internal/risk"
	"github.com/wonny/dqguard/pkg/logger"
)

// unknownSource names assessments submitted without a source
const unknownSource = "unknown"

// Observer is notified after every assessment (metrics)
type Observer interface {
	ObserveAssessment(a contracts.RiskAssessment, elapsed time.Duration)
}

// Options configure an Engine
type Options struct {
	Quality         quality.Config
	Thresholds      risk.Thresholds
	HistoryCapacity int
	Dispatch        alert.Config
	Registry        quality.Registry // nil = kline/quote/generic
	Observer        Observer
	Latest          *LatestCache // optional cross-process latest cache
	Clock           func() time.Time
}

// DefaultOptions returns production defaults
func DefaultOptions() Options {
	return Options{
		Quality:         quality.DefaultConfig(),
		Thresholds:      risk.DefaultThresholds(),
		HistoryCapacity: history.DefaultCapacity,
		Dispatch:        alert.DefaultConfig(),
	}
}

// Engine scores batches, classifies risk and records history per source
// ⭐ SSOT: assess 진입점은 Engine.Assess 하나
type Engine struct {
	logger     *logger.Logger
	scorer     *quality.Scorer
	history    *history.Store
	dispatcher *alert.Dispatcher
	thresholds atomic.Pointer[risk.Thresholds]
	observer   Observer
	latestRC   *LatestCache
	now        func() time.Time

	fallbackMu sync.RWMutex
	fallbacks  map[string]string

	latestMu sync.RWMutex
	latest   map[string]contracts.RiskAssessment

	stats *counters
}

// New creates an engine. Invalid thresholds or quality config are
// rejected.
func New(opts Options, log *logger.Logger) (*Engine, error) {
	if err := opts.Quality.Validate(); err != nil {
		return nil, fmt.Errorf("invalid quality config: %w", err)
	}
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	e := &Engine{
		logger:     log.Module("engine"),
		scorer:     quality.NewScorer(opts.Quality, opts.Registry, log),
		history:    history.NewStore(opts.HistoryCapacity),
		dispatcher: alert.NewDispatcher(opts.Dispatch, log),
		observer:   opts.Observer,
		latestRC:   opts.Latest,
		now:        opts.Clock,
		fallbacks:  make(map[string]string),
		latest:     make(map[string]contracts.RiskAssessment),
		stats:      newCounters(),
	}
	th := opts.Thresholds
	e.thresholds.Store(&th)

	if e.latestRC != nil {
		e.dispatcher.Register(e.latestRC)
	}
	return e, nil
}

// Start starts callback delivery. Until Start is called, assessments
// queue up for sinks and are dropped once the queue is full.
func (e *Engine) Start(ctx context.Context) error {
	return e.dispatcher.Start(ctx)
}

// Close drains pending callbacks
func (e *Engine) Close() {
	e.dispatcher.Stop()
}

// Dispatcher exposes the sink registry for persistence and push sinks
func (e *Engine) Dispatcher() *alert.Dispatcher {
	return e.dispatcher
}

// History exposes the per-source history store
func (e *Engine) History() *history.Store {
	return e.history
}

// QualityConfig returns the aggregation config in use
func (e *Engine) QualityConfig() quality.Config {
	return e.scorer.Config()
}

// Assess scores data from source and returns the risk assessment.
// Data problems never surface as errors; they produce CRITICAL
// assessments.
func (e *Engine) Assess(ctx context.Context, data interface{}, source, dataType string, actx AssessContext) contracts.RiskAssessment {
	start := time.Now()
	now := e.now()
	th := e.thresholds.Load()
	if source == "" {
		source = unknownSource
	}
	dt := quality.ParseDataType(dataType)

	report, err := e.scorer.Report(data, dt, quality.EvalContext{Now: now, Timestamp: actx.Timestamp})
	if err != nil {
		e.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"source":    source,
			"data_type": dt,
			"error":     err.Error(),
		}).Warn("Unusable batch, assessing as critical")
	}

	records := e.history.Snapshot(source)
	delay := actx.delay(now)

	score := risk.Score(report, records, delay, *th)
	level := risk.Classify(score, report.Level)
	stats := history.Summarize(records, th.RecentFailureWindow, now)
	action := risk.RecommendAction(level, stats.ConsecutiveFailures, actx.FallbackAvailable || e.HasFallback(source), *th)

	mitigation := risk.Mitigate(risk.MitigationInput{
		Report:            report,
		Action:            action,
		Consecutive:       stats.ConsecutiveFailures,
		RecentFailureRate: stats.RecentFailureRate,
		Delay:             delay,
		NetworkIssues:     actx.NetworkIssues,
		HighLoad:          actx.HighLoad,
		Trend:             stats.Trend,
		Thresholds:        *th,
	})

	a := contracts.RiskAssessment{
		Source:               source,
		DataType:             string(dt),
		RiskLevel:            level,
		RiskScore:            score,
		RecommendedAction:    action,
		QualityReport:        report,
		RiskFactors:          mitigation.RiskFactors,
		MitigationStrategies: mitigation.Strategies,
		History:              stats,
		Timestamp:            now,
	}

	e.history.Append(source, a.Record())
	e.stats.record(a)

	e.latestMu.Lock()
	e.latest[source] = a
	e.latestMu.Unlock()

	if e.observer != nil {
		e.observer.ObserveAssessment(a, time.Since(start))
	}
	e.dispatcher.Dispatch(a)

	if level.IsFailure() {
		e.logger.WithFields(map[string]interface{}{
			"source":     source,
			"risk_level": level,
			"risk_score": score,
			"action":     action,
		}).Warn("Risk elevated")
	}
	return a
}

// SetThresholds validates and swaps thresholds; on error the old set stays
func (e *Engine) SetThresholds(t risk.Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	e.thresholds.Store(&t)
	e.logger.Info("Risk thresholds updated")
	return nil
}

// Thresholds returns the active threshold set
func (e *Engine) Thresholds() risk.Thresholds {
	return *e.thresholds.Load()
}

// AddRiskCallback registers fn for every future assessment and returns an
// id for RemoveRiskCallback. Callbacks run only after Start. A call still
// running after Dispatch.CallbackTimeout is abandoned and counted as failed.
func (e *Engine) AddRiskCallback(name string, fn func(contracts.RiskAssessment)) string {
	return e.dispatcher.RegisterFunc(name, func(_ context.Context, a contracts.RiskAssessment) error {
		fn(a)
		return nil
	})
}

// RemoveRiskCallback unregisters a callback
func (e *Engine) RemoveRiskCallback(id string) bool {
	return e.dispatcher.Remove(id)
}

// RegisterFallback records that source can be replaced by fallback
func (e *Engine) RegisterFallback(source, fallback string) {
	e.fallbackMu.Lock()
	defer e.fallbackMu.Unlock()

	if fallback == "" {
		delete(e.fallbacks, source)
		return
	}
	e.fallbacks[source] = fallback
}

// Fallback returns the registered fallback for source
func (e *Engine) Fallback(source string) (string, bool) {
	e.fallbackMu.RLock()
	defer e.fallbackMu.RUnlock()
	f, ok := e.fallbacks[source]
	return f, ok
}

// HasFallback reports whether source has a registered fallback
func (e *Engine) HasFallback(source string) bool {
	_, ok := e.Fallback(source)
	return ok
}

// Sources lists sources with history
func (e *Engine) Sources() []string {
	return e.history.Sources()
}

// Latest returns the newest assessment for source, checking the shared
// cache when this process has none
func (e *Engine) Latest(ctx context.Context, source string) (contracts.RiskAssessment, bool, error) {
	e.latestMu.RLock()
	a, ok := e.latest[source]
	e.latestMu.RUnlock()
	if ok || e.latestRC == nil {
		return a, ok, nil
	}
	return e.latestRC.Get(ctx, source)
}
