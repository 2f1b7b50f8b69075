package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/wonny/dqguard/internal/contracts"
	"github.com/wonny/dqguard/internal/engine"
	"github.com/wonny/dqguard/pkg/logger"
)

// ErrAlreadyRunning is returned by Start on a running monitor
var ErrAlreadyRunning = errors.New("monitor already running")

// State of the monitor loop
type State string

const (
	StateStopped State = "STOPPED"
	StateRunning State = "RUNNING"
)

// Assessor is the part of the engine the monitor drives
type Assessor interface {
	Assess(ctx context.Context, data interface{}, source, dataType string, actx engine.AssessContext) contracts.RiskAssessment
}

// Observer receives monitor metrics
type Observer interface {
	FetchFailed(source string)
	ObserveTick(elapsed time.Duration)
}

// Source is one polled feed
type Source struct {
	Name     string
	DataType string
	Fetcher  Fetcher
}

// Config controls the loop
type Config struct {
	Interval     time.Duration
	Workers      int
	FetchTimeout time.Duration
	FetchRPS     float64 // 0 = unlimited
}

// DefaultConfig returns defaults matching pkg/config
func DefaultConfig() Config {
	return Config{
		Interval:     time.Minute,
		Workers:      4,
		FetchTimeout: 20 * time.Second,
		FetchRPS:     5,
	}
}

// Status is a point-in-time view for the API
type Status struct {
	State        State      `json:"state"`
	Sources      []string   `json:"sources"`
	Interval     string     `json:"interval"`
	Ticks        int64      `json:"ticks"`
	FetchErrors  int64      `json:"fetch_errors"`
	LastTick     *time.Time `json:"last_tick,omitempty"`
	LastDuration string     `json:"last_duration,omitempty"`
}

// Monitor polls sources on a ticker and feeds the engine
// ⭐ SSOT: 주기적 소스 평가 루프는 여기서만
type Monitor struct {
	cfg      Config
	assessor Assessor
	observer Observer
	logger   *logger.Logger
	limiter  *rate.Limiter

	mu       sync.Mutex
	sources  []Source
	state    State
	cancel   context.CancelFunc
	done     chan struct{}
	tickMu   sync.Mutex // ticks never overlap
	ticks    int64
	errs     int64
	lastTick time.Time
	lastDur  time.Duration
}

// New creates a stopped monitor. observer may be nil.
func New(cfg Config, assessor Assessor, observer Observer, log *logger.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultConfig().FetchTimeout
	}

	limit := rate.Inf
	burst := 1
	if cfg.FetchRPS > 0 {
		limit = rate.Limit(cfg.FetchRPS)
		burst = cfg.Workers
	}

	return &Monitor{
		cfg:      cfg,
		assessor: assessor,
		observer: observer,
		logger:   log.Module("monitor"),
		limiter:  rate.NewLimiter(limit, burst),
		state:    StateStopped,
	}
}

// AddSource registers a feed; safe while running, picked up next tick
func (m *Monitor) AddSource(s Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = append(m.sources, s)
}

// State returns the current state
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start launches the loop. The first tick runs immediately.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateRunning {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.state = StateRunning

	go m.loop(ctx, m.done)

	m.logger.WithFields(map[string]interface{}{
		"interval": m.cfg.Interval.String(),
		"workers":  m.cfg.Workers,
		"sources":  len(m.sources),
	}).Info("Monitor started")
	return nil
}

// Stop cancels the loop and waits for in-flight assessments
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.state != StateRunning {
		m.mu.Unlock()
		return
	}
	cancel, done := m.cancel, m.done
	m.state = StateStopped
	m.mu.Unlock()

	cancel()
	<-done
	m.logger.Info("Monitor stopped")
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RunOnce(ctx)
		}
	}
}

// RunOnce fetches and assesses every source once. It returns the
// number of sources whose fetch failed.
func (m *Monitor) RunOnce(ctx context.Context) int {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	m.mu.Lock()
	sources := make([]Source, len(m.sources))
	copy(sources, m.sources)
	m.mu.Unlock()

	start := time.Now()
	var failedMu sync.Mutex
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Workers)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if !m.runSource(gctx, src) {
				failedMu.Lock()
				failed++
				failedMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(start)
	m.mu.Lock()
	m.ticks++
	m.errs += int64(failed)
	m.lastTick = start
	m.lastDur = elapsed
	m.mu.Unlock()

	if m.observer != nil {
		m.observer.ObserveTick(elapsed)
	}
	m.logger.WithFields(map[string]interface{}{
		"sources":  len(sources),
		"failed":   failed,
		"duration": elapsed.String(),
	}).Debug("Monitor tick completed")
	return failed
}

// runSource reports whether the source was fetched and assessed. A failed
// fetch is assessed as a nil batch so the source accrues failures. A panic
// anywhere in the source's pass counts as a failure for that source only.
func (m *Monitor) runSource(ctx context.Context, src Source) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.WithFields(map[string]interface{}{
				"source": src.Name,
				"panic":  fmt.Sprint(r),
			}).Error("Source pass panicked")
			ok = false
		}
	}()

	data, err := m.fetch(ctx, src)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		m.logger.WithFields(map[string]interface{}{
			"source": src.Name,
			"error":  err.Error(),
		}).Warn("Source fetch failed")
		if m.observer != nil {
			m.observer.FetchFailed(src.Name)
		}
		data = nil
	}

	m.assessor.Assess(ctx, data, src.Name, src.DataType, engine.AssessContext{
		NetworkIssues: err != nil,
	})
	return err == nil
}

func (m *Monitor) fetch(ctx context.Context, src Source) (data interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("fetcher panicked")
		}
	}()

	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	fctx, cancel := context.WithTimeout(ctx, m.cfg.FetchTimeout)
	defer cancel()
	return src.Fetcher.Fetch(fctx)
}

// Status returns a snapshot for the API
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.sources))
	for _, s := range m.sources {
		names = append(names, s.Name)
	}
	st := Status{
		State:       m.state,
		Sources:     names,
		Interval:    m.cfg.Interval.String(),
		Ticks:       m.ticks,
		FetchErrors: m.errs,
	}
	if !m.lastTick.IsZero() {
		t := m.lastTick
		st.LastTick = &t
		st.LastDuration = m.lastDur.String()
	}
	return st
}
