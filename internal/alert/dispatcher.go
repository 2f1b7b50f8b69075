package alert

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/dqguard/internal/contracts"
	"github.com/wonny/dqguard/pkg/logger"
)

// ErrAlreadyStarted is returned by Start on a running dispatcher
var ErrAlreadyStarted = errors.New("dispatcher already started")

// Sink receives every dispatched assessment
type Sink interface {
	Name() string
	Handle(ctx context.Context, a contracts.RiskAssessment) error
}

// SinkFunc adapts a function to a Sink
type SinkFunc struct {
	name string
	fn   func(ctx context.Context, a contracts.RiskAssessment) error
}

// NewSinkFunc creates a named function sink
func NewSinkFunc(name string, fn func(ctx context.Context, a contracts.RiskAssessment) error) SinkFunc {
	return SinkFunc{name: name, fn: fn}
}

func (s SinkFunc) Name() string { return s.name }

func (s SinkFunc) Handle(ctx context.Context, a contracts.RiskAssessment) error {
	return s.fn(ctx, a)
}

// Config controls queueing and delivery
type Config struct {
	QueueSize       int
	Workers         int
	CallbackTimeout time.Duration
}

// DefaultConfig returns dispatcher defaults
func DefaultConfig() Config {
	return Config{
		QueueSize:       256,
		Workers:         2,
		CallbackTimeout: 5 * time.Second,
	}
}

// Stats are cumulative delivery counters
type Stats struct {
	Dispatched int64 `json:"dispatched"`
	Delivered  int64 `json:"delivered"`
	Failed     int64 `json:"failed"`
	Dropped    int64 `json:"dropped"`
	Sinks      int   `json:"sinks"`
}

type registration struct {
	id   string
	sink Sink
}

// Dispatcher fans assessments out to sinks off the caller's goroutine.
// Assessments of one source always land on the same worker, so every sink
// sees a source's assessments in order.
// ⭐ SSOT: 평가 결과 전파(콜백, 영속화, 웹소켓)는 여기서만
type Dispatcher struct {
	cfg    Config
	logger *logger.Logger

	sinksMu sync.RWMutex
	sinks   []registration

	queueMu sync.RWMutex
	queues  []chan contracts.RiskAssessment
	closed  bool

	startMu sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	dispatched atomic.Int64
	delivered  atomic.Int64
	failed     atomic.Int64
	dropped    atomic.Int64
}

// NewDispatcher creates a dispatcher; call Start to begin delivery
func NewDispatcher(cfg Config, log *logger.Logger) *Dispatcher {
	def := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.CallbackTimeout <= 0 {
		cfg.CallbackTimeout = def.CallbackTimeout
	}

	// 워커별 큐 크기 = 전체 / 워커 수 (최소 1)
	per := cfg.QueueSize / cfg.Workers
	if per < 1 {
		per = 1
	}
	queues := make([]chan contracts.RiskAssessment, cfg.Workers)
	for i := range queues {
		queues[i] = make(chan contracts.RiskAssessment, per)
	}

	return &Dispatcher{
		cfg:    cfg,
		logger: log.Module("alert"),
		queues: queues,
	}
}

// Register adds a sink and returns its id
func (d *Dispatcher) Register(sink Sink) string {
	id := uuid.NewString()

	d.sinksMu.Lock()
	d.sinks = append(d.sinks, registration{id: id, sink: sink})
	d.sinksMu.Unlock()

	d.logger.WithFields(map[string]interface{}{
		"sink": sink.Name(),
		"id":   id,
	}).Debug("Sink registered")
	return id
}

// RegisterFunc registers a function sink
func (d *Dispatcher) RegisterFunc(name string, fn func(ctx context.Context, a contracts.RiskAssessment) error) string {
	return d.Register(NewSinkFunc(name, fn))
}

// Remove unregisters a sink; false if the id is unknown
func (d *Dispatcher) Remove(id string) bool {
	d.sinksMu.Lock()
	defer d.sinksMu.Unlock()

	for i, r := range d.sinks {
		if r.id == id {
			d.sinks = append(d.sinks[:i:i], d.sinks[i+1:]...)
			return true
		}
	}
	return false
}

// Dispatch enqueues without blocking. A full queue drops the assessment.
func (d *Dispatcher) Dispatch(a contracts.RiskAssessment) bool {
	d.queueMu.RLock()
	defer d.queueMu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return false
	}

	select {
	case d.queues[d.shard(a.Source)] <- a:
		d.dispatched.Add(1)
		return true
	default:
		d.dropped.Add(1)
		d.logger.WithFields(map[string]interface{}{
			"source":     a.Source,
			"risk_level": a.RiskLevel,
		}).Warn("Dispatch queue full, assessment dropped")
		return false
	}
}

func (d *Dispatcher) shard(source string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(source))
	return int(h.Sum32() % uint32(len(d.queues)))
}

// Start launches the workers
func (d *Dispatcher) Start(ctx context.Context) error {
	d.startMu.Lock()
	defer d.startMu.Unlock()

	if d.started {
		return ErrAlreadyStarted
	}
	d.started = true

	ctx, d.cancel = context.WithCancel(ctx)
	for i, q := range d.queues {
		d.wg.Add(1)
		go d.worker(ctx, i, q)
	}

	d.logger.WithField("workers", len(d.queues)).Info("Alert dispatcher started")
	return nil
}

// Stop closes the queues and waits until queued assessments are delivered
func (d *Dispatcher) Stop() {
	d.queueMu.Lock()
	if !d.closed {
		d.closed = true
		for _, q := range d.queues {
			close(q)
		}
	}
	d.queueMu.Unlock()

	d.startMu.Lock()
	started := d.started
	d.startMu.Unlock()

	if started {
		d.wg.Wait()
		d.cancel()
	}
	d.logger.Info("Alert dispatcher stopped")
}

func (d *Dispatcher) worker(ctx context.Context, id int, queue <-chan contracts.RiskAssessment) {
	defer d.wg.Done()

	for {
		select {
		case a, ok := <-queue:
			if !ok {
				d.logger.WithField("worker", id).Debug("Dispatch worker drained")
				return
			}
			d.deliver(ctx, a)
		case <-ctx.Done():
			return
		}
	}
}

// deliver calls every sink; one failing sink never affects the others
func (d *Dispatcher) deliver(ctx context.Context, a contracts.RiskAssessment) {
	d.sinksMu.RLock()
	sinks := make([]registration, len(d.sinks))
	copy(sinks, d.sinks)
	d.sinksMu.RUnlock()

	for _, r := range sinks {
		if err := d.call(ctx, r.sink, a); err != nil {
			d.failed.Add(1)
			d.logger.WithFields(map[string]interface{}{
				"sink":   r.sink.Name(),
				"source": a.Source,
				"error":  err.Error(),
			}).Error("Sink failed")
			continue
		}
		d.delivered.Add(1)
	}
}

// call runs one sink under CallbackTimeout. A sink that ignores ctx is
// abandoned on timeout so the worker moves on to the next sink.
func (d *Dispatcher) call(ctx context.Context, sink Sink, a contracts.RiskAssessment) error {
	callCtx, cancel := context.WithTimeout(ctx, d.cfg.CallbackTimeout)
	defer cancel()

	done := make(chan error, 1) // buffered: 타임아웃 후에도 고루틴이 막히지 않음
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- sink.Handle(callCtx, a)
	}()

	select {
	case err := <-done:
		return err
	case <-callCtx.Done():
		return fmt.Errorf("sink %s: %w", sink.Name(), callCtx.Err())
	}
}

// Stats returns delivery counters
func (d *Dispatcher) Stats() Stats {
	d.sinksMu.RLock()
	n := len(d.sinks)
	d.sinksMu.RUnlock()

	return Stats{
		Dispatched: d.dispatched.Load(),
		Delivered:  d.delivered.Load(),
		Failed:     d.failed.Load(),
		Dropped:    d.dropped.Load(),
		Sinks:      n,
	}
}
