package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dqguard/internal/contracts"
	"github.com/wonny/dqguard/pkg/logger"
)

type recorder struct {
	mu   sync.Mutex
	seen []contracts.RiskAssessment
}

func (r *recorder) handle(_ context.Context, a contracts.RiskAssessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, a)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func assessment(source string, score float64) contracts.RiskAssessment {
	return contracts.RiskAssessment{Source: source, RiskScore: score, RiskLevel: contracts.RiskLow}
}

func TestDispatcher_DeliversToAllSinks(t *testing.T) {
	d := NewDispatcher(DefaultConfig(), logger.NewNop())
	a, b := &recorder{}, &recorder{}
	d.RegisterFunc("a", a.handle)
	d.RegisterFunc("b", b.handle)

	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	assert.True(t, d.Dispatch(assessment("feedX", 0.1)))

	assert.Eventually(t, func() bool { return a.count() == 1 && b.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestDispatcher_FailingSinksAreIsolated(t *testing.T) {
	d := NewDispatcher(DefaultConfig(), logger.NewNop())
	good := &recorder{}

	d.RegisterFunc("panics", func(context.Context, contracts.RiskAssessment) error { panic("callback bug") })
	d.RegisterFunc("errors", func(context.Context, contracts.RiskAssessment) error { return errors.New("down") })
	d.RegisterFunc("good", good.handle)

	require.NoError(t, d.Start(context.Background()))
	for i := 0; i < 3; i++ {
		d.Dispatch(assessment("feedX", 0.1))
	}
	d.Stop()

	assert.Equal(t, 3, good.count())
	stats := d.Stats()
	assert.Equal(t, int64(6), stats.Failed)
	assert.Equal(t, int64(3), stats.Delivered)
}

func TestDispatcher_PreservesPerSourceOrder(t *testing.T) {
	d := NewDispatcher(Config{QueueSize: 1000, Workers: 4}, logger.NewNop())
	rec := &recorder{}
	d.RegisterFunc("rec", rec.handle)
	require.NoError(t, d.Start(context.Background()))

	for i := 0; i < 50; i++ {
		for s := 0; s < 3; s++ {
			require.True(t, d.Dispatch(assessment(fmt.Sprintf("src-%d", s), float64(i))))
		}
	}
	d.Stop()

	last := map[string]float64{}
	for _, a := range rec.seen {
		if prev, ok := last[a.Source]; ok {
			assert.Greater(t, a.RiskScore, prev, a.Source)
		}
		last[a.Source] = a.RiskScore
	}
	assert.Len(t, rec.seen, 150)
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	d := NewDispatcher(Config{QueueSize: 2, Workers: 1}, logger.NewNop())

	// 워커 미기동 상태: 큐만 채워짐
	assert.True(t, d.Dispatch(assessment("a", 0)))
	assert.True(t, d.Dispatch(assessment("a", 0)))
	assert.False(t, d.Dispatch(assessment("a", 0)))

	assert.Equal(t, int64(1), d.Stats().Dropped)
	assert.Equal(t, int64(2), d.Stats().Dispatched)
}

func TestDispatcher_CallbackTimeout(t *testing.T) {
	d := NewDispatcher(Config{CallbackTimeout: 20 * time.Millisecond}, logger.NewNop())

	var got error
	done := make(chan struct{})
	d.RegisterFunc("slow", func(ctx context.Context, _ contracts.RiskAssessment) error {
		<-ctx.Done()
		got = ctx.Err()
		close(done)
		return got
	})

	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()
	d.Dispatch(assessment("a", 0))

	select {
	case <-done:
		assert.ErrorIs(t, got, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("callback context never expired")
	}
}

func TestDispatcher_CallbackIgnoringContextIsAbandoned(t *testing.T) {
	d := NewDispatcher(Config{Workers: 1, QueueSize: 4, CallbackTimeout: 20 * time.Millisecond}, logger.NewNop())

	release := make(chan struct{})
	defer close(release)
	d.RegisterFunc("stuck", func(context.Context, contracts.RiskAssessment) error {
		<-release
		return nil
	})
	good := &recorder{}
	d.RegisterFunc("good", good.handle)

	require.NoError(t, d.Start(context.Background()))
	for i := 0; i < 3; i++ {
		d.Dispatch(assessment("a", 0))
	}

	assert.Eventually(t, func() bool { return good.count() == 3 }, time.Second, 5*time.Millisecond)
	d.Stop()
	assert.Equal(t, int64(3), d.Stats().Failed)
	assert.Equal(t, int64(3), d.Stats().Delivered)
}

func TestDispatcher_Remove(t *testing.T) {
	d := NewDispatcher(DefaultConfig(), logger.NewNop())
	rec := &recorder{}
	id := d.RegisterFunc("rec", rec.handle)

	assert.Equal(t, 1, d.Stats().Sinks)
	assert.True(t, d.Remove(id))
	assert.False(t, d.Remove(id))
	assert.Equal(t, 0, d.Stats().Sinks)

	require.NoError(t, d.Start(context.Background()))
	d.Dispatch(assessment("a", 0))
	d.Stop()
	assert.Equal(t, 0, rec.count())
}

func TestDispatcher_StartTwice(t *testing.T) {
	d := NewDispatcher(DefaultConfig(), logger.NewNop())
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	assert.ErrorIs(t, d.Start(context.Background()), ErrAlreadyStarted)
}

func TestDispatcher_DispatchAfterStop(t *testing.T) {
	d := NewDispatcher(DefaultConfig(), logger.NewNop())
	require.NoError(t, d.Start(context.Background()))
	d.Stop()

	assert.NotPanics(t, func() {
		assert.False(t, d.Dispatch(assessment("a", 0)))
	})
	d.Stop()
}
