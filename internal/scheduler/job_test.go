package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jobResult(i int, ok bool) JobResult {
	return JobResult{JobName: "j", StartTime: time.Unix(int64(i), 0), Success: ok}
}

func TestJobHistory_Bounded(t *testing.T) {
	h := newJobHistory(3)
	for i := 0; i < 5; i++ {
		h.AddResult(jobResult(i, i%2 == 0))
	}

	require.Equal(t, 3, h.Len())
	got := h.Results()
	assert.Equal(t, int64(2), got[0].StartTime.Unix())
	assert.Equal(t, int64(4), got[2].StartTime.Unix())

	latest := h.GetLatestResults(2)
	require.Len(t, latest, 2)
	assert.Equal(t, int64(3), latest[0].StartTime.Unix())
	assert.Empty(t, h.GetLatestResults(0))
	assert.Len(t, h.GetLatestResults(10), 3)

	assert.Len(t, h.GetFailedResults(), 1)
	assert.InDelta(t, 2.0/3.0, h.GetSuccessRate(), 1e-9)
	assert.Equal(t, 0.0, newJobHistory(0).GetSuccessRate())
}

func TestJobHistory_ResultsAreCopies(t *testing.T) {
	h := newJobHistory(2)
	h.AddResult(jobResult(1, true))

	got := h.Results()
	got[0].Success = false
	assert.Equal(t, 1.0, h.GetSuccessRate())
}

func TestJobHistory_ConcurrentAddAndRead(t *testing.T) {
	h := newJobHistory(maxJobResults)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			h.AddResult(jobResult(i, true))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = h.GetLatestResults(10)
			_ = h.GetSuccessRate()
		}
	}()
	wg.Wait()

	assert.Equal(t, maxJobResults, h.Len())
}
