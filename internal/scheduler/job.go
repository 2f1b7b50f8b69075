package scheduler

import (
	"context"
	"sync"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job
	Run(ctx context.Context) error

	// Schedule returns the cron expression (seconds field first),
	// e.g. "0 15 3 * * *" or "@every 5m"
	Schedule() string
}

// JobResult represents the result of a job execution
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// maxJobResults is the per-job history limit
const maxJobResults = 100

// JobHistory is a bounded, concurrency-safe ring of job results
type JobHistory struct {
	mu    sync.RWMutex
	buf   []JobResult
	start int
	size  int
}

func newJobHistory(capacity int) *JobHistory {
	if capacity <= 0 {
		capacity = maxJobResults
	}
	return &JobHistory{buf: make([]JobResult, capacity)}
}

// AddResult appends a result; the oldest is evicted at capacity
func (h *JobHistory) AddResult(result JobResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = result
		h.size++
		return
	}
	h.buf[h.start] = result
	h.start = (h.start + 1) % len(h.buf)
}

// Len returns the number of stored results
func (h *JobHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Results returns a chronological copy of the stored results
func (h *JobHistory) Results() []JobResult {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastLocked(h.size)
}

// GetLatestResults returns a copy of the latest n results, oldest first
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastLocked(n)
}

func (h *JobHistory) lastLocked(n int) []JobResult {
	if n > h.size {
		n = h.size
	}
	if n <= 0 {
		return []JobResult{}
	}
	out := make([]JobResult, n)
	from := h.size - n
	for i := 0; i < n; i++ {
		out[i] = h.buf[(h.start+from+i)%len(h.buf)]
	}
	return out
}

// GetFailedResults returns all failed results
func (h *JobHistory) GetFailedResults() []JobResult {
	failed := make([]JobResult, 0)
	for _, result := range h.Results() {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// GetSuccessRate returns the success rate (0.0 - 1.0)
func (h *JobHistory) GetSuccessRate() float64 {
	results := h.Results()
	if len(results) == 0 {
		return 0.0
	}

	successCount := 0
	for _, result := range results {
		if result.Success {
			successCount++
		}
	}
	return float64(successCount) / float64(len(results))
}
