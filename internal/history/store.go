package history

import (
	"sort"
	"sync"
	"time"

	"github.com/wonny/dqguard/internal/contracts"
)

// DefaultCapacity is the per-source record limit
const DefaultCapacity = 1000

// ring is a fixed-capacity FIFO of records for one source
type ring struct {
	mu    sync.Mutex
	buf   []contracts.HistoryRecord
	start int
	size  int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]contracts.HistoryRecord, capacity)}
}

func (r *ring) push(rec contracts.HistoryRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = rec
		r.size++
		return
	}
	// 가득 차면 가장 오래된 기록을 덮어쓴다
	r.buf[r.start] = rec
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) snapshot() []contracts.HistoryRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]contracts.HistoryRecord, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

func (r *ring) reset(records []contracts.HistoryRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(records) > len(r.buf) {
		records = records[len(records)-len(r.buf):]
	}
	copy(r.buf, records)
	r.start = 0
	r.size = len(records)
}

// Store keeps a bounded chronological history per source
// ⭐ SSOT: 소스별 평가 이력은 여기서만 보관
type Store struct {
	mu       sync.RWMutex
	capacity int
	sources  map[string]*ring
}

// NewStore creates a store; capacity <= 0 uses DefaultCapacity
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		sources:  make(map[string]*ring),
	}
}

// Capacity returns the per-source limit
func (s *Store) Capacity() int {
	return s.capacity
}

func (s *Store) get(source string) (*ring, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.sources[source]
	return r, ok
}

func (s *Store) getOrCreate(source string) *ring {
	if r, ok := s.get(source); ok {
		return r
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.sources[source]; ok {
		return r
	}
	r := newRing(s.capacity)
	s.sources[source] = r
	return r
}

// Append adds a record; the oldest is evicted at capacity
func (s *Store) Append(source string, rec contracts.HistoryRecord) {
	s.getOrCreate(source).push(rec)
}

// Snapshot returns a chronological copy of a source's records
func (s *Store) Snapshot(source string) []contracts.HistoryRecord {
	r, ok := s.get(source)
	if !ok {
		return []contracts.HistoryRecord{}
	}
	return r.snapshot()
}

// RecentWindow returns the newest n records, oldest first
func (s *Store) RecentWindow(source string, n int) []contracts.HistoryRecord {
	return Last(s.Snapshot(source), n)
}

// WindowedFailureRate is the failure rate over records newer than now-window
func (s *Store) WindowedFailureRate(source string, window time.Duration, now time.Time) float64 {
	return FailureRate(Since(s.Snapshot(source), now.Add(-window)))
}

// ConsecutiveFailures counts trailing HIGH/CRITICAL records
func (s *Store) ConsecutiveFailures(source string) int {
	return ConsecutiveFailures(s.Snapshot(source))
}

// Trend reports the quality trend of a source
func (s *Store) Trend(source string) contracts.Trend {
	return TrendOf(s.Snapshot(source))
}

// Len returns the number of stored records for a source
func (s *Store) Len(source string) int {
	r, ok := s.get(source)
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Sources lists known sources in sorted order
func (s *Store) Sources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.sources))
	for name := range s.sources {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Restore replaces a source's history; only the newest capacity records
// are kept. Records must be chronological.
func (s *Store) Restore(source string, records []contracts.HistoryRecord) {
	s.getOrCreate(source).reset(records)
}
