package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wonny/dqguard/internal/contracts"
	"github.com/wonny/dqguard/pkg/logger"
	"github.com/wonny/dqguard/pkg/redis"
)

// RedisMirror copies every assessment's history record into a capped
// Redis list so a restarted process can warm its Store
type RedisMirror struct {
	cache    *redis.Cache
	capacity int64
	logger   *logger.Logger
}

// NewRedisMirror creates a mirror; a disabled cache makes it a no-op
func NewRedisMirror(cache *redis.Cache, capacity int, log *logger.Logger) *RedisMirror {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RedisMirror{
		cache:    cache,
		capacity: int64(capacity),
		logger:   log.Module("history"),
	}
}

// Name identifies the mirror as a dispatcher sink
func (m *RedisMirror) Name() string {
	return "history-redis-mirror"
}

// Handle pushes the assessment's record onto the source list
func (m *RedisMirror) Handle(ctx context.Context, a contracts.RiskAssessment) error {
	if err := m.cache.PushCapped(ctx, redis.HistoryKey(a.Source), a.Record(), m.capacity); err != nil {
		return fmt.Errorf("mirror history for %s: %w", a.Source, err)
	}
	return nil
}

// Load restores every mirrored source into store and returns the number of
// sources restored
func (m *RedisMirror) Load(ctx context.Context, store *Store) (int, error) {
	keys, err := m.cache.Keys(ctx, redis.HistoryKey("*"))
	if err != nil {
		return 0, fmt.Errorf("list mirrored sources: %w", err)
	}

	restored := 0
	for _, key := range keys {
		source := redis.SourceFromHistoryKey(key)
		if source == "" {
			continue
		}

		raw, err := m.cache.Range(ctx, key, int64(store.Capacity()))
		if err != nil {
			return restored, fmt.Errorf("load history for %s: %w", source, err)
		}

		records := make([]contracts.HistoryRecord, 0, len(raw))
		for _, data := range raw {
			var rec contracts.HistoryRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				m.logger.WithFields(map[string]interface{}{
					"source": source,
					"error":  err.Error(),
				}).Warn("Skipping corrupt history entry")
				continue
			}
			records = append(records, rec)
		}

		store.Restore(source, records)
		restored++
	}

	if restored > 0 {
		m.logger.WithField("sources", restored).Info("History warm start complete")
	}
	return restored, nil
}
