package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed caching utilities
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) key(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.key(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	return c.client.Redis().Del(ctx, c.key(key)).Err()
}

// PushCapped appends a JSON value to a list and trims it to the last max entries
func (c *Cache) PushCapped(ctx context.Context, key string, value interface{}, max int64) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	fullKey := c.key(key)
	pipe := c.client.Redis().TxPipeline()
	pipe.RPush(ctx, fullKey, data)
	pipe.LTrim(ctx, fullKey, -max, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache push failed: %w", err)
	}
	return nil
}

// Range returns the raw JSON entries of a list, oldest first
func (c *Cache) Range(ctx context.Context, key string, last int64) ([][]byte, error) {
	if !c.client.Enabled() {
		return nil, nil
	}

	values, err := c.client.Redis().LRange(ctx, c.key(key), -last, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("cache range failed: %w", err)
	}

	out := make([][]byte, 0, len(values))
	for _, v := range values {
		out = append(out, []byte(v))
	}
	return out, nil
}

// Keys lists cache keys (without prefix) matching a pattern
func (c *Cache) Keys(ctx context.Context, pattern string) ([]string, error) {
	if !c.client.Enabled() {
		return nil, nil
	}

	base := c.key("")
	var (
		cursor uint64
		out    []string
	)
	for {
		keys, next, err := c.client.Redis().Scan(ctx, cursor, base+pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("cache scan failed: %w", err)
		}
		for _, k := range keys {
			out = append(out, k[len(base):])
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}

// Predefined TTLs
const (
	TTLShort  = 1 * time.Minute  // 단기 캐시
	TTLMedium = 10 * time.Minute // 통계 스냅샷
	TTLLong   = 24 * time.Hour   // 최신 평가
)

// Common cache key generators
func LatestAssessmentKey(source string) string {
	return fmt.Sprintf("assessment:latest:%s", source)
}

func HistoryKey(source string) string {
	return fmt.Sprintf("history:%s", source)
}

// SourceFromHistoryKey is the inverse of HistoryKey
func SourceFromHistoryKey(key string) string {
	const p = "history:"
	if len(key) > len(p) && key[:len(p)] == p {
		return key[len(p):]
	}
	return ""
}

func StatisticsKey() string {
	return "statistics"
}
