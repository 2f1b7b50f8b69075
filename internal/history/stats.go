package history

import (
	"time"

	"github.com/wonny/dqguard/internal/contracts"
)

// trendDeadband is the minimum mean quality change that counts as a trend
const trendDeadband = 0.1

// =============================================================================
// Pure functions over chronological snapshots
// =============================================================================

// ConsecutiveFailures counts HIGH/CRITICAL records from the newest backwards
func ConsecutiveFailures(records []contracts.HistoryRecord) int {
	n := 0
	for i := len(records) - 1; i >= 0; i-- {
		if !records[i].RiskLevel.IsFailure() {
			break
		}
		n++
	}
	return n
}

// FailureRate is the share of HIGH/CRITICAL records (0 when empty)
func FailureRate(records []contracts.HistoryRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	failed := 0
	for _, r := range records {
		if r.RiskLevel.IsFailure() {
			failed++
		}
	}
	return float64(failed) / float64(len(records))
}

// Last returns the newest n records, oldest first
func Last(records []contracts.HistoryRecord, n int) []contracts.HistoryRecord {
	if n <= 0 {
		return []contracts.HistoryRecord{}
	}
	if n >= len(records) {
		return records
	}
	return records[len(records)-n:]
}

// Since returns records with Timestamp >= since
func Since(records []contracts.HistoryRecord, since time.Time) []contracts.HistoryRecord {
	out := make([]contracts.HistoryRecord, 0, len(records))
	for _, r := range records {
		if !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	return out
}

// TrendOf compares mean quality score of the older half with the newer half
func TrendOf(records []contracts.HistoryRecord) contracts.Trend {
	if len(records) < 2 {
		return contracts.TrendStable
	}

	mid := len(records) / 2
	older := meanQuality(records[:mid])
	newer := meanQuality(records[mid:])

	switch diff := newer - older; {
	case diff > trendDeadband:
		return contracts.TrendImproving
	case diff < -trendDeadband:
		return contracts.TrendDeclining
	default:
		return contracts.TrendStable
	}
}

func meanQuality(records []contracts.HistoryRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range records {
		sum += r.QualityScore
	}
	return sum / float64(len(records))
}

// Summarize builds the per-assessment history stats
func Summarize(records []contracts.HistoryRecord, recentWindow time.Duration, now time.Time) contracts.HistoryStats {
	return contracts.HistoryStats{
		Samples:             len(records),
		ConsecutiveFailures: ConsecutiveFailures(records),
		RecentFailureRate:   FailureRate(Since(records, now.Add(-recentWindow))),
		Trend:               TrendOf(records),
	}
}
