package quality

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
)

const (
	minIQRSamples = 4

	// 문자열 길이 표준편차 허용치
	symbolLengthStdMax = 2.0
	symbolPenalty      = 0.1

	intervalStdRatioMax = 0.5
	intervalPenalty     = 0.2

	// timeliness with no timestamp information
	neutralTimeliness = 0.8
)

// timeliness ladder: delay upper bound → score
var timelinessSteps = []struct {
	maxDelay time.Duration
	score    float64
}{
	{30 * time.Second, 1.0},
	{120 * time.Second, 0.9},
	{300 * time.Second, 0.7},
	{600 * time.Second, 0.5},
}

const staleTimeliness = 0.2

// TimelinessForDelay maps a data delay onto the timeliness ladder
func TimelinessForDelay(delay time.Duration) float64 {
	if delay < 0 {
		delay = 0
	}
	for _, step := range timelinessSteps {
		if delay <= step.maxDelay {
			return step.score
		}
	}
	return staleTimeliness
}

func completeness(b *Batch) (float64, error) {
	total := len(b.Rows) * len(b.Columns)
	if total == 0 {
		return 0, nil
	}

	missing := 0
	for i := range b.Rows {
		for _, col := range b.Columns {
			if !b.Present(i, col) {
				missing++
			}
		}
	}
	return clamp01(1 - float64(missing)/float64(total)), nil
}

func consistency(b *Batch) (float64, error) {
	score := 1.0

	for _, col := range b.Columns {
		if !isIdentifierColumn(col) {
			continue
		}
		lengths := make([]float64, 0, len(b.Rows))
		for i, row := range b.Rows {
			if !b.Present(i, col) {
				continue
			}
			s, err := cast.ToStringE(row[col])
			if err != nil {
				continue
			}
			lengths = append(lengths, float64(len(strings.TrimSpace(s))))
		}
		if stddev(lengths) > symbolLengthStdMax {
			score -= symbolPenalty
		}
	}

	if col, ok := b.first(timestampColumns); ok {
		if irregularIntervals(b.ColumnTimes(col)) {
			score -= intervalPenalty
		}
	}

	if score < 0 {
		score = 0
	}
	return score, nil
}

// irregularIntervals reports interval std-dev > 0.5 × mean interval
func irregularIntervals(times []time.Time) bool {
	if len(times) < 3 {
		return false
	}
	sorted := append([]time.Time(nil), times...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	intervals := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		intervals = append(intervals, sorted[i].Sub(sorted[i-1]).Seconds())
	}
	m := mean(intervals)
	if m <= 0 {
		return false
	}
	return stddev(intervals) > intervalStdRatioMax*m
}

// latestTimestamp prefers the explicit context timestamp, then the newest
// value across all timestamp-like columns
func latestTimestamp(b *Batch, explicit *time.Time) (time.Time, bool) {
	if explicit != nil && !explicit.IsZero() {
		return *explicit, true
	}
	if b == nil {
		return time.Time{}, false
	}

	var latest time.Time
	found := false
	for _, col := range timestampColumns {
		if !b.Has(col) {
			continue
		}
		for _, t := range b.ColumnTimes(col) {
			if !found || t.After(latest) {
				latest, found = t, true
			}
		}
	}
	return latest, found
}

func timeliness(b *Batch, explicit *time.Time, now time.Time) (float64, error) {
	latest, ok := latestTimestamp(b, explicit)
	if !ok {
		return neutralTimeliness, nil
	}
	return TimelinessForDelay(now.Sub(latest)), nil
}

// uniqueness keys rows on (symbol, timestamp) when both exist, else the
// whole row
func uniqueness(b *Batch) (float64, error) {
	if len(b.Rows) == 0 {
		return 1.0, nil
	}

	symCol, hasSym := b.first(symbolColumns)
	tsCol, hasTS := b.first(timestampColumns)

	seen := make(map[string]struct{}, len(b.Rows))
	dups := 0
	for _, row := range b.Rows {
		var key string
		if hasSym && hasTS {
			key = fmt.Sprintf("%v|%v", row[symCol], row[tsCol])
		} else {
			key = rowFingerprint(row, b.Columns)
		}
		if _, ok := seen[key]; ok {
			dups++
			continue
		}
		seen[key] = struct{}{}
	}
	return clamp01(1 - float64(dups)/float64(len(b.Rows))), nil
}

func rowFingerprint(row map[string]interface{}, cols []string) string {
	var sb strings.Builder
	for _, col := range cols {
		sb.WriteString(col)
		sb.WriteByte('=')
		sb.WriteString(fmt.Sprint(row[col]))
		sb.WriteByte(';')
	}
	return sb.String()
}

// anomalyScore = (IQR outliers + type extras) / (rows × numeric columns)
func anomalyScore(b *Batch, v Validator) (float64, error) {
	numeric := b.NumericColumns()
	if len(numeric) == 0 || len(b.Rows) == 0 {
		return 0, nil
	}

	total := 0
	for _, col := range numeric {
		total += iqrOutliers(b.ColumnFloats(col))
	}

	extra, err := v.ExtraAnomalies(b)
	if err != nil {
		return 0, err
	}
	total += extra

	return clamp01(float64(total) / float64(len(b.Rows)*len(numeric))), nil
}
