package quality

import (
	"math"
	"regexp"
	"strings"

	"github.com/spf13/cast"
)

const quoteMaxChangePct = 20.0

// Symbol formats accepted for quotes: A-share, Hong Kong, US
var symbolPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{6}\.(SH|SZ|BJ)$`),
	regexp.MustCompile(`^\d{1,5}\.HK$`),
	regexp.MustCompile(`^[A-Z]{1,5}\.US$`),
}

// ValidSymbol reports whether s matches a supported market format
func ValidSymbol(s string) bool {
	s = strings.TrimSpace(s)
	for _, p := range symbolPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// QuoteValidator checks realtime quote snapshots
type QuoteValidator struct{}

func (QuoteValidator) DataType() DataType { return DataTypeQuote }

// Accuracy flags non-positive prices and daily moves beyond ±20%
func (QuoteValidator) Accuracy(b *Batch) (float64, error) {
	changeCol, hasChange := b.first([]string{"change_pct", "pct_change"})

	checked, violations := 0, 0
	for i := range b.Rows {
		if !b.Present(i, "price") {
			continue
		}
		checked++

		price, ok := b.Float(i, "price")
		if !ok || price <= 0 {
			violations++
			continue
		}
		if hasChange {
			if pct, ok := b.Float(i, changeCol); ok && math.Abs(pct) > quoteMaxChangePct {
				violations++
			}
		}
	}
	return ratio(violations, checked), nil
}

// Validity checks symbol formats
func (QuoteValidator) Validity(b *Batch) (float64, error) {
	col, ok := b.first(symbolColumns)
	if !ok {
		return 1.0, nil
	}

	checked, invalid := 0, 0
	for i, row := range b.Rows {
		if !b.Present(i, col) {
			continue
		}
		checked++
		if !ValidSymbol(cast.ToString(row[col])) {
			invalid++
		}
	}
	return ratio(invalid, checked), nil
}

func (QuoteValidator) ExtraAnomalies(*Batch) (int, error) { return 0, nil }
