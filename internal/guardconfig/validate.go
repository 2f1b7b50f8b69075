package guardconfig

import (
	"fmt"
	"net/url"
	"time"

	"github.com/wonny/dqguard/internal/quality"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints. Threshold errors are
// returned as *risk.ConfigError.
func Validate(s *Settings) error {
	// === Thresholds ===
	if err := s.Thresholds.Validate(); err != nil {
		return err
	}

	// === Quality ===
	if err := s.Quality.Validate(); err != nil {
		return ValidationError{"quality", err.Error()}
	}

	// === Sources ===
	names := make(map[string]struct{}, len(s.Sources))
	for i, src := range s.Sources {
		field := fmt.Sprintf("sources[%d]", i)
		if src.Name == "" {
			return ValidationError{field + ".name", "required"}
		}
		if _, dup := names[src.Name]; dup {
			return ValidationError{field + ".name", fmt.Sprintf("duplicate source %q", src.Name)}
		}
		names[src.Name] = struct{}{}

		switch quality.DataType(src.DataType) {
		case quality.DataTypeKline, quality.DataTypeQuote, quality.DataTypeGeneric, "":
		default:
			return ValidationError{field + ".data_type", "must be kline, quote or generic"}
		}

		switch src.Fetcher {
		case FetcherHTTP, FetcherHTML:
		default:
			return ValidationError{field + ".fetcher", "must be http or html"}
		}

		u, err := url.Parse(src.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ValidationError{field + ".url", "must be an absolute http(s) URL"}
		}

		if src.Fallback == src.Name {
			return ValidationError{field + ".fallback", "must differ from the source itself"}
		}
	}

	return nil
}

// Warn returns non-fatal findings
func Warn(s *Settings) []Warning {
	var warnings []Warning

	if len(s.EnabledSources()) == 0 {
		warnings = append(warnings, Warning{
			Code:    "NO_SOURCES",
			Message: "no enabled sources: monitor loop will idle",
		})
	}

	for _, src := range s.Sources {
		if src.Fetcher == FetcherHTML && src.Selector == "" {
			warnings = append(warnings, Warning{
				Code:    "HTML_NO_SELECTOR",
				Message: fmt.Sprintf("%s: no selector, first <table> is used", src.Name),
			})
		}
		if src.IsEnabled() && src.Fallback == "" {
			warnings = append(warnings, Warning{
				Code:    "NO_FALLBACK",
				Message: fmt.Sprintf("%s: no fallback, critical risk will BLOCK", src.Name),
			})
		}
	}

	// 지연 임계값이 모니터 주기보다 짧으면 정상 소스도 지연으로 보임
	if s.Thresholds.DelayMedium < time.Minute {
		warnings = append(warnings, Warning{
			Code:    "SHORT_DELAY_MEDIUM",
			Message: "delay_medium < 1m: normal polling gaps may count as delay",
		})
	}

	return warnings
}
