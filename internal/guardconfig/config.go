package guardconfig

import (
	"github.com/wonny/dqguard/internal/quality"
	"github.com/wonny/dqguard/internal/risk"
)

// Fetcher kinds
const (
	FetcherHTTP = "http" // JSON endpoint
	FetcherHTML = "html" // HTML table scrape
)

// Settings is the guard settings file
// ⭐ SSOT: 임계값/품질 가중치/소스 목록은 이 파일에서만 로드
type Settings struct {
	Thresholds risk.Thresholds `yaml:"thresholds" json:"thresholds"`
	Quality    quality.Config  `yaml:"quality" json:"quality"`
	Sources    []SourceConfig  `yaml:"sources" json:"sources"`
}

// SourceConfig describes one monitored feed
type SourceConfig struct {
	Name     string `yaml:"name" json:"name"`
	DataType string `yaml:"data_type" json:"data_type"`
	Fetcher  string `yaml:"fetcher" json:"fetcher"`
	URL      string `yaml:"url" json:"url"`
	Selector string `yaml:"selector,omitempty" json:"selector,omitempty"`
	Fallback string `yaml:"fallback,omitempty" json:"fallback,omitempty"`
	Enabled  *bool  `yaml:"enabled,omitempty" json:"enabled,omitempty"` // nil = true
}

// IsEnabled reports whether the source should be polled
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Defaults returns settings with production thresholds and no sources
func Defaults() *Settings {
	return &Settings{
		Thresholds: risk.DefaultThresholds(),
		Quality:    quality.DefaultConfig(),
		Sources:    []SourceConfig{},
	}
}

// EnabledSources returns sources with enabled unset or true
func (s *Settings) EnabledSources() []SourceConfig {
	out := make([]SourceConfig, 0, len(s.Sources))
	for _, src := range s.Sources {
		if src.IsEnabled() {
			out = append(out, src)
		}
	}
	return out
}
