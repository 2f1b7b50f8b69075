package commands

import (
	"fmt"
	"time"

	"github.com/wonny/dqguard/internal/alert"
	"github.com/wonny/dqguard/internal/engine"
	"github.com/wonny/dqguard/internal/guardconfig"
	"github.com/wonny/dqguard/internal/monitor"
	"github.com/wonny/dqguard/pkg/config"
	"github.com/wonny/dqguard/pkg/httputil"
	"github.com/wonny/dqguard/pkg/logger"
	"github.com/wonny/dqguard/pkg/redis"
)

// fetchBudgetPerMinute is the shared per-source request budget across instances
const fetchBudgetPerMinute = 60

// loadSettings resolves the settings path (flag > env) and loads it.
// No path means built-in defaults.
func loadSettings(cfg *config.Config, log *logger.Logger) (*guardconfig.Settings, error) {
	path := settingsPath
	if path == "" {
		path = cfg.Guard.SettingsPath
	}
	if path == "" {
		log.Info("No settings file, using defaults")
		return guardconfig.Defaults(), nil
	}

	s, _, err := guardconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load settings %s: %w", path, err)
	}

	hash, err := guardconfig.Hash(s)
	if err != nil {
		return nil, fmt.Errorf("hash settings: %w", err)
	}
	log.WithFields(map[string]interface{}{
		"path":    path,
		"hash":    hash,
		"sources": len(s.Sources),
	}).Info("Settings loaded")

	for _, w := range guardconfig.Warn(s) {
		log.WithField("code", w.Code).Warn(w.Message)
	}
	return s, nil
}

// engineOptions maps env config + settings onto engine options
func engineOptions(cfg *config.Config, s *guardconfig.Settings) engine.Options {
	opts := engine.DefaultOptions()
	opts.Quality = s.Quality
	opts.Thresholds = s.Thresholds
	opts.HistoryCapacity = cfg.Guard.HistoryCapacity
	opts.Dispatch = alert.Config{
		QueueSize:       cfg.Guard.DispatchQueueSize,
		Workers:         cfg.Guard.DispatchWorkers,
		CallbackTimeout: cfg.Guard.CallbackTimeout,
	}
	return opts
}

// monitorSources builds one fetcher per enabled source. Each source gets
// its own HTTP client so the shared Redis budget is keyed per source.
func monitorSources(cfg *config.Config, s *guardconfig.Settings, limiter *redis.RateLimiter, log *logger.Logger) []monitor.Source {
	sources := make([]monitor.Source, 0, len(s.Sources))
	for _, src := range s.EnabledSources() {
		client := httputil.New(log, cfg.Guard.MonitorFetchTimeout).WithRetry(2, 500*time.Millisecond)
		if limiter != nil {
			client = client.WithRateLimiter(limiter, redis.FetchRateLimit(src.Name, fetchBudgetPerMinute, time.Minute))
		}

		var f monitor.Fetcher
		switch src.Fetcher {
		case guardconfig.FetcherHTML:
			f = monitor.NewHTMLTableFetcher(client, src.URL, src.Selector)
		default:
			f = monitor.NewHTTPFetcher(client, src.URL)
		}

		sources = append(sources, monitor.Source{
			Name:     src.Name,
			DataType: src.DataType,
			Fetcher:  f,
		})
	}
	return sources
}

// registerFallbacks copies settings fallbacks into the engine
func registerFallbacks(eng *engine.Engine, s *guardconfig.Settings) {
	for _, src := range s.Sources {
		if src.Fallback != "" {
			eng.RegisterFallback(src.Name, src.Fallback)
		}
	}
}
