package commands

import (
	"time"

	"github.com/wonny/dqguard/pkg/config"
	"github.com/wonny/dqguard/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{Guard: config.GuardConfig{HistoryCapacity: 100, MonitorFetchTimeout: time.Second}}
}

func nopLogger() *logger.Logger {
	return logger.NewNop()
}
