package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dqguard/pkg/config"
)

func integrationConfig(t *testing.T) *config.Config {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	return &config.Config{
		Database: config.DatabaseConfig{
			Enabled:         true,
			URL:             url,
			MaxConns:        4,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
	}
}

func TestNew_HealthCheck(t *testing.T) {
	db, err := New(integrationConfig(t))
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Greater(t, status.Stats.MaxConns, int32(0))
}

func TestEnsureSchema(t *testing.T) {
	db, err := New(integrationConfig(t))
	require.NoError(t, err)
	defer db.Close()

	err = db.EnsureSchema(context.Background(),
		`CREATE TEMP TABLE IF NOT EXISTS schema_probe (id INT)`,
	)
	assert.NoError(t, err)
}

func TestNewWithInvalidURL(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			URL:      "invalid://url",
			MaxConns: 4,
			MinConns: 1,
		},
	}

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestClose_Idempotent(t *testing.T) {
	db, err := New(integrationConfig(t))
	require.NoError(t, err)

	db.Close()
	db.Close()
}
