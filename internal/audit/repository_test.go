package audit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dqguard/internal/contracts"
)

func integrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	for _, stmt := range SchemaStatements {
		_, err := pool.Exec(ctx, stmt)
		require.NoError(t, err)
	}
	return pool
}

func TestRepository_SaveListPrune(t *testing.T) {
	repo := NewRepository(integrationPool(t))
	ctx := context.Background()
	source := "audit-test-" + time.Now().Format("150405.000000")

	old := time.Now().Add(-48 * time.Hour).UTC()
	recent := time.Now().UTC()

	for _, ts := range []time.Time{old, recent} {
		_, err := repo.SaveAssessment(ctx, contracts.RiskAssessment{
			Source:            source,
			DataType:          "kline",
			RiskLevel:         contracts.RiskHigh,
			RiskScore:         0.7,
			RecommendedAction: contracts.ActionWarning,
			QualityReport: contracts.QualityReport{
				OverallScore: 0.6,
				Level:        contracts.QualityPoor,
			},
			RiskFactors: []string{"degraded data quality"},
			Timestamp:   ts,
		})
		require.NoError(t, err)
	}

	entries, err := repo.ListBySource(ctx, source, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].AssessedAt.After(entries[1].AssessedAt))
	assert.Equal(t, contracts.RiskHigh, entries[0].RiskLevel)
	assert.Equal(t, []string{"degraded data quality"}, entries[0].RiskFactors)
	assert.Empty(t, entries[0].Strategies)

	got, err := repo.Get(ctx, entries[0].ID)
	require.NoError(t, err)
	assert.Equal(t, source, got.Source)

	n, err := repo.Prune(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	entries, err = repo.ListBySource(ctx, source, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRepository_Name(t *testing.T) {
	assert.Equal(t, "audit-postgres", NewRepository(nil).Name())
}
