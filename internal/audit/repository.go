package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/dqguard/internal/contracts"
)

// SchemaStatements create the audit tables (idempotent)
var SchemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS guard`,
	`CREATE TABLE IF NOT EXISTS guard.assessments (
		id            UUID PRIMARY KEY,
		source        TEXT NOT NULL,
		data_type     TEXT NOT NULL,
		risk_level    TEXT NOT NULL,
		risk_score    DOUBLE PRECISION NOT NULL,
		action        TEXT NOT NULL,
		quality_score DOUBLE PRECISION NOT NULL,
		quality_level TEXT NOT NULL,
		risk_factors  JSONB NOT NULL DEFAULT '[]',
		strategies    JSONB NOT NULL DEFAULT '[]',
		report        JSONB NOT NULL,
		assessed_at   TIMESTAMPTZ NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assessments_source_time
		ON guard.assessments (source, assessed_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_assessments_time
		ON guard.assessments (assessed_at)`,
}

// Entry is one stored assessment row
type Entry struct {
	ID           string                  `json:"id"`
	Source       string                  `json:"source"`
	DataType     string                  `json:"data_type"`
	RiskLevel    contracts.RiskLevel     `json:"risk_level"`
	RiskScore    float64                 `json:"risk_score"`
	Action       contracts.RiskAction    `json:"action"`
	QualityScore float64                 `json:"quality_score"`
	QualityLevel contracts.QualityLevel  `json:"quality_level"`
	RiskFactors  []string                `json:"risk_factors"`
	Strategies   []string                `json:"strategies"`
	Report       contracts.QualityReport `json:"report"`
	AssessedAt   time.Time               `json:"assessed_at"`
}

// Repository handles audit data persistence
// ⭐ SSOT: 평가 감사 기록 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new audit repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Name identifies the repository as a dispatcher sink
func (r *Repository) Name() string {
	return "audit-postgres"
}

// Handle persists an assessment delivered by the dispatcher
func (r *Repository) Handle(ctx context.Context, a contracts.RiskAssessment) error {
	_, err := r.SaveAssessment(ctx, a)
	return err
}

// SaveAssessment inserts one assessment and returns its row id
func (r *Repository) SaveAssessment(ctx context.Context, a contracts.RiskAssessment) (string, error) {
	factorsJSON, err := json.Marshal(nonNil(a.RiskFactors))
	if err != nil {
		return "", fmt.Errorf("failed to marshal risk factors: %w", err)
	}
	strategiesJSON, err := json.Marshal(nonNil(a.MitigationStrategies))
	if err != nil {
		return "", fmt.Errorf("failed to marshal strategies: %w", err)
	}
	reportJSON, err := json.Marshal(a.QualityReport)
	if err != nil {
		return "", fmt.Errorf("failed to marshal quality report: %w", err)
	}

	id := uuid.New()
	query := `
		INSERT INTO guard.assessments (
			id, source, data_type, risk_level, risk_score, action,
			quality_score, quality_level, risk_factors, strategies, report, assessed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.pool.Exec(ctx, query,
		id, a.Source, a.DataType, string(a.RiskLevel), a.RiskScore, string(a.RecommendedAction),
		a.QualityReport.OverallScore, string(a.QualityReport.Level),
		factorsJSON, strategiesJSON, reportJSON, a.Timestamp,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save assessment: %w", err)
	}

	return id.String(), nil
}

// ListBySource returns the newest assessments for source, newest first
func (r *Repository) ListBySource(ctx context.Context, source string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, source, data_type, risk_level, risk_score, action,
		       quality_score, quality_level, risk_factors, strategies, report, assessed_at
		FROM guard.assessments
		WHERE source = $1
		ORDER BY assessed_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, source, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query assessments: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assessments: %w", err)
	}

	return entries, nil
}

// Get returns one assessment by id
func (r *Repository) Get(ctx context.Context, id string) (*Entry, error) {
	query := `
		SELECT id, source, data_type, risk_level, risk_score, action,
		       quality_score, quality_level, risk_factors, strategies, report, assessed_at
		FROM guard.assessments
		WHERE id = $1
	`

	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid assessment id %q: %w", id, err)
	}

	e, err := scanEntry(r.pool.QueryRow(ctx, query, uid))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("assessment %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Prune deletes assessments older than cutoff and returns the count
func (r *Repository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM guard.assessments WHERE assessed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune assessments: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	var id uuid.UUID
	var level, action, qlevel string
	var factorsJSON, strategiesJSON, reportJSON []byte

	err := row.Scan(
		&id, &e.Source, &e.DataType, &level, &e.RiskScore, &action,
		&e.QualityScore, &qlevel, &factorsJSON, &strategiesJSON, &reportJSON, &e.AssessedAt,
	)
	if err == pgx.ErrNoRows {
		return e, err
	}
	if err != nil {
		return e, fmt.Errorf("failed to scan assessment: %w", err)
	}

	e.ID = id.String()
	e.RiskLevel = contracts.RiskLevel(level)
	e.Action = contracts.RiskAction(action)
	e.QualityLevel = contracts.QualityLevel(qlevel)

	if err := json.Unmarshal(factorsJSON, &e.RiskFactors); err != nil {
		return e, fmt.Errorf("failed to unmarshal risk factors: %w", err)
	}
	if err := json.Unmarshal(strategiesJSON, &e.Strategies); err != nil {
		return e, fmt.Errorf("failed to unmarshal strategies: %w", err)
	}
	if err := json.Unmarshal(reportJSON, &e.Report); err != nil {
		return e, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return e, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
