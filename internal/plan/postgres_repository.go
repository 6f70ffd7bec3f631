package plan

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// PostgresRepository implements Repository against the quotas table
// upserting with RETURNING exactly as
// orchestrator/cost/postgres_repository.go does for budgets and usage.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func dayBounds(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

func (r *PostgresRepository) GetOrCreate(ctx context.Context, subjectType, subjectID string, date time.Time) (*QuotaState, error) {
	dayStart, resetAt := dayBounds(date)
	const query = `
		INSERT INTO quotas (id, subject_type, subject_id, date, requests_count, tokens_count, reset_at)
		VALUES ($1, $2, $3, $4, 0, 0, $5)
		ON CONFLICT (subject_type, subject_id, date)
		DO UPDATE SET subject_type = quotas.subject_type
		RETURNING requests_count, tokens_count, reset_at
	`
	var q QuotaState
	err := r.db.QueryRowContext(ctx, query, uuid.New(), subjectType, subjectID, dayStart, resetAt).
		Scan(&q.RequestsCount, &q.TokensCount, &q.ResetAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *PostgresRepository) IncrementRequest(ctx context.Context, subjectType, subjectID string, date time.Time) (*QuotaState, error) {
	dayStart, resetAt := dayBounds(date)
	const query = `
		INSERT INTO quotas (id, subject_type, subject_id, date, requests_count, tokens_count, reset_at)
		VALUES ($1, $2, $3, $4, 1, 0, $5)
		ON CONFLICT (subject_type, subject_id, date)
		DO UPDATE SET requests_count = quotas.requests_count + 1
		RETURNING requests_count, tokens_count, reset_at
	`
	var q QuotaState
	err := r.db.QueryRowContext(ctx, query, uuid.New(), subjectType, subjectID, dayStart, resetAt).
		Scan(&q.RequestsCount, &q.TokensCount, &q.ResetAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *PostgresRepository) IncrementTokens(ctx context.Context, subjectType, subjectID string, date time.Time, delta int64) (*QuotaState, error) {
	dayStart, resetAt := dayBounds(date)
	const query = `
		INSERT INTO quotas (id, subject_type, subject_id, date, requests_count, tokens_count, reset_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6)
		ON CONFLICT (subject_type, subject_id, date)
		DO UPDATE SET tokens_count = quotas.tokens_count + $5
		RETURNING requests_count, tokens_count, reset_at
	`
	var q QuotaState
	err := r.db.QueryRowContext(ctx, query, uuid.New(), subjectType, subjectID, dayStart, delta, resetAt).
		Scan(&q.RequestsCount, &q.TokensCount, &q.ResetAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}
