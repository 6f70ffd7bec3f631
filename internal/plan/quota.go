package plan

import (
	"context"
	"time"
)

// QuotaState is today's persisted usage row for one subject.
type QuotaState struct {
	RequestsCount int64
	TokensCount   int64
	ResetAt       time.Time
}

// Repository is the quota persistence boundary. PostgresRepository is the
// production implementation; tests substitute a fake or a sqlmock-backed
// instance.
type Repository interface {
	// GetOrCreate reads today's row, creating it (zeroed) if absent.
	GetOrCreate(ctx context.Context, subjectType, subjectID string, date time.Time) (*QuotaState, error)
	// IncrementRequest atomically bumps requests_count by 1 and returns the
	// post-increment state.
	IncrementRequest(ctx context.Context, subjectType, subjectID string, date time.Time) (*QuotaState, error)
	// IncrementTokens atomically bumps tokens_count by delta and returns the
	// post-increment state.
	IncrementTokens(ctx context.Context, subjectType, subjectID string, date time.Time, delta int64) (*QuotaState, error)
}
