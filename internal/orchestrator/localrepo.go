package orchestrator

import (
	"context"
	"sync"
	"time"

	"governedchat/internal/plan"
)

// inMemoryQuotaRepository is the local-mode stand-in for plan.Repository
// used when no DATABASE_URL is configured, so the quota checker still has
// something to call instead of a nil interface. Production deployments
// always pass plan.NewPostgresRepository.
type inMemoryQuotaRepository struct {
	mu    sync.Mutex
	rows  map[string]*plan.QuotaState
}

func newInMemoryQuotaRepository() *inMemoryQuotaRepository {
	return &inMemoryQuotaRepository{rows: make(map[string]*plan.QuotaState)}
}

func quotaKey(subjectType, subjectID string, date time.Time) string {
	return subjectType + ":" + subjectID + ":" + date.Format("2006-01-02")
}

func (r *inMemoryQuotaRepository) GetOrCreate(ctx context.Context, subjectType, subjectID string, date time.Time) (*plan.QuotaState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := quotaKey(subjectType, subjectID, date)
	if q, ok := r.rows[key]; ok {
		return q, nil
	}
	q := &plan.QuotaState{ResetAt: date.AddDate(0, 0, 1)}
	r.rows[key] = q
	return q, nil
}

func (r *inMemoryQuotaRepository) IncrementRequest(ctx context.Context, subjectType, subjectID string, date time.Time) (*plan.QuotaState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := quotaKey(subjectType, subjectID, date)
	q, ok := r.rows[key]
	if !ok {
		q = &plan.QuotaState{ResetAt: date.AddDate(0, 0, 1)}
		r.rows[key] = q
	}
	q.RequestsCount++
	return q, nil
}

func (r *inMemoryQuotaRepository) IncrementTokens(ctx context.Context, subjectType, subjectID string, date time.Time, delta int64) (*plan.QuotaState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := quotaKey(subjectType, subjectID, date)
	q, ok := r.rows[key]
	if !ok {
		q = &plan.QuotaState{ResetAt: date.AddDate(0, 0, 1)}
		r.rows[key] = q
	}
	q.TokensCount += delta
	return q, nil
}
