package plan

import (
	"context"

	"governedchat/internal/clock"
)

// Outcome is the result of a quota precheck.
type Outcome struct {
	Allowed      bool
	Reason       string // "requests_exceeded" | "token_budget_exceeded" | ""
	UsedFallback bool
}

// Checker enforces daily request and token caps against a tier's Limits.
// Store failures fail open (allowed, but flagged); every other denial
// path fails closed.
type Checker struct {
	repo Repository
	clk  clock.Clock
}

func NewChecker(repo Repository, clk clock.Clock) *Checker {
	return &Checker{repo: repo, clk: clk}
}

// Precheck compares today's persisted usage against tier's caps before a
// request is admitted. estTokens is the request's estimated token cost.
func (c *Checker) Precheck(ctx context.Context, subjectType, subjectID string, tier Tier, estTokens int64) Outcome {
	limits := LimitsFor(tier)
	q, err := c.repo.GetOrCreate(ctx, subjectType, subjectID, c.clk.Now())
	if err != nil {
		return Outcome{Allowed: true, UsedFallback: true}
	}
	if q.RequestsCount >= limits.RequestsPerDay {
		return Outcome{Allowed: false, Reason: "requests_exceeded"}
	}
	if q.TokensCount+estTokens > limits.TokenBudgetPerDay {
		return Outcome{Allowed: false, Reason: "token_budget_exceeded"}
	}
	return Outcome{Allowed: true}
}

// PostAccount increments today's counters after a successful invocation.
// Store failures are swallowed (best-effort accounting), but reported back
// so the caller can flag the request for telemetry.
func (c *Checker) PostAccount(ctx context.Context, subjectType, subjectID string, tokensUsed int64) (usedFallback bool) {
	now := c.clk.Now()
	if _, err := c.repo.IncrementRequest(ctx, subjectType, subjectID, now); err != nil {
		usedFallback = true
	}
	if _, err := c.repo.IncrementTokens(ctx, subjectType, subjectID, now, tokensUsed); err != nil {
		usedFallback = true
	}
	return usedFallback
}
