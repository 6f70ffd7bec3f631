// Package plan implements the plan resolver and daily quota enforcement
// mapping a subject to a plan tier, then comparing a
// Postgres-backed per-day counter against that tier's caps. Grounded on
// orchestrator/cost/postgres_repository.go's upsert-with-RETURNING idiom.
package plan

import "governedchat/internal/config"

type Tier string

const (
	TierFree Tier = "FREE"
	TierPro  Tier = "PRO"
	TierMax  Tier = "MAX"
)

// Limits are the immutable daily caps for a tier.
type Limits struct {
	RequestsPerDay    int64
	TokenBudgetPerDay int64
	MaxInputTokens    int64
	MaxOutputTokens   int64
}

var tierLimits = map[Tier]Limits{
	TierFree: {RequestsPerDay: 50, TokenBudgetPerDay: 50_000, MaxInputTokens: 2_000, MaxOutputTokens: 512},
	TierPro:  {RequestsPerDay: 500, TokenBudgetPerDay: 500_000, MaxInputTokens: 4_000, MaxOutputTokens: 1_024},
	TierMax:  {RequestsPerDay: 5_000, TokenBudgetPerDay: 5_000_000, MaxInputTokens: 8_000, MaxOutputTokens: 2_048},
}

// LimitsFor returns the fixed caps for a tier. Unknown tiers fall back to
// FREE's caps, matching ResolveTier's own default-to-FREE behavior.
func LimitsFor(tier Tier) Limits {
	if l, ok := tierLimits[tier]; ok {
		return l
	}
	return tierLimits[TierFree]
}

// ResolveTier maps a subject to its plan tier from the configured PRO/MAX
// subject override sets, defaulting to the configured default plan (or
// FREE) when the subject appears in neither.
func ResolveTier(subjectID string, settings config.PlanSettings) Tier {
	if settings.MaxSubjects[subjectID] {
		return TierMax
	}
	if settings.ProSubjects[subjectID] {
		return TierPro
	}
	switch Tier(settings.Default) {
	case TierPro:
		return TierPro
	case TierMax:
		return TierMax
	default:
		return TierFree
	}
}
