// Package policywiring is the single chokepoint through which the
// orchestrator touches retrieval and memory. It exists because both
// depend on their own adapters (retrieval's tool sandbox, memory's event
// log) and a policy layer caps both by plan tier: composing them through
// one package keeps that a DAG instead of a cycle, and capabilities are
// passed to callers as interfaces, never as direct imports of the
// underlying packages. Grounded on SPEC_FULL §9's "cyclic dependencies"
// design note.
package policywiring

import (
	"governedchat/internal/memory"
	"governedchat/internal/plan"
	"governedchat/internal/retrieval"
)

// RetrievalCapsForTier returns the tool-sandbox caps a plan tier is
// entitled to. Higher tiers get more results, more calls, and longer
// timeouts; the ceilings are fixed and never widened by a request's own
// requested mode.
func RetrievalCapsForTier(tier plan.Tier) retrieval.PolicyCaps {
	switch tier {
	case plan.TierPro:
		return retrieval.PolicyCaps{
			MaxResults:            5,
			PerToolTimeoutMS:      4000,
			TotalTimeoutMS:        12000,
			MaxToolCallsTotal:     6,
			MaxToolCallsPerMinute: 20,
		}
	case plan.TierMax:
		return retrieval.PolicyCaps{
			MaxResults:            8,
			PerToolTimeoutMS:      6000,
			TotalTimeoutMS:        20000,
			MaxToolCallsTotal:     12,
			MaxToolCallsPerMinute: 40,
		}
	default:
		return retrieval.PolicyCaps{
			MaxResults:            3,
			PerToolTimeoutMS:      2500,
			TotalTimeoutMS:        6000,
			MaxToolCallsTotal:     3,
			MaxToolCallsPerMinute: 10,
		}
	}
}

// MemoryTierForPlanTier translates the plan resolver's tier type into
// memory's own tier type. The two packages intentionally don't share a
// type so memory has no import-time dependency on plan.
func MemoryTierForPlanTier(tier plan.Tier) memory.PlanTier {
	switch tier {
	case plan.TierPro:
		return memory.TierPro
	case plan.TierMax:
		return memory.TierMax
	default:
		return memory.TierFree
	}
}

// ReadCapsForTier bounds a memory read by plan tier; FREE subjects get a
// terse bundle, higher tiers get more headroom.
func ReadCapsForTier(tier plan.Tier) (maxFacts, maxPerCategory, maxTotalChars int) {
	switch tier {
	case plan.TierPro:
		return 12, 6, 2000
	case plan.TierMax:
		return 24, 10, 4000
	default:
		return 6, 3, 800
	}
}
