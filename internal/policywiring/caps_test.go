package policywiring

import (
	"testing"

	"governedchat/internal/plan"
)

func TestRetrievalCapsForTierIncreaseWithTier(t *testing.T) {
	free := RetrievalCapsForTier(plan.TierFree)
	pro := RetrievalCapsForTier(plan.TierPro)
	max := RetrievalCapsForTier(plan.TierMax)
	if !(free.MaxResults < pro.MaxResults && pro.MaxResults < max.MaxResults) {
		t.Fatalf("expected MaxResults to increase with tier, got free=%d pro=%d max=%d", free.MaxResults, pro.MaxResults, max.MaxResults)
	}
	if !(free.MaxToolCallsTotal < pro.MaxToolCallsTotal && pro.MaxToolCallsTotal < max.MaxToolCallsTotal) {
		t.Fatalf("expected MaxToolCallsTotal to increase with tier")
	}
}

func TestRetrievalCapsForTierUnknownFallsBackToFree(t *testing.T) {
	unknown := RetrievalCapsForTier(plan.Tier("BOGUS"))
	free := RetrievalCapsForTier(plan.TierFree)
	if unknown != free {
		t.Fatalf("expected unknown tier to fall back to FREE caps, got %+v", unknown)
	}
}

func TestMemoryTierForPlanTierMapsAllThree(t *testing.T) {
	cases := map[plan.Tier]string{plan.TierFree: "FREE", plan.TierPro: "PRO", plan.TierMax: "MAX"}
	for tier, want := range cases {
		if got := string(MemoryTierForPlanTier(tier)); got != want {
			t.Fatalf("expected %s to map to %s, got %s", tier, want, got)
		}
	}
}

func TestReadCapsForTierIncreaseWithTier(t *testing.T) {
	fFacts, fCat, fChars := ReadCapsForTier(plan.TierFree)
	pFacts, pCat, pChars := ReadCapsForTier(plan.TierPro)
	mFacts, mCat, mChars := ReadCapsForTier(plan.TierMax)
	if !(fFacts < pFacts && pFacts < mFacts) {
		t.Fatalf("expected MaxFacts to increase with tier")
	}
	if !(fCat < pCat && pCat < mCat) {
		t.Fatalf("expected MaxPerCategory to increase with tier")
	}
	if !(fChars < pChars && pChars < mChars) {
		t.Fatalf("expected MaxTotalChars to increase with tier")
	}
}
