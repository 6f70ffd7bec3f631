package memory

import "testing"

func TestResolveTTLUsesTierCeilingByDefault(t *testing.T) {
	d := ResolveTTL(TierFree, 0, 1_000_000)
	if d.TTLMS != TTL1Hour || d.Class != TTLClassTierCeiling {
		t.Fatalf("expected FREE tier ceiling, got %+v", d)
	}
}

func TestResolveTTLClampsSmallerRequestedTTL(t *testing.T) {
	d := ResolveTTL(TierPro, TTL1Hour, 1_000_000)
	if d.TTLMS != TTL1Hour || d.Class != TTLClassRequestedClamped {
		t.Fatalf("expected requested TTL to clamp below PRO ceiling, got %+v", d)
	}
}

func TestResolveTTLIgnoresLargerRequestedTTL(t *testing.T) {
	d := ResolveTTL(TierFree, TTL10Days, 1_000_000)
	if d.TTLMS != TTL1Hour {
		t.Fatalf("expected requested TTL larger than ceiling to be ignored, got %+v", d)
	}
}

func TestResolveTTLUnknownTierFailsClosedToFree(t *testing.T) {
	d := ResolveTTL("BOGUS", 0, 1_000_000)
	if d.TTLMS != TTL1Hour {
		t.Fatalf("expected unknown tier to fail closed to FREE ceiling, got %+v", d)
	}
}

func TestResolveTTLExpiryIsDeterministicallyBucketed(t *testing.T) {
	d1 := ResolveTTL(TierFree, 0, 1_000_123)
	d2 := ResolveTTL(TierFree, 0, 1_000_999)
	if d1.ExpiresAtMS != d2.ExpiresAtMS {
		t.Fatalf("expected nearby now_ms in the same bucket to yield the same expiry, got %d vs %d", d1.ExpiresAtMS, d2.ExpiresAtMS)
	}
}

func TestResolveTTLDifferentBucketsYieldDifferentExpiry(t *testing.T) {
	d1 := ResolveTTL(TierFree, 0, 0)
	d2 := ResolveTTL(TierFree, 0, RequestTimeBucketMS)
	if d1.ExpiresAtMS == d2.ExpiresAtMS {
		t.Fatalf("expected distinct buckets to yield distinct expiry")
	}
}
