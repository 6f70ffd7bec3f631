package memory

import (
	"github.com/google/uuid"
)

// TierCaps bounds how many facts a single write may introduce per tier.
type TierCaps struct {
	MaxFactsPerWrite int
}

var tierCaps = map[PlanTier]TierCaps{
	TierFree: {MaxFactsPerWrite: 3},
	TierPro:  {MaxFactsPerWrite: 8},
	TierMax:  {MaxFactsPerWrite: 20},
}

// ReasonCode is the closed set of reasons a write is rejected.
type ReasonCode string

const (
	ReasonOK                ReasonCode = ""
	ReasonTooManyFacts       ReasonCode = "TOO_MANY_FACTS"
	ReasonInvalidFact        ReasonCode = "INVALID_FACT"
	ReasonForbiddenContent   ReasonCode = "FORBIDDEN_CONTENT"
)

// MemoryWriteRequest is the single allowed input shape to WriteMemory.
type MemoryWriteRequest struct {
	SubjectID      string
	Tier           PlanTier
	Facts          []MemoryFact
	RequestedTTLMS int64
	NowMS          int64
}

// WriteResult is the adapter's outcome: either every fact was accepted and
// logged, or the whole write was rejected with one reason code.
type WriteResult struct {
	Accepted    bool
	Reason      ReasonCode
	ForbiddenReason ForbiddenReason
	FactIDs     []string
	TTL         TTLDecision
}

func deterministicFactID(subjectID, key string, seq int64) string {
	material := subjectID + "|" + key + "|" + itoa64(seq)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(material)).String()
}

func itoa64(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		return "-" + string(b)
	}
	return string(b)
}

// WriteMemory is the single chokepoint through which any fact reaches the
// log. It schema-validates every fact, runs the whole-request safety
// filter, enforces the tier's max-facts-per-write cap, resolves TTL, and
// only then appends. Any rejection leaves the log untouched.
func WriteMemory(log *Log, req MemoryWriteRequest) WriteResult {
	caps, ok := tierCaps[req.Tier]
	if !ok {
		caps = tierCaps[TierFree]
	}
	if len(req.Facts) == 0 || len(req.Facts) > caps.MaxFactsPerWrite {
		return WriteResult{Accepted: false, Reason: ReasonTooManyFacts}
	}

	sanitized := make([]MemoryFact, len(req.Facts))
	for i, f := range req.Facts {
		clean, ok, _ := SanitizeAndValidateFact(f)
		if !ok {
			return WriteResult{Accepted: false, Reason: ReasonInvalidFact}
		}
		sanitized[i] = clean
	}

	if forbidden, reason := ScanFactsForbidden(sanitized); forbidden {
		return WriteResult{Accepted: false, Reason: ReasonForbiddenContent, ForbiddenReason: reason}
	}

	ttl := ResolveTTL(req.Tier, req.RequestedTTLMS, req.NowMS)

	factIDs := make([]string, 0, len(sanitized))
	for i, f := range sanitized {
		if f.FactID == "" {
			f.FactID = deterministicFactID(req.SubjectID, f.Key, int64(i))
		}
		log.AppendFactAdded(req.SubjectID, f, req.NowMS, ttl.ExpiresAtMS)
		factIDs = append(factIDs, f.FactID)
	}

	return WriteResult{Accepted: true, FactIDs: factIDs, TTL: ttl}
}
