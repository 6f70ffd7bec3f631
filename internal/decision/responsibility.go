package decision

// Responsibility-scope classification, ported from
// original_source/mci_backend/decision_responsibility.py. Checked in order
// SYSTEMIC_PUBLIC > THIRD_PARTY > SHARED > SELF_ONLY; first match wins.

var systemicResponsibilityMarkers = []string{
	"publicly", "publish", "broadcast", "release", "release publicly",
	"policy", "users", "customers", "vulnerability", "exploit", "mass",
	"system-wide", "company-wide",
}

var thirdPartyResponsibilityMarkers = []string{
	"client", "customer", "employee", "employer", "manager", "contractor",
	"for them", "for her", "for him", "allow", "approve", "deny",
	"permission", "they depend on me",
}

var sharedResponsibilityMarkers = []string{
	"family", "parents", "child", "friend", "partner", "team", "group",
	"we", "us", "together", "shared", "our",
}

var selfResponsibilityMarkers = []string{
	"i will", "i'm going to", "for myself", "my decision", "personal",
}

func classifyResponsibilityScope(text string) (ResponsibilityScope, bool) {
	if containsAny(text, systemicResponsibilityMarkers) {
		return ResponsibilitySystemicPublic, false
	}
	if containsAny(text, thirdPartyResponsibilityMarkers) {
		return ResponsibilityThirdParty, false
	}
	if containsAny(text, sharedResponsibilityMarkers) {
		return ResponsibilityShared, false
	}
	if containsAny(text, selfResponsibilityMarkers) {
		return ResponsibilitySelfOnly, true
	}
	return ResponsibilityUnknown, true
}

func applyResponsibilityScope(s *State, message, framing string) {
	text := lower(message) + " " + lower(framing)
	scope, uncertain := classifyResponsibilityScope(text)

	if uncertain {
		s.ExplicitUnknownZone = addUnknown(s.ExplicitUnknownZone, UnknownResponsibility)
	}
	if scope == ResponsibilityUnknown {
		s.ExplicitUnknownZone = addUnknown(s.ExplicitUnknownZone, UnknownResponsibility)
	}

	// SYSTEMIC_PUBLIC with SHORT_HORIZON must acknowledge horizon uncertainty.
	if scope == ResponsibilitySystemicPublic && s.ConsequenceHorizon == HorizonShort {
		s.ExplicitUnknownZone = addUnknown(s.ExplicitUnknownZone, UnknownHorizon)
	}

	s.ResponsibilityScope = scope
}
