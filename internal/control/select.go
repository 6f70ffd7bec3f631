package control

import (
	"strings"

	"governedchat/internal/decision"
)

// criticalRiskDomains are the domains whose HIGH-confidence presence,
// combined with IMMINENT proximity and an IRREVERSIBLE classification,
// forces an outright refusal rather than a friction escalation.
var criticalRiskDomains = []decision.RiskDomain{
	decision.RiskPhysicalSafety,
	decision.RiskPsychologicalEmotional,
	decision.RiskMedicalBiological,
	decision.RiskIrreversiblePersonal,
}

var terminationMarkers = []string{
	"goodbye", "that's all", "stop talking", "end this", "i'm done",
	"never mind", "cancel this conversation",
}

func hasCriticalRiskDomain(s *decision.State) bool {
	for _, d := range criticalRiskDomains {
		if s.HasRiskDomainAtLeast(d, decision.ConfidenceHigh) {
			return true
		}
	}
	return false
}

func hasTerminationIntent(message string) bool {
	text := strings.ToLower(message)
	for _, m := range terminationMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// highStakesZone is HIGH/IMMINENT proximity, or any risk domain assessed at
// HIGH confidence. Responsibility scope plays no part in this gate; it only
// drives rigorForProximityAndScope's fallback ladder.
func highStakesZone(s *decision.State) bool {
	if s.Proximity == decision.ProximityHigh || s.Proximity == decision.ProximityImminent {
		return true
	}
	for _, ra := range s.RiskDomains {
		if ra.Confidence == decision.ConfidenceHigh && ra.Domain != decision.RiskUnknown {
			return true
		}
	}
	return false
}

// rigorForProximityAndScope walks the rigor ladder MINIMAL -> ENFORCED,
// driven by proximity and responsibility scope.
func rigorForProximityAndScope(s *decision.State) RigorLevel {
	switch s.ResponsibilityScope {
	case decision.ResponsibilitySystemicPublic:
		return RigorEnforced
	case decision.ResponsibilityThirdParty:
		if s.Proximity == decision.ProximityImminent || s.Proximity == decision.ProximityHigh {
			return RigorEnforced
		}
		return RigorStructured
	case decision.ResponsibilityShared:
		if s.Proximity == decision.ProximityImminent {
			return RigorStructured
		}
		return RigorGuarded
	case decision.ResponsibilityUnknown:
		return RigorGuarded
	default: // SELF_ONLY
		switch s.Proximity {
		case decision.ProximityImminent, decision.ProximityHigh:
			return RigorGuarded
		default:
			return RigorMinimal
		}
	}
}

// Select applies the fixed decision table to a
// decision.State and the raw message, producing the Plan's field values.
// traceID/decisionStateID/createdAtMillis are passed straight through to
// Build for deterministic id derivation.
func Select(s *decision.State, message, traceID, decisionStateID string, createdAtMillis int64) (*Plan, error) {
	lowStakes := !highStakesZone(s) && len(s.ExplicitUnknownZone) == 0

	switch {
	case s.Proximity == decision.ProximityImminent && s.ReversibilityClass == decision.ReversibilityIrreversible && hasCriticalRiskDomain(s):
		return Build(traceID, decisionStateID, ActionRefuse, RigorEnforced, FrictionStop,
			false, ClarificationNone, 0, QuestionNone,
			ConfidenceSignalExplicit, UnknownDisclosureFull, false, InitiativeNone,
			ClosureOpen, true, RefusalRisk, createdAtMillis)

	case hasTerminationIntent(message):
		return Build(traceID, decisionStateID, ActionClose, RigorMinimal, FrictionNone,
			false, ClarificationNone, 0, QuestionNone,
			ConfidenceSignalMinimal, UnknownDisclosureNone, false, InitiativeNone,
			ClosureClosing, false, RefusalNone, createdAtMillis)

	case lowStakes:
		return Build(traceID, decisionStateID, ActionAnswerAllowed, RigorMinimal, FrictionNone,
			false, ClarificationNone, 0, QuestionNone,
			ConfidenceSignalMinimal, UnknownDisclosureNone, true, InitiativeOnce,
			ClosureOpen, false, RefusalNone, createdAtMillis)

	case highStakesZone(s) && len(s.ExplicitUnknownZone) > 0:
		return Build(traceID, decisionStateID, ActionAskOneQuestion, RigorStructured, FrictionSoftPause,
			true, ClarificationMissingContext, 1, QuestionSafetyGuard,
			ConfidenceSignalGuarded, UnknownDisclosurePartial, false, InitiativeNone,
			ClosureOpen, false, RefusalNone, createdAtMillis)

	default:
		rigor := rigorForProximityAndScope(s)
		friction := FrictionNone
		if rigor == RigorEnforced {
			friction = FrictionHardPause
		} else if rigor == RigorStructured {
			friction = FrictionSoftPause
		}
		return Build(traceID, decisionStateID, ActionAnswerAllowed, rigor, friction,
			false, ClarificationNone, 0, QuestionNone,
			ConfidenceSignalGuarded, UnknownDisclosurePartial, rigor != RigorEnforced, InitiativeOnce,
			ClosureOpen, false, RefusalNone, createdAtMillis)
	}
}
