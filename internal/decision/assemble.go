package decision

import "fmt"

// ValidationError reports a cross-field invariant violation caught at
// assembly time. Assembly is fail-closed: a violation aborts the governed
// request rather than returning a partially-coherent DecisionState.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("decision assembly: %s", e.Reason) }

// Assemble runs the canonical classification order (proximity, risk,
// irreversibility, responsibility, outcomes), consolidates the unknown
// zone, and validates cross-field coherence, ported from
// original_source/mci_backend/decision_assembly.py.
func Assemble(message, intentFraming string) (*State, error) {
	s := &State{
		Proximity:           ProximityUnknown,
		RiskDomains:         []RiskAssessment{{Domain: RiskUnknown, Confidence: ConfidenceLow}},
		ReversibilityClass:  ReversibilityUnknown,
		ConsequenceHorizon:  HorizonUnknown,
		ResponsibilityScope: ResponsibilityUnknown,
		OutcomeClasses:      []OutcomeClass{OutcomeUnknown},
		ExplicitUnknownZone: []UnknownSource{
			UnknownProximity, UnknownRiskDomains, UnknownReversibility,
			UnknownHorizon, UnknownResponsibility, UnknownOutcomeClasses, UnknownConfidence,
		},
	}

	applyProximity(s, message, intentFraming)
	applyRiskDomains(s, message, intentFraming)
	applyIrreversibility(s, message, intentFraming)
	applyResponsibilityScope(s, message, intentFraming)
	applyOutcomeClasses(s, message, intentFraming)
	consolidateUnknowns(s)

	if err := validateCrossFields(s); err != nil {
		return nil, err
	}
	return s, nil
}

// consolidateUnknowns deduplicates the unknown zone in place; every
// classifier already appends through addUnknown, so this is a final
// defensive pass rather than a second source of markers.
func consolidateUnknowns(s *State) {
	var out []UnknownSource
	for _, u := range s.ExplicitUnknownZone {
		out = addUnknown(out, u)
	}
	s.ExplicitUnknownZone = out
}

func validateCrossFields(s *State) error {
	if len(s.RiskDomains) == 0 {
		return &ValidationError{Reason: "risk_domains must be non-empty after assembly"}
	}
	if len(s.OutcomeClasses) == 0 {
		return &ValidationError{Reason: "outcome_classes must be non-empty after assembly"}
	}

	if s.ReversibilityClass == ReversibilityIrreversible && !s.HasUnknown(UnknownReversibility) {
		return &ValidationError{Reason: "IRREVERSIBLE requires an explicit REVERSIBILITY unknown marker"}
	}
	if s.ConsequenceHorizon == HorizonLong && !s.HasUnknown(UnknownHorizon) {
		return &ValidationError{Reason: "LONG_HORIZON requires an explicit HORIZON unknown marker"}
	}
	if s.ResponsibilityScope == ResponsibilitySystemicPublic && s.ConsequenceHorizon == HorizonShort && !s.HasUnknown(UnknownHorizon) {
		return &ValidationError{Reason: "SYSTEMIC_PUBLIC with SHORT_HORIZON requires an explicit HORIZON unknown marker"}
	}
	if s.HasOutcome(OutcomeUnknown) && !s.HasUnknown(UnknownOutcomeClasses) {
		return &ValidationError{Reason: "UNKNOWN_OUTCOME_CLASS requires an explicit OUTCOME_CLASSES unknown marker"}
	}

	legalPresent := s.HasRiskDomainAtLeast(RiskLegalRegulatory, ConfidenceLow) || s.HasRiskDomainAtLeast(RiskLegalAdjacentGrayZone, ConfidenceLow)
	if legalPresent && !s.HasOutcome(OutcomeLegalRegulatory) && !s.HasUnknown(UnknownOutcomeClasses) {
		return &ValidationError{Reason: "legal/regulatory risk requires a legal/regulatory outcome or an explicit unknown"}
	}

	medicalPresent := s.HasRiskDomainAtLeast(RiskMedicalBiological, ConfidenceLow)
	if medicalPresent && !s.HasOutcome(OutcomeMedicalBiological) && !s.HasUnknown(UnknownOutcomeClasses) {
		return &ValidationError{Reason: "medical risk requires a medical outcome or an explicit unknown"}
	}

	return nil
}
