package decision

import "testing"

func TestAssembleEmptyMessageIsAllUnknown(t *testing.T) {
	s, err := Assemble("", "")
	if err != nil {
		t.Fatalf("Assemble should not fail on empty input: %v", err)
	}
	if s.Proximity != ProximityUnknown {
		t.Errorf("Proximity: expected UNKNOWN, got %s", s.Proximity)
	}
	if !s.HasRiskDomainAtLeast(RiskUnknown, ConfidenceLow) {
		t.Error("empty message should assess RiskUnknown at LOW confidence")
	}
	if !s.HasOutcome(OutcomeUnknown) {
		t.Error("empty message should carry UNKNOWN_OUTCOME_CLASS")
	}
	if !s.HasUnknown(UnknownProximity) || !s.HasUnknown(UnknownRiskDomains) || !s.HasUnknown(UnknownOutcomeClasses) {
		t.Error("empty message should mark proximity, risk_domains, and outcome_classes unknown")
	}
}

func TestAssembleFinancialRequestClassifiesDomainAndOutcome(t *testing.T) {
	s, err := Assemble("I want to wire a payment to my bank today", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.HasRiskDomainAtLeast(RiskFinancial, ConfidenceHigh) {
		t.Error("expected FINANCIAL risk domain at HIGH confidence")
	}
	if !s.HasOutcome(OutcomeFinancial) {
		t.Error("expected FINANCIAL_OUTCOME present")
	}
	if s.Proximity != ProximityHigh {
		t.Errorf("Proximity: expected HIGH, got %s", s.Proximity)
	}
}

func TestAssembleIrreversibleRequiresUnknownMarker(t *testing.T) {
	s, err := Assemble("this action is irreversible and permanent", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ReversibilityClass != ReversibilityIrreversible {
		t.Fatalf("expected IRREVERSIBLE, got %s", s.ReversibilityClass)
	}
	if !s.HasUnknown(UnknownReversibility) {
		t.Error("IRREVERSIBLE must carry an explicit REVERSIBILITY unknown marker")
	}
}

func TestAssembleSystemicPublicShortHorizonForcesHorizonMarker(t *testing.T) {
	s, err := Assemble("I want to publish this policy to all users right now", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ResponsibilityScope != ResponsibilitySystemicPublic {
		t.Fatalf("expected SYSTEMIC_PUBLIC, got %s", s.ResponsibilityScope)
	}
	if s.ConsequenceHorizon != HorizonShort {
		t.Fatalf("expected SHORT_HORIZON, got %s", s.ConsequenceHorizon)
	}
	if !s.HasUnknown(UnknownHorizon) {
		t.Error("SYSTEMIC_PUBLIC with SHORT_HORIZON must carry an explicit HORIZON unknown marker")
	}
}

func TestAssembleMedicalRiskRequiresMedicalOutcome(t *testing.T) {
	s, err := Assemble("my doctor wants to schedule surgery and a prescription", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.HasRiskDomainAtLeast(RiskMedicalBiological, ConfidenceHigh) {
		t.Error("expected MEDICAL_BIOLOGICAL risk domain")
	}
	if !s.HasOutcome(OutcomeMedicalBiological) {
		t.Error("medical risk domain must produce a medical outcome class")
	}
}

func TestAssembleDeterministic(t *testing.T) {
	const text = "I need to wire a payment for my family's shared trip, this week"
	s1, err1 := Assemble(text, "")
	s2, err2 := Assemble(text, "")
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if s1.Proximity != s2.Proximity || s1.ResponsibilityScope != s2.ResponsibilityScope {
		t.Error("Assemble must be deterministic for identical input")
	}
}

func TestConsolidateUnknownsDeduplicates(t *testing.T) {
	s := &State{ExplicitUnknownZone: []UnknownSource{UnknownProximity, UnknownProximity, UnknownHorizon}}
	consolidateUnknowns(s)
	if len(s.ExplicitUnknownZone) != 2 {
		t.Errorf("expected 2 deduplicated markers, got %d", len(s.ExplicitUnknownZone))
	}
}
