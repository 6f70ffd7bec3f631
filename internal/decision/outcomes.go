package decision

// Outcome-class classification, ported from
// original_source/mci_backend/decision_outcomes.py: text markers plus a
// mapping from already-classified risk domains, responsibility scope, and
// horizon/reversibility back onto the bounded OutcomeClass set.

var outcomeTextMarkers = map[OutcomeClass][]string{
	OutcomeFinancial:              {"payment", "wire", "bank", "invoice", "price", "budget", "cost", "buy", "sell"},
	OutcomeLegalRegulatory:        {"illegal", "lawsuit", "regulation", "compliance", "violate", "breach", "contract", "policy"},
	OutcomeMedicalBiological:      {"surgery", "prescription", "dose", "diagnosis", "clinical", "health", "treatment"},
	OutcomePhysicalSafety:         {"weapon", "attack", "hazard", "injury", "crash", "dangerous", "safety"},
	OutcomePsychologicalEmotional: {"stress", "anxiety", "depressed", "panic", "trauma", "self-harm", "bullying"},
	OutcomeEthicalMoral:           {"ethical", "moral", "plagiarize", "cheat", "fraud", "bribe", "integrity"},
	OutcomeReputationalSocial:     {"publicly", "publish", "broadcast", "reputation", "defamation", "slander", "libel", "backlash"},
	OutcomeOperationalSystem:      {"outage", "downtime", "deployment", "rollback", "system failure", "maintenance"},
	OutcomeIrreversiblePersonal:   {"irreversible", "permanent damage", "cannot undo", "lifelong"},
}

// outcomeOrder fixes iteration/output order for deterministic results.
var outcomeOrder = []OutcomeClass{
	OutcomeFinancial, OutcomeLegalRegulatory, OutcomeMedicalBiological, OutcomePhysicalSafety,
	OutcomePsychologicalEmotional, OutcomeEthicalMoral, OutcomeReputationalSocial,
	OutcomeOperationalSystem, OutcomeIrreversiblePersonal, OutcomeUnknown,
}

// riskToOutcome maps a risk domain to the outcome class it implicates.
// LEGAL_ADJACENT_GRAY_ZONE folds into the legal/regulatory outcome, and
// UNKNOWN folds into UNKNOWN_OUTCOME_CLASS, matching the source mapping.
var riskToOutcome = map[RiskDomain]OutcomeClass{
	RiskFinancial:             OutcomeFinancial,
	RiskLegalRegulatory:       OutcomeLegalRegulatory,
	RiskMedicalBiological:     OutcomeMedicalBiological,
	RiskPhysicalSafety:        OutcomePhysicalSafety,
	RiskPsychologicalEmotional: OutcomePsychologicalEmotional,
	RiskEthicalMoral:          OutcomeEthicalMoral,
	RiskReputationalSocial:    OutcomeReputationalSocial,
	RiskOperationalSystemic:   OutcomeOperationalSystem,
	RiskIrreversiblePersonal:  OutcomeIrreversiblePersonal,
	RiskLegalAdjacentGrayZone: OutcomeLegalRegulatory,
	RiskUnknown:               OutcomeUnknown,
}

func classifyOutcomesFromText(text, framing string) map[OutcomeClass]bool {
	out := make(map[OutcomeClass]bool)
	for outcome, markers := range outcomeTextMarkers {
		if containsAny(text, markers) || containsAny(framing, markers) {
			out[outcome] = true
		}
	}
	return out
}

func classifyOutcomesFromState(s *State) map[OutcomeClass]bool {
	out := make(map[OutcomeClass]bool)
	for _, ra := range s.RiskDomains {
		if mapped, ok := riskToOutcome[ra.Domain]; ok {
			out[mapped] = true
		}
	}

	switch s.ResponsibilityScope {
	case ResponsibilitySystemicPublic:
		out[OutcomeReputationalSocial] = true
		out[OutcomeOperationalSystem] = true
	case ResponsibilityThirdParty:
		out[OutcomeEthicalMoral] = true
	case ResponsibilityShared:
		out[OutcomeEthicalMoral] = true
	}

	if s.ConsequenceHorizon == HorizonLong || s.ReversibilityClass == ReversibilityIrreversible {
		out[OutcomeIrreversiblePersonal] = true
	}

	return out
}

func applyOutcomeClasses(s *State, message, framing string) {
	text := lower(message)
	fr := lower(framing)

	outcomes := classifyOutcomesFromText(text, fr)
	for k, v := range classifyOutcomesFromState(s) {
		if v {
			outcomes[k] = true
		}
	}

	if len(outcomes) == 0 {
		outcomes[OutcomeUnknown] = true
	}
	if outcomes[OutcomeUnknown] {
		s.ExplicitUnknownZone = addUnknown(s.ExplicitUnknownZone, UnknownOutcomeClasses)
	}

	var ordered []OutcomeClass
	for _, o := range outcomeOrder {
		if outcomes[o] {
			ordered = append(ordered, o)
		}
	}
	s.OutcomeClasses = ordered
}
