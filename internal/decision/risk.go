package decision

// Risk-domain classification, ported from
// original_source/mci_backend/decision_risk.py: bias toward inclusion,
// ambiguity includes the domain at LOW confidence with an unknown marker
// rather than silently dropping it.

type domainMarkers struct {
	high   []string
	medium []string
}

var riskDomainMarkers = map[RiskDomain]domainMarkers{
	RiskFinancial: {
		high:   []string{"payment", "wire", "transfer", "bank", "invoice", "price", "budget"},
		medium: []string{"cost", "spend", "buy", "sell", "refund"},
	},
	RiskLegalRegulatory: {
		high:   []string{"illegal", "lawsuit", "regulation", "compliance", "violate", "breach"},
		medium: []string{"contract", "terms", "policy", "license"},
	},
	RiskMedicalBiological: {
		high:   []string{"surgery", "prescription", "dose", "diagnosis", "clinical", "biological"},
		medium: []string{"health", "symptom", "treatment", "therapy"},
	},
	RiskPhysicalSafety: {
		high:   []string{"weapon", "attack", "crash", "hazard", "injury", "kill"},
		medium: []string{"dangerous", "safety", "accident", "exposure"},
	},
	RiskPsychologicalEmotional: {
		high:   []string{"self-harm", "suicide", "panic", "trauma"},
		medium: []string{"stress", "anxiety", "depressed", "bullying"},
	},
	RiskEthicalMoral: {
		high:   []string{"plagiarize", "cheat", "fraud", "bribe"},
		medium: []string{"fair", "ethical", "moral", "integrity"},
	},
	RiskReputationalSocial: {
		high:   []string{"defamation", "slander", "libel", "cancel"},
		medium: []string{"public image", "reputation", "social backlash"},
	},
	RiskOperationalSystemic: {
		high:   []string{"outage", "downtime", "system failure"},
		medium: []string{"deployment", "rollback", "maintenance"},
	},
	RiskIrreversiblePersonal: {
		high:   []string{"irreversible", "permanent damage"},
		medium: []string{"lifelong", "cannot undo"},
	},
	RiskLegalAdjacentGrayZone: {
		high:   []string{"loophole", "gray area", "grey area"},
		medium: []string{"borderline", "edge case"},
	},
}

// riskDomainOrder fixes iteration order for deterministic output, matching
// the source's declaration order.
var riskDomainOrder = []RiskDomain{
	RiskFinancial, RiskLegalRegulatory, RiskMedicalBiological, RiskPhysicalSafety,
	RiskPsychologicalEmotional, RiskEthicalMoral, RiskReputationalSocial,
	RiskOperationalSystemic, RiskIrreversiblePersonal, RiskLegalAdjacentGrayZone,
}

func classifyRiskDomains(text string) []RiskAssessment {
	var out []RiskAssessment
	for _, domain := range riskDomainOrder {
		m := riskDomainMarkers[domain]
		var confidence ConfidenceLevel
		if containsAny(text, m.high) {
			confidence = ConfidenceHigh
		} else if containsAny(text, m.medium) {
			confidence = ConfidenceMedium
		}
		if confidence != "" {
			out = append(out, RiskAssessment{Domain: domain, Confidence: confidence})
		}
	}
	return out
}

func applyRiskDomains(s *State, message, framing string) {
	text := lower(message) + " " + lower(framing)
	assessments := classifyRiskDomains(text)

	if len(assessments) == 0 {
		assessments = append(assessments, RiskAssessment{Domain: RiskUnknown, Confidence: ConfidenceLow})
		s.ExplicitUnknownZone = addUnknown(s.ExplicitUnknownZone, UnknownRiskDomains)
		s.ExplicitUnknownZone = addUnknown(s.ExplicitUnknownZone, UnknownConfidence)
	}

	// Deduplicate while preserving first confidence, same as the source.
	seen := make(map[RiskDomain]bool)
	unique := make([]RiskAssessment, 0, len(assessments))
	for _, ra := range assessments {
		if seen[ra.Domain] {
			continue
		}
		seen[ra.Domain] = true
		unique = append(unique, ra)
	}

	hasUnknownDomain := false
	for _, ra := range unique {
		if ra.Domain == RiskUnknown {
			hasUnknownDomain = true
		}
	}
	if hasUnknownDomain {
		s.ExplicitUnknownZone = addUnknown(s.ExplicitUnknownZone, UnknownRiskDomains)
		s.ExplicitUnknownZone = addUnknown(s.ExplicitUnknownZone, UnknownConfidence)
	}
	if s.Proximity == ProximityImminent && len(s.ExplicitUnknownZone) == 0 {
		s.ExplicitUnknownZone = addUnknown(s.ExplicitUnknownZone, UnknownRiskDomains)
	}

	s.RiskDomains = unique
}
