package memory

import "strings"

// ForbiddenReason is the closed, priority-ordered set of reasons a write is
// rejected. Lower index wins when a fact trips more than one.
type ForbiddenReason string

const (
	ReasonCredential   ForbiddenReason = "CREDENTIAL"
	ReasonHealth       ForbiddenReason = "HEALTH"
	ReasonFinancial    ForbiddenReason = "FINANCIAL"
	ReasonLegal        ForbiddenReason = "LEGAL"
	ReasonPoliticalReligious ForbiddenReason = "POLITICAL_RELIGIOUS"
	ReasonSexualContent ForbiddenReason = "SEXUAL_CONTENT"
)

var forbiddenReasonPriority = []ForbiddenReason{
	ReasonCredential, ReasonHealth, ReasonFinancial, ReasonLegal,
	ReasonPoliticalReligious, ReasonSexualContent,
}

var forbiddenMarkers = map[ForbiddenReason][]string{
	ReasonCredential:         {"password", "api key", "ssh key", "credit card", "ssn", "ccv"},
	ReasonHealth:             {"diagnosis", "medication", "hiv", "pregnan", "mental illness"},
	ReasonFinancial:          {"bank account", "routing number", "income of", "net worth"},
	ReasonLegal:              {"lawsuit", "criminal record", "felony", "under investigation"},
	ReasonPoliticalReligious: {"voted for", "political party", "religion is", "believes in god"},
	ReasonSexualContent:      {"sexual orientation", "explicit content"},
}

func scanTextForbidden(text string) (bool, ForbiddenReason) {
	lower := strings.ToLower(text)
	for _, reason := range forbiddenReasonPriority {
		for _, marker := range forbiddenMarkers[reason] {
			if strings.Contains(lower, marker) {
				return true, reason
			}
		}
	}
	return false, ""
}

// ScanFactsForbidden scans every fact's key, value, and tags in priority
// order and rejects the WHOLE write the moment any fact trips a forbidden
// marker, returning the highest-priority reason found across all facts.
func ScanFactsForbidden(facts []MemoryFact) (bool, ForbiddenReason) {
	var hit bool
	var best ForbiddenReason
	bestRank := len(forbiddenReasonPriority)

	for _, f := range facts {
		candidates := append([]string{f.Key, f.Value}, f.Tags...)
		for _, text := range candidates {
			if forbidden, reason := scanTextForbidden(text); forbidden {
				hit = true
				for rank, r := range forbiddenReasonPriority {
					if r == reason && rank < bestRank {
						bestRank = rank
						best = reason
					}
				}
			}
		}
	}
	return hit, best
}
