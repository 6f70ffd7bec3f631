package decision

// Reversibility and consequence-horizon classification, ported from
// original_source/mci_backend/decision_irreversibility.py.

var irreversibleMarkers = []string{
	"cannot undo", "irreversible", "permanent", "one-way", "destructive",
	"non-recoverable", "delete permanently",
}

var costlyReversibleMarkers = []string{
	"requires approval", "contract", "legal", "surgery", "compliance", "license", "migration", "downtime",
}

var easilyReversibleMarkers = []string{
	"draft", "temporary", "test", "trial", "prototype", "undo", "rollback", "revert",
}

func classifyReversibility(text string) (ReversibilityClass, bool) {
	if containsAny(text, irreversibleMarkers) {
		return ReversibilityIrreversible, false
	}
	if containsAny(text, costlyReversibleMarkers) {
		return ReversibilityCostly, false
	}
	if containsAny(text, easilyReversibleMarkers) {
		return ReversibilityEasily, true
	}
	return ReversibilityUnknown, true
}

var longHorizonMarkers = []string{
	"years", "decades", "lifetime", "forever", "permanent", "long term", "long-term", "irreversible",
}

var mediumHorizonMarkers = []string{
	"months", "quarter", "this year", "over time", "medium term", "medium-term",
}

var shortHorizonMarkers = []string{
	"today", "now", "tonight", "this week", "immediately", "soon", "short term", "short-term",
}

func classifyHorizon(text string) (ConsequenceHorizon, bool) {
	if containsAny(text, longHorizonMarkers) {
		return HorizonLong, false
	}
	if containsAny(text, mediumHorizonMarkers) {
		return HorizonMedium, false
	}
	if containsAny(text, shortHorizonMarkers) {
		return HorizonShort, true
	}
	return HorizonUnknown, true
}

func applyIrreversibility(s *State, message, framing string) {
	text := lower(message) + " " + lower(framing)

	reversibility, revUncertain := classifyReversibility(text)
	horizon, horizonUncertain := classifyHorizon(text)

	if revUncertain {
		s.ExplicitUnknownZone = addUnknown(s.ExplicitUnknownZone, UnknownReversibility)
	}
	if horizonUncertain {
		s.ExplicitUnknownZone = addUnknown(s.ExplicitUnknownZone, UnknownHorizon)
	}
	if reversibility == ReversibilityUnknown {
		s.ExplicitUnknownZone = addUnknown(s.ExplicitUnknownZone, UnknownReversibility)
	}
	if horizon == HorizonUnknown {
		s.ExplicitUnknownZone = addUnknown(s.ExplicitUnknownZone, UnknownHorizon)
	}
	if reversibility == ReversibilityIrreversible {
		s.ExplicitUnknownZone = addUnknown(s.ExplicitUnknownZone, UnknownReversibility)
	}
	if horizon == HorizonLong {
		s.ExplicitUnknownZone = addUnknown(s.ExplicitUnknownZone, UnknownHorizon)
	}

	s.ReversibilityClass = reversibility
	s.ConsequenceHorizon = horizon
}
