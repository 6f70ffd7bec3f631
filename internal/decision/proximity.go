package decision

// Proximity classification has no surviving source file in the retrieval
// pack (decision_proximity.py is referenced by decision_assembly.py but was
// filtered out upstream); it is supplemented here in the same shape as its
// sibling classifiers: a keyword table over lowercased text, most-urgent
// marker wins, falling back to UNKNOWN when nothing matches.

var imminentMarkers = []string{
	"right now", "happening now", "about to", "in the next few minutes", "currently doing",
}

var highProximityMarkers = []string{
	"today", "this afternoon", "in an hour", "tonight", "within the hour",
}

var mediumProximityMarkers = []string{
	"this week", "soon", "in a few days", "coming days",
}

var lowProximityMarkers = []string{
	"eventually", "someday", "no rush", "down the line", "at some point",
}

// classifyProximity returns the proximity and whether the classification is
// uncertain (true whenever no marker table matched).
func classifyProximity(text string) (Proximity, bool) {
	if containsAny(text, imminentMarkers) {
		return ProximityImminent, false
	}
	if containsAny(text, highProximityMarkers) {
		return ProximityHigh, false
	}
	if containsAny(text, mediumProximityMarkers) {
		return ProximityMedium, false
	}
	if containsAny(text, lowProximityMarkers) {
		return ProximityLow, false
	}
	return ProximityUnknown, true
}

func applyProximity(s *State, message, framing string) {
	text := lower(message) + " " + lower(framing)
	proximity, uncertain := classifyProximity(text)
	s.Proximity = proximity
	if uncertain {
		s.ExplicitUnknownZone = addUnknown(s.ExplicitUnknownZone, UnknownProximity)
	}
}
