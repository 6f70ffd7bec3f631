package reliability

import "strings"

var placeholderMarkers = []string{"lorem ipsum", "todo", "<insert"}

// safetyBlocked reports whether text trips the keyword list, or is forced
// to trip regardless of content by the FORCE_SAFETY_BLOCK chaos flag.
func safetyBlocked(text string, keywords []string, forced bool) bool {
	if forced {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// qualityOK reports whether text clears the quality bar (non-empty, at
// least 40 characters, no placeholder marker). A failing result is never
// blocking, callers only use it to flag the answer for observability.
func qualityOK(text string, forced bool) bool {
	if forced {
		return false
	}
	if len(strings.TrimSpace(text)) < 40 {
		return false
	}
	lower := strings.ToLower(text)
	for _, m := range placeholderMarkers {
		if strings.Contains(lower, m) {
			return false
		}
	}
	return true
}
