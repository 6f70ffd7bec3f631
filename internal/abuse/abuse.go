// Package abuse implements the abuse scorer: a pure,
// deterministic function over request signals producing an ALLOW /
// RATE_LIMIT / BLOCK decision. Grounded directly on
// original_source/backend/app/security/abuse.py, ported field-for-field.
package abuse

import "strings"

type Action string

const (
	ActionAllow     Action = "ALLOW"
	ActionRateLimit Action = "RATE_LIMIT"
	ActionBlock     Action = "BLOCK"
)

// Context carries the request signals the scorer reads. All string fields
// are compared case-insensitively.
type Context struct {
	Path            string
	Method          string
	UserAgent       string
	Accept          string
	ContentType     string
	WAFLimiter      string
	RequestScheme   string
	HasAuth         bool
	IsSensitivePath bool
	IsNonLocal      bool
}

// Decision is the scorer's verdict.
type Decision struct {
	Allowed      bool
	Action       Action
	Score        int
	Reason       string
	RetryAfterS  int // 0 means unset
}

var suspiciousUAMarkers = []string{"curl", "python-requests", "wget"}
var wafLimiterMarkers = []string{"limited", "blocked", "rate", "waf"}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsAny(haystack string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(haystack, m) {
			return true
		}
	}
	return false
}

func buildReason(triggers []string) string {
	if len(triggers) == 0 {
		return "OK"
	}
	n := len(triggers)
	if n > 2 {
		n = 2
	}
	joined := strings.Join(triggers[:n], "+")
	if len(joined) > 120 {
		joined = joined[:120]
	}
	return joined
}

// Decide scores the request and returns the admission decision. Pure and
// side-effect free; callers own any telemetry recording.
func Decide(ctx Context) Decision {
	score := 0
	var triggers []string

	ua := normalize(ctx.UserAgent)
	accept := normalize(ctx.Accept)
	contentType := normalize(ctx.ContentType)
	method := normalize(ctx.Method)
	scheme := normalize(ctx.RequestScheme)

	if ua == "" {
		score += 30
		triggers = append(triggers, "missing_ua")
	} else if containsAny(ua, suspiciousUAMarkers) {
		score += 10
		triggers = append(triggers, "ua_marker")
	}

	if accept == "" {
		score += 15
		triggers = append(triggers, "missing_accept")
	}

	if ctx.Path == "/api/chat" && method == "post" && !strings.Contains(contentType, "application/json") {
		score += 15
		triggers = append(triggers, "missing_ct")
	}

	if ctx.Path != "" && method != "post" && method != "get" && method != "options" {
		score += 10
		triggers = append(triggers, "odd_method")
	}

	if ctx.IsSensitivePath && !ctx.HasAuth {
		score += 15
		triggers = append(triggers, "anon_sensitive")
	}

	if ctx.WAFLimiter != "" && containsAny(normalize(ctx.WAFLimiter), wafLimiterMarkers) {
		score += 10
		triggers = append(triggers, "waf_signal")
	}

	if scheme != "https" && ctx.IsNonLocal {
		score += 10
		triggers = append(triggers, "non_https")
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	action := ActionAllow
	retryAfter := 0
	switch {
	case score >= 90:
		action = ActionBlock
		retryAfter = 600
	case score >= 70:
		action = ActionRateLimit
		retryAfter = 60
	}

	return Decision{
		Allowed:     action == ActionAllow,
		Action:      action,
		Score:       score,
		Reason:      buildReason(triggers),
		RetryAfterS: retryAfter,
	}
}
