package waf

import (
	"context"
	"net/http"

	"governedchat/internal/config"
	"governedchat/internal/identity"
)

// Guard composes request validation with IP- and subject-scoped rate
// limiting into the single admission check the orchestrator calls for each
// enforced route.
type Guard struct {
	Settings config.WAFSettings
	Limiter  *Limiter
}

func NewGuard(settings config.WAFSettings, limiter *Limiter) *Guard {
	return &Guard{Settings: settings, Limiter: limiter}
}

// Admit runs the full WAF check in spec priority order: payload/content-type
// validation, then IP burst+sustain, then subject burst+sustain (when an
// identity is resolved). It returns the extracted user_text on success.
// usedFallback reports whether any rate-limit check fell back to the
// in-process limiter, so the caller can flag the request for telemetry.
func (g *Guard) Admit(ctx context.Context, req *http.Request, ident *identity.Context) (userText string, usedFallback bool, wafErr *Error) {
	if !RouteEnforced(req.URL.Path, g.Settings.EnforceRoutes) {
		return "", false, nil
	}

	text, verr := ValidateRequest(req, g.Settings)
	if verr != nil {
		return "", false, verr
	}

	ipID := ident.IPHash
	ipResult := g.Limiter.Check(ctx, ScopeIP, ipID, []LimitWindow{
		{Limit: g.Settings.IPBurstLimit, WindowSeconds: g.Settings.IPBurstWindowSeconds},
		{Limit: g.Settings.IPSustainLimit, WindowSeconds: g.Settings.IPSustainWindowSeconds},
	})
	if ipResult.UsedFallback {
		usedFallback = true
	}
	if !ipResult.Allowed {
		return "", usedFallback, newError(http.StatusTooManyRequests, "rate_limited", "Too many requests from IP.").
			withRetryAfter(int(ipResult.RetryAfter.Seconds())).withScope(ScopeIP)
	}

	if ident != nil && ident.SubjectID != "" {
		subResult := g.Limiter.Check(ctx, ScopeSubject, ident.SubjectID, []LimitWindow{
			{Limit: g.Settings.SubjBurstLimit, WindowSeconds: g.Settings.SubjBurstWindowSeconds},
			{Limit: g.Settings.SubjSustainLimit, WindowSeconds: g.Settings.SubjSustainWindowSeconds},
		})
		if subResult.UsedFallback {
			usedFallback = true
		}
		if !subResult.Allowed {
			return "", usedFallback, newError(http.StatusTooManyRequests, "rate_limited", "Too many requests for this subject.").
				withRetryAfter(int(subResult.RetryAfter.Seconds())).withScope(ScopeSubject)
		}
	}

	return text, usedFallback, nil
}
