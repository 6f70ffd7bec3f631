// Package cost implements the cost policy: a fixed, ordered chain of checks
// (request cap, circuit breaker, global daily budget, per-IP window, per-actor
// daily budget) guarding every model invocation, plus the post-outcome
// counter and breaker mutations that keep those checks accurate.
package cost

// Scope identifies which check produced a denial.
type Scope string

const (
	ScopeRequestCap  Scope = "request_cap"
	ScopeBreaker     Scope = "breaker"
	ScopeGlobalDaily Scope = "global_daily"
	ScopeIPWindow    Scope = "ip_window"
	ScopeActorDaily  Scope = "actor_daily"
)

// Decision is the result of running the ordered check chain.
type Decision struct {
	Allowed    bool
	Scope      Scope  // set only when Allowed is false
	Reason     string // set only when Allowed is false
	RetryAfter int    // seconds, 0 means unset
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(scope Scope, reason string, retryAfter int) Decision {
	return Decision{Allowed: false, Scope: scope, Reason: reason, RetryAfter: retryAfter}
}

// Estimate is the caller's pre-invocation token estimate, checked against
// request, global, IP, and actor caps before a model call is admitted.
type Estimate struct {
	InputTokens  int
	OutputTokens int
}

func (e Estimate) total() int64 {
	return int64(e.InputTokens) + int64(e.OutputTokens)
}
