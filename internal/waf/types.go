// Package waf implements the WAF guard: per-route payload
// and content-type admission, followed by priority-ordered burst/sustain
// rate limiting with a lockout ladder. Backed by a Redis sliding window
// (grounded on agent/redis_rate_limit.go's pipelined
// ZREMRANGEBYSCORE/ZCARD/ZADD/EXPIRE idiom) with a process-local fallback
// when Redis is unreachable.
package waf

import "time"

// Scope names which identity axis a limit window applies to.
type Scope string

const (
	ScopeIP      Scope = "ip"
	ScopeSubject Scope = "subject"
)

// LimitWindow is one (limit, window) pair, e.g. burst or sustain.
type LimitWindow struct {
	Limit         int
	WindowSeconds int
}

// Result is the outcome of a rate-limit check against a single scope.
type Result struct {
	Allowed      bool
	Scope        Scope
	RetryAfter   time.Duration
	UsedFallback bool
}
