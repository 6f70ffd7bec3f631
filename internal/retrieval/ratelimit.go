package retrieval

// RateLimitConfig is a fixed-window rate limit, evaluated against injected
// time rather than the wall clock, so the same inputs always produce the
// same outputs.
type RateLimitConfig struct {
	MaxCallsPerMinute int
	WindowSeconds     int64
}

// RateLimiterState is the fixed window's immutable state.
type RateLimiterState struct {
	WindowStartMS  int64
	CallsInWindow  int
}

// NewRateLimiterState opens a fresh window starting at nowMS.
func NewRateLimiterState(nowMS int64) RateLimiterState {
	return RateLimiterState{WindowStartMS: nowMS, CallsInWindow: 0}
}

func validRateLimitConfig(c RateLimitConfig) bool {
	return c.MaxCallsPerMinute > 0 && c.WindowSeconds > 0
}

// CheckAndConsume checks whether a call is allowed under the fixed window
// and, if so, returns the state with a slot consumed. An invalid config
// always denies, leaving the state unchanged, it is the caller's job to
// map that to a stop reason.
func CheckAndConsume(state RateLimiterState, config RateLimitConfig, nowMS int64) (RateLimiterState, bool) {
	if !validRateLimitConfig(config) {
		return state, false
	}

	windowEndMS := state.WindowStartMS + config.WindowSeconds*1000
	if nowMS >= windowEndMS {
		return RateLimiterState{WindowStartMS: nowMS, CallsInWindow: 1}, true
	}
	if state.CallsInWindow < config.MaxCallsPerMinute {
		return RateLimiterState{WindowStartMS: state.WindowStartMS, CallsInWindow: state.CallsInWindow + 1}, true
	}
	return state, false
}
