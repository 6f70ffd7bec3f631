package retrieval

import "testing"

func TestCheckAndConsumeAllowsWithinWindow(t *testing.T) {
	cfg := RateLimitConfig{MaxCallsPerMinute: 3, WindowSeconds: 60}
	state := NewRateLimiterState(1000)

	state, ok := CheckAndConsume(state, cfg, 1000)
	if !ok || state.CallsInWindow != 1 {
		t.Fatalf("expected first call allowed, got ok=%v state=%+v", ok, state)
	}
	state, ok = CheckAndConsume(state, cfg, 2000)
	if !ok || state.CallsInWindow != 2 {
		t.Fatalf("expected second call allowed, got ok=%v state=%+v", ok, state)
	}
	state, ok = CheckAndConsume(state, cfg, 3000)
	if !ok || state.CallsInWindow != 3 {
		t.Fatalf("expected third call allowed, got ok=%v state=%+v", ok, state)
	}
}

func TestCheckAndConsumeDeniesOverLimit(t *testing.T) {
	cfg := RateLimitConfig{MaxCallsPerMinute: 1, WindowSeconds: 60}
	state := NewRateLimiterState(1000)

	state, ok := CheckAndConsume(state, cfg, 1000)
	if !ok {
		t.Fatalf("expected first call allowed")
	}
	_, ok = CheckAndConsume(state, cfg, 1500)
	if ok {
		t.Fatalf("expected second call denied under limit of 1")
	}
}

func TestCheckAndConsumeResetsNewWindow(t *testing.T) {
	cfg := RateLimitConfig{MaxCallsPerMinute: 1, WindowSeconds: 60}
	state := NewRateLimiterState(1000)

	state, ok := CheckAndConsume(state, cfg, 1000)
	if !ok {
		t.Fatalf("expected first call allowed")
	}
	state, ok = CheckAndConsume(state, cfg, 1000+60*1000)
	if !ok || state.CallsInWindow != 1 {
		t.Fatalf("expected window reset to allow a new call, got ok=%v state=%+v", ok, state)
	}
}

func TestCheckAndConsumeInvalidConfigDenies(t *testing.T) {
	cfg := RateLimitConfig{MaxCallsPerMinute: 0, WindowSeconds: 60}
	state := NewRateLimiterState(1000)

	newState, ok := CheckAndConsume(state, cfg, 1000)
	if ok {
		t.Fatalf("expected invalid config to deny")
	}
	if newState != state {
		t.Fatalf("expected state unchanged on invalid config")
	}
}
