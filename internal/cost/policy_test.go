package cost

import (
	"testing"
	"time"

	"governedchat/internal/config"
)

func testSettings() config.CostSettings {
	return config.CostSettings{
		GlobalDailyTokenCap:     10_000,
		IPWindowTokenCap:        2_000,
		IPWindowSeconds:         60,
		ActorDailyTokenCap:      5_000,
		RequestMaxTokens:        1_000,
		RequestMaxOutputTokens:  500,
		BreakerFailureThreshold: 3,
		BreakerWindowSeconds:    60,
		BreakerCooldownSeconds:  30,
	}
}

func TestPolicyCheckAllowsWithinAllCaps(t *testing.T) {
	clk := &mutableClock{at: time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)}
	p := NewPolicy(testSettings(), clk)
	d := p.Check("bedrock", "claude-3", "1.2.3.4", "actor1", Estimate{InputTokens: 100, OutputTokens: 100})
	if !d.Allowed {
		t.Fatalf("expected allow, got %+v", d)
	}
}

func TestPolicyCheckDeniesOnRequestCapFirst(t *testing.T) {
	clk := &mutableClock{at: time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)}
	p := NewPolicy(testSettings(), clk)
	d := p.Check("bedrock", "claude-3", "1.2.3.4", "actor1", Estimate{InputTokens: 900, OutputTokens: 200})
	if d.Allowed || d.Scope != ScopeRequestCap {
		t.Fatalf("expected request_cap denial, got %+v", d)
	}
}

func TestPolicyCheckDeniesOnOutputCap(t *testing.T) {
	clk := &mutableClock{at: time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)}
	p := NewPolicy(testSettings(), clk)
	d := p.Check("bedrock", "claude-3", "1.2.3.4", "actor1", Estimate{InputTokens: 10, OutputTokens: 600})
	if d.Allowed || d.Scope != ScopeRequestCap || d.Reason != "request_output_token_cap_exceeded" {
		t.Fatalf("expected request_cap output denial, got %+v", d)
	}
}

func TestPolicyCheckDeniesWhenBreakerOpen(t *testing.T) {
	clk := &mutableClock{at: time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)}
	p := NewPolicy(testSettings(), clk)
	for i := 0; i < 3; i++ {
		p.PostFailure("bedrock", "claude-3")
	}
	d := p.Check("bedrock", "claude-3", "1.2.3.4", "actor1", Estimate{InputTokens: 10, OutputTokens: 10})
	if d.Allowed || d.Scope != ScopeBreaker {
		t.Fatalf("expected breaker denial after consecutive failures, got %+v", d)
	}
}

func TestPolicyCheckBreakerIsolatedPerProviderModel(t *testing.T) {
	clk := &mutableClock{at: time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)}
	p := NewPolicy(testSettings(), clk)
	for i := 0; i < 3; i++ {
		p.PostFailure("bedrock", "claude-3")
	}
	d := p.Check("bedrock", "claude-3-haiku", "1.2.3.4", "actor1", Estimate{InputTokens: 10, OutputTokens: 10})
	if !d.Allowed {
		t.Fatalf("expected a distinct model's breaker to be unaffected, got %+v", d)
	}
}

func TestPolicyCheckDeniesOnGlobalDailyAfterSuccesses(t *testing.T) {
	clk := &mutableClock{at: time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)}
	settings := testSettings()
	settings.GlobalDailyTokenCap = 500
	p := NewPolicy(settings, clk)
	p.PostSuccess("bedrock", "claude-3", "9.9.9.9", "actor9", 450)

	d := p.Check("bedrock", "claude-3", "1.1.1.1", "actor1", Estimate{InputTokens: 50, OutputTokens: 50})
	if d.Allowed || d.Scope != ScopeGlobalDaily {
		t.Fatalf("expected global_daily denial, got %+v", d)
	}
}

func TestPolicyCheckSkipsActorDailyWhenActorEmpty(t *testing.T) {
	clk := &mutableClock{at: time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)}
	settings := testSettings()
	settings.ActorDailyTokenCap = 1
	p := NewPolicy(settings, clk)
	d := p.Check("bedrock", "claude-3", "1.2.3.4", "", Estimate{InputTokens: 10, OutputTokens: 10})
	if !d.Allowed {
		t.Fatalf("expected allow when actor is empty regardless of actor cap, got %+v", d)
	}
}

func TestPolicyPostSuccessResetsBreakerAfterFailures(t *testing.T) {
	clk := &mutableClock{at: time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)}
	p := NewPolicy(testSettings(), clk)
	p.PostFailure("bedrock", "claude-3")
	p.PostFailure("bedrock", "claude-3")
	p.PostSuccess("bedrock", "claude-3", "1.2.3.4", "actor1", 10)

	d := p.Check("bedrock", "claude-3", "1.2.3.4", "actor1", Estimate{InputTokens: 10, OutputTokens: 10})
	if !d.Allowed {
		t.Fatalf("expected breaker to stay closed after a success resets consecutive failures, got %+v", d)
	}
}
