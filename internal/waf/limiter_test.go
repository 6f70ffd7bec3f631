package waf

import (
	"context"
	"testing"
	"time"
)

// mutableClock lets a test advance "now" deterministically.
type mutableClock struct{ at time.Time }

func (m *mutableClock) Now() time.Time   { return m.at }
func (m *mutableClock) NowMillis() int64 { return m.at.UnixMilli() }
func (m *mutableClock) advance(d time.Duration) { m.at = m.at.Add(d) }

func newTestLimiter(clk *mutableClock) *Limiter {
	return NewLimiter(nil, clk, []int{30, 120, 600}, 1800)
}

func TestLimiterAllowsUnderBurstLimit(t *testing.T) {
	clk := &mutableClock{at: time.Unix(1_700_000_000, 0)}
	l := newTestLimiter(clk)
	windows := []LimitWindow{{Limit: 3, WindowSeconds: 10}}

	for i := 0; i < 3; i++ {
		res := l.Check(context.Background(), ScopeIP, "1.2.3.4", windows)
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if !res.UsedFallback {
			t.Error("nil redis client must report UsedFallback")
		}
	}
}

func TestLimiterLocksOutAfterBurstExceeded(t *testing.T) {
	clk := &mutableClock{at: time.Unix(1_700_000_000, 0)}
	l := newTestLimiter(clk)
	windows := []LimitWindow{{Limit: 2, WindowSeconds: 10}}

	for i := 0; i < 2; i++ {
		if res := l.Check(context.Background(), ScopeIP, "5.5.5.5", windows); !res.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	res := l.Check(context.Background(), ScopeIP, "5.5.5.5", windows)
	if res.Allowed {
		t.Fatal("third request should be locked out")
	}
	if res.RetryAfter != 30*time.Second {
		t.Errorf("expected first lockout rung (30s), got %s", res.RetryAfter)
	}

	// Still locked out, even though the burst window itself has lapsed.
	clk.advance(20 * time.Second)
	res = l.Check(context.Background(), ScopeIP, "5.5.5.5", windows)
	if res.Allowed {
		t.Fatal("should remain locked out until the lockout duration elapses")
	}
}

func TestLimiterEscalatesLockoutLadderOnRepeatedStrikes(t *testing.T) {
	clk := &mutableClock{at: time.Unix(1_700_000_000, 0)}
	l := newTestLimiter(clk)
	windows := []LimitWindow{{Limit: 1, WindowSeconds: 1000}}

	l.Check(context.Background(), ScopeIP, "9.9.9.9", windows) // consumes the allowance
	first := l.Check(context.Background(), ScopeIP, "9.9.9.9", windows)
	if first.Allowed || first.RetryAfter != 30*time.Second {
		t.Fatalf("expected first strike at 30s, got allowed=%v retry=%s", first.Allowed, first.RetryAfter)
	}

	clk.advance(31 * time.Second) // lockout elapses, but strikes are not yet forgotten
	second := l.Check(context.Background(), ScopeIP, "9.9.9.9", windows)
	if second.Allowed {
		t.Fatal("request immediately after lockout elapses should reconsume the window and re-trigger")
	}
	if second.RetryAfter != 120*time.Second {
		t.Errorf("expected second strike to escalate to 120s, got %s", second.RetryAfter)
	}
}

func TestLimiterScopesIndependently(t *testing.T) {
	clk := &mutableClock{at: time.Unix(1_700_000_000, 0)}
	l := newTestLimiter(clk)
	windows := []LimitWindow{{Limit: 1, WindowSeconds: 10}}

	l.Check(context.Background(), ScopeIP, "shared-id", windows)
	res := l.Check(context.Background(), ScopeSubject, "shared-id", windows)
	if !res.Allowed {
		t.Error("ip and subject scopes must not share state even with the same id")
	}
}
