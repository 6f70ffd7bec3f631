package cost

import (
	"testing"
	"time"

	"governedchat/internal/clock"
)

func TestCheckGlobalAllowsUnderCap(t *testing.T) {
	c := NewCounters(clock.Fixed{At: time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)}, 60)
	if d := c.CheckGlobal(100, 1000); !d.Allowed {
		t.Fatalf("expected allow, got %+v", d)
	}
}

func TestCheckGlobalDeniesOverCap(t *testing.T) {
	c := NewCounters(clock.Fixed{At: time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)}, 60)
	c.RecordSuccess("ip1", "actor1", 900, 1000)
	d := c.CheckGlobal(200, 1000)
	if d.Allowed || d.Scope != ScopeGlobalDaily {
		t.Fatalf("expected global_daily denial, got %+v", d)
	}
}

func TestCheckGlobalResetsOnNewDay(t *testing.T) {
	clk := &mutableClock{at: time.Date(2026, 7, 30, 23, 0, 0, 0, time.UTC)}
	c := NewCounters(clk, 60)
	c.RecordSuccess("ip1", "actor1", 900, 1000)

	clk.at = time.Date(2026, 7, 31, 0, 5, 0, 0, time.UTC)
	if d := c.CheckGlobal(900, 1000); !d.Allowed {
		t.Fatalf("expected global counter to reset across UTC day boundary, got %+v", d)
	}
}

func TestCheckIPWindowDeniesOverCapWithinWindow(t *testing.T) {
	clk := &mutableClock{at: time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)}
	c := NewCounters(clk, 60)
	c.RecordSuccess("1.2.3.4", "actor1", 80, 1000)
	d := c.CheckIPWindow("1.2.3.4", 30, 100)
	if d.Allowed || d.Scope != ScopeIPWindow {
		t.Fatalf("expected ip_window denial, got %+v", d)
	}
}

func TestCheckIPWindowIsolatesDistinctIPs(t *testing.T) {
	clk := &mutableClock{at: time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)}
	c := NewCounters(clk, 60)
	c.RecordSuccess("1.2.3.4", "actor1", 90, 1000)
	if d := c.CheckIPWindow("5.6.7.8", 90, 100); !d.Allowed {
		t.Fatalf("expected distinct IP to have its own window, got %+v", d)
	}
}

func TestCheckActorDailySkippedWhenCapUnconfigured(t *testing.T) {
	c := NewCounters(clock.Real, 60)
	if d := c.CheckActorDaily("actor1", 1_000_000, 0); !d.Allowed {
		t.Fatalf("expected actor_daily check to no-op when cap is 0, got %+v", d)
	}
}

func TestCheckActorDailyDeniesOverCap(t *testing.T) {
	clk := &mutableClock{at: time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)}
	c := NewCounters(clk, 60)
	c.RecordSuccess("ip1", "actor1", 450, 10_000)
	d := c.CheckActorDaily("actor1", 100, 500)
	if d.Allowed || d.Scope != ScopeActorDaily {
		t.Fatalf("expected actor_daily denial, got %+v", d)
	}
}

func TestMaybeAlertGlobalDedupesPerThresholdPerDay(t *testing.T) {
	clk := &mutableClock{at: time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)}
	c := NewCounters(clk, 60)

	c.RecordSuccess("ip1", "actor1", 850, 1000) // crosses 80%
	if !c.hasAlertedThreshold(dayKey(clk.at), 80) {
		t.Fatal("expected 80% threshold to be marked alerted")
	}

	c.RecordSuccess("ip1", "actor1", 10, 1000) // still above 80%, must not re-alert
	// re-marking is idempotent; the assertion here is just that it didn't panic
	// or double count, covered by the dedup map itself being a no-op set.
	if !c.hasAlertedThreshold(dayKey(clk.at), 80) {
		t.Fatal("expected 80% threshold to remain alerted")
	}
}

type mutableClock struct {
	at time.Time
}

func (m *mutableClock) Now() time.Time   { return m.at }
func (m *mutableClock) NowMillis() int64 { return m.at.UnixMilli() }
