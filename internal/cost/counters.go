package cost

import (
	"sync"
	"time"

	"governedchat/internal/clock"
	"governedchat/shared/logger"
)

// alertThresholds are the global-daily-cap percentages that trigger a
// deduplicated WARN log, mirroring the teacher's budget-alert thresholds.
var alertThresholds = []int{80, 95, 100}

// Counters holds the process-local, in-memory state backing global_daily,
// ip_window, and actor_daily. None of this is persisted, a restart resets
// every counter, which is acceptable since these are abuse/cost guards, not
// a billing ledger (billing lives in the persisted quotas table, see
// internal/plan).
type Counters struct {
	clk clock.Clock
	log *logger.Logger

	mu sync.Mutex

	globalDay    string
	globalTokens int64

	ipWindowSeconds int64
	ipBucket        map[string]int64 // ip -> floor(now/window)
	ipTokens        map[string]int64

	actorDay    map[string]string
	actorTokens map[string]int64

	alertedThresholds map[string]map[int]bool // keyed by globalDay
}

func NewCounters(clk clock.Clock, ipWindowSeconds int) *Counters {
	return &Counters{
		clk:               clk,
		log:               logger.New("cost"),
		ipWindowSeconds:   int64(ipWindowSeconds),
		ipBucket:          make(map[string]int64),
		ipTokens:          make(map[string]int64),
		actorDay:          make(map[string]string),
		actorTokens:       make(map[string]int64),
		alertedThresholds: make(map[string]map[int]bool),
	}
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// rollGlobal resets the global counter when the UTC day has turned over.
// Caller must hold mu.
func (c *Counters) rollGlobal(today string) {
	if c.globalDay != today {
		c.globalDay = today
		c.globalTokens = 0
	}
}

// rollActor resets one actor's daily counter on day turnover. Caller holds mu.
func (c *Counters) rollActor(actor, today string) {
	if c.actorDay[actor] != today {
		c.actorDay[actor] = today
		c.actorTokens[actor] = 0
	}
}

// CheckGlobal compares the global daily counter plus an estimate against cap.
func (c *Counters) CheckGlobal(est int64, cap int64) Decision {
	today := dayKey(c.clk.Now())

	c.mu.Lock()
	defer c.mu.Unlock()

	c.rollGlobal(today)
	if c.globalTokens+est > cap {
		return deny(ScopeGlobalDaily, "global_daily_cap_exceeded", secondsUntilUTCMidnight(c.clk.Now()))
	}
	return allow()
}

// CheckIPWindow compares a per-IP rolling window counter plus an estimate
// against cap. The window is a single floor-divided bucket (not a sliding
// log), coarser than the WAF limiter's accounting, adequate for a cost
// guard rather than an abuse lockout.
func (c *Counters) CheckIPWindow(ip string, est int64, cap int64) Decision {
	if c.ipWindowSeconds <= 0 {
		return allow()
	}
	now := c.clk.Now().Unix()
	bucket := now / c.ipWindowSeconds

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ipBucket[ip] != bucket {
		c.ipBucket[ip] = bucket
		c.ipTokens[ip] = 0
	}
	if c.ipTokens[ip]+est > cap {
		retryAfter := int(c.ipWindowSeconds - now%c.ipWindowSeconds)
		return deny(ScopeIPWindow, "ip_window_cap_exceeded", retryAfter)
	}
	return allow()
}

// CheckActorDaily compares an actor's daily counter plus an estimate against
// cap. A zero cap means the check is not configured and always allows.
func (c *Counters) CheckActorDaily(actor string, est int64, cap int64) Decision {
	if cap <= 0 {
		return allow()
	}
	today := dayKey(c.clk.Now())

	c.mu.Lock()
	defer c.mu.Unlock()

	c.rollActor(actor, today)
	if c.actorTokens[actor]+est > cap {
		return deny(ScopeActorDaily, "actor_daily_cap_exceeded", secondsUntilUTCMidnight(c.clk.Now()))
	}
	return allow()
}

// RecordSuccess folds a completed invocation's actual token usage into the
// global, IP-window, and actor-daily counters, then emits a deduplicated
// threshold alert if the global counter just crossed 80/95/100% of cap.
func (c *Counters) RecordSuccess(ip, actor string, tokens int64, globalCap int64) {
	today := dayKey(c.clk.Now())
	bucket := c.clk.Now().Unix() / maxInt64(c.ipWindowSeconds, 1)

	c.mu.Lock()
	c.rollGlobal(today)
	c.globalTokens += tokens

	if c.ipWindowSeconds > 0 {
		if c.ipBucket[ip] != bucket {
			c.ipBucket[ip] = bucket
			c.ipTokens[ip] = 0
		}
		c.ipTokens[ip] += tokens
	}

	c.rollActor(actor, today)
	c.actorTokens[actor] += tokens

	globalTokens := c.globalTokens
	c.mu.Unlock()

	c.maybeAlertGlobal(today, globalTokens, globalCap)
}

func (c *Counters) hasAlertedThreshold(day string, threshold int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if thresholds, ok := c.alertedThresholds[day]; ok {
		return thresholds[threshold]
	}
	return false
}

func (c *Counters) markAlertedThreshold(day string, threshold int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.alertedThresholds[day] == nil {
		c.alertedThresholds[day] = make(map[int]bool)
	}
	c.alertedThresholds[day][threshold] = true
}

func (c *Counters) maybeAlertGlobal(day string, used, cap int64) {
	if cap <= 0 {
		return
	}
	percentage := float64(used) / float64(cap) * 100
	for _, threshold := range alertThresholds {
		if percentage >= float64(threshold) && !c.hasAlertedThreshold(day, threshold) {
			c.markAlertedThreshold(day, threshold)
			c.log.Warn("", "", "global_daily_cap_threshold_reached", map[string]interface{}{
				"threshold_pct": threshold,
				"used_tokens":   used,
				"cap_tokens":    cap,
				"day":           day,
			})
		}
	}
}

func secondsUntilUTCMidnight(now time.Time) int {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return int(midnight.Sub(now).Seconds())
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
