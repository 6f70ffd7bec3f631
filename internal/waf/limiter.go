package waf

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"governedchat/internal/clock"
)

// Limiter enforces fixed burst+sustain rate windows with a lockout ladder,
// backed by Redis with a process-local fallback. A nil rdb always uses the
// fallback path, which is also used whenever a Redis call errors.
type Limiter struct {
	rdb      *redis.Client
	clk      clock.Clock
	schedule []time.Duration
	cooldown time.Duration

	mu          sync.Mutex
	memWindows  map[string]int
	memStrikes  map[string]int
	memLockedAt map[string]time.Time
}

func NewLimiter(rdb *redis.Client, clk clock.Clock, scheduleSeconds []int, cooldownSeconds int) *Limiter {
	schedule := make([]time.Duration, 0, len(scheduleSeconds))
	for _, s := range scheduleSeconds {
		if s > 0 {
			schedule = append(schedule, time.Duration(s)*time.Second)
		}
	}
	if len(schedule) == 0 {
		schedule = []time.Duration{30 * time.Second, 120 * time.Second, 600 * time.Second, 3600 * time.Second}
	}
	return &Limiter{
		rdb:         rdb,
		clk:         clk,
		schedule:    schedule,
		cooldown:    time.Duration(cooldownSeconds) * time.Second,
		memWindows:  make(map[string]int),
		memStrikes:  make(map[string]int),
		memLockedAt: make(map[string]time.Time),
	}
}

// Check enforces windows (evaluated in order; the first breached window
// triggers the lockout) for one scoped key. It never errors: a Redis
// failure falls through to the in-process fallback and the result is
// flagged UsedFallback so the caller can mark the request for telemetry.
func (l *Limiter) Check(ctx context.Context, scope Scope, id string, windows []LimitWindow) *Result {
	key := string(scope) + ":" + id
	if l.rdb != nil {
		if res, ok := l.checkRedis(ctx, key, scope, windows); ok {
			return res
		}
	}
	return l.checkMemory(key, scope, windows)
}
