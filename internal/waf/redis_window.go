package waf

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// checkRedis mirrors agent/redis_rate_limit.go's pipelined sliding-window
// idiom: ZREMRANGEBYSCORE trims entries older than the window, ZADD records
// this hit, ZCARD reads the current count, EXPIRE bounds key lifetime. The
// bool return is false whenever any Redis call fails, signaling the caller
// to fall back to the in-process limiter.
func (l *Limiter) checkRedis(ctx context.Context, key string, scope Scope, windows []LimitWindow) (*Result, bool) {
	now := l.clk.Now()
	lockKey := "waf:lock:" + key

	blockedUntil, ok := l.redisLockout(ctx, lockKey)
	if !ok {
		return nil, false
	}
	if blockedUntil.After(now) {
		return &Result{Allowed: false, Scope: scope, RetryAfter: blockedUntil.Sub(now)}, true
	}

	for _, w := range windows {
		if w.Limit <= 0 || w.WindowSeconds <= 0 {
			continue
		}
		winKey := fmt.Sprintf("waf:win:%s:%d", key, w.WindowSeconds)
		hits, ok := l.redisIncrWindow(ctx, winKey, now, w.WindowSeconds)
		if !ok {
			return nil, false
		}
		if hits > int64(w.Limit) {
			retry, ok := l.redisApplyLockout(ctx, lockKey, now)
			if !ok {
				return nil, false
			}
			return &Result{Allowed: false, Scope: scope, RetryAfter: retry}, true
		}
	}
	return &Result{Allowed: true, Scope: scope}, true
}

func (l *Limiter) redisIncrWindow(ctx context.Context, winKey string, now time.Time, windowSeconds int) (int64, bool) {
	windowStart := now.Add(-time.Duration(windowSeconds) * time.Second)
	member := strconv.FormatInt(now.UnixNano(), 10)

	pipe := l.rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, winKey, "-inf", strconv.FormatInt(windowStart.Unix(), 10))
	pipe.ZAdd(ctx, winKey, &redis.Z{Score: float64(now.Unix()), Member: member})
	card := pipe.ZCard(ctx, winKey)
	pipe.Expire(ctx, winKey, time.Duration(windowSeconds)*time.Second+time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, false
	}
	return card.Val(), true
}

func (l *Limiter) redisLockout(ctx context.Context, lockKey string) (time.Time, bool) {
	val, err := l.rdb.Get(ctx, lockKey).Result()
	if err == redis.Nil {
		return time.Time{}, true
	}
	if err != nil {
		return time.Time{}, false
	}
	sec, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

func (l *Limiter) redisApplyLockout(ctx context.Context, lockKey string, now time.Time) (time.Duration, bool) {
	strikesKey := "waf:strikes:" + lockKey
	strikes, err := l.rdb.Incr(ctx, strikesKey).Result()
	if err != nil {
		return 0, false
	}
	if strikes == 1 {
		l.rdb.Expire(ctx, strikesKey, l.cooldown)
	}
	idx := int(strikes) - 1
	if idx >= len(l.schedule) {
		idx = len(l.schedule) - 1
	}
	duration := l.schedule[idx]
	blockedUntil := now.Add(duration)
	if err := l.rdb.Set(ctx, lockKey, strconv.FormatInt(blockedUntil.Unix(), 10), l.cooldown).Err(); err != nil {
		return 0, false
	}
	return duration, true
}
