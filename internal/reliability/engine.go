package reliability

import (
	"context"
	"time"
)

// AttemptFunc makes one model call under ctx's deadline and returns its
// text, or an error if the call failed or timed out.
type AttemptFunc func(ctx context.Context) (string, error)

// Run executes the bounded attempt loop described by rc: breaker/budget
// short-circuit first, then up to rc.MaxAttempts calls to attempt, each
// under a deadline bounded by both the per-attempt cap and the remaining
// total budget. The first attempt that clears the safety gate is returned
// as an answer; a provider error or timeout is recorded and the loop
// continues. Quality issues are flagged but never block, mirroring the
// distinction between a gate that rejects and one that only observes.
func Run(ctx context.Context, rc *Context, attempt AttemptFunc) *Outcome {
	if rc.BreakerOpen {
		return &Outcome{Reason: ReasonProviderUnavailable}
	}
	if rc.BudgetBlocked {
		return &Outcome{Reason: ReasonBudgetExceeded}
	}

	start := time.Now()
	totalDeadline := time.Duration(rc.TotalTimeoutMS) * time.Millisecond
	perAttemptBudget := time.Duration(rc.PerAttemptTimeoutMS) * time.Millisecond

	lastReason := ReasonProviderBadResponse
	var lastWhere TimeoutWhere

	attempts := rc.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		elapsed := time.Since(start)
		if elapsed >= totalDeadline {
			return &Outcome{Reason: ReasonTimeout, Where: WhereTotal, AttemptsUsed: i}
		}

		remaining := totalDeadline - elapsed
		deadline := perAttemptBudget
		if remaining < deadline {
			deadline = remaining
		}

		text, err := callWithDeadline(ctx, deadline, rc.ForceProviderTimeout, attempt)
		if err != nil {
			if err == context.DeadlineExceeded {
				lastReason, lastWhere = ReasonTimeout, WhereProvider
			} else {
				lastReason, lastWhere = ReasonProviderBadResponse, ""
			}
			continue
		}

		if safetyBlocked(text, rc.SafetyKeywords, rc.ForceSafetyBlock) {
			return &Outcome{Reason: ReasonSafetyBlocked, AttemptsUsed: i + 1}
		}

		return &Outcome{
			Answer:         true,
			Text:           text,
			AttemptsUsed:   i + 1,
			QualityFlagged: !qualityOK(text, rc.ForceQualityFail),
		}
	}

	return &Outcome{Reason: lastReason, Where: lastWhere, AttemptsUsed: attempts}
}

func callWithDeadline(ctx context.Context, deadline time.Duration, forceTimeout bool, attempt AttemptFunc) (string, error) {
	if forceTimeout {
		return "", context.DeadlineExceeded
	}

	callCtx := ctx
	if deadline > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	text, err := attempt(callCtx)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return "", context.DeadlineExceeded
		}
		return "", err
	}
	return text, nil
}
