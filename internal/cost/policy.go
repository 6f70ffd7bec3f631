package cost

import (
	"governedchat/internal/clock"
	"governedchat/internal/config"
)

// Policy runs the five-check cost chain and owns the process-local counters
// and the provider:model circuit breaker registry that back it.
type Policy struct {
	settings config.CostSettings
	counters *Counters
	breakers *BreakerRegistry
}

func NewPolicy(settings config.CostSettings, clk clock.Clock) *Policy {
	return &Policy{
		settings: settings,
		counters: NewCounters(clk, settings.IPWindowSeconds),
		breakers: NewBreakerRegistry(settings.BreakerFailureThreshold, settings.BreakerWindowSeconds, settings.BreakerCooldownSeconds),
	}
}

// Breaker exposes the shared provider:model breaker so the model-invocation
// pipeline can wrap its own call with the same instance this policy checked.
func (p *Policy) Breaker(provider, model string) *BreakerRegistryEntry {
	return &BreakerRegistryEntry{registry: p.breakers, provider: provider, model: model}
}

// BreakerRegistryEntry pins a policy's registry to one provider:model pair.
type BreakerRegistryEntry struct {
	registry *BreakerRegistry
	provider string
	model    string
}

func (e *BreakerRegistryEntry) OnSuccess() { e.registry.OnSuccess(e.provider, e.model) }
func (e *BreakerRegistryEntry) OnFailure() { e.registry.OnFailure(e.provider, e.model) }

// Check runs request_cap, breaker, global_daily, ip_window, and actor_daily
// in that fixed order, returning the first denial. actor may be empty when
// the caller has no actor-level identity (e.g. fully anonymous traffic);
// in that case actor_daily is skipped regardless of its cap.
func (p *Policy) Check(provider, model, ip, actor string, est Estimate) Decision {
	if est.InputTokens+est.OutputTokens > p.settings.RequestMaxTokens {
		return deny(ScopeRequestCap, "request_token_cap_exceeded", 0)
	}
	if est.OutputTokens > p.settings.RequestMaxOutputTokens {
		return deny(ScopeRequestCap, "request_output_token_cap_exceeded", 0)
	}

	if d := p.breakers.Check(provider, model); !d.Allowed {
		return d
	}

	total := est.total()

	if d := p.counters.CheckGlobal(total, p.settings.GlobalDailyTokenCap); !d.Allowed {
		return d
	}
	if d := p.counters.CheckIPWindow(ip, total, p.settings.IPWindowTokenCap); !d.Allowed {
		return d
	}
	if actor != "" {
		if d := p.counters.CheckActorDaily(actor, total, p.settings.ActorDailyTokenCap); !d.Allowed {
			return d
		}
	}
	return allow()
}

// PostSuccess folds an invocation's actual token usage into the counters and
// marks the provider:model breaker as healthy.
func (p *Policy) PostSuccess(provider, model, ip, actor string, tokensUsed int64) {
	p.breakers.OnSuccess(provider, model)
	p.counters.RecordSuccess(ip, actor, tokensUsed, p.settings.GlobalDailyTokenCap)
}

// PostFailure marks the provider:model breaker as failed. Call this only
// when the failure is a provider failure (timeout, 5xx, malformed response).
// Caller cancellation or a governance-stage abort must not trip the
// breaker, since neither reflects the provider's health.
func (p *Policy) PostFailure(provider, model string) {
	p.breakers.OnFailure(provider, model)
}
