package cost

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"governedchat/shared/logger"
)

// BreakerRegistry holds one gobreaker.CircuitBreaker per provider:model key,
// so a failing model doesn't trip the breaker for every other model on the
// same provider. Modelpipeline calls Get with the same key instead of
// keeping a second breaker instance.
type BreakerRegistry struct {
	mu              sync.Mutex
	breakers        map[string]*gobreaker.CircuitBreaker
	failureThresh   uint32
	windowSeconds   int
	cooldownSeconds int
	log             *logger.Logger
}

func NewBreakerRegistry(failureThreshold, windowSeconds, cooldownSeconds int) *BreakerRegistry {
	return &BreakerRegistry{
		breakers:        make(map[string]*gobreaker.CircuitBreaker),
		failureThresh:   uint32(failureThreshold),
		windowSeconds:   windowSeconds,
		cooldownSeconds: cooldownSeconds,
		log:             logger.New("cost"),
	}
}

func breakerKey(provider, model string) string {
	return provider + ":" + model
}

// Get returns the breaker for provider:model, creating it on first use.
func (r *BreakerRegistry) Get(provider, model string) *gobreaker.CircuitBreaker {
	key := breakerKey(provider, model)

	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[key]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        key,
		MaxRequests: 1,
		Interval:    time.Duration(r.windowSeconds) * time.Second,
		Timeout:     time.Duration(r.cooldownSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= r.failureThresh
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			r.log.Warn("", "", "circuit_breaker_state_change", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})
	r.breakers[key] = cb
	return cb
}

// Check maps the breaker's current state to a policy decision without
// driving an Execute call, the policy chain needs a precheck, not a wrapped
// invocation, since the invocation itself happens several stages later.
// An open breaker's denial always carries the full configured cooldown as
// retry_after; the time already elapsed since it opened is not subtracted.
func (r *BreakerRegistry) Check(provider, model string) Decision {
	cb := r.Get(provider, model)
	if cb.State() != gobreaker.StateOpen {
		return allow()
	}
	return deny(ScopeBreaker, "circuit_open", r.cooldownSeconds)
}

// OnSuccess records a successful invocation against provider:model's breaker.
func (r *BreakerRegistry) OnSuccess(provider, model string) {
	cb := r.Get(provider, model)
	_, _ = cb.Execute(func() (interface{}, error) { return nil, nil })
}

// OnFailure records a provider failure against provider:model's breaker.
// Non-provider failures (e.g. caller cancellation) must not call this;
// the policy layer classifies the failure before forwarding it here.
func (r *BreakerRegistry) OnFailure(provider, model string) {
	cb := r.Get(provider, model)
	_, _ = cb.Execute(func() (interface{}, error) { return nil, errProvider })
}

var errProvider = providerFailure{}

type providerFailure struct{}

func (providerFailure) Error() string { return "provider failure" }
