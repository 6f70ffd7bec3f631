package modelpipeline

import (
	"context"

	"governedchat/internal/decision"
	"governedchat/internal/output"
)

// Breaker is the subset of cost.BreakerRegistryEntry the pipeline needs,
// kept narrow so this package doesn't import internal/cost just for two
// methods.
type Breaker interface {
	OnSuccess()
	OnFailure()
}

// Invoke calls the provider once under ctx's deadline, verifies the result
// against req's contract, and returns a deterministic fallback instead of
// retrying when the call fails or verification rejects the output. The
// returned Result satisfies validateResult against req, except a silent
// closure fallback, whose OutputText is empty.
func Invoke(ctx context.Context, provider Provider, breaker Breaker, req *Request, op *output.Plan, state *decision.State) *Result {
	raw, err := provider.Call(ctx, req)
	if err != nil {
		breaker.OnFailure()
		return BuildFallback(req, op, state)
	}

	result, failure := verify(raw, req)
	if failure != nil {
		// A malformed or forbidden response is a contract failure, not
		// necessarily a provider outage: the breaker only tracks
		// provider-level failures (timeouts, 5xx, transport errors).
		return BuildFallback(req, op, state)
	}
	if err := validateResult(result, req); err != nil {
		return BuildFallback(req, op, state)
	}

	breaker.OnSuccess()
	return result
}
