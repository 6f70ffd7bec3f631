package reliability

import "governedchat/internal/config"

// Context carries one request's attempt-loop inputs, with every chaos-flag
// env override already folded in by NewContext so the loop itself never
// reads the environment.
type Context struct {
	RequestID            string
	BreakerOpen          bool
	BudgetBlocked        bool
	TotalTimeoutMS       int64
	PerAttemptTimeoutMS  int64
	MaxAttempts          int
	SafetyKeywords       []string
	ForceProviderTimeout bool
	ForceQualityFail     bool
	ForceSafetyBlock     bool
}

// NewContext builds a Context for one request. breakerOpen and
// budgetBlocked are the real signals from internal/cost; each is OR'd with
// its FORCE_* override so a scenario test can force either path without
// the cost policy actually denying anything.
func NewContext(requestID string, breakerOpen, budgetBlocked bool, settings config.ReliabilitySettings) *Context {
	return &Context{
		RequestID:            requestID,
		BreakerOpen:          breakerOpen || settings.ForceBreakerOpen,
		BudgetBlocked:        budgetBlocked || settings.ForceBudgetBlock,
		TotalTimeoutMS:       settings.TotalTimeoutMS,
		PerAttemptTimeoutMS:  settings.PerAttemptTimeoutMS,
		MaxAttempts:          settings.MaxAttempts,
		SafetyKeywords:       settings.SafetyKeywords,
		ForceProviderTimeout: settings.ForceProviderTimeout,
		ForceQualityFail:     settings.ForceQualityFail,
		ForceSafetyBlock:     settings.ForceSafetyBlock,
	}
}
