// Package orchestrator composes every governance stage package behind one
// GovernanceRuntime and exposes the POST /api/chat handler plus the
// operational endpoints, grounded on the teacher's agent/gateway_handlers.go
// request-validate-then-respond handler shape and agent/run.go's
// initServerImmediately/readiness-aware health pattern.
package orchestrator

import (
	"context"
	"database/sql"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"governedchat/internal/audit"
	"governedchat/internal/clock"
	"governedchat/internal/config"
	"governedchat/internal/cost"
	"governedchat/internal/identity"
	"governedchat/internal/memory"
	"governedchat/internal/modelpipeline"
	"governedchat/internal/plan"
	"governedchat/internal/policywiring"
	"governedchat/internal/retrieval"
	"governedchat/internal/waf"
	"governedchat/shared/logger"
)

// GovernanceRuntime gathers every shared resource the pipeline touches,
// constructed once in cmd/server/main.go and passed by pointer to the HTTP
// handler. Each field's own concurrency discipline is documented on its
// package; the runtime itself adds nothing beyond composition.
type GovernanceRuntime struct {
	Settings *config.Settings

	Identity   *identity.Resolver
	WAF        *waf.Guard
	PlanCheck  *plan.Checker
	Cost       *cost.Policy
	Capability *policywiring.Runtime
	Provider   modelpipeline.Provider

	Audit   *audit.Chain
	Metrics *audit.Metrics
	Clock   clock.Clock
	Log     *logger.Logger

	DB    *sql.DB
	Redis *redis.Client

	ready atomic.Bool
}

// NewGovernanceRuntime wires every stage package against settings, in the
// order each one is documented to need its dependents constructed.
func NewGovernanceRuntime(settings *config.Settings, db *sql.DB, rdb *redis.Client, provider modelpipeline.Provider, reg prometheus.Registerer) *GovernanceRuntime {
	clk := clock.Real

	var jwks *identity.JWKSCache
	if settings.SupabaseURL != "" {
		jwks = identity.NewJWKSCache(settings.SupabaseURL+"/auth/v1/.well-known/jwks.json", 10*time.Minute, http.DefaultClient, clk)
	}

	resolver := &identity.Resolver{
		JWKS:          jwks,
		Audience:      settings.SupabaseJWTAud,
		Issuer:        settings.SupabaseJWTIssuer,
		Salt:          settings.IdentityHashSalt,
		AnonCookieTTL: time.Duration(settings.AnonSessionTTLDays) * 24 * time.Hour,
		CookieSecure:  settings.AuthCookieSecure,
	}

	limiter := waf.NewLimiter(rdb, clk, settings.WAF.LockoutScheduleSeconds, settings.WAF.LockoutCooldownSeconds)
	guard := waf.NewGuard(settings.WAF, limiter)

	var planRepo plan.Repository
	if db != nil {
		planRepo = plan.NewPostgresRepository(db)
	} else {
		planRepo = newInMemoryQuotaRepository()
	}
	planChecker := plan.NewChecker(planRepo, clk)

	costPolicy := cost.NewPolicy(settings.Cost, clk)

	tools := map[retrieval.ToolKind]retrieval.Tool{
		retrieval.ToolWeb:  &retrieval.WebStub{},
		retrieval.ToolDocs: &retrieval.DocsStub{},
	}
	memLog := memory.NewLog()
	capability := policywiring.NewRuntime(tools, clk, memLog)

	return &GovernanceRuntime{
		Settings:   settings,
		Identity:   resolver,
		WAF:        guard,
		PlanCheck:  planChecker,
		Cost:       costPolicy,
		Capability: capability,
		Provider:   provider,
		Audit:      audit.NewChain(),
		Metrics:    audit.NewMetrics(reg),
		Clock:      clk,
		Log:        logger.New("orchestrator"),
		DB:         db,
		Redis:      rdb,
	}
}

// MarkReady flips the readiness flag consulted by the liveness handler's
// "starting" vs "healthy" body, mirroring the teacher's appReady.Store(true)
// once every route is registered.
func (rt *GovernanceRuntime) MarkReady() { rt.ready.Store(true) }

// IsReady reports whether MarkReady has been called.
func (rt *GovernanceRuntime) IsReady() bool { return rt.ready.Load() }

// pingDB and pingRedis back /readyz; both tolerate a nil dependency so the
// process can run in local/dev mode without either store configured.
func (rt *GovernanceRuntime) pingDB(ctx context.Context) error {
	if rt.DB == nil {
		return nil
	}
	return rt.DB.PingContext(ctx)
}

func (rt *GovernanceRuntime) pingRedis(ctx context.Context) error {
	if rt.Redis == nil {
		return nil
	}
	return rt.Redis.Ping(ctx).Err()
}
