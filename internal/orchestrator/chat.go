package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"governedchat/internal/abuse"
	"governedchat/internal/apperr"
	"governedchat/internal/control"
	"governedchat/internal/cost"
	"governedchat/internal/decision"
	"governedchat/internal/logging"
	"governedchat/internal/memory"
	"governedchat/internal/modelpipeline"
	"governedchat/internal/output"
	"governedchat/internal/plan"
	"governedchat/internal/policywiring"
	"governedchat/internal/reliability"
	"governedchat/internal/retrieval"
	"governedchat/internal/waf"
)

var errModelVerificationFailed = errors.New("model output failed verification, retrying")

// outcome is the handler's internal result before it is rendered onto the
// wire; every exit path from HandleChat builds one of these and hands it to
// rt.finish.
type outcome struct {
	status        int
	action        string
	renderedText  string
	failureType   apperr.FailureType
	hasFailure    bool
	failureReason string
	retryAfter    int
}

func deterministicID(parts ...string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.Join(parts, ":"))).String()
}

func schemeOf(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}

func renderedTextFrom(res *modelpipeline.Result) string {
	if res == nil {
		return ""
	}
	if res.OutputJSON != nil {
		if q, ok := res.OutputJSON["question"].(string); ok {
			return q
		}
	}
	return res.OutputText
}

func responseAction(action control.Action, usedFallback bool) string {
	if usedFallback {
		return "FALLBACK"
	}
	switch action {
	case control.ActionAnswerAllowed:
		return "ANSWER"
	case control.ActionAskOneQuestion:
		return "ASK_ONE_QUESTION"
	case control.ActionRefuse:
		return "REFUSE"
	case control.ActionClose:
		return "CLOSE"
	default:
		return "FALLBACK"
	}
}

// HandleChat implements POST /api/chat: the fixed-order admission, policy,
// cost, decision, control, output, retrieval/memory, and model-invocation
// chain described by the composition model, recovering from any panic into
// a sanitized internal-error response rather than ever crashing the
// process or leaking a stack trace.
func (rt *GovernanceRuntime) HandleChat(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	var seq int64
	var cookies []*http.Cookie
	var subjectID string
	log := logging.WithTrace(rt.Log, traceID)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic recovered in HandleChat", map[string]interface{}{"panic": fmt.Sprint(rec)})
			rt.finish(w, r, traceID, subjectID, cookies, outcome{
				status: 500, action: "FALLBACK", renderedText: "",
				hasFailure: true, failureType: apperr.InternalErrorSanitized, failureReason: "internal error",
			})
		}
	}()

	ctx := r.Context()
	ident := rt.Identity.Resolve(r, func(c *http.Cookie) { cookies = append(cookies, c) })
	subjectID = ident.SubjectID

	abuseDecision := abuse.Decide(abuse.Context{
		Path:            r.URL.Path,
		Method:          r.Method,
		UserAgent:       r.Header.Get("User-Agent"),
		Accept:          r.Header.Get("Accept"),
		ContentType:     r.Header.Get("Content-Type"),
		RequestScheme:   schemeOf(r),
		HasAuth:         ident.IsAuthenticated,
		IsSensitivePath: false,
		IsNonLocal:      rt.Settings.AppEnv != "local",
	})
	seq++
	rt.appendAudit(traceID, seq, "abuse", map[string]interface{}{"action": string(abuseDecision.Action), "score": abuseDecision.Score})
	if abuseDecision.Action == abuse.ActionBlock {
		rt.finish(w, r, traceID, subjectID, cookies, outcome{status: 403, action: "REFUSE", renderedText: "Request blocked.", retryAfter: abuseDecision.RetryAfterS})
		return
	}
	if abuseDecision.Action == abuse.ActionRateLimit {
		rt.finish(w, r, traceID, subjectID, cookies, outcome{status: 429, action: "REFUSE", renderedText: "Too many requests.", retryAfter: abuseDecision.RetryAfterS})
		return
	}

	userText, usedWAFFallback, wafErr := rt.WAF.Admit(ctx, r, ident)
	if wafErr != nil {
		seq++
		rt.appendAudit(traceID, seq, "waf", map[string]interface{}{"code": wafErr.Code, "status": wafErr.StatusCode})
		rt.finish(w, r, traceID, subjectID, cookies, wafOutcome(wafErr))
		return
	}
	_ = usedWAFFallback

	trimmed := strings.TrimSpace(userText)
	if trimmed == "" {
		rt.finish(w, r, traceID, subjectID, cookies, outcome{
			status: 400, action: "REFUSE", renderedText: "",
			hasFailure: true, failureType: apperr.EmptyInput, failureReason: "user_text was empty after trimming",
		})
		return
	}

	tier := plan.ResolveTier(ident.SubjectID, rt.Settings.Plan)
	roughEstimate := int64(len(trimmed)/4) + int64(rt.Settings.Cost.RequestMaxOutputTokens)
	planOutcome := rt.PlanCheck.Precheck(ctx, string(ident.SubjectType), ident.SubjectID, tier, roughEstimate)
	seq++
	rt.appendAudit(traceID, seq, "plan", map[string]interface{}{"allowed": planOutcome.Allowed, "reason": planOutcome.Reason, "tier": string(tier)})
	if !planOutcome.Allowed {
		rt.finish(w, r, traceID, subjectID, cookies, outcome{status: 429, action: "REFUSE", renderedText: "Daily usage limit reached.", retryAfter: secondsUntilUTCMidnight(rt.Clock.Now().Unix())})
		return
	}

	state, err := decision.Assemble(trimmed, "")
	if err != nil {
		rt.finish(w, r, traceID, subjectID, cookies, abortOutcome("decision assembly invariant violated"))
		return
	}

	decisionStateID := deterministicID(traceID, "decision-state")
	cp, err := control.Select(state, trimmed, traceID, decisionStateID, rt.Clock.NowMillis())
	if err != nil {
		rt.finish(w, r, traceID, subjectID, cookies, abortOutcome("control plan invariant violated"))
		return
	}
	seq++
	rt.appendAudit(traceID, seq, "control", map[string]interface{}{"action": string(cp.Action), "rigor": string(cp.RigorLevel)})

	op, err := output.Derive(state, cp)
	if err != nil {
		rt.finish(w, r, traceID, subjectID, cookies, abortOutcome("output plan invariant violated"))
		return
	}
	seq++
	rt.appendAudit(traceID, seq, "output", map[string]interface{}{"posture": string(op.Posture), "verbosity": string(op.VerbosityCap)})

	var sources []retrieval.GradedSource
	var contextBlocks []string
	if cp.Action == control.ActionAnswerAllowed {
		sources, contextBlocks = rt.enrichAnswer(ctx, tier, ident.SubjectID, trimmed)
	}

	mpReq, err := modelpipeline.BuildRequest(trimmed, contextBlocks, cp, op, rt.Settings.Cost.RequestMaxOutputTokens)
	if err != nil {
		rt.finish(w, r, traceID, subjectID, cookies, abortOutcome("model request contract violated"))
		return
	}

	est := cost.Estimate{InputTokens: len(trimmed)/4 + 1, OutputTokens: mpReq.MaxOutputTokens}
	provider, model := rt.Settings.Model.Provider, rt.Settings.Model.Name
	costDecision := rt.Cost.Check(provider, model, ident.IPHash, ident.SubjectID, est)
	seq++
	rt.appendAudit(traceID, seq, "cost", map[string]interface{}{"allowed": costDecision.Allowed, "scope": string(costDecision.Scope)})
	if !costDecision.Allowed {
		rt.finish(w, r, traceID, subjectID, cookies, rt.costOutcome(costDecision, mpReq, op, state))
		return
	}

	breaker := rt.Cost.Breaker(provider, model)
	rc := reliability.NewContext(mpReq.DecisionStateID+":"+mpReq.OutputPlanID, false, false, rt.Settings.Reliability)

	var lastResult *modelpipeline.Result
	attempt := func(actx context.Context) (string, error) {
		res := modelpipeline.Invoke(actx, rt.Provider, breaker, mpReq, op, state)
		lastResult = res
		if res.UsedFallback {
			return "", errModelVerificationFailed
		}
		return renderedTextFrom(res), nil
	}
	invokeOutcome := reliability.Run(ctx, rc, attempt)
	seq++
	rt.appendAudit(traceID, seq, "model", map[string]interface{}{"answer": invokeOutcome.Answer, "reason": string(invokeOutcome.Reason), "attempts": invokeOutcome.AttemptsUsed})

	final := rt.finalizeModelOutcome(invokeOutcome, lastResult, cp, op, state, mpReq)
	if cp.Action == control.ActionAnswerAllowed && final.action == "ANSWER" {
		final = rt.bindCitations(final, sources, mpReq, op, state)
	}

	tokensUsed := int64(0)
	if invokeOutcome.Answer {
		tokensUsed = int64(len(final.renderedText)/4) + 1
		rt.Cost.PostSuccess(provider, model, ident.IPHash, ident.SubjectID, tokensUsed)
	}
	rt.PlanCheck.PostAccount(ctx, string(ident.SubjectType), ident.SubjectID, tokensUsed)

	if final.action == "ANSWER" && ident.SubjectID != "" {
		rt.writeBackMemory(tier, ident.SubjectID, trimmed)
	}

	rt.finish(w, r, traceID, subjectID, cookies, final)
}

func abortOutcome(reason string) outcome {
	return outcome{status: 500, action: "FALLBACK", hasFailure: true, failureType: apperr.GovernedPipelineAborted, failureReason: reason}
}

// wafOutcome maps a waf.Error's raw code onto the public failure taxonomy.
// rate_limited carries no failure_type, per the contract's closed denial
// table: it is a throttle, not a governance judgment.
func wafOutcome(e *waf.Error) outcome {
	switch e.Code {
	case "rate_limited":
		return outcome{status: e.StatusCode, action: "REFUSE", retryAfter: e.RetryAfterSeconds}
	case "payload_too_large", "user_text_too_long":
		return outcome{status: e.StatusCode, action: "REFUSE", hasFailure: true, failureType: apperr.RequestTooLarge, failureReason: e.Message}
	default:
		return outcome{status: e.StatusCode, action: "REFUSE", hasFailure: true, failureType: apperr.RequestSchemaInvalid, failureReason: e.Message}
	}
}

// costOutcome maps a cost policy denial onto the response contract. A
// request-cap denial is a schema-shaped rejection; a breaker or
// global-daily denial means the provider itself is unhealthy, so the
// caller gets a rendered fallback instead of a bare refusal, matching the
// degraded-service scenario. IP/actor window denials are plain throttles.
func (rt *GovernanceRuntime) costOutcome(d cost.Decision, req *modelpipeline.Request, op *output.Plan, state *decision.State) outcome {
	switch d.Scope {
	case cost.ScopeRequestCap:
		return outcome{status: 413, action: "REFUSE", hasFailure: true, failureType: apperr.RequestTooLarge, failureReason: d.Reason}
	case cost.ScopeBreaker, cost.ScopeGlobalDaily:
		fb := modelpipeline.BuildFallback(req, op, state)
		return outcome{
			status: 503, action: "FALLBACK", renderedText: renderedTextFrom(fb),
			hasFailure: true, failureType: apperr.ModelFailedFallbackUsed, failureReason: d.Reason,
			retryAfter: d.RetryAfter,
		}
	default: // ScopeIPWindow, ScopeActorDaily
		return outcome{status: 429, action: "REFUSE", retryAfter: d.RetryAfter}
	}
}

// appendAudit records one pipeline stage onto the request's audit chain,
// swallowing its own errors: a broken audit log must never block a
// response, it is write-behind evidence, not a gate.
func (rt *GovernanceRuntime) appendAudit(traceID string, seq int64, stage string, payload map[string]interface{}) {
	defer func() { recover() }()
	entryPayload := map[string]interface{}{"stage": stage}
	for k, v := range payload {
		entryPayload[k] = v
	}
	rt.Audit.Append(traceID, seq, rt.Clock.NowMillis(), entryPayload)
}

// finish renders the outcome onto the wire: security headers, the
// X-UX-State/X-Request-Id/Retry-After header set, the JSON body, and a
// final metrics/log record. It is the single exit point for every code
// path through HandleChat.
func (rt *GovernanceRuntime) finish(w http.ResponseWriter, r *http.Request, traceID, subjectID string, cookies []*http.Cookie, o outcome) {
	for _, c := range cookies {
		http.SetCookie(w, c)
	}
	securityHeaders(w, schemeOf(r), r.Host)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", traceID)

	ft := ""
	if o.hasFailure {
		ft = string(o.failureType)
	}
	w.Header().Set("X-UX-State", uxState(o.status, o.action, ft))
	if o.retryAfter > 0 {
		w.Header().Set("Retry-After", itoa(cooldownSeconds(o.retryAfter)))
	}
	rt.writeCanaryHeaders(w, traceID, subjectID)

	w.WriteHeader(o.status)
	encodeResponse(w, o)

	rt.Metrics.RecordOutcome(o.action, ft)
	logging.WithTrace(rt.Log, traceID).Info("chat request completed", map[string]interface{}{
		"status": o.status, "action": o.action, "failure_type": ft,
	})
}

// writeCanaryHeaders surfaces the release-canary bucketing decision per
// request: X-Canary when the request falls in the canary cohort, plus
// X-Build-Version when the release flag opts into announcing it.
func (rt *GovernanceRuntime) writeCanaryHeaders(w http.ResponseWriter, requestID, subjectID string) {
	c := rt.Settings.Canary
	gate := canaryGate{enabled: c.Enabled, percent: c.Percent, allowlist: c.Allowlist}
	if !isCanary(requestID, subjectID, gate) {
		return
	}
	w.Header().Set("X-Canary", "true")
	if c.HeaderEnabled {
		w.Header().Set("X-Build-Version", c.BuildVersion)
	}
}

// maxContextBlockChars bounds each rendered context fragment handed to the
// model, independent of the source snippet's own bound.
const maxContextBlockChars = 400

// enrichAnswer runs the policy-gated retrieval and memory read for an
// allowed answer and folds both into the bounded context fragments the
// model request carries. Failures here are non-fatal: a model answer can
// always be rendered from the user's text alone, context blocks just come
// back empty.
func (rt *GovernanceRuntime) enrichAnswer(ctx context.Context, tier plan.Tier, subjectID, query string) ([]retrieval.GradedSource, []string) {
	var sources []retrieval.GradedSource
	var blocks []string
	func() {
		defer func() { recover() }()
		result := rt.Capability.Retrieve(ctx, tier, policywiring.RetrievalRequest{
			Query:        query,
			AllowedTools: []retrieval.ToolKind{retrieval.ToolWeb},
			RequestFlags: retrieval.RequestFlags{},
		})
		sources = result.Sources
		for _, gs := range sources {
			for _, snippet := range gs.Source.Snippets {
				blocks = append(blocks, truncateBlock("Source ("+gs.Source.Domain+"): "+snippet.Text))
			}
		}
	}()
	if subjectID != "" {
		func() {
			defer func() { recover() }()
			bundle := rt.Capability.Read(tier, subjectID, memory.TemplateGoalsAndWorkflow)
			for _, meta := range bundle.Facts {
				blocks = append(blocks, truncateBlock("Remembered "+string(meta.Fact.Category)+" "+meta.Fact.Key+": "+meta.Fact.Value))
			}
		}()
	}
	return sources, blocks
}

func truncateBlock(s string) string {
	if len(s) <= maxContextBlockChars {
		return s
	}
	return s[:maxContextBlockChars]
}

// bindCitations runs claim-to-citation binding against the answer the
// model just produced and the sources enrichAnswer already fetched. A
// required claim with no citation degrades the outcome: UNKNOWN renders
// the same fallback a failed verification would, ASK_CLARIFY swaps the
// action to a clarifying question built from the binder's own question.
func (rt *GovernanceRuntime) bindCitations(o outcome, sources []retrieval.GradedSource, req *modelpipeline.Request, op *output.Plan, state *decision.State) outcome {
	if len(sources) == 0 || o.renderedText == "" {
		return o
	}
	binder := retrieval.BindClaimsAndCitations(o.renderedText, sources)
	switch binder.FinalMode {
	case retrieval.ModeOK:
		return o
	case retrieval.ModeAskClarify:
		if len(binder.ClarifyQuestions) == 0 {
			return o
		}
		return outcome{status: 200, action: "ASK_ONE_QUESTION", renderedText: binder.ClarifyQuestions[0]}
	default: // ModeUnknown
		fb := modelpipeline.BuildFallback(req, op, state)
		return outcome{
			status: 200, action: "FALLBACK", renderedText: renderedTextFrom(fb),
			hasFailure: true, failureType: apperr.ModelFailedFallbackUsed,
			failureReason: "answer contained required claims with no supporting citation",
		}
	}
}

// writeBackMemory persists one derived, structured fact after a
// successfully rendered answer. It never stores the user's raw text: the
// query is folded into a bounded, quote-free topic value before it reaches
// the schema's safety filter, which would otherwise reject anything that
// still looked like a verbatim quote.
func (rt *GovernanceRuntime) writeBackMemory(tier plan.Tier, subjectID, query string) {
	defer func() { recover() }()
	topic := sanitizeMemoryValue(query)
	if topic == "" {
		return
	}
	rt.Capability.Write(tier, subjectID, []memory.MemoryFact{{
		Category:  memory.CategoryFact,
		Key:       "recent_topic",
		Value:     topic,
		ValueType: memory.ValueString,
		Provenance: memory.Provenance{
			Type:       memory.ProvenanceInferred,
			Confidence: 0.5,
		},
	}}, 0)
}

// sanitizeMemoryValue strips characters the memory schema's safety filter
// forbids and bounds length, rather than letting a write silently fail
// whenever the user's question happens to contain a quote mark.
func sanitizeMemoryValue(s string) string {
	s = strings.ReplaceAll(s, "\"", "")
	s = strings.TrimSpace(s)
	const maxLen = 200
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

func (rt *GovernanceRuntime) finalizeModelOutcome(o *reliability.Outcome, res *modelpipeline.Result, cp *control.Plan, op *output.Plan, state *decision.State, req *modelpipeline.Request) outcome {
	if o.Answer && res != nil && !res.UsedFallback {
		return outcome{status: 200, action: responseAction(cp.Action, false), renderedText: renderedTextFrom(res)}
	}

	fb := modelpipeline.BuildFallback(req, op, state)
	text := renderedTextFrom(fb)

	ft := apperr.ModelFailedFallbackUsed
	reason := "model output failed verification"
	if o.Reason == reliability.ReasonTimeout {
		ft = apperr.Timeout
		reason = "model invocation timed out"
	}
	return outcome{status: 200, action: "FALLBACK", renderedText: text, hasFailure: true, failureType: ft, failureReason: reason}
}

func secondsUntilUTCMidnight(nowUnix int64) int {
	const day = 86400
	remainder := nowUnix % day
	return int(day - remainder)
}

func encodeResponse(w http.ResponseWriter, o outcome) {
	resp := ChatResponse{Action: o.action, RenderedText: o.renderedText}
	if o.hasFailure {
		resp.FailureType = failureTypePtr(o.failureType)
		resp.FailureReason = failureReasonPtr(o.failureReason)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
