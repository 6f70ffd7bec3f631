package modelpipeline

import (
	"fmt"
	"strings"

	"governedchat/internal/decision"
	"governedchat/internal/output"
)

// BuildFallback produces the deterministic, non-model text used whenever
// verification fails. It never re-calls the provider, the governed
// pipeline treats a verification failure as terminal for the attempt and
// falls back to a bounded, hand-authored template instead.
func BuildFallback(req *Request, op *output.Plan, state *decision.State) *Result {
	var text string
	var obj map[string]interface{}

	switch req.InvocationClass {
	case ExpressionCandidate:
		text = answerFallback(op, state)
	case ClarificationCandidate:
		obj = map[string]interface{}{"question": questionFallback()}
	case RefusalExplanationCandidate:
		text = refusalFallback()
	case ClosureMessageCandidate:
		text = closureFallback(op)
	}

	return &Result{
		RequestID:     buildRequestID(req),
		OK:            true,
		OutputText:    text,
		OutputJSON:    obj,
		UsedFallback:  true,
		SchemaVersion: SchemaVersion,
	}
}

func answerFallback(op *output.Plan, state *decision.State) string {
	var sb strings.Builder
	sb.WriteString("I can't verify a reliable answer to that right now.")

	if op.UnknownDisclosure != output.UnknownDisclosureNone && len(state.ExplicitUnknownZone) > 0 {
		sb.WriteString(fmt.Sprintf(" Unknown: %d aspect(s) of this request could not be classified.", len(state.ExplicitUnknownZone)))
	}
	if op.AssumptionSurfacing != output.AssumptionSurfacingNone {
		sb.WriteString(" Assumption: treating this as a general information request.")
	}
	return sb.String()
}

func questionFallback() string {
	return "Could you clarify what you're asking?"
}

func refusalFallback() string {
	return "I'm not able to help with that request."
}

func closureFallback(op *output.Plan) string {
	if op.Closure != nil && op.Closure.Silent {
		return ""
	}
	return "Understood, let me know if there's anything else."
}
