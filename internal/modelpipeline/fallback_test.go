package modelpipeline

import (
	"strings"
	"testing"

	"governedchat/internal/decision"
	"governedchat/internal/output"
)

func TestBuildFallbackAnswerMentionsUnknownAndAssumption(t *testing.T) {
	req := &Request{TraceID: "t", OutputPlanID: "o", InvocationClass: ExpressionCandidate}
	op := &output.Plan{
		UnknownDisclosure:   output.UnknownDisclosurePartial,
		AssumptionSurfacing: output.AssumptionSurfacingBrief,
	}
	state := &decision.State{ExplicitUnknownZone: []decision.UnknownSource{decision.UnknownProximity}}

	result := BuildFallback(req, op, state)
	if !result.OK || !result.UsedFallback {
		t.Fatal("expected an OK, fallback-marked result")
	}
	if !strings.Contains(result.OutputText, "Unknown") {
		t.Fatalf("expected unknown disclosure in fallback text, got %q", result.OutputText)
	}
	if !strings.Contains(result.OutputText, "Assumption") {
		t.Fatalf("expected assumption disclosure in fallback text, got %q", result.OutputText)
	}
}

func TestBuildFallbackAnswerOmitsUnknownWhenZoneEmpty(t *testing.T) {
	req := &Request{TraceID: "t", OutputPlanID: "o", InvocationClass: ExpressionCandidate}
	op := &output.Plan{UnknownDisclosure: output.UnknownDisclosurePartial}
	state := &decision.State{}

	result := BuildFallback(req, op, state)
	if strings.Contains(result.OutputText, "Unknown") {
		t.Fatalf("expected no unknown disclosure when the zone is empty, got %q", result.OutputText)
	}
}

func TestBuildFallbackClarificationIsOneQuestionJSON(t *testing.T) {
	req := &Request{TraceID: "t", OutputPlanID: "o", InvocationClass: ClarificationCandidate}
	result := BuildFallback(req, &output.Plan{}, &decision.State{})
	if result.OutputJSON == nil {
		t.Fatal("expected a JSON payload for CLARIFICATION_CANDIDATE fallback")
	}
	q, _ := result.OutputJSON["question"].(string)
	if !strings.Contains(q, "?") {
		t.Fatalf("expected a question mark in the fallback question, got %q", q)
	}
}

func TestBuildFallbackRefusalHasNoQuestionMark(t *testing.T) {
	req := &Request{TraceID: "t", OutputPlanID: "o", InvocationClass: RefusalExplanationCandidate}
	result := BuildFallback(req, &output.Plan{}, &decision.State{})
	if strings.Contains(result.OutputText, "?") {
		t.Fatalf("refusal fallback must not contain a question mark, got %q", result.OutputText)
	}
	if len(result.OutputText) > 220 {
		t.Fatalf("refusal fallback exceeds 220 chars: %d", len(result.OutputText))
	}
}

func TestBuildFallbackClosureSilentWhenSpecSaysSo(t *testing.T) {
	req := &Request{TraceID: "t", OutputPlanID: "o", InvocationClass: ClosureMessageCandidate}
	op := &output.Plan{Closure: &output.ClosureSpec{Silent: true}}
	result := BuildFallback(req, op, &decision.State{})
	if result.OutputText != "" {
		t.Fatalf("expected silent closure to produce empty text, got %q", result.OutputText)
	}
}

func TestBuildFallbackClosureNonSilentHasText(t *testing.T) {
	req := &Request{TraceID: "t", OutputPlanID: "o", InvocationClass: ClosureMessageCandidate}
	op := &output.Plan{Closure: &output.ClosureSpec{Silent: false}}
	result := BuildFallback(req, op, &decision.State{})
	if result.OutputText == "" {
		t.Fatal("expected non-silent closure to produce text")
	}
}
