package modelpipeline

import (
	"testing"

	"governedchat/internal/control"
	"governedchat/internal/output"
)

func answerPlan(t *testing.T) *control.Plan {
	t.Helper()
	cp, err := control.Build("trace-1", "state-1", control.ActionAnswerAllowed,
		control.RigorGuarded, control.FrictionNone,
		false, control.ClarificationNone, 0, control.QuestionNone,
		control.ConfidenceSignalGuarded, control.UnknownDisclosureNone,
		false, control.InitiativeNone, control.ClosureOpen,
		false, control.RefusalNone, 1000)
	if err != nil {
		t.Fatalf("control.Build: %v", err)
	}
	return cp
}

func questionPlan(t *testing.T) *control.Plan {
	t.Helper()
	cp, err := control.Build("trace-2", "state-2", control.ActionAskOneQuestion,
		control.RigorGuarded, control.FrictionSoftPause,
		true, control.ClarificationMissingContext, 1, control.QuestionInformational,
		control.ConfidenceSignalGuarded, control.UnknownDisclosureNone,
		false, control.InitiativeOnce, control.ClosureOpen,
		false, control.RefusalNone, 1000)
	if err != nil {
		t.Fatalf("control.Build: %v", err)
	}
	return cp
}

func refusePlan(t *testing.T) *control.Plan {
	t.Helper()
	cp, err := control.Build("trace-3", "state-3", control.ActionRefuse,
		control.RigorEnforced, control.FrictionStop,
		false, control.ClarificationNone, 0, control.QuestionNone,
		control.ConfidenceSignalGuarded, control.UnknownDisclosureNone,
		false, control.InitiativeNone, control.ClosureOpen,
		true, control.RefusalCapability, 1000)
	if err != nil {
		t.Fatalf("control.Build: %v", err)
	}
	return cp
}

func closePlan(t *testing.T) *control.Plan {
	t.Helper()
	cp, err := control.Build("trace-4", "state-4", control.ActionClose,
		control.RigorMinimal, control.FrictionNone,
		false, control.ClarificationNone, 0, control.QuestionNone,
		control.ConfidenceSignalMinimal, control.UnknownDisclosureNone,
		false, control.InitiativeNone, control.ClosureClosed,
		false, control.RefusalNone, 1000)
	if err != nil {
		t.Fatalf("control.Build: %v", err)
	}
	return cp
}

func TestInvocationClassForMapsEachAction(t *testing.T) {
	cases := []struct {
		action control.Action
		want   InvocationClass
	}{
		{control.ActionAnswerAllowed, ExpressionCandidate},
		{control.ActionAskOneQuestion, ClarificationCandidate},
		{control.ActionRefuse, RefusalExplanationCandidate},
		{control.ActionClose, ClosureMessageCandidate},
	}
	for _, c := range cases {
		got, err := invocationClassFor(c.action)
		if err != nil {
			t.Fatalf("invocationClassFor(%s): %v", c.action, err)
		}
		if got != c.want {
			t.Fatalf("invocationClassFor(%s) = %s, want %s", c.action, got, c.want)
		}
	}
}

func TestInvocationClassForRejectsAbort(t *testing.T) {
	if _, err := invocationClassFor(control.ActionAbortFailClosed); err == nil {
		t.Fatal("expected error for ABORT_FAIL_CLOSED")
	}
}

func TestOutputFormatForOnlyClarificationIsJSON(t *testing.T) {
	if outputFormatFor(ClarificationCandidate) != FormatJSON {
		t.Fatal("expected JSON for ClarificationCandidate")
	}
	for _, c := range []InvocationClass{ExpressionCandidate, RefusalExplanationCandidate, ClosureMessageCandidate} {
		if outputFormatFor(c) != FormatText {
			t.Fatalf("expected TEXT for %s", c)
		}
	}
}

func TestRequiredElementsForCollectsEnabledDisclosures(t *testing.T) {
	op := &output.Plan{
		AssumptionSurfacing: output.AssumptionSurfacingBrief,
		UnknownDisclosure:   output.UnknownDisclosurePartial,
		ConfidenceSignaling: output.ConfidenceSignalingExplicit,
		VerbosityCap:        output.VerbosityNormal,
	}
	got := requiredElementsFor(op)
	want := map[string]bool{"assumption_disclosure": true, "unknown_disclosure": true, "confidence_signal": true}
	if len(got) != len(want) {
		t.Fatalf("got %v, want elements matching %v", got, want)
	}
	for _, e := range got {
		if !want[e] {
			t.Fatalf("unexpected element %q", e)
		}
	}
}

func TestRequiredElementsForEmptyWhenAllNone(t *testing.T) {
	op := &output.Plan{
		AssumptionSurfacing: output.AssumptionSurfacingNone,
		UnknownDisclosure:   output.UnknownDisclosureNone,
		ConfidenceSignaling: output.ConfidenceSignalingGuarded,
		VerbosityCap:        output.VerbosityNormal,
	}
	if got := requiredElementsFor(op); len(got) != 0 {
		t.Fatalf("expected no required elements, got %v", got)
	}
}

func TestClampTokensRespectsRequestMaxAndCeiling(t *testing.T) {
	if got := clampTokens(4096, 1000); got != 1000 {
		t.Fatalf("clampTokens(4096, 1000) = %d, want 1000", got)
	}
	if got := clampTokens(0, 1000); got != 1 {
		t.Fatalf("clampTokens(0, 1000) = %d, want 1", got)
	}
	if got := clampTokens(20000, 0); got != 8192 {
		t.Fatalf("clampTokens(20000, 0) = %d, want 8192", got)
	}
}

func TestDeterministicOutputPlanIDStableAndDistinct(t *testing.T) {
	a := deterministicOutputPlanID("plan-1")
	b := deterministicOutputPlanID("plan-1")
	if a != b {
		t.Fatal("expected deterministic output_plan_id for the same control_plan_id")
	}
	if deterministicOutputPlanID("plan-2") == a {
		t.Fatal("expected different control_plan_id to produce a different output_plan_id")
	}
}

func TestBuildRequestAnswerAllowed(t *testing.T) {
	cp := answerPlan(t)
	op := &output.Plan{
		AssumptionSurfacing: output.AssumptionSurfacingBrief,
		UnknownDisclosure:   output.UnknownDisclosureNone,
		ConfidenceSignaling: output.ConfidenceSignalingGuarded,
		VerbosityCap:        output.VerbosityNormal,
	}
	req, err := BuildRequest("what time zone is UTC+2?", nil, cp, op, 2000)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	if req.InvocationClass != ExpressionCandidate {
		t.Fatalf("invocation_class = %s, want EXPRESSION_CANDIDATE", req.InvocationClass)
	}
	if req.OutputFormat != FormatText {
		t.Fatalf("output_format = %s, want TEXT", req.OutputFormat)
	}
	if req.MaxOutputTokens != 1024 {
		t.Fatalf("max_output_tokens = %d, want 1024 (NORMAL cap)", req.MaxOutputTokens)
	}
	if req.TraceID != cp.TraceID || req.ControlPlanID != cp.ControlPlanID {
		t.Fatal("expected request ids to carry through from the control plan")
	}
}

func TestBuildRequestAskOneQuestionUsesJSON(t *testing.T) {
	cp := questionPlan(t)
	op := &output.Plan{VerbosityCap: output.VerbosityNormal}
	req, err := BuildRequest("did you mean X or Y?", nil, cp, op, 2000)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	if req.OutputFormat != FormatJSON {
		t.Fatalf("output_format = %s, want JSON", req.OutputFormat)
	}
}

func TestBuildRequestRejectsAbortAction(t *testing.T) {
	cp, err := control.Build("trace-5", "state-5", control.ActionAbortFailClosed,
		control.RigorEnforced, control.FrictionStop,
		false, control.ClarificationNone, 0, control.QuestionNone,
		control.ConfidenceSignalGuarded, control.UnknownDisclosureNone,
		false, control.InitiativeNone, control.ClosureOpen,
		false, control.RefusalNone, 1000)
	if err != nil {
		t.Fatalf("control.Build: %v", err)
	}
	op := &output.Plan{VerbosityCap: output.VerbosityNormal}
	if _, err := BuildRequest("anything", nil, cp, op, 2000); err == nil {
		t.Fatal("expected error for ABORT_FAIL_CLOSED never reaching the model pipeline")
	}
}
