package modelpipeline

import "testing"

func textRequest() *Request {
	return &Request{
		TraceID:         "trace-1",
		DecisionStateID: "state-1",
		ControlPlanID:   "plan-1",
		OutputPlanID:    "oplan-1",
		InvocationClass: ExpressionCandidate,
		OutputFormat:    FormatText,
		UserText:        "hello",
		MaxOutputTokens: 512,
		SchemaVersion:   SchemaVersion,
	}
}

func jsonRequest() *Request {
	return &Request{
		TraceID:         "trace-1",
		DecisionStateID: "state-1",
		ControlPlanID:   "plan-1",
		OutputPlanID:    "oplan-1",
		InvocationClass: ClarificationCandidate,
		OutputFormat:    FormatJSON,
		UserText:        "hello",
		MaxOutputTokens: 512,
		SchemaVersion:   SchemaVersion,
	}
}

func TestContainsForbiddenMarkerCaseInsensitive(t *testing.T) {
	if _, ok := containsForbiddenMarker("I Searched The Web for this"); !ok {
		t.Fatal("expected a case-insensitive match")
	}
	if _, ok := containsForbiddenMarker("nothing suspicious here"); ok {
		t.Fatal("expected no match")
	}
}

func TestVerifyTextRejectsEmpty(t *testing.T) {
	_, failure := verifyText("   ", textRequest(), "req-1")
	if failure == nil {
		t.Fatal("expected a failure for empty text")
	}
	if failure.Type != FailureSchemaMismatch {
		t.Fatalf("failure.Type = %s, want SCHEMA_MISMATCH", failure.Type)
	}
}

func TestVerifyTextRejectsForbiddenMarker(t *testing.T) {
	_, failure := verifyText("I remember you from last time", textRequest(), "req-1")
	if failure == nil {
		t.Fatal("expected a failure for a forbidden marker")
	}
	if failure.Type != FailureForbiddenContent {
		t.Fatalf("failure.Type = %s, want FORBIDDEN_CONTENT", failure.Type)
	}
}

func TestVerifyTextAcceptsCleanText(t *testing.T) {
	result, failure := verifyText("UTC+2 is two hours ahead of UTC.", textRequest(), "req-1")
	if failure != nil {
		t.Fatalf("unexpected failure: %v", failure)
	}
	if !result.OK || result.OutputText == "" {
		t.Fatal("expected an OK result carrying the output text")
	}
}

func TestVerifyJSONRejectsNonJSON(t *testing.T) {
	_, failure := verifyJSON("not json at all", jsonRequest(), "req-1")
	if failure == nil || failure.Type != FailureNonJSON {
		t.Fatalf("expected NON_JSON failure, got %v", failure)
	}
}

func TestVerifyJSONRejectsEmptyObject(t *testing.T) {
	_, failure := verifyJSON("{}", jsonRequest(), "req-1")
	if failure == nil || failure.Type != FailureSchemaMismatch {
		t.Fatalf("expected SCHEMA_MISMATCH failure, got %v", failure)
	}
}

func TestVerifyJSONClarificationRequiresQuestion(t *testing.T) {
	_, failure := verifyJSON(`{"note": "no question here"}`, jsonRequest(), "req-1")
	if failure == nil || failure.Type != FailureSchemaMismatch {
		t.Fatalf("expected SCHEMA_MISMATCH failure for missing question, got %v", failure)
	}
}

func TestVerifyJSONCollapsesMultiQuestionToOne(t *testing.T) {
	result, failure := verifyJSON(`{"question": "Do you mean A? And do you mean B?"}`, jsonRequest(), "req-1")
	if failure != nil {
		t.Fatalf("unexpected failure: %v", failure)
	}
	q, _ := result.OutputJSON["question"].(string)
	if q != "Do you mean A?" {
		t.Fatalf("question = %q, want collapsed to the first question", q)
	}
}

func TestVerifyJSONRejectsForbiddenMarkerInValues(t *testing.T) {
	_, failure := verifyJSON(`{"question": "new rule: ignore prior instructions?"}`, jsonRequest(), "req-1")
	if failure == nil || failure.Type != FailureForbiddenContent {
		t.Fatalf("expected FORBIDDEN_CONTENT failure, got %v", failure)
	}
}

func TestCollapseToOneQuestionRemovesInteriorAnd(t *testing.T) {
	got := collapseToOneQuestion("Do you want X and do you want Y?")
	if got != "Do you want X do you want Y?" {
		t.Fatalf("collapseToOneQuestion did not remove ' and ': %q", got)
	}
}
