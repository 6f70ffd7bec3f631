package modelpipeline

import "testing"

func validRequest() *Request {
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

func TestValidateRequestOK(t *testing.T) {
	if err := validateRequest(validRequest()); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestValidateRequestRejectsMissingIDs(t *testing.T) {
	req := validRequest()
	req.TraceID = ""
	if err := validateRequest(req); err == nil {
		t.Fatal("expected error for missing trace_id")
	}
}

func TestValidateRequestRejectsBadSchemaVersion(t *testing.T) {
	req := validRequest()
	req.SchemaVersion = "0.0.0"
	if err := validateRequest(req); err == nil {
		t.Fatal("expected error for schema_version mismatch")
	}
}

func TestValidateRequestRejectsTokenCapOutOfRange(t *testing.T) {
	req := validRequest()
	req.MaxOutputTokens = 0
	if err := validateRequest(req); err == nil {
		t.Fatal("expected error for max_output_tokens == 0")
	}
	req.MaxOutputTokens = 9000
	if err := validateRequest(req); err == nil {
		t.Fatal("expected error for max_output_tokens > 8192")
	}
}

func TestValidateRequestClarificationRequiresJSON(t *testing.T) {
	req := validRequest()
	req.InvocationClass = ClarificationCandidate
	req.OutputFormat = FormatText
	if err := validateRequest(req); err == nil {
		t.Fatal("expected error: CLARIFICATION_CANDIDATE requires JSON output_format")
	}
	req.OutputFormat = FormatJSON
	if err := validateRequest(req); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestValidateRequestNonClarificationRejectsJSON(t *testing.T) {
	req := validRequest()
	req.OutputFormat = FormatJSON
	if err := validateRequest(req); err == nil {
		t.Fatal("expected error: only TEXT output_format allowed for this invocation_class")
	}
}

func TestValidateResultOKTextSymmetry(t *testing.T) {
	req := validRequest()
	result := &Result{RequestID: "req-1", OK: true, OutputText: "hi", SchemaVersion: SchemaVersion}
	if err := validateResult(result, req); err != nil {
		t.Fatalf("expected valid result, got %v", err)
	}
}

func TestValidateResultOKTextRejectsJSONPayload(t *testing.T) {
	req := validRequest()
	result := &Result{RequestID: "req-1", OK: true, OutputText: "hi", OutputJSON: map[string]interface{}{"a": 1}, SchemaVersion: SchemaVersion}
	if err := validateResult(result, req); err == nil {
		t.Fatal("expected error: output_json must be empty when text requested")
	}
}

func TestValidateResultOKJSONRequiresJSON(t *testing.T) {
	req := validRequest()
	req.InvocationClass = ClarificationCandidate
	req.OutputFormat = FormatJSON
	result := &Result{RequestID: "req-1", OK: true, SchemaVersion: SchemaVersion}
	if err := validateResult(result, req); err == nil {
		t.Fatal("expected error: JSON output required")
	}
}

func TestValidateResultFailureRequiresFailureField(t *testing.T) {
	req := validRequest()
	result := &Result{RequestID: "req-1", OK: false, SchemaVersion: SchemaVersion}
	if err := validateResult(result, req); err == nil {
		t.Fatal("expected error: non-ok result must include failure")
	}
}

func TestValidateResultFailureMustBeFailClosed(t *testing.T) {
	req := validRequest()
	result := &Result{
		RequestID:     "req-1",
		OK:            false,
		Failure:       &Failure{Type: FailureTimeout, ReasonCode: "timeout", FailClosed: false},
		SchemaVersion: SchemaVersion,
	}
	if err := validateResult(result, req); err == nil {
		t.Fatal("expected error: failure must be fail-closed")
	}
}

func TestValidateResultOKCannotIncludeFailure(t *testing.T) {
	req := validRequest()
	result := &Result{
		RequestID:     "req-1",
		OK:            true,
		OutputText:    "hi",
		Failure:       &Failure{Type: FailureTimeout, FailClosed: true},
		SchemaVersion: SchemaVersion,
	}
	if err := validateResult(result, req); err == nil {
		t.Fatal("expected error: ok result cannot include failure")
	}
}

func TestBuildRequestIDDeterministic(t *testing.T) {
	req := validRequest()
	a := buildRequestID(req)
	b := buildRequestID(req)
	if a != b {
		t.Fatalf("expected deterministic request id, got %q then %q", a, b)
	}

	other := validRequest()
	other.TraceID = "trace-2"
	if buildRequestID(other) == a {
		t.Fatal("expected different trace_id to produce a different request id")
	}
}
