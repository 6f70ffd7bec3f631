package modelpipeline

import (
	"encoding/json"
	"strings"
)

// forbiddenMarkers are capability/memory/injection claims a governed answer
// must never contain, matched case-insensitively as substrings.
var forbiddenMarkers = []string{
	"i searched the web",
	"i remember you",
	"new rule:",
}

func containsForbiddenMarker(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, m := range forbiddenMarkers {
		if strings.Contains(lower, m) {
			return m, true
		}
	}
	return "", false
}

// verify turns a provider's raw response into a contract-valid Result, or
// reports the Failure that should trigger a deterministic fallback instead.
// It never retries, a verification failure is terminal for this attempt.
func verify(raw *RawResponse, req *Request) (*Result, *Failure) {
	requestID := buildRequestID(req)

	if req.OutputFormat == FormatJSON {
		return verifyJSON(raw.Text, req, requestID)
	}
	return verifyText(raw.Text, req, requestID)
}

func verifyJSON(text string, req *Request, requestID string) (*Result, *Failure) {
	trimmed := strings.TrimSpace(text)
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, &Failure{Type: FailureNonJSON, ReasonCode: "json_parse_failed", Message: "model output did not parse as a JSON object", FailClosed: true}
	}
	if len(obj) == 0 {
		return nil, &Failure{Type: FailureSchemaMismatch, ReasonCode: "empty_object", Message: "model output was an empty JSON object", FailClosed: true}
	}

	if req.InvocationClass == ClarificationCandidate {
		q, ok := obj["question"].(string)
		if !ok || !isNonEmpty(q) {
			return nil, &Failure{Type: FailureSchemaMismatch, ReasonCode: "missing_question", Message: "CLARIFICATION_CANDIDATE response missing a question field", FailClosed: true}
		}
		obj["question"] = collapseToOneQuestion(q)
	}

	if _, forbidden := containsForbiddenMarker(jsonValuesAsText(obj)); forbidden {
		return nil, &Failure{Type: FailureForbiddenContent, ReasonCode: "forbidden_marker", Message: "model output contained a forbidden capability/memory claim", FailClosed: true}
	}

	return &Result{
		RequestID:     requestID,
		OK:            true,
		OutputJSON:    obj,
		SchemaVersion: SchemaVersion,
	}, nil
}

func verifyText(text string, req *Request, requestID string) (*Result, *Failure) {
	if !isNonEmpty(text) {
		return nil, &Failure{Type: FailureSchemaMismatch, ReasonCode: "empty_text", Message: "model output was empty", FailClosed: true}
	}
	if marker, forbidden := containsForbiddenMarker(text); forbidden {
		return nil, &Failure{Type: FailureForbiddenContent, ReasonCode: "forbidden_marker:" + marker, Message: "model output contained a forbidden capability/memory claim", FailClosed: true}
	}
	return &Result{
		RequestID:     requestID,
		OK:            true,
		OutputText:    text,
		SchemaVersion: SchemaVersion,
	}, nil
}

// collapseToOneQuestion reduces a multi-question string to its first
// question, matching the contract's "one question only" invariant for
// ASK_ONE_QUESTION fallbacks and model outputs alike.
func collapseToOneQuestion(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "?"); idx >= 0 {
		s = s[:idx+1]
	}
	s = strings.ReplaceAll(s, " and ", " ")
	return s
}

func jsonValuesAsText(obj map[string]interface{}) string {
	var sb strings.Builder
	for _, v := range obj {
		if s, ok := v.(string); ok {
			sb.WriteString(s)
			sb.WriteString(" ")
		}
	}
	return sb.String()
}
