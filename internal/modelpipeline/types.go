// Package modelpipeline builds, invokes, and verifies the single model
// call at the center of the governed pipeline: a request is derived
// deterministically from the decision-state/control-plan/output-plan chain,
// the provider is called once under a deadline, the result is verified
// against the request's contract, and any verification failure is replaced
// by a deterministic fallback rather than a retry.
package modelpipeline

import (
	"fmt"

	"github.com/google/uuid"
)

const SchemaVersion = "12.0.0"

type InvocationClass string

const (
	ExpressionCandidate         InvocationClass = "EXPRESSION_CANDIDATE"
	ClarificationCandidate      InvocationClass = "CLARIFICATION_CANDIDATE"
	RefusalExplanationCandidate InvocationClass = "REFUSAL_EXPLANATION_CANDIDATE"
	ClosureMessageCandidate     InvocationClass = "CLOSURE_MESSAGE_CANDIDATE"
)

type OutputFormat string

const (
	FormatText OutputFormat = "TEXT"
	FormatJSON OutputFormat = "JSON"
)

type FailureType string

const (
	FailureTimeout           FailureType = "TIMEOUT"
	FailureProviderError     FailureType = "PROVIDER_ERROR"
	FailureNonJSON           FailureType = "NON_JSON"
	FailureSchemaMismatch    FailureType = "SCHEMA_MISMATCH"
	FailureContractViolation FailureType = "CONTRACT_VIOLATION"
	FailureForbiddenContent  FailureType = "FORBIDDEN_CONTENT"
)

// Failure describes why a model invocation did not produce a usable result.
// FailClosed is always true, there is no partial-trust path.
type Failure struct {
	Type       FailureType
	ReasonCode string
	Message    string
	FailClosed bool
}

// Request is the immutable, contract-validated model invocation request.
type Request struct {
	TraceID              string
	DecisionStateID      string
	ControlPlanID        string
	OutputPlanID         string
	InvocationClass      InvocationClass
	OutputFormat         OutputFormat
	UserText             string
	ContextBlocks        []string
	RequiredElements     []string
	ForbiddenRequirements []string
	MaxOutputTokens      int
	SchemaVersion        string
}

// Result is the immutable, contract-validated model invocation result.
// Exactly one of OutputText/OutputJSON is populated when OK, neither when
// not. UsedFallback marks a result built by BuildFallback rather than
// returned by a provider, the caller maps this to
// apperr.ModelFailedFallbackUsed for telemetry/response shaping.
type Result struct {
	RequestID     string
	OK            bool
	OutputText    string
	OutputJSON    map[string]interface{}
	Failure       *Failure
	UsedFallback  bool
	SchemaVersion string
}

func isNonEmpty(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}

// ContractError reports a request/result invariant violation.
type ContractError struct{ Reason string }

func (e *ContractError) Error() string { return fmt.Sprintf("model contract: %s", e.Reason) }

// buildRequestID mirrors model_contract.py's build_request_id: a
// uuid5-equivalent name-based id derived from trace_id, output_plan_id, and
// invocation_class.
func buildRequestID(req *Request) string {
	seed := fmt.Sprintf("%s:%s:%s", req.TraceID, req.OutputPlanID, req.InvocationClass)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
}

// validateRequest enforces the same invariants as model_contract.py's
// validate_model_request.
func validateRequest(req *Request) error {
	if req == nil {
		return &ContractError{Reason: "request is required"}
	}
	for _, id := range []string{req.TraceID, req.DecisionStateID, req.ControlPlanID, req.OutputPlanID} {
		if !isNonEmpty(id) {
			return &ContractError{Reason: "all ids must be non-empty"}
		}
	}
	if req.SchemaVersion != SchemaVersion {
		return &ContractError{Reason: "schema_version mismatch"}
	}
	if req.MaxOutputTokens <= 0 || req.MaxOutputTokens > 8192 {
		return &ContractError{Reason: "max_output_tokens must be within 1..8192"}
	}
	if !isNonEmpty(req.UserText) {
		return &ContractError{Reason: "user_text must be non-empty"}
	}
	for _, e := range req.RequiredElements {
		if !isNonEmpty(e) {
			return &ContractError{Reason: "required_elements must be non-empty strings"}
		}
	}
	for _, e := range req.ForbiddenRequirements {
		if !isNonEmpty(e) {
			return &ContractError{Reason: "forbidden_requirements must be non-empty strings"}
		}
	}
	if req.InvocationClass == ClarificationCandidate {
		if req.OutputFormat != FormatJSON {
			return &ContractError{Reason: "CLARIFICATION_CANDIDATE requires JSON output_format"}
		}
	} else if req.OutputFormat != FormatText {
		return &ContractError{Reason: "only TEXT output_format allowed for this invocation_class"}
	}
	return nil
}

// validateResult enforces the same ok/failure symmetry as
// model_contract.py's validate_model_result.
func validateResult(result *Result, req *Request) error {
	if result == nil || req == nil {
		return &ContractError{Reason: "result and request are required"}
	}
	if result.SchemaVersion != SchemaVersion {
		return &ContractError{Reason: "schema_version mismatch"}
	}
	if !isNonEmpty(result.RequestID) {
		return &ContractError{Reason: "request_id must be non-empty"}
	}
	if result.OK {
		if result.Failure != nil {
			return &ContractError{Reason: "ok result cannot include failure"}
		}
		if req.OutputFormat == FormatJSON {
			if result.OutputJSON == nil {
				return &ContractError{Reason: "JSON output required"}
			}
			if result.OutputText != "" {
				return &ContractError{Reason: "output_text must be empty when JSON requested"}
			}
		} else {
			if !isNonEmpty(result.OutputText) {
				return &ContractError{Reason: "text output required"}
			}
			if len(result.OutputJSON) != 0 {
				return &ContractError{Reason: "output_json must be empty when text requested"}
			}
		}
		return nil
	}
	if result.Failure == nil {
		return &ContractError{Reason: "non-ok result must include failure"}
	}
	if result.OutputText != "" || len(result.OutputJSON) != 0 {
		return &ContractError{Reason: "failure result must not include outputs"}
	}
	if !result.Failure.FailClosed {
		return &ContractError{Reason: "failure must be fail-closed"}
	}
	return nil
}
