// Package output implements the output-plan engine:
// deriving posture, rigor disclosure, confidence signaling, assumption
// surfacing, unknown disclosure, verbosity cap, and optional question/
// refusal/closure specs from a decision.State and a control.Plan. There is
// no surviving original_source file for this engine; it is built directly
// from the ordered rule list, following control_plan.py's
// constructor-validated-dataclass idiom: construction is fail-closed, never
// returning a plan that violates a cross-field invariant.
package output

import (
	"fmt"

	"governedchat/internal/control"
)

type Posture string

const (
	PostureBaseline   Posture = "BASELINE"
	PostureGuarded    Posture = "GUARDED"
	PostureConstrained Posture = "CONSTRAINED"
)

type RigorDisclosure string

const (
	RigorDisclosureMinimal    RigorDisclosure = "MINIMAL"
	RigorDisclosureGuarded    RigorDisclosure = "GUARDED"
	RigorDisclosureStructured RigorDisclosure = "STRUCTURED"
	RigorDisclosureEnforced   RigorDisclosure = "ENFORCED"
)

type ConfidenceSignaling string

const (
	ConfidenceSignalingMinimal  ConfidenceSignaling = "MINIMAL"
	ConfidenceSignalingGuarded  ConfidenceSignaling = "GUARDED"
	ConfidenceSignalingExplicit ConfidenceSignaling = "EXPLICIT"
)

type AssumptionSurfacing string

const (
	AssumptionSurfacingNone    AssumptionSurfacing = "NONE"
	AssumptionSurfacingBrief   AssumptionSurfacing = "BRIEF"
	AssumptionSurfacingExplicit AssumptionSurfacing = "EXPLICIT"
)

type UnknownDisclosure string

const (
	UnknownDisclosureNone    UnknownDisclosure = "NONE"
	UnknownDisclosurePartial UnknownDisclosure = "PARTIAL"
	UnknownDisclosureFull    UnknownDisclosure = "FULL"
)

type VerbosityCap string

const (
	VerbosityTerse    VerbosityCap = "TERSE"
	VerbosityNormal   VerbosityCap = "NORMAL"
	VerbosityDetailed VerbosityCap = "DETAILED"
)

// QuestionSpec is present only when the control plan's action is
// ASK_ONE_QUESTION.
type QuestionSpec struct {
	MaxChars int
}

// RefusalSpec is present only when the control plan's action is REFUSE.
type RefusalSpec struct {
	MaxChars int
}

// ClosureSpec is present only when the control plan's action is CLOSE.
type ClosureSpec struct {
	Silent bool
}

type Plan struct {
	Posture             Posture
	RigorDisclosure     RigorDisclosure
	ConfidenceSignaling ConfidenceSignaling
	AssumptionSurfacing AssumptionSurfacing
	UnknownDisclosure   UnknownDisclosure
	VerbosityCap        VerbosityCap
	Question            *QuestionSpec
	Refusal              *RefusalSpec
	Closure              *ClosureSpec
}

// InvariantViolation is raised by build when a combination of fields
// would be incoherent; the orchestrator maps this to INTERNAL_ERROR via
// GOVERNED_PIPELINE_ABORTED, never returning the invalid plan.
type InvariantViolation struct{ Reason string }

func (e *InvariantViolation) Error() string { return fmt.Sprintf("output plan: %s", e.Reason) }

func build(p *Plan, action control.Action) (*Plan, error) {
	if action == control.ActionAskOneQuestion && p.RigorDisclosure == RigorDisclosureEnforced {
		return nil, &InvariantViolation{Reason: "ASK_ONE_QUESTION forbids ENFORCED rigor disclosure"}
	}
	if action == control.ActionAskOneQuestion && p.VerbosityCap == VerbosityDetailed {
		return nil, &InvariantViolation{Reason: "ASK_ONE_QUESTION forbids DETAILED verbosity"}
	}
	if action == control.ActionAskOneQuestion && p.Question == nil {
		return nil, &InvariantViolation{Reason: "ASK_ONE_QUESTION requires a question spec"}
	}
	if action == control.ActionClose && p.Question != nil {
		return nil, &InvariantViolation{Reason: "CLOSE forbids a question spec"}
	}
	if action == control.ActionClose && p.Closure == nil {
		return nil, &InvariantViolation{Reason: "CLOSE requires a closure spec"}
	}
	if action == control.ActionRefuse && p.Posture != PostureConstrained {
		return nil, &InvariantViolation{Reason: "REFUSE requires a CONSTRAINED posture"}
	}
	if action == control.ActionRefuse && p.VerbosityCap == VerbosityDetailed {
		return nil, &InvariantViolation{Reason: "REFUSE disallows DETAILED verbosity"}
	}
	if action == control.ActionRefuse && p.Refusal == nil {
		return nil, &InvariantViolation{Reason: "REFUSE requires a refusal spec"}
	}
	if action != control.ActionAskOneQuestion && p.Question != nil {
		return nil, &InvariantViolation{Reason: "question spec is only valid for ASK_ONE_QUESTION"}
	}
	if action != control.ActionRefuse && p.Refusal != nil {
		return nil, &InvariantViolation{Reason: "refusal spec is only valid for REFUSE"}
	}
	if action != control.ActionClose && p.Closure != nil {
		return nil, &InvariantViolation{Reason: "closure spec is only valid for CLOSE"}
	}
	return p, nil
}
