// Package control implements the control-plan engine:
// selecting the response action and its accompanying rigor/friction/
// clarification/refusal fields from a decision.State, and constructing the
// result through a validating constructor so an invalid ControlPlan is
// unrepresentable, ported from original_source/mci_backend/control_plan.py.
package control

import (
	"fmt"

	"github.com/google/uuid"
)

const SchemaVersion = "10.0.0"

type Action string

const (
	ActionAnswerAllowed   Action = "ANSWER_ALLOWED"
	ActionAskOneQuestion  Action = "ASK_ONE_QUESTION"
	ActionRefuse          Action = "REFUSE"
	ActionClose           Action = "CLOSE"
	ActionAbortFailClosed Action = "ABORT_FAIL_CLOSED"
)

type RigorLevel string

const (
	RigorMinimal    RigorLevel = "MINIMAL"
	RigorGuarded    RigorLevel = "GUARDED"
	RigorStructured RigorLevel = "STRUCTURED"
	RigorEnforced   RigorLevel = "ENFORCED"
	RigorUnknown    RigorLevel = "UNKNOWN"
)

type FrictionPosture string

const (
	FrictionNone      FrictionPosture = "NONE"
	FrictionSoftPause FrictionPosture = "SOFT_PAUSE"
	FrictionHardPause FrictionPosture = "HARD_PAUSE"
	FrictionStop      FrictionPosture = "STOP"
)

type ClarificationReason string

const (
	ClarificationDisambiguation    ClarificationReason = "DISAMBIGUATION"
	ClarificationMissingContext    ClarificationReason = "MISSING_CONTEXT"
	ClarificationSafety            ClarificationReason = "SAFETY"
	ClarificationScopeConfirmation ClarificationReason = "SCOPE_CONFIRMATION"
	ClarificationUnknown           ClarificationReason = "UNKNOWN"
	ClarificationNone              ClarificationReason = ""
)

type QuestionClass string

const (
	QuestionInformational QuestionClass = "INFORMATIONAL"
	QuestionSafetyGuard   QuestionClass = "SAFETY_GUARD"
	QuestionConsent       QuestionClass = "CONSENT"
	QuestionOtherBoundary QuestionClass = "OTHER_BOUNDARY"
	QuestionNone          QuestionClass = ""
)

type ConfidenceSignalingLevel string

const (
	ConfidenceSignalMinimal  ConfidenceSignalingLevel = "MINIMAL"
	ConfidenceSignalGuarded  ConfidenceSignalingLevel = "GUARDED"
	ConfidenceSignalExplicit ConfidenceSignalingLevel = "EXPLICIT"
)

type UnknownDisclosureLevel string

const (
	UnknownDisclosureNone    UnknownDisclosureLevel = "NONE"
	UnknownDisclosurePartial UnknownDisclosureLevel = "PARTIAL"
	UnknownDisclosureFull    UnknownDisclosureLevel = "FULL"
)

type InitiativeBudget string

const (
	InitiativeNone       InitiativeBudget = "NONE"
	InitiativeOnce       InitiativeBudget = "ONCE"
	InitiativeStrictOnce InitiativeBudget = "STRICT_ONCE"
)

type ClosureState string

const (
	ClosureOpen           ClosureState = "OPEN"
	ClosureClosing        ClosureState = "CLOSING"
	ClosureClosed         ClosureState = "CLOSED"
	ClosureUserTerminated ClosureState = "USER_TERMINATED"
)

type RefusalCategory string

const (
	RefusalNone                  RefusalCategory = "NONE"
	RefusalCapability            RefusalCategory = "CAPABILITY_REFUSAL"
	RefusalEpistemic             RefusalCategory = "EPISTEMIC_REFUSAL"
	RefusalRisk                  RefusalCategory = "RISK_REFUSAL"
	RefusalIrreversibility       RefusalCategory = "IRREVERSIBILITY_REFUSAL"
	RefusalThirdParty            RefusalCategory = "THIRD_PARTY_REFUSAL"
	RefusalGovernance            RefusalCategory = "GOVERNANCE_REFUSAL"
)

// deterministicPlanID mirrors the source's uuid5 derivation using Go's
// equivalent SHA1-based name-based UUID.
func deterministicPlanID(traceID, decisionStateID string, action Action) string {
	material := fmt.Sprintf("%s:%s:%s:%s", traceID, decisionStateID, action, SchemaVersion)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(material)).String()
}

// Plan is the immutable control-plan value. Use Build to construct one;
// its invariants are enforced at construction time, not by callers.
type Plan struct {
	SchemaVersion             string
	ControlPlanID             string
	TraceID                   string
	DecisionStateID           string
	Action                    Action
	RigorLevel                RigorLevel
	FrictionPosture           FrictionPosture
	ClarificationRequired     bool
	ClarificationReason       ClarificationReason
	QuestionBudget            int
	QuestionClass             QuestionClass
	ConfidenceSignalingLevel  ConfidenceSignalingLevel
	UnknownDisclosureLevel    UnknownDisclosureLevel
	InitiativeAllowed         bool
	InitiativeBudget          InitiativeBudget
	ClosureState              ClosureState
	RefusalRequired           bool
	RefusalCategory           RefusalCategory
	CreatedAtMillis           int64
}

// ValidationError reports a ControlPlan invariant violation.
type ValidationError struct{ Reason string }

func (e *ValidationError) Error() string { return fmt.Sprintf("control plan: %s", e.Reason) }

// Build constructs a Plan, computing its deterministic id and validating
// every cross-field invariant before returning it.
func Build(traceID, decisionStateID string, action Action, rigor RigorLevel, friction FrictionPosture,
	clarificationRequired bool, clarificationReason ClarificationReason, questionBudget int, questionClass QuestionClass,
	confidenceLevel ConfidenceSignalingLevel, unknownDisclosure UnknownDisclosureLevel, initiativeAllowed bool,
	initiativeBudget InitiativeBudget, closure ClosureState, refusalRequired bool, refusalCategory RefusalCategory,
	createdAtMillis int64) (*Plan, error) {

	p := &Plan{
		SchemaVersion:            SchemaVersion,
		ControlPlanID:            deterministicPlanID(traceID, decisionStateID, action),
		TraceID:                  traceID,
		DecisionStateID:          decisionStateID,
		Action:                   action,
		RigorLevel:               rigor,
		FrictionPosture:          friction,
		ClarificationRequired:    clarificationRequired,
		ClarificationReason:      clarificationReason,
		QuestionBudget:           questionBudget,
		QuestionClass:            questionClass,
		ConfidenceSignalingLevel: confidenceLevel,
		UnknownDisclosureLevel:   unknownDisclosure,
		InitiativeAllowed:        initiativeAllowed,
		InitiativeBudget:         initiativeBudget,
		ClosureState:             closure,
		RefusalRequired:          refusalRequired,
		RefusalCategory:          refusalCategory,
		CreatedAtMillis:          createdAtMillis,
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Plan) validate() error {
	if p.QuestionBudget != 0 && p.QuestionBudget != 1 {
		return &ValidationError{Reason: "question_budget must be 0 or 1"}
	}
	if p.Action == ActionAskOneQuestion && p.QuestionBudget != 1 {
		return &ValidationError{Reason: "ASK_ONE_QUESTION action requires question_budget == 1"}
	}
	if p.Action != ActionAskOneQuestion && p.QuestionBudget == 1 {
		return &ValidationError{Reason: "question_budget of 1 requires ASK_ONE_QUESTION action"}
	}
	if p.Action == ActionAnswerAllowed && p.RefusalRequired {
		return &ValidationError{Reason: "ANSWER_ALLOWED cannot coexist with refusal_required"}
	}
	if p.Action == ActionRefuse && !p.RefusalRequired {
		return &ValidationError{Reason: "REFUSE action requires refusal_required"}
	}
	if p.Action == ActionClose && p.ClarificationRequired {
		return &ValidationError{Reason: "CLOSE action cannot require clarification"}
	}
	if p.ClosureState == ClosureClosed && p.Action == ActionAskOneQuestion {
		return &ValidationError{Reason: "closure_state CLOSED is incompatible with ASK_ONE_QUESTION"}
	}
	if p.QuestionBudget == 0 && p.QuestionClass != QuestionNone {
		return &ValidationError{Reason: "question_class must be empty when question_budget is 0"}
	}
	if !p.RefusalRequired && p.RefusalCategory != RefusalNone && p.RefusalCategory != "" {
		return &ValidationError{Reason: "refusal_category must be NONE when refusal is not required"}
	}
	if p.RefusalRequired && (p.RefusalCategory == "" || p.RefusalCategory == RefusalNone) {
		return &ValidationError{Reason: "refusal_required=true requires a non-NONE refusal_category"}
	}
	return nil
}
