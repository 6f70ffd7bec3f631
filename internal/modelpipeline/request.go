package modelpipeline

import (
	"github.com/google/uuid"

	"governedchat/internal/control"
	"governedchat/internal/output"
)

// forbiddenAlways are forbidden_requirements present on every request,
// independent of the output plan, they name the capability/memory/
// injection claims a governed answer must never make.
var forbiddenAlways = []string{"capability_claim", "memory_claim", "new_rule_injection"}

func invocationClassFor(action control.Action) (InvocationClass, error) {
	switch action {
	case control.ActionAnswerAllowed:
		return ExpressionCandidate, nil
	case control.ActionAskOneQuestion:
		return ClarificationCandidate, nil
	case control.ActionRefuse:
		return RefusalExplanationCandidate, nil
	case control.ActionClose:
		return ClosureMessageCandidate, nil
	default:
		return "", &ContractError{Reason: "ABORT_FAIL_CLOSED never reaches the model pipeline"}
	}
}

func outputFormatFor(class InvocationClass) OutputFormat {
	if class == ClarificationCandidate {
		return FormatJSON
	}
	return FormatText
}

func requiredElementsFor(op *output.Plan) []string {
	var elements []string
	if op.AssumptionSurfacing != output.AssumptionSurfacingNone {
		elements = append(elements, "assumption_disclosure")
	}
	if op.UnknownDisclosure != output.UnknownDisclosureNone {
		elements = append(elements, "unknown_disclosure")
	}
	if op.ConfidenceSignaling == output.ConfidenceSignalingExplicit {
		elements = append(elements, "confidence_signal")
	}
	return elements
}

// verbosityTokenCap is the output plan's own ceiling before the cost
// policy's request-level cap is applied.
func verbosityTokenCap(v output.VerbosityCap) int {
	switch v {
	case output.VerbosityTerse:
		return 256
	case output.VerbosityDetailed:
		return 4096
	default:
		return 1024
	}
}

func clampTokens(n, requestMax int) int {
	if requestMax > 0 && n > requestMax {
		n = requestMax
	}
	if n < 1 {
		n = 1
	}
	if n > 8192 {
		n = 8192
	}
	return n
}

// deterministicOutputPlanID derives a stable id for an output.Plan value,
// which carries no id of its own (it is a pure function of the control
// plan and decision state, so its identity is derived rather than stored).
func deterministicOutputPlanID(controlPlanID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("output_plan:"+controlPlanID)).String()
}

// maxContextBlocks bounds how many retrieval/memory context fragments ride
// along on a single model request, independent of how many the capability
// layer gathered.
const maxContextBlocks = 8

// BuildRequest derives a contract-valid Request from the control plan and
// output plan produced upstream, clamping max_output_tokens to both the
// output plan's verbosity cap and the cost policy's request-level cap.
// contextBlocks carries bounded, pre-rendered retrieval/memory fragments;
// it may be nil, in which case the request carries none.
func BuildRequest(userText string, contextBlocks []string, cp *control.Plan, op *output.Plan, requestMaxOutputTokens int) (*Request, error) {
	class, err := invocationClassFor(cp.Action)
	if err != nil {
		return nil, err
	}

	if len(contextBlocks) > maxContextBlocks {
		contextBlocks = contextBlocks[:maxContextBlocks]
	}

	req := &Request{
		TraceID:               cp.TraceID,
		DecisionStateID:       cp.DecisionStateID,
		ControlPlanID:         cp.ControlPlanID,
		OutputPlanID:          deterministicOutputPlanID(cp.ControlPlanID),
		InvocationClass:       class,
		OutputFormat:          outputFormatFor(class),
		UserText:              userText,
		ContextBlocks:         append([]string{}, contextBlocks...),
		RequiredElements:      requiredElementsFor(op),
		ForbiddenRequirements: append([]string{}, forbiddenAlways...),
		MaxOutputTokens:       clampTokens(verbosityTokenCap(op.VerbosityCap), requestMaxOutputTokens),
		SchemaVersion:         SchemaVersion,
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}
