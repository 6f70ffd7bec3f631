package output

import (
	"governedchat/internal/control"
	"governedchat/internal/decision"
)

// Derive applies the ordered rule list (hard overrides, then unknown
// coupling, then high-stakes escalation, then action compatibility) and
// constructs the Plan through build, which enforces every cross-field
// invariant.
func Derive(s *decision.State, cp *control.Plan) (*Plan, error) {
	p := &Plan{
		Posture:             PostureBaseline,
		RigorDisclosure:     RigorDisclosure(cp.RigorLevel),
		ConfidenceSignaling: ConfidenceSignaling(cp.ConfidenceSignalingLevel),
		AssumptionSurfacing: AssumptionSurfacingNone,
		UnknownDisclosure:   UnknownDisclosure(cp.UnknownDisclosureLevel),
		VerbosityCap:        VerbosityNormal,
	}

	// Hard overrides.
	if cp.FrictionPosture == control.FrictionStop {
		p.Posture = PostureConstrained
		p.UnknownDisclosure = UnknownDisclosureFull
		p.VerbosityCap = VerbosityTerse
	}
	if cp.RigorLevel == control.RigorEnforced && p.UnknownDisclosure == UnknownDisclosureNone {
		p.UnknownDisclosure = UnknownDisclosurePartial
	}

	// Unknown coupling: any explicit unknown marker raises disclosure and
	// surfaces assumptions rather than silently answering around the gap.
	if len(s.ExplicitUnknownZone) > 0 {
		if p.UnknownDisclosure == UnknownDisclosureNone {
			p.UnknownDisclosure = UnknownDisclosurePartial
		}
		p.AssumptionSurfacing = AssumptionSurfacingBrief
	}
	if len(s.ExplicitUnknownZone) >= 3 {
		p.UnknownDisclosure = UnknownDisclosureFull
		p.AssumptionSurfacing = AssumptionSurfacingExplicit
	}

	// High-stakes escalation.
	if cp.RigorLevel == control.RigorEnforced || cp.RigorLevel == control.RigorStructured {
		if p.Posture == PostureBaseline {
			p.Posture = PostureGuarded
		}
		if p.ConfidenceSignaling == ConfidenceSignalingMinimal {
			p.ConfidenceSignaling = ConfidenceSignalingGuarded
		}
	}

	// Action compatibility.
	switch cp.Action {
	case control.ActionAskOneQuestion:
		if p.RigorDisclosure == RigorDisclosureEnforced {
			p.RigorDisclosure = RigorDisclosureStructured
		}
		if p.VerbosityCap == VerbosityDetailed {
			p.VerbosityCap = VerbosityNormal
		}
		p.Question = &QuestionSpec{MaxChars: 120}

	case control.ActionRefuse:
		p.Posture = PostureConstrained
		if p.VerbosityCap == VerbosityDetailed {
			p.VerbosityCap = VerbosityNormal
		}
		p.Refusal = &RefusalSpec{MaxChars: 220}

	case control.ActionClose:
		p.Question = nil
		silent := cp.ClosureState == control.ClosureClosing || cp.ClosureState == control.ClosureUserTerminated
		p.Closure = &ClosureSpec{Silent: silent}
	}

	return build(p, cp.Action)
}
