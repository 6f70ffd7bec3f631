package memory

// ReadTemplate is a closed, safe selection of categories a caller may
// request; there is no freeform search over memory.
type ReadTemplate string

const (
	TemplateGoalsAndWorkflow ReadTemplate = "GOALS_AND_WORKFLOW"
	TemplatePreferences      ReadTemplate = "PREFERENCES"
	TemplateConstraints      ReadTemplate = "CONSTRAINTS"
)

var templateCategories = map[ReadTemplate][]MemoryCategory{
	TemplateGoalsAndWorkflow: {CategoryGoal, CategoryWorkflow},
	TemplatePreferences:      {CategoryPreference},
	TemplateConstraints:      {CategoryConstraint},
}

// MemoryReadRequest is the single allowed input shape to ReadMemoryBundle.
type MemoryReadRequest struct {
	SubjectID      string
	Template       ReadTemplate
	MaxFacts       int
	MaxPerCategory int
	MaxTotalChars  int
}

// BundleReason explains why a bundle came back empty or truncated.
type BundleReason string

const (
	BundleReasonOK            BundleReason = "OK"
	BundleReasonNoFacts       BundleReason = "NO_FACTS"
	BundleReasonUnknownTemplate BundleReason = "UNKNOWN_TEMPLATE"
)

// MemoryBundle is the only shape a memory read ever returns: bounded,
// deterministically ordered, and already char-capped.
type MemoryBundle struct {
	SubjectID  string
	Template   ReadTemplate
	Facts      []ActiveFactMeta
	Reason     BundleReason
	TotalChars int
}

// ReadMemoryBundle is the single chokepoint for memory reads: it selects
// from the current view by the template's allowed categories, applies the
// bounded caps, and returns a text-safe bundle. It never does freeform
// search and never widens the selected category set.
func ReadMemoryBundle(view CurrentView, req MemoryReadRequest) MemoryBundle {
	categories, ok := templateCategories[req.Template]
	if !ok {
		return MemoryBundle{SubjectID: req.SubjectID, Template: req.Template, Reason: BundleReasonUnknownTemplate}
	}
	allowed := map[MemoryCategory]bool{}
	for _, c := range categories {
		allowed[c] = true
	}

	perCategoryCount := map[MemoryCategory]int{}
	var selected []ActiveFactMeta
	totalChars := 0

	for _, meta := range view.Facts {
		if !allowed[meta.Fact.Category] {
			continue
		}
		if req.MaxPerCategory > 0 && perCategoryCount[meta.Fact.Category] >= req.MaxPerCategory {
			continue
		}
		if req.MaxFacts > 0 && len(selected) >= req.MaxFacts {
			break
		}
		factChars := len(meta.Fact.Key) + len(meta.Fact.Value)
		if req.MaxTotalChars > 0 && totalChars+factChars > req.MaxTotalChars {
			continue
		}
		selected = append(selected, meta)
		perCategoryCount[meta.Fact.Category]++
		totalChars += factChars
	}

	reason := BundleReasonOK
	if len(selected) == 0 {
		reason = BundleReasonNoFacts
	}

	return MemoryBundle{
		SubjectID:  req.SubjectID,
		Template:   req.Template,
		Facts:      selected,
		Reason:     reason,
		TotalChars: totalChars,
	}
}
