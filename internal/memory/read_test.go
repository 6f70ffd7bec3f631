package memory

import "testing"

func activeFact(category MemoryCategory, key, value string) ActiveFactMeta {
	return ActiveFactMeta{Fact: MemoryFact{FactID: key, Category: category, Key: key, Value: value}}
}

func TestReadMemoryBundleRejectsUnknownTemplate(t *testing.T) {
	view := CurrentView{SubjectID: "s", Facts: []ActiveFactMeta{activeFact(CategoryGoal, "k1", "v1")}}
	bundle := ReadMemoryBundle(view, MemoryReadRequest{SubjectID: "s", Template: "BOGUS"})
	if bundle.Reason != BundleReasonUnknownTemplate {
		t.Fatalf("expected BundleReasonUnknownTemplate, got %+v", bundle)
	}
}

func TestReadMemoryBundleFiltersByTemplateCategories(t *testing.T) {
	view := CurrentView{SubjectID: "s", Facts: []ActiveFactMeta{
		activeFact(CategoryGoal, "k1", "v1"),
		activeFact(CategoryPreference, "k2", "v2"),
	}}
	bundle := ReadMemoryBundle(view, MemoryReadRequest{SubjectID: "s", Template: TemplateGoalsAndWorkflow, MaxFacts: 10, MaxPerCategory: 10, MaxTotalChars: 1000})
	if len(bundle.Facts) != 1 || bundle.Facts[0].Fact.Category != CategoryGoal {
		t.Fatalf("expected only GOAL fact selected, got %+v", bundle.Facts)
	}
}

func TestReadMemoryBundleReturnsNoFactsWhenNothingMatches(t *testing.T) {
	view := CurrentView{SubjectID: "s", Facts: []ActiveFactMeta{activeFact(CategoryConstraint, "k1", "v1")}}
	bundle := ReadMemoryBundle(view, MemoryReadRequest{SubjectID: "s", Template: TemplatePreferences, MaxFacts: 10, MaxPerCategory: 10, MaxTotalChars: 1000})
	if bundle.Reason != BundleReasonNoFacts || len(bundle.Facts) != 0 {
		t.Fatalf("expected BundleReasonNoFacts, got %+v", bundle)
	}
}

func TestReadMemoryBundleEnforcesMaxPerCategory(t *testing.T) {
	view := CurrentView{SubjectID: "s", Facts: []ActiveFactMeta{
		activeFact(CategoryGoal, "k1", "v1"),
		activeFact(CategoryGoal, "k2", "v2"),
		activeFact(CategoryGoal, "k3", "v3"),
	}}
	bundle := ReadMemoryBundle(view, MemoryReadRequest{SubjectID: "s", Template: TemplateGoalsAndWorkflow, MaxFacts: 10, MaxPerCategory: 2, MaxTotalChars: 1000})
	if len(bundle.Facts) != 2 {
		t.Fatalf("expected MaxPerCategory to cap at 2, got %d", len(bundle.Facts))
	}
}

func TestReadMemoryBundleEnforcesMaxFacts(t *testing.T) {
	view := CurrentView{SubjectID: "s", Facts: []ActiveFactMeta{
		activeFact(CategoryGoal, "k1", "v1"),
		activeFact(CategoryWorkflow, "k2", "v2"),
		activeFact(CategoryGoal, "k3", "v3"),
	}}
	bundle := ReadMemoryBundle(view, MemoryReadRequest{SubjectID: "s", Template: TemplateGoalsAndWorkflow, MaxFacts: 1, MaxPerCategory: 10, MaxTotalChars: 1000})
	if len(bundle.Facts) != 1 {
		t.Fatalf("expected MaxFacts to cap at 1, got %d", len(bundle.Facts))
	}
}

func TestReadMemoryBundleEnforcesMaxTotalChars(t *testing.T) {
	view := CurrentView{SubjectID: "s", Facts: []ActiveFactMeta{
		activeFact(CategoryGoal, "k1", "aaaaaaaaaa"),
		activeFact(CategoryGoal, "k2", "bbbbbbbbbb"),
	}}
	bundle := ReadMemoryBundle(view, MemoryReadRequest{SubjectID: "s", Template: TemplateGoalsAndWorkflow, MaxFacts: 10, MaxPerCategory: 10, MaxTotalChars: 15})
	if len(bundle.Facts) != 1 {
		t.Fatalf("expected char cap to stop after first fact, got %d facts, %d chars", len(bundle.Facts), bundle.TotalChars)
	}
}

func TestReadMemoryBundlePreservesViewOrdering(t *testing.T) {
	view := CurrentView{SubjectID: "s", Facts: []ActiveFactMeta{
		activeFact(CategoryGoal, "first", "v1"),
		activeFact(CategoryGoal, "second", "v2"),
	}}
	bundle := ReadMemoryBundle(view, MemoryReadRequest{SubjectID: "s", Template: TemplateGoalsAndWorkflow, MaxFacts: 10, MaxPerCategory: 10, MaxTotalChars: 1000})
	if bundle.Facts[0].Fact.Key != "first" || bundle.Facts[1].Fact.Key != "second" {
		t.Fatalf("expected pre-sorted view order preserved, got %+v", bundle.Facts)
	}
}
