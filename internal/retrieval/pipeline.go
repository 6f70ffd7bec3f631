package retrieval

import (
	"context"
	"time"
)

// Result is the full output of one governed retrieval round: graded,
// deduplicated sources plus the claim coverage verdict for a draft answer,
// if one was supplied.
type Result struct {
	Sources []GradedSource
	Binder  *BinderOutput
}

// Run executes the chokepoint end to end: canonicalize and dispatch the
// request, sanitize each tool's raw output before it ever reaches
// dedup/grading, dedup, grade, and, when draftAnswer is non-empty, bind its
// claims to citations and enforce coverage.
func Run(ctx context.Context, req Request, tools map[ToolKind]Tool, retrievedAt string, now time.Time, draftAnswer string) Result {
	bundles := Retrieve(ctx, req, tools, retrievedAt)

	sanitizedBundles := make([]SourceBundle, 0, len(bundles))
	cfg := DefaultSanitizerConfig()
	for _, b := range bundles {
		sanitizedBundles = append(sanitizedBundles, sanitizeBundle(b, cfg))
	}

	deduped := Dedup(sanitizedBundles)
	graded := GradeSources(deduped, now)

	result := Result{Sources: graded}
	if draftAnswer != "" {
		binder := BindClaimsAndCitations(draftAnswer, graded)
		result.Binder = &binder
	}
	return result
}

// sanitizeBundle runs every snippet's text through the injection sanitizer
// before it can reach dedup, grading, or claim binding. Tool output is
// untrusted the moment it crosses the adapter.
func sanitizeBundle(b SourceBundle, cfg SanitizerConfig) SourceBundle {
	cleaned := make([]Snippet, len(b.Snippets))
	for i, s := range b.Snippets {
		sanitized := SanitizeToolOutput(s.Text, cfg)
		cleaned[i] = Snippet{Text: sanitized.SanitizedText, Start: s.Start, End: s.End}
	}
	b.Snippets = cleaned
	return b
}
