// Package retrieval implements the single chokepoint through which the
// governed pipeline may touch any external tool: a canonicalizing adapter,
// a deterministic sandbox wrapper (budget/rate/timeout/violation), dedup,
// rule-based credibility grading, claim-to-citation binding, and a
// tool-output injection sanitizer. Ported from
// original_source/backend/app/retrieval/{types,adapter}.py and
// original_source/backend/app/research/*.py.
package retrieval

// ToolKind is an allowed retrieval tool. Only WEB and DOCS are wired.
type ToolKind string

const (
	ToolWeb  ToolKind = "WEB"
	ToolDocs ToolKind = "DOCS"
)

// Bounds enforced by the adapter, matching the original's constants.
const (
	MaxSnippetTextLength = 500
	MaxSnippetsPerSource = 5
	MaxTitleLength       = 200
	MaxURLLength         = 2000
	MaxMetadataKeys      = 10
	MaxQueryLength       = 500
)

// PolicyCaps bounds a retrieval call. Supplied by policy, never by the
// request's own requested mode.
type PolicyCaps struct {
	MaxResults           int
	PerToolTimeoutMS     int64
	TotalTimeoutMS       int64
	MaxToolCallsTotal    int
	MaxToolCallsPerMinute int
}

// RequestFlags are request-level, non-overriding preferences.
type RequestFlags struct {
	CitationsRequired bool
}

// Snippet is a single bounded text excerpt from a source.
type Snippet struct {
	Text  string
	Start *int
	End   *int
}

// SourceBundle is the only output shape Retrieve ever returns. No
// free-form text, no assistant summaries, no tool directives.
type SourceBundle struct {
	SourceID    string
	Tool        ToolKind
	URL         string
	Domain      string
	Title       string
	RetrievedAt string
	Snippets    []Snippet
	Metadata    map[string]interface{}
}

// Request is the single allowed input shape to Retrieve. No user profile,
// no memory blob, no hidden state travels with it.
type Request struct {
	Query        string
	PolicyCaps   PolicyCaps
	AllowedTools []ToolKind
	RequestFlags RequestFlags
}
