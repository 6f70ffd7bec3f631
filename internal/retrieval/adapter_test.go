package retrieval

import (
	"context"
	"testing"
)

func TestCanonicalizeQueryCollapsesWhitespace(t *testing.T) {
	got := CanonicalizeQuery("  how   does   \tthis work  ")
	want := "how does this work"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestCanonicalizeQueryEnforcesMaxLength(t *testing.T) {
	long := make([]byte, MaxQueryLength+100)
	for i := range long {
		long[i] = 'a'
	}
	got := CanonicalizeQuery(string(long))
	if len(got) != MaxQueryLength {
		t.Fatalf("expected truncation to %d, got %d", MaxQueryLength, len(got))
	}
}

func TestCanonicalizeURLStripsTrackingParamsAndSortsRest(t *testing.T) {
	got := CanonicalizeURL("HTTPS://Example.COM:443/path?b=2&utm_source=x&a=1")
	want := "https://example.com/path?a=1&b=2"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestCanonicalizeURLKeepsNonDefaultPort(t *testing.T) {
	got := CanonicalizeURL("http://example.com:8080/path")
	want := "http://example.com:8080/path"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestExtractDomainFallsBackToUnknown(t *testing.T) {
	if got := ExtractDomain("not a url %%%"); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
	if got := ExtractDomain("https://Example.COM/path"); got != "example.com" {
		t.Fatalf("expected lower-cased host, got %q", got)
	}
}

func TestRetrieveDispatchesAndBoundsResults(t *testing.T) {
	web := &WebStub{Results: []RawSource{
		{URL: "https://a.example.com/1", Title: "A", Snippets: []RawSnippet{{Text: "snippet a"}}},
		{URL: "https://b.example.com/2", Title: "B", Snippets: []RawSnippet{{Text: "snippet b"}}},
	}}
	docs := &DocsStub{Results: []RawSource{
		{URL: "https://internal.example.com/doc", Title: "Doc", Snippets: []RawSnippet{{Text: "snippet c"}}},
	}}

	req := Request{
		Query:        "test query",
		PolicyCaps:   PolicyCaps{MaxResults: 2},
		AllowedTools: []ToolKind{ToolWeb, ToolDocs},
	}
	tools := map[ToolKind]Tool{ToolWeb: web, ToolDocs: docs}

	got := Retrieve(context.Background(), req, tools, "2026-01-01T00:00:00Z")
	if len(got) != 2 {
		t.Fatalf("expected MaxResults=2 to bound output, got %d", len(got))
	}
}

func TestRetrieveRejectsInvalidMaxResults(t *testing.T) {
	req := Request{
		Query:        "q",
		PolicyCaps:   PolicyCaps{MaxResults: 0},
		AllowedTools: []ToolKind{ToolWeb},
	}
	got := Retrieve(context.Background(), req, map[ToolKind]Tool{ToolWeb: &WebStub{}}, "now")
	if got != nil {
		t.Fatalf("expected nil for invalid MaxResults, got %+v", got)
	}
}

func TestRetrieveDropsMalformedSources(t *testing.T) {
	web := &WebStub{Results: []RawSource{
		{URL: "", Title: "no url", Snippets: []RawSnippet{{Text: "x"}}},
		{URL: "https://good.example.com", Title: "good", Snippets: nil},
		{URL: "https://good.example.com/ok", Title: "ok", Snippets: []RawSnippet{{Text: "fine"}}},
	}}
	req := Request{
		Query:        "q",
		PolicyCaps:   PolicyCaps{MaxResults: 10},
		AllowedTools: []ToolKind{ToolWeb},
	}
	got := Retrieve(context.Background(), req, map[ToolKind]Tool{ToolWeb: web}, "now")
	if len(got) != 1 {
		t.Fatalf("expected only the well-formed source to survive, got %d", len(got))
	}
}

func TestRetrieveContinuesPastToolError(t *testing.T) {
	web := &erroringTool{kind: ToolWeb}
	docs := &DocsStub{Results: []RawSource{
		{URL: "https://docs.example.com", Title: "d", Snippets: []RawSnippet{{Text: "snippet"}}},
	}}
	req := Request{
		Query:        "q",
		PolicyCaps:   PolicyCaps{MaxResults: 10},
		AllowedTools: []ToolKind{ToolWeb, ToolDocs},
	}
	got := Retrieve(context.Background(), req, map[ToolKind]Tool{ToolWeb: web, ToolDocs: docs}, "now")
	if len(got) != 1 {
		t.Fatalf("expected the failing tool to be skipped and the other tool's result kept, got %d", len(got))
	}
}

type erroringTool struct{ kind ToolKind }

func (e *erroringTool) Kind() ToolKind { return e.kind }
func (e *erroringTool) Search(ctx context.Context, query string) ([]RawSource, error) {
	return nil, errToolFailure{}
}
