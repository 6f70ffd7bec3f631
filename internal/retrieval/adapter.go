package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// CanonicalizeQuery trims, collapses internal whitespace, and enforces the
// max query length.
func CanonicalizeQuery(query string) string {
	if query == "" {
		return ""
	}
	canonical := whitespaceRun.ReplaceAllString(strings.TrimSpace(query), " ")
	if len(canonical) > MaxQueryLength {
		canonical = canonical[:MaxQueryLength]
	}
	return canonical
}

// trackingParams are stripped during URL canonicalization; query params
// are otherwise preserved and sorted for a stable representation.
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true, "gclid": true, "fbclid": true,
}

// CanonicalizeURL lower-cases scheme and host, strips the fragment and
// tracking params, sorts remaining query params, and strips default ports.
func CanonicalizeURL(raw string) string {
	if raw == "" {
		return ""
	}
	raw = strings.TrimSpace(raw)
	if len(raw) > MaxURLLength {
		raw = raw[:MaxURLLength]
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	scheme := strings.ToLower(parsed.Scheme)
	host := strings.ToLower(parsed.Hostname())
	if port := parsed.Port(); port != "" && !isDefaultPort(scheme, port) {
		host = host + ":" + port
	}

	q := parsed.Query()
	for k := range q {
		if trackingParams[strings.ToLower(k)] {
			q.Del(k)
		}
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var qp strings.Builder
	for i, k := range keys {
		if i > 0 {
			qp.WriteByte('&')
		}
		qp.WriteString(k)
		for _, v := range q[k] {
			qp.WriteByte('=')
			qp.WriteString(v)
		}
	}

	canonical := scheme + "://" + host + parsed.EscapedPath()
	if qp.Len() > 0 {
		canonical += "?" + qp.String()
	}
	return canonical
}

func isDefaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}

// ExtractDomain extracts the lower-cased host, falling back to "unknown".
func ExtractDomain(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(parsed.Hostname())
}

// computeSourceID hashes structure only (tool, url, domain, title length,
// snippet count/lengths, sorted metadata keys), never snippet text or
// metadata values, so the id never leaks content.
func computeSourceID(tool ToolKind, canonicalURL, domain string, title string, snippets []Snippet, metadata map[string]interface{}) string {
	lengths := make([]int, len(snippets))
	for i, s := range snippets {
		lengths[i] = len(s.Text)
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	idData := map[string]interface{}{
		"tool":            string(tool),
		"url":             canonicalURL,
		"domain":          domain,
		"title_length":    len(title),
		"snippet_count":   len(snippets),
		"snippet_lengths": lengths,
		"metadata_keys":   keys,
	}
	payload, _ := json.Marshal(idData)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func validateMetadata(metadata map[string]interface{}) bool {
	if len(metadata) > MaxMetadataKeys {
		return false
	}
	for _, v := range metadata {
		switch v.(type) {
		case string, int, int64, float64, bool:
		default:
			return false
		}
	}
	return true
}

// normalizeRawSource turns a tool's raw result into a bounded SourceBundle,
// or reports ok=false if the source is malformed (no URL, no snippets).
func normalizeRawSource(tool ToolKind, raw RawSource, retrievedAt string) (SourceBundle, bool) {
	if raw.URL == "" {
		return SourceBundle{}, false
	}
	canonicalURL := CanonicalizeURL(raw.URL)
	domain := ExtractDomain(canonicalURL)

	title := raw.Title
	if len(title) > MaxTitleLength {
		title = title[:MaxTitleLength]
	}

	snippets := make([]Snippet, 0, len(raw.Snippets))
	for i, rs := range raw.Snippets {
		if i >= MaxSnippetsPerSource {
			break
		}
		text := rs.Text
		if len(text) > MaxSnippetTextLength {
			text = text[:MaxSnippetTextLength]
		}
		snippets = append(snippets, Snippet{Text: text, Start: rs.Start, End: rs.End})
	}
	if len(snippets) == 0 {
		return SourceBundle{}, false
	}

	metadata := raw.Metadata
	if !validateMetadata(metadata) {
		metadata = map[string]interface{}{}
	}

	return SourceBundle{
		SourceID:    computeSourceID(tool, canonicalURL, domain, title, snippets, metadata),
		Tool:        tool,
		URL:         canonicalURL,
		Domain:      domain,
		Title:       title,
		RetrievedAt: retrievedAt,
		Snippets:    snippets,
		Metadata:    metadata,
	}, true
}

func stableSortSources(sources []SourceBundle) []SourceBundle {
	sorted := append([]SourceBundle(nil), sources...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Tool != b.Tool {
			return a.Tool < b.Tool
		}
		if a.Domain != b.Domain {
			return a.Domain < b.Domain
		}
		if a.URL != b.URL {
			return a.URL < b.URL
		}
		return a.SourceID < b.SourceID
	})
	return sorted
}

// Retrieve is the only path to any tool. It canonicalizes the query,
// dispatches to each allowed tool's stub, normalizes and bounds the
// results, and returns a stable-sorted list capped by policy_caps. It is
// fail-closed: any malformed tool result is dropped, never surfaced.
func Retrieve(ctx context.Context, req Request, tools map[ToolKind]Tool, retrievedAt string) []SourceBundle {
	if req.Query == "" || len(req.AllowedTools) == 0 {
		return nil
	}
	if req.PolicyCaps.MaxResults < 1 || req.PolicyCaps.MaxResults > 10 {
		return nil
	}
	query := CanonicalizeQuery(req.Query)
	if query == "" {
		return nil
	}

	var all []SourceBundle
	for _, kind := range req.AllowedTools {
		tool, ok := tools[kind]
		if !ok {
			continue
		}
		raws, err := tool.Search(ctx, query)
		if err != nil {
			continue
		}
		for _, raw := range raws {
			if bundle, ok := normalizeRawSource(kind, raw, retrievedAt); ok {
				all = append(all, bundle)
			}
		}
	}

	if len(all) > req.PolicyCaps.MaxResults {
		all = all[:req.PolicyCaps.MaxResults]
	}
	return stableSortSources(all)
}
