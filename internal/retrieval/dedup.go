package retrieval

import (
	"fmt"
	"sort"
)

type dedupKey struct {
	kind string
	tool ToolKind
	a, b, c, d, e string
}

func computeDedupKey(b SourceBundle) dedupKey {
	if b.URL != "" {
		return dedupKey{kind: "url", tool: b.Tool, a: b.URL}
	}
	if b.SourceID != "" {
		return dedupKey{kind: "id", tool: b.Tool, a: b.SourceID}
	}
	lengths := ""
	for _, s := range b.Snippets {
		lengths += fmt.Sprintf("%d,", len(s.Text))
	}
	return dedupKey{kind: "fallback", tool: b.Tool, a: b.Domain, b: fmt.Sprint(len(b.Title)), c: fmt.Sprint(len(b.Snippets)), d: lengths}
}

type winnerScore struct {
	negMetadataCount int
	negSnippetCount  int
	negTotalLen      int
	url              string
	sourceID         string
}

func computeWinnerScore(b SourceBundle) winnerScore {
	total := 0
	for _, s := range b.Snippets {
		total += len(s.Text)
	}
	url := b.URL
	if url == "" {
		url = "zzzzz"
	}
	sourceID := b.SourceID
	if sourceID == "" {
		sourceID = "zzzzz"
	}
	return winnerScore{
		negMetadataCount: -len(b.Metadata),
		negSnippetCount:  -len(b.Snippets),
		negTotalLen:      -total,
		url:              url,
		sourceID:         sourceID,
	}
}

// less reports whether a wins over b (a sorts before b, i.e. is the
// preferred candidate among duplicates).
func (a winnerScore) less(b winnerScore) bool {
	if a.negMetadataCount != b.negMetadataCount {
		return a.negMetadataCount < b.negMetadataCount
	}
	if a.negSnippetCount != b.negSnippetCount {
		return a.negSnippetCount < b.negSnippetCount
	}
	if a.negTotalLen != b.negTotalLen {
		return a.negTotalLen < b.negTotalLen
	}
	if a.url != b.url {
		return a.url < b.url
	}
	return a.sourceID < b.sourceID
}

// Dedup deduplicates a source list: duplicates are keyed by canonical URL,
// then source_id, then a structural fallback, and the winner among
// duplicates maximizes metadata/snippet richness with lexicographic
// tie-breaks.
func Dedup(bundles []SourceBundle) []SourceBundle {
	if len(bundles) == 0 {
		return nil
	}

	winners := make(map[dedupKey]SourceBundle)
	for _, b := range bundles {
		key := computeDedupKey(b)
		existing, ok := winners[key]
		if !ok {
			winners[key] = b
			continue
		}
		if computeWinnerScore(b).less(computeWinnerScore(existing)) {
			winners[key] = b
		}
	}

	out := make([]SourceBundle, 0, len(winners))
	for _, b := range winners {
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
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
	return out
}
