package retrieval

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

const credibilityModelVersion = "12.0.0"

type DomainClass string

const (
	DomainGov        DomainClass = "GOV"
	DomainEdu        DomainClass = "EDU"
	DomainJournal    DomainClass = "JOURNAL"
	DomainOfficial   DomainClass = "OFFICIAL"
	DomainMajorMedia DomainClass = "MAJOR_MEDIA"
	DomainUGC        DomainClass = "UGC"
	DomainUnknown    DomainClass = "UNKNOWN"
)

var domainScores = map[DomainClass]int{
	DomainGov: 40, DomainEdu: 35, DomainJournal: 35, DomainOfficial: 30,
	DomainMajorMedia: 25, DomainUnknown: 10, DomainUGC: 0,
}

type FreshnessBucket string

const (
	FreshnessVeryRecent FreshnessBucket = "0-7_DAYS"
	FreshnessRecent     FreshnessBucket = "8-30_DAYS"
	FreshnessModerate   FreshnessBucket = "31-180_DAYS"
	FreshnessOld        FreshnessBucket = "181-730_DAYS"
	FreshnessVeryOld    FreshnessBucket = ">730_DAYS"
	FreshnessUnknown    FreshnessBucket = "UNKNOWN"
)

var freshnessScores = map[FreshnessBucket]int{
	FreshnessVeryRecent: 15, FreshnessRecent: 12, FreshnessModerate: 8,
	FreshnessOld: 4, FreshnessVeryOld: 0, FreshnessUnknown: 5,
}

const (
	penaltyNoAuthor      = -5
	penaltyNoDate        = -5
	corroborationMaxBonus = 10
)

var corroborationScores = map[int]int{0: 0, 1: 0, 2: 5, 3: 8}

var majorMediaDomains = map[string]bool{
	"nytimes.com": true, "washingtonpost.com": true, "wsj.com": true,
	"bbc.com": true, "bbc.co.uk": true, "reuters.com": true,
	"apnews.com": true, "theguardian.com": true, "cnn.com": true, "npr.org": true,
}

var journalPatterns = []string{
	"nature.com", "science.org", "sciencedirect.com", "springer.com",
	"wiley.com", "ieee.org", "acm.org", "plos.org",
	"pubmed.ncbi.nlm.nih.gov", "arxiv.org",
}

var ugcPatterns = []string{
	"blogspot.com", "medium.com", "wordpress.com", "reddit.com",
	"stackoverflow.com", "stackexchange.com", "quora.com", "github.io",
}

// ClassifyDomain classifies a domain, first match wins among
// GOV/EDU/JOURNAL/OFFICIAL/MAJOR_MEDIA/UGC, falling back to UNKNOWN.
func ClassifyDomain(domain string) DomainClass {
	d := strings.ToLower(domain)
	if strings.HasSuffix(d, ".gov") || strings.Contains(d, ".gov.") {
		return DomainGov
	}
	if strings.HasSuffix(d, ".edu") || strings.Contains(d, ".edu.") {
		return DomainEdu
	}
	for _, p := range journalPatterns {
		if strings.Contains(d, p) {
			return DomainJournal
		}
	}
	if strings.HasPrefix(d, "docs.") || strings.HasPrefix(d, "developer.") || strings.HasPrefix(d, "api.") {
		return DomainOfficial
	}
	if majorMediaDomains[d] {
		return DomainMajorMedia
	}
	for _, p := range ugcPatterns {
		if strings.Contains(d, p) {
			return DomainUGC
		}
	}
	return DomainUnknown
}

var dateLayouts = []string{
	"2006-01-02", "2006-01-02T15:04:05Z", "2006-01-02T15:04:05",
	"2006-01-02 15:04:05", "2006/01/02",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var dateMetadataFields = []string{"published_at", "date", "last_updated", "updated_at", "timestamp"}

func extractDate(metadata map[string]interface{}) (time.Time, bool) {
	for _, field := range dateMetadataFields {
		v, ok := metadata[field]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		if t, ok := parseDate(s); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func classifyFreshness(ageDays int, hasDate bool) FreshnessBucket {
	if !hasDate {
		return FreshnessUnknown
	}
	switch {
	case ageDays <= 7:
		return FreshnessVeryRecent
	case ageDays <= 30:
		return FreshnessRecent
	case ageDays <= 180:
		return FreshnessModerate
	case ageDays <= 730:
		return FreshnessOld
	default:
		return FreshnessVeryOld
	}
}

var authorMetadataFields = []string{"author", "byline", "writer"}

func hasAuthorField(metadata map[string]interface{}) bool {
	for _, field := range authorMetadataFields {
		if v, ok := metadata[field]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return true
			}
		}
	}
	return false
}

// CredibilityReport is the deterministic scoring breakdown for one source.
type CredibilityReport struct {
	Score             int
	Grade             string
	DomainClass       DomainClass
	FreshnessBucket   FreshnessBucket
	HasAuthor         bool
	HasDate           bool
	AgeDays           int
	CorroborationCount int
	ModelVersion      string
}

// GradedSource pairs a source with its credibility report.
type GradedSource struct {
	Source     SourceBundle
	Credibility CredibilityReport
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func assignGrade(score int) string {
	switch {
	case score >= 80:
		return "A"
	case score >= 65:
		return "B"
	case score >= 50:
		return "C"
	case score >= 35:
		return "D"
	default:
		return "E"
	}
}

func computeClaimKey(snippets []Snippet) string {
	var sb strings.Builder
	for _, s := range snippets {
		sb.WriteString(s.Text)
		sb.WriteByte(' ')
	}
	tokens := extractClaimTokens(normalizeClaimText(sb.String()))
	material := strings.Join(tokens, "|")
	if len(material) > 256 {
		material = material[:256]
	}
	if material == "" {
		material = "empty"
	}
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])[:16]
}

func normalizeClaimText(text string) string {
	text = strings.ToLower(text)
	var sb strings.Builder
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			sb.WriteRune(r)
		} else {
			sb.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func extractClaimTokens(text string) []string {
	fields := strings.Fields(text)
	seen := map[string]bool{}
	var tokens []string
	for _, t := range fields {
		if len(t) > 4 && !seen[t] {
			seen[t] = true
			tokens = append(tokens, t)
		}
	}
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})
	if len(tokens) > 12 {
		tokens = tokens[:12]
	}
	return tokens
}

func computeCorroborationCounts(bundles []SourceBundle, claimKeys map[string]string) map[string]int {
	claimToDomains := map[string]map[string]bool{}
	for _, b := range bundles {
		key, ok := claimKeys[b.SourceID]
		if !ok {
			continue
		}
		if claimToDomains[key] == nil {
			claimToDomains[key] = map[string]bool{}
		}
		claimToDomains[key][b.Domain] = true
	}
	counts := map[string]int{}
	for _, b := range bundles {
		key, ok := claimKeys[b.SourceID]
		if ok {
			counts[b.SourceID] = len(claimToDomains[key])
		} else {
			counts[b.SourceID] = 1
		}
	}
	return counts
}

// GradeSources grades every source with deterministic, rule-based
// credibility scoring, preserving input order.
func GradeSources(bundles []SourceBundle, now time.Time) []GradedSource {
	if len(bundles) == 0 {
		return nil
	}

	claimKeys := make(map[string]string, len(bundles))
	for _, b := range bundles {
		claimKeys[b.SourceID] = computeClaimKey(b.Snippets)
	}
	corroboration := computeCorroborationCounts(bundles, claimKeys)

	graded := make([]GradedSource, 0, len(bundles))
	for _, b := range bundles {
		domainClass := ClassifyDomain(b.Domain)
		domainScore := domainScores[domainClass]

		date, hasDate := extractDate(b.Metadata)
		ageDays := 0
		if hasDate {
			ageDays = int(now.Sub(date).Hours() / 24)
			if ageDays < 0 {
				ageDays = 0
			}
		}
		freshness := classifyFreshness(ageDays, hasDate)
		freshnessScore := freshnessScores[freshness]

		hasAuthor := hasAuthorField(b.Metadata)
		authorPenalty := 0
		if !hasAuthor {
			authorPenalty = penaltyNoAuthor
		}
		datePenalty := 0
		if !hasDate {
			datePenalty = penaltyNoDate
		}

		corroborationCount := corroboration[b.SourceID]
		corroborationBonus, ok := corroborationScores[corroborationCount]
		if !ok {
			corroborationBonus = corroborationMaxBonus
		}

		score := clampScore(domainScore + freshnessScore + authorPenalty + datePenalty + corroborationBonus)

		graded = append(graded, GradedSource{
			Source: b,
			Credibility: CredibilityReport{
				Score:              score,
				Grade:              assignGrade(score),
				DomainClass:        domainClass,
				FreshnessBucket:    freshness,
				HasAuthor:          hasAuthor,
				HasDate:            hasDate,
				AgeDays:            ageDays,
				CorroborationCount: corroborationCount,
				ModelVersion:       credibilityModelVersion,
			},
		})
	}
	return graded
}
