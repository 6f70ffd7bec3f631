package retrieval

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	maxClaims                = 12
	maxClaimLength           = 200
	maxCitationsPerClaim     = 3
	maxUncoveredIDs          = 5
	maxClarifyQuestions      = 3
	maxClarifyQuestionLength = 160
)

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "up": true, "about": true,
	"into": true, "through": true, "during": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "should": true, "could": true,
	"may": true, "might": true, "can": true, "this": true, "that": true,
	"these": true, "those": true, "i": true, "you": true, "he": true,
	"she": true, "it": true, "we": true, "they": true, "them": true,
	"their": true, "there": true, "here": true, "over": true,
}

var factualVerbs = []string{
	"is", "are", "was", "were", "causes", "leads", "results", "illegal",
	"required", "prohibited", "mandates", "requires", "enforces",
}

var clarifiableWords = []string{
	"which", "what", "where", "when", "version", "error", "environment",
	"location", "why", "how",
}

var pronounStarts = map[string]bool{
	"it": true, "this": true, "that": true, "these": true, "those": true,
	"they": true, "them": true,
}

// ClaimKind is a rough classification of what shape a claim takes.
type ClaimKind string

const (
	ClaimFact           ClaimKind = "FACT"
	ClaimStat           ClaimKind = "STAT"
	ClaimQuote          ClaimKind = "QUOTE"
	ClaimRecommendation ClaimKind = "RECOMMENDATION"
)

// Confidence is the claim extractor's own confidence in the claim, not a
// citation credibility score.
type Confidence string

const (
	ConfidenceHighClaim Confidence = "HIGH"
	ConfidenceMedClaim  Confidence = "MED"
	ConfidenceLowClaim  Confidence = "LOW"
)

// Claim is one atomic, bounded statement extracted from answer text.
type Claim struct {
	ClaimID    string
	Text       string
	Kind       ClaimKind
	Required   bool
	Confidence Confidence
}

var sentenceSplit = regexp.MustCompile(`([.!?]+)`)
var bulletPrefix = regexp.MustCompile(`^[-*\x{2022}]\s+`)
var hasDigit = regexp.MustCompile(`\d`)
var fourDigitYear = regexp.MustCompile(`\b\d{4}\b`)
var monthName = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\b`)
var titleCaseRun = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\b`)
var urlLike = regexp.MustCompile(`(?i)https?://|www\.`)
var statPattern = regexp.MustCompile(`\d+%|\d+\.\d+|\d+,\d+|\$\d+`)
var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

func canonicalizeClaimText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(text))), " ")
}

func computeClaimID(text string) string {
	sum := sha256.Sum256([]byte(canonicalizeClaimText(text)))
	return hex.EncodeToString(sum[:])[:12]
}

func extractSentences(text string) []string {
	var sentences []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if bulletPrefix.MatchString(line) {
			if bulleted := strings.TrimSpace(bulletPrefix.ReplaceAllString(line, "")); bulleted != "" {
				sentences = append(sentences, bulleted)
			}
			continue
		}
		parts := sentenceSplit.Split(line, -1)
		seps := sentenceSplit.FindAllString(line, -1)
		var current strings.Builder
		for i, part := range parts {
			current.WriteString(part)
			if i < len(seps) {
				current.WriteString(seps[i])
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func isRequiredClaim(text string) bool {
	lower := strings.ToLower(text)
	if hasDigit.MatchString(text) {
		return true
	}
	if monthName.MatchString(lower) {
		return true
	}
	if fourDigitYear.MatchString(text) {
		return true
	}
	for _, verb := range factualVerbs {
		if strings.Contains(" "+lower+" ", " "+verb+" ") {
			return true
		}
	}
	if titleCaseRun.MatchString(text) {
		return true
	}
	if strings.Contains(lower, "according to") {
		return true
	}
	if urlLike.MatchString(lower) {
		return true
	}
	if strings.HasSuffix(text, "?") {
		for _, w := range clarifiableWords {
			if strings.Contains(lower, w) {
				return true
			}
		}
	}
	return false
}

func classifyClaimKind(text string) ClaimKind {
	lower := strings.ToLower(text)
	if strings.ContainsAny(text, `"'`) || strings.Contains(lower, "said") || strings.Contains(lower, "states") {
		return ClaimQuote
	}
	if statPattern.MatchString(text) {
		return ClaimStat
	}
	for _, w := range []string{"should", "must", "recommend", "suggest", "advise", "consider"} {
		if strings.Contains(lower, w) {
			return ClaimRecommendation
		}
	}
	return ClaimFact
}

func assessConfidence(text string, required bool) Confidence {
	lower := strings.ToLower(text)
	for _, w := range []string{"may", "might", "possibly", "perhaps", "unclear", "uncertain"} {
		if strings.Contains(lower, w) {
			return ConfidenceLowClaim
		}
	}
	if required && hasDigit.MatchString(text) {
		return ConfidenceHighClaim
	}
	for _, w := range []string{"always", "never", "definitely", "certainly", "proven"} {
		if strings.Contains(lower, w) {
			return ConfidenceHighClaim
		}
	}
	return ConfidenceMedClaim
}

// ExtractClaims extracts bounded, deduplicated claims from answer text,
// required claims sorted ahead of optional ones.
func ExtractClaims(text string) []Claim {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var required, optional []Claim
	seen := map[string]bool{}
	for _, sentence := range extractSentences(text) {
		if len(sentence) < 8 {
			continue
		}
		bounded := sentence
		if len(bounded) > maxClaimLength {
			bounded = bounded[:maxClaimLength]
		}
		canonical := canonicalizeClaimText(bounded)
		if seen[canonical] {
			continue
		}
		seen[canonical] = true

		req := isRequiredClaim(bounded)
		claim := Claim{
			ClaimID:    computeClaimID(bounded),
			Text:       bounded,
			Kind:       classifyClaimKind(bounded),
			Required:   req,
			Confidence: assessConfidence(bounded, req),
		}
		if req {
			required = append(required, claim)
		} else {
			optional = append(optional, claim)
		}
	}

	claims := append(required, optional...)
	if len(claims) > maxClaims {
		claims = claims[:maxClaims]
	}
	return claims
}

func tokenizeForBinding(text string) []string {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	var out []string
	for _, t := range tokens {
		if len(t) > 2 && !stopwords[t] {
			out = append(out, t)
		}
	}
	if len(out) > 12 {
		out = out[:12]
	}
	return out
}

func overlapScore(claimTokens, snippetTokens []string) int {
	set := map[string]bool{}
	for _, t := range snippetTokens {
		set[t] = true
	}
	seen := map[string]bool{}
	count := 0
	for _, t := range claimTokens {
		if set[t] && !seen[t] {
			seen[t] = true
			count++
		}
	}
	return count
}

func computeTieBreakHash(claimID, sourceID string, snippetIndex int) string {
	material := claimID + "|" + sourceID + "|" + itoaInt(snippetIndex)
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])[:8]
}

func itoaInt(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		return "-" + string(b)
	}
	return string(b)
}

// CitationRef is a bounded pointer from a claim back to the source
// snippet that supports it. No snippet text: only enough to locate and
// judge the source, never to quote it.
type CitationRef struct {
	SourceID         string
	URL              string
	Domain           string
	Title            string
	PublishedDate    string
	SnippetIndex     int
	SnippetLength    int
	CredibilityGrade string
	CredibilityScore int
}

type bindingCandidate struct {
	credibilityScore int
	overlap          int
	freshnessProxy   int
	domain           string
	url              string
	snippetIndex     int
	tieBreak         string
	ref              CitationRef
}

// BindClaimsToSources assigns up to maxCitationsPerClaim citations per
// claim by deterministic tuple sort: credibility desc, overlap desc,
// freshness desc, then domain/url/snippet_index/tie-break ascending.
func BindClaimsToSources(claims []Claim, graded []GradedSource) map[string][]CitationRef {
	bindings := make(map[string][]CitationRef, len(claims))

	for _, claim := range claims {
		claimTokens := tokenizeForBinding(claim.Text)

		var candidates []bindingCandidate
		for _, gs := range graded {
			bundle := gs.Source
			domainLower := strings.ToLower(bundle.Domain)
			publishedAt, hasDate := extractDate(bundle.Metadata)
			freshnessProxy := 0
			publishedDate := ""
			if hasDate {
				freshnessProxy = 1
				publishedDate = publishedAt.UTC().Format(time.RFC3339)
			}

			domainMatch := false
			for _, t := range claimTokens {
				if strings.Contains(domainLower, t) {
					domainMatch = true
					break
				}
			}

			for idx, snippet := range bundle.Snippets {
				snippetTokens := tokenizeForBinding(snippet.Text)
				overlap := overlapScore(claimTokens, snippetTokens)
				if overlap < 2 && !domainMatch {
					continue
				}
				candidates = append(candidates, bindingCandidate{
					credibilityScore: gs.Credibility.Score,
					overlap:          overlap,
					freshnessProxy:   freshnessProxy,
					domain:           bundle.Domain,
					url:              bundle.URL,
					snippetIndex:     idx,
					tieBreak:         computeTieBreakHash(claim.ClaimID, bundle.SourceID, idx),
					ref: CitationRef{
						SourceID:         bundle.SourceID,
						URL:              bundle.URL,
						Domain:           bundle.Domain,
						Title:            bundle.Title,
						PublishedDate:    publishedDate,
						SnippetIndex:     idx,
						SnippetLength:    len(snippet.Text),
						CredibilityGrade: gs.Credibility.Grade,
						CredibilityScore: gs.Credibility.Score,
					},
				})
			}
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			a, b := candidates[i], candidates[j]
			if a.credibilityScore != b.credibilityScore {
				return a.credibilityScore > b.credibilityScore
			}
			if a.overlap != b.overlap {
				return a.overlap > b.overlap
			}
			if a.freshnessProxy != b.freshnessProxy {
				return a.freshnessProxy > b.freshnessProxy
			}
			if a.domain != b.domain {
				return a.domain < b.domain
			}
			if a.url != b.url {
				return a.url < b.url
			}
			if a.snippetIndex != b.snippetIndex {
				return a.snippetIndex < b.snippetIndex
			}
			return a.tieBreak < b.tieBreak
		})

		seen := map[string]bool{}
		var selected []CitationRef
		for _, c := range candidates {
			key := c.ref.SourceID + "#" + itoaInt(c.ref.SnippetIndex)
			if seen[key] {
				continue
			}
			seen[key] = true
			selected = append(selected, c.ref)
			if len(selected) >= maxCitationsPerClaim {
				break
			}
		}
		bindings[claim.ClaimID] = selected
	}
	return bindings
}

func isClarifiableClaim(claim Claim) bool {
	lower := strings.ToLower(claim.Text)
	if strings.HasSuffix(claim.Text, "?") {
		return true
	}
	if len(claim.Text) < 120 {
		for _, w := range clarifiableWords {
			if strings.Contains(lower, w) {
				return true
			}
		}
		fields := strings.Fields(lower)
		if len(fields) > 0 && pronounStarts[fields[0]] {
			return true
		}
	}
	return false
}

func generateClarifyQuestion(claim Claim) string {
	q := "Could you clarify: " + claim.Text
	if !strings.HasSuffix(q, "?") {
		q += "?"
	}
	if len(q) > maxClarifyQuestionLength {
		q = q[:maxClarifyQuestionLength]
	}
	return q
}

// FinalMode is the claim-coverage gate's verdict.
type FinalMode string

const (
	ModeOK          FinalMode = "OK"
	ModeUnknown     FinalMode = "UNKNOWN"
	ModeAskClarify  FinalMode = "ASK_CLARIFY"
)

// BinderOutput is the claim-to-citation binder's terminal result.
type BinderOutput struct {
	FinalMode               FinalMode
	Claims                  []Claim
	Bindings                map[string][]CitationRef
	UncoveredRequiredClaimIDs []string
	ClarifyQuestions       []string
}

// EnforceCoverage enforces "no source, no claim": any uncovered required
// claim drops the final mode to UNKNOWN, or ASK_CLARIFY when every
// uncovered claim looks clarifiable.
func EnforceCoverage(claims []Claim, bindings map[string][]CitationRef) (FinalMode, []string, []string) {
	var uncovered []Claim
	for _, c := range claims {
		if !c.Required {
			continue
		}
		if len(bindings[c.ClaimID]) == 0 {
			uncovered = append(uncovered, c)
		}
	}
	if len(uncovered) == 0 {
		return ModeOK, nil, nil
	}

	ids := make([]string, 0, len(uncovered))
	for _, c := range uncovered {
		ids = append(ids, c.ClaimID)
	}
	if len(ids) > maxUncoveredIDs {
		ids = ids[:maxUncoveredIDs]
	}

	var clarifiable []Claim
	for _, c := range uncovered {
		if isClarifiableClaim(c) {
			clarifiable = append(clarifiable, c)
		}
	}
	if len(clarifiable) == 0 {
		return ModeUnknown, ids, nil
	}

	if len(clarifiable) > maxClarifyQuestions {
		clarifiable = clarifiable[:maxClarifyQuestions]
	}
	questions := make([]string, 0, len(clarifiable))
	for _, c := range clarifiable {
		questions = append(questions, generateClarifyQuestion(c))
	}
	return ModeAskClarify, ids, questions
}

// BindClaimsAndCitations is the claim-binder's single entrypoint: extract,
// bind, and enforce coverage in one call.
func BindClaimsAndCitations(answerText string, graded []GradedSource) BinderOutput {
	claims := ExtractClaims(answerText)
	bindings := BindClaimsToSources(claims, graded)
	mode, uncovered, questions := EnforceCoverage(claims, bindings)
	return BinderOutput{
		FinalMode:                 mode,
		Claims:                    claims,
		Bindings:                  bindings,
		UncoveredRequiredClaimIDs: uncovered,
		ClarifyQuestions:          questions,
	}
}
