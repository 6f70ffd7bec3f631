package retrieval

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

const injectionModelVersion = "18.5.0"

// InjectionFlag is one category of detected prompt-injection attempt in
// untrusted tool output.
type InjectionFlag string

const (
	FlagCredentialRequest   InjectionFlag = "CREDENTIAL_REQUEST"
	FlagOverrideInstructions InjectionFlag = "OVERRIDE_INSTRUCTIONS"
	FlagToolPolicyBypass    InjectionFlag = "TOOL_POLICY_BYPASS"
	FlagExecutionEscalation InjectionFlag = "EXECUTION_ESCALATION"
	FlagHiddenInstructions  InjectionFlag = "HIDDEN_INSTRUCTIONS"
	FlagObfuscation         InjectionFlag = "OBFUSCATION"
	FlagOtherKnownInjection InjectionFlag = "OTHER_KNOWN_INJECTION"
)

// flagPriority is the fixed precedence used both to label an overlapping
// segment and to order the flags reported on a SanitizerEvent.
var flagPriority = []InjectionFlag{
	FlagCredentialRequest,
	FlagOverrideInstructions,
	FlagToolPolicyBypass,
	FlagExecutionEscalation,
	FlagHiddenInstructions,
	FlagObfuscation,
	FlagOtherKnownInjection,
}

func flagPriorityRank(f InjectionFlag) int {
	for i, candidate := range flagPriority {
		if candidate == f {
			return i
		}
	}
	return len(flagPriority)
}

// SanitizerConfig bounds the sanitizer's input/output and excerpt shape.
type SanitizerConfig struct {
	MaxInputChars   int
	MaxOutputChars  int
	MaxExcerpts     int
	ExcerptMaxChars int
	RedactToken     string
}

// DefaultSanitizerConfig mirrors the defaults used across the pipeline.
func DefaultSanitizerConfig() SanitizerConfig {
	return SanitizerConfig{
		MaxInputChars:   12000,
		MaxOutputChars:  2000,
		MaxExcerpts:     6,
		ExcerptMaxChars: 350,
		RedactToken:     "[REDACTED]",
	}
}

// SanitizerEvent is structure-only telemetry for a sanitize call: no raw
// tool text ever appears on it.
type SanitizerEvent struct {
	HadInjection        bool
	Flags               []InjectionFlag
	RemovedSegments     int
	RemovedChars        int
	InputLen            int
	OutputLen           int
	ExcerptCount        int
	StructureSignature  string
}

// SanitizerResult is the sanitizer's output: text safe to hand to a model,
// plus the event describing what was removed.
type SanitizerResult struct {
	SanitizedText string
	Event         SanitizerEvent
}

type injectionSegment struct {
	start        int
	end          int
	flag         InjectionFlag
	priorityRank int
}

var zeroWidthPattern = regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}]`)
var controlCharPattern = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
var injectionWhitespaceRun = regexp.MustCompile(`\s+`)
var base64Pattern = regexp.MustCompile(`[A-Za-z0-9+/]{40,}={0,2}`)

var overridePatterns = compileAll([]string{
	`ignore\s+(?:all\s+)?previous\s+instructions`,
	`disregard\s+(?:all\s+)?previous\s+instructions`,
	`ignore\s+(?:all\s+)?prior\s+instructions`,
	`disregard\s+(?:all\s+)?prior\s+instructions`,
	`system\s+prompt`,
	`developer\s+message`,
	`you\s+are\s+now`,
	`act\s+as\s+(?:a\s+)?`,
	`override`,
	`follow\s+these\s+instructions\s+exactly`,
	`new\s+instructions`,
	`updated\s+instructions`,
})

var credentialPatterns = compileAll([]string{
	`api\s+key`,
	`token`,
	`password`,
	`secret`,
	`credentials`,
	`ssh\s+key`,
	`bearer`,
	`cookie`,
	`session`,
	`paste\s+your`,
	`provide\s+your`,
	`send\s+me\s+your`,
	`give\s+me\s+your`,
})

var executionPatterns = compileAll([]string{
	`run\s+this`,
	`execute\s+this`,
	`open\s+terminal`,
	`shell`,
	`bash`,
	`powershell`,
	`curl\s+.*\|\s*bash`,
	`curl\s+.*\|\s*sh`,
	`pip\s+install`,
	`npm\s+install`,
	`apt-get`,
	`sudo\s+`,
	`chmod\s+`,
})

var hiddenPatterns = compileAll([]string{
	`decode\s+this`,
	`rot13`,
	`rot-13`,
	`hidden\s+instruction`,
	`<!--.*BEGIN\s+SYSTEM`,
	`<!--.*INSTRUCTION`,
	`base64\s+decode`,
})

var toolPolicyPatterns = compileAll([]string{
	`tool\s+policy`,
	`bypass\s+restriction`,
	`disable\s+safeguard`,
	`remove\s+limit`,
})

var imperativeVerbs = map[string]bool{
	"ignore": true, "disregard": true, "override": true, "run": true,
	"execute": true, "install": true, "paste": true, "provide": true,
	"send": true, "give": true, "decode": true, "bypass": true,
	"disable": true, "remove": true, "open": true,
}

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile("(?i)"+p))
	}
	return out
}

func normalizeToolText(text string) string {
	if text == "" {
		return ""
	}
	text = zeroWidthPattern.ReplaceAllString(text, "")
	text = controlCharPattern.ReplaceAllString(text, "")
	text = injectionWhitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func hasZeroWidthChars(text string) bool {
	return zeroWidthPattern.MatchString(text)
}

// expandToSentenceBoundary widens a matched span to the nearest sentence
// boundaries plus a fixed safety margin, so a redacted segment never cuts
// a sentence in half.
func expandToSentenceBoundary(text string, start, end int) (int, int) {
	runes := []rune(text)
	newStart, newEnd := start, end

	for newStart > 0 && !strings.ContainsRune(".!?\n", runes[newStart-1]) {
		newStart--
	}
	for newStart > 0 && strings.ContainsRune(" \t", runes[newStart-1]) {
		newStart--
	}
	for newEnd < len(runes) && !strings.ContainsRune(".!?\n", runes[newEnd]) {
		newEnd++
	}
	if newEnd < len(runes) && strings.ContainsRune(".!?", runes[newEnd]) {
		newEnd++
	}
	for newEnd < len(runes) && strings.ContainsRune(" \t\n", runes[newEnd]) {
		newEnd++
	}

	const safetyMargin = 50
	newEnd = minInt(newEnd+safetyMargin, len(runes))
	for newEnd < len(runes) && !strings.ContainsRune(".!?\n", runes[newEnd]) {
		newEnd++
	}
	if newEnd < len(runes) && strings.ContainsRune(".!?", runes[newEnd]) {
		newEnd++
	}

	return newStart, newEnd
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func findMatches(patterns []*regexp.Regexp, text string, flag InjectionFlag, out *[]injectionSegment) {
	rank := flagPriorityRank(flag)
	for _, re := range patterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			start, end := expandToSentenceBoundary(text, loc[0], loc[1])
			*out = append(*out, injectionSegment{start: start, end: end, flag: flag, priorityRank: rank})
		}
	}
}

// detectInjectionSegments scans normalized text for known injection
// categories and returns merged, non-overlapping segments plus the set of
// flags raised, sorted by start offset.
func detectInjectionSegments(text string) ([]injectionSegment, []InjectionFlag) {
	var segments []injectionSegment
	lower := strings.ToLower(text)

	findMatches(overridePatterns, lower, FlagOverrideInstructions, &segments)
	findMatches(credentialPatterns, lower, FlagCredentialRequest, &segments)
	findMatches(executionPatterns, lower, FlagExecutionEscalation, &segments)
	findMatches(hiddenPatterns, lower, FlagHiddenInstructions, &segments)
	findMatches(toolPolicyPatterns, lower, FlagToolPolicyBypass, &segments)

	for _, loc := range base64Pattern.FindAllStringIndex(text, -1) {
		if loc[1]-loc[0] >= 60 {
			start, end := expandToSentenceBoundary(text, loc[0], loc[1])
			segments = append(segments, injectionSegment{start: start, end: end, flag: FlagObfuscation, priorityRank: flagPriorityRank(FlagObfuscation)})
		}
	}

	allFlagSet := map[InjectionFlag]bool{}
	for _, s := range segments {
		allFlagSet[s.flag] = true
	}

	sort.SliceStable(segments, func(i, j int) bool {
		if segments[i].start != segments[j].start {
			return segments[i].start < segments[j].start
		}
		return segments[i].end < segments[j].end
	})

	var merged []injectionSegment
	for _, seg := range segments {
		if len(merged) > 0 && seg.start <= merged[len(merged)-1].end {
			last := merged[len(merged)-1]
			flag, rank := last.flag, last.priorityRank
			if seg.priorityRank < last.priorityRank {
				flag, rank = seg.flag, seg.priorityRank
			}
			end := last.end
			if seg.end > end {
				end = seg.end
			}
			merged[len(merged)-1] = injectionSegment{start: last.start, end: end, flag: flag, priorityRank: rank}
		} else {
			merged = append(merged, seg)
		}
	}

	allFlags := make([]InjectionFlag, 0, len(allFlagSet))
	for f := range allFlagSet {
		allFlags = append(allFlags, f)
	}
	return merged, allFlags
}

// buildSafeExcerpts extracts the regions of text not covered by any
// detected injection segment, preferring chunks with no imperative verb,
// bounded in count and length.
func buildSafeExcerpts(text string, segments []injectionSegment, cfg SanitizerConfig) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)

	type region struct{ start, end int }
	var safeRegions []region
	lastEnd := 0
	for _, seg := range segments {
		if seg.start > lastEnd {
			safeRegions = append(safeRegions, region{lastEnd, seg.start})
		}
		if seg.end > lastEnd {
			lastEnd = seg.end
		}
	}
	if lastEnd < len(runes) {
		safeRegions = append(safeRegions, region{lastEnd, len(runes)})
	}

	var safeChunks []string
	for _, r := range safeRegions {
		chunk := strings.TrimSpace(string(runes[r.start:r.end]))
		if chunk != "" {
			safeChunks = append(safeChunks, chunk)
		}
	}

	var excerpts []string
	for _, chunk := range safeChunks {
		lower := strings.ToLower(chunk)
		hasImperative := false
		for verb := range imperativeVerbs {
			if strings.Contains(lower, verb) {
				hasImperative = true
				break
			}
		}
		if !hasImperative {
			excerpts = append(excerpts, chunk)
		}
	}
	if len(excerpts) == 0 {
		excerpts = safeChunks
	}

	if len(excerpts) > cfg.MaxExcerpts {
		excerpts = excerpts[:cfg.MaxExcerpts]
	}

	bounded := make([]string, 0, len(excerpts))
	for _, excerpt := range excerpts {
		r := []rune(excerpt)
		if len(r) > cfg.ExcerptMaxChars {
			r = r[:cfg.ExcerptMaxChars]
		}
		bounded = append(bounded, string(r))
	}
	return bounded
}

func computeStructureSignature(flags []InjectionFlag, removedSegments, removedChars, inputLen, outputLen, excerptCount int) string {
	flagStrings := make([]string, len(flags))
	for i, f := range flags {
		flagStrings[i] = string(f)
	}
	structure := map[string]interface{}{
		"flags":            flagStrings,
		"removed_segments": removedSegments,
		"removed_chars":    removedChars,
		"input_len":        inputLen,
		"output_len":       outputLen,
		"excerpt_count":    excerptCount,
		"version":          injectionModelVersion,
	}
	canonical, _ := json.Marshal(structure)
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:16]
}

// SanitizeToolOutput is the sandbox's single chokepoint for untrusted tool
// text: it never leaves the untrusted text free to override instructions,
// and the returned event carries no raw text, only structure.
func SanitizeToolOutput(toolText string, cfg SanitizerConfig) SanitizerResult {
	if strings.TrimSpace(toolText) == "" {
		return SanitizerResult{
			SanitizedText: "",
			Event: SanitizerEvent{
				StructureSignature: computeStructureSignature(nil, 0, 0, 0, 0, 0),
			},
		}
	}

	runes := []rune(toolText)
	if len(runes) > cfg.MaxInputChars {
		runes = runes[:cfg.MaxInputChars]
	}
	toolText = string(runes)
	inputLen := len(runes)

	hadObfuscation := hasZeroWidthChars(toolText)
	normalized := normalizeToolText(toolText)

	segments, allFlags := detectInjectionSegments(normalized)

	flagSet := map[InjectionFlag]bool{}
	for _, f := range allFlags {
		flagSet[f] = true
	}
	if hadObfuscation {
		flagSet[FlagObfuscation] = true
	}

	removedChars := 0
	for _, seg := range segments {
		removedChars += seg.end - seg.start
	}
	removedSegments := len(segments)

	orderedFlags := make([]InjectionFlag, 0, len(flagSet))
	for _, f := range flagPriority {
		if flagSet[f] {
			orderedFlags = append(orderedFlags, f)
		}
	}

	excerpts := buildSafeExcerpts(normalized, segments, cfg)

	sanitizedText := strings.Join(excerpts, "\n---\n")
	sanitizedRunes := []rune(sanitizedText)
	if len(sanitizedRunes) > cfg.MaxOutputChars {
		sanitizedRunes = sanitizedRunes[:cfg.MaxOutputChars]
	}
	sanitizedText = string(sanitizedRunes)

	event := SanitizerEvent{
		HadInjection:       len(orderedFlags) > 0,
		Flags:              orderedFlags,
		RemovedSegments:    removedSegments,
		RemovedChars:       removedChars,
		InputLen:           inputLen,
		OutputLen:          len(sanitizedRunes),
		ExcerptCount:       len(excerpts),
		StructureSignature: computeStructureSignature(orderedFlags, removedSegments, removedChars, inputLen, len(sanitizedRunes), len(excerpts)),
	}

	return SanitizerResult{SanitizedText: sanitizedText, Event: event}
}
