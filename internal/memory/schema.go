// Package memory implements the governed pipeline's only path to durable
// per-subject state: a schema-validated write boundary, a whole-request
// safety filter, tier-resolved TTL, an append-only event log, and a bounded
// read boundary. Ported from original_source/backend/app/memory/*.py. No
// raw user text is ever stored, only structured facts.
package memory

import (
	"regexp"
	"strings"
)

// MemoryCategory is the closed set of fact categories a write may target.
type MemoryCategory string

const (
	CategoryGoal        MemoryCategory = "GOAL"
	CategoryPreference   MemoryCategory = "PREFERENCE"
	CategoryWorkflow    MemoryCategory = "WORKFLOW"
	CategoryConstraint  MemoryCategory = "CONSTRAINT"
	CategoryFact        MemoryCategory = "FACT"
)

var validCategories = map[MemoryCategory]bool{
	CategoryGoal: true, CategoryPreference: true, CategoryWorkflow: true,
	CategoryConstraint: true, CategoryFact: true,
}

// MemoryValueType is the closed set of value shapes a fact's Value may take.
type MemoryValueType string

const (
	ValueString  MemoryValueType = "STRING"
	ValueNumber  MemoryValueType = "NUMBER"
	ValueBoolean MemoryValueType = "BOOLEAN"
	ValueList    MemoryValueType = "LIST"
)

var validValueTypes = map[MemoryValueType]bool{
	ValueString: true, ValueNumber: true, ValueBoolean: true, ValueList: true,
}

// ProvenanceType records how a fact was derived.
type ProvenanceType string

const (
	ProvenanceUserStated ProvenanceType = "USER_STATED"
	ProvenanceInferred   ProvenanceType = "INFERRED"
	ProvenanceSystem     ProvenanceType = "SYSTEM"
)

var validProvenanceTypes = map[ProvenanceType]bool{
	ProvenanceUserStated: true, ProvenanceInferred: true, ProvenanceSystem: true,
}

// Provenance records where a fact came from and how confident the writer is.
type Provenance struct {
	Type       ProvenanceType
	Confidence float64
}

const (
	maxKeyLength   = 80
	maxValueLength = 300
	maxTagLength   = 40
	maxTagCount    = 5
)

var keyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,79}$`)
var forbiddenKeyContent = []string{"user said", "quote", "verbatim", "\""}

// MemoryFact is the only shape the memory store ever persists: a
// structured key/value pair with provenance and confidence, never raw text.
type MemoryFact struct {
	FactID     string
	Category   MemoryCategory
	Key        string
	Value      string
	ValueType  MemoryValueType
	Provenance Provenance
	Tags       []string
}

// ValidateFact enforces the schema's structural invariants; it never
// inspects Value for forbidden content, that is the safety filter's job.
func ValidateFact(f MemoryFact) (bool, string) {
	if !validCategories[f.Category] {
		return false, "invalid_category"
	}
	if !keyPattern.MatchString(f.Key) {
		return false, "invalid_key"
	}
	if len(f.Key) > maxKeyLength {
		return false, "key_too_long"
	}
	if !validValueTypes[f.ValueType] {
		return false, "invalid_value_type"
	}
	if f.Value == "" || len(f.Value) > maxValueLength {
		return false, "invalid_value_length"
	}
	if !validProvenanceTypes[f.Provenance.Type] {
		return false, "invalid_provenance"
	}
	if f.Provenance.Confidence < 0 || f.Provenance.Confidence > 1 {
		return false, "invalid_confidence"
	}
	if len(f.Tags) > maxTagCount {
		return false, "too_many_tags"
	}
	for _, tag := range f.Tags {
		if tag == "" || len(tag) > maxTagLength {
			return false, "invalid_tag"
		}
	}
	lowerValue := strings.ToLower(f.Value)
	for _, marker := range forbiddenKeyContent {
		if strings.Contains(lowerValue, marker) {
			return false, "value_looks_like_raw_quote"
		}
	}
	return true, ""
}

// SanitizeAndValidateFact trims whitespace from text fields before
// validating, matching the original's fail-closed "sanitize then validate"
// order: sanitization never widens what validation would accept.
func SanitizeAndValidateFact(f MemoryFact) (MemoryFact, bool, string) {
	f.Key = strings.TrimSpace(f.Key)
	f.Value = strings.TrimSpace(f.Value)
	for i, tag := range f.Tags {
		f.Tags[i] = strings.TrimSpace(tag)
	}
	ok, reason := ValidateFact(f)
	return f, ok, reason
}
