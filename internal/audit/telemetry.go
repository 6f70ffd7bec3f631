// Package audit implements structure-only telemetry and a tamper-evident
// audit chain for the governed pipeline. No raw request or model text ever
// reaches a telemetry record or an audit entry; only a fixed vocabulary of
// structural fields does. Grounded on the teacher's `agent/decision_chain.go`
// (per-entry `computeAuditHash`, generalized here into a genuine chain that
// links to the previous entry) and `agent/gateway_handlers.go` (Prometheus
// metric shape, `init()`-registered counters/histograms).
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// forbiddenKeys never survive into a telemetry record or audit payload,
// recursively, at any nesting depth.
var forbiddenKeys = map[string]bool{
	"user_text":     true,
	"prompt":        true,
	"content":       true,
	"rendered_text": true,
	"snippet":       true,
	"snippets":      true,
	"excerpt":       true,
	"excerpts":      true,
	"answer":        true,
	"claims":        true,
	"title":         true,
	"tool_output":   true,
	"query":         true,
}

// SanitizeRecord recursively strips forbidden keys from a record, leaving
// only structural fields (counts, flags, ids, reason codes, timings).
func SanitizeRecord(rec map[string]interface{}) map[string]interface{} {
	return sanitizeValue(rec).(map[string]interface{})
}

func sanitizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			if forbiddenKeys[k] {
				continue
			}
			out[k] = sanitizeValue(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = sanitizeValue(inner)
		}
		return out
	default:
		return v
	}
}

// CanonicalJSON renders a sanitized record as sorted-key, whitespace-free,
// ASCII-only JSON so its signature is reproducible across processes.
func CanonicalJSON(rec map[string]interface{}) []byte {
	return canonicalEncode(sanitizeValue(rec))
}

func canonicalEncode(v interface{}) []byte {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := []byte("{")
		for i, k := range keys {
			if i > 0 {
				out = append(out, ',')
			}
			keyJSON, _ := json.Marshal(k)
			out = append(out, keyJSON...)
			out = append(out, ':')
			out = append(out, canonicalEncode(val[k])...)
		}
		out = append(out, '}')
		return out
	case []interface{}:
		out := []byte("[")
		for i, inner := range val {
			if i > 0 {
				out = append(out, ',')
			}
			out = append(out, canonicalEncode(inner)...)
		}
		out = append(out, ']')
		return out
	case string:
		return []byte(canonicalString(val))
	default:
		b, _ := json.Marshal(val)
		return b
	}
}

// canonicalString renders a Go string as an ASCII-only JSON string literal,
// \u-escaping every rune outside the printable ASCII range.
func canonicalString(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for _, r := range s {
		switch r {
		case '"':
			out = append(out, '\\', '"')
		case '\\':
			out = append(out, '\\', '\\')
		case '\n':
			out = append(out, '\\', 'n')
		case '\r':
			out = append(out, '\\', 'r')
		case '\t':
			out = append(out, '\\', 't')
		default:
			if r >= 0x20 && r <= 0x7E {
				out = append(out, byte(r))
			} else if r > 0xFFFF {
				r1, r2 := splitSurrogatePair(r)
				out = append(out, []byte(hexEscape(r1))...)
				out = append(out, []byte(hexEscape(r2))...)
			} else {
				out = append(out, []byte(hexEscape(r))...)
			}
		}
	}
	out = append(out, '"')
	return string(out)
}

func hexEscape(r rune) string {
	const hexDigits = "0123456789abcdef"
	b := []byte{'\\', 'u', 0, 0, 0, 0}
	b[2] = hexDigits[(r>>12)&0xF]
	b[3] = hexDigits[(r>>8)&0xF]
	b[4] = hexDigits[(r>>4)&0xF]
	b[5] = hexDigits[r&0xF]
	return string(b)
}

func splitSurrogatePair(r rune) (rune, rune) {
	r -= 0x10000
	high := 0xD800 + (r >> 10)
	low := 0xDC00 + (r & 0x3FF)
	return high, low
}

// Signature is the SHA-256 hex digest over a record's canonical JSON.
func Signature(rec map[string]interface{}) string {
	sum := sha256.Sum256(CanonicalJSON(rec))
	return hex.EncodeToString(sum[:])
}
