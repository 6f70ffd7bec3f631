package audit

import (
	"strings"
	"testing"
)

func TestSanitizeRecordStripsForbiddenKeysAtTopLevel(t *testing.T) {
	rec := map[string]interface{}{"user_text": "secret stuff", "status": "ok"}
	clean := SanitizeRecord(rec)
	if _, ok := clean["user_text"]; ok {
		t.Fatalf("expected user_text stripped, got %+v", clean)
	}
	if clean["status"] != "ok" {
		t.Fatalf("expected status preserved, got %+v", clean)
	}
}

func TestSanitizeRecordStripsForbiddenKeysNested(t *testing.T) {
	rec := map[string]interface{}{
		"stage": "retrieval",
		"sources": []interface{}{
			map[string]interface{}{"title": "leaked title", "domain": "example.com"},
		},
	}
	clean := SanitizeRecord(rec)
	sources := clean["sources"].([]interface{})
	first := sources[0].(map[string]interface{})
	if _, ok := first["title"]; ok {
		t.Fatalf("expected nested title stripped, got %+v", first)
	}
	if first["domain"] != "example.com" {
		t.Fatalf("expected domain preserved, got %+v", first)
	}
}

func TestCanonicalJSONSortsKeys(t *testing.T) {
	rec := map[string]interface{}{"b": 1, "a": 2}
	out := string(CanonicalJSON(rec))
	if out != `{"a":2,"b":1}` {
		t.Fatalf("expected sorted-key canonical JSON, got %s", out)
	}
}

func TestCanonicalJSONHasNoWhitespace(t *testing.T) {
	rec := map[string]interface{}{"a": 1, "b": "x"}
	out := string(CanonicalJSON(rec))
	if strings.ContainsAny(out, " \n\t") {
		t.Fatalf("expected no whitespace in canonical JSON, got %s", out)
	}
}

func TestCanonicalJSONEscapesNonASCII(t *testing.T) {
	rec := map[string]interface{}{"note": "café"}
	out := string(CanonicalJSON(rec))
	if strings.Contains(out, "é") {
		t.Fatalf("expected non-ASCII rune escaped, got %s", out)
	}
	escaped := "\\u00e9"
	if !strings.Contains(out, escaped) {
		t.Fatalf("expected %s escape sequence, got %s", escaped, out)
	}
}

func TestSignatureIsDeterministic(t *testing.T) {
	rec := map[string]interface{}{"a": 1, "b": 2}
	if Signature(rec) != Signature(rec) {
		t.Fatalf("expected signature to be deterministic")
	}
}

func TestSignatureChangesWithContent(t *testing.T) {
	rec1 := map[string]interface{}{"a": 1}
	rec2 := map[string]interface{}{"a": 2}
	if Signature(rec1) == Signature(rec2) {
		t.Fatalf("expected different content to yield different signatures")
	}
}

func TestSignatureNeverContainsForbiddenValueLeakage(t *testing.T) {
	clean := map[string]interface{}{"stage": "ok"}
	dirty := map[string]interface{}{"stage": "ok", "user_text": "should not affect signature"}
	if Signature(clean) != Signature(dirty) {
		t.Fatalf("expected stripped forbidden field to not change the signature")
	}
}
