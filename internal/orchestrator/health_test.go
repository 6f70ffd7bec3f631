package orchestrator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleLivenessReportsStartingUntilMarkReady(t *testing.T) {
	rt := newTestRuntime(t, &fakeProvider{text: "irrelevant"})
	req := httptest.NewRequest("GET", "/healthz", nil)
	rr := httptest.NewRecorder()
	rt.handleLiveness(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "starting" {
		t.Fatalf("status field = %v, want starting", body["status"])
	}

	rt.MarkReady()
	rr = httptest.NewRecorder()
	rt.handleLiveness(rr, req)
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Fatalf("status field = %v, want healthy after MarkReady", body["status"])
	}
}

func TestHandleReadinessOKWithNilDependencies(t *testing.T) {
	rt := newTestRuntime(t, &fakeProvider{text: "irrelevant"})
	req := httptest.NewRequest("GET", "/readyz", nil)
	rr := httptest.NewRecorder()
	rt.handleReadiness(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 when DB/Redis are both unconfigured, body=%s", rr.Code, rr.Body.String())
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["database_ok"] != true || body["redis_ok"] != true {
		t.Fatalf("expected both database_ok and redis_ok true with nil deps, got %v", body)
	}
}

func TestNewRouterServesChatAndHealthEndpoints(t *testing.T) {
	rt := newTestRuntime(t, &fakeProvider{text: "Paris"})
	rt.MarkReady()
	router := NewRouter(rt)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("/healthz status = %d, want 200", rr.Code)
	}

	req = httptest.NewRequest("GET", "/metrics", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}

	req = httptest.NewRequest("GET", "/api/chat", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code == http.StatusOK {
		t.Fatalf("GET /api/chat should be rejected, method is POST-only")
	}
}
