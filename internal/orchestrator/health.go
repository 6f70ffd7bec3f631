package orchestrator

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// NewRouter assembles every route the process serves: the always-up
// liveness check, a dependency-aware readiness check, metrics, and the
// single governed chat endpoint, grounded on the teacher's
// initServerImmediately router-plus-CORS-middleware shape. Unlike the
// teacher, CORS origins come from settings rather than a wildcard, since
// this endpoint accepts end-user browser traffic carrying session cookies.
func NewRouter(rt *GovernanceRuntime) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", rt.handleLiveness).Methods("GET")
	router.HandleFunc("/readyz", rt.handleReadiness).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/api/chat", rt.HandleChat).Methods("POST")

	c := cors.New(cors.Options{
		AllowedOrigins:   rt.Settings.CORSOrigins,
		AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(router)
}

// handleLiveness always responds, even mid-startup, reporting "starting"
// until MarkReady has been called; this is what the load balancer's
// liveness probe hits.
func (rt *GovernanceRuntime) handleLiveness(w http.ResponseWriter, r *http.Request) {
	status := "starting"
	if rt.IsReady() {
		status = "healthy"
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"service":   "governedchat",
		"timestamp": time.Now().UTC(),
	})
}

// handleReadiness checks the actual dependencies the chat pipeline needs;
// a probe failure here should pull the instance out of rotation rather
// than just log, since a broken DB/Redis connection means the plan and
// WAF stages are silently running in fallback mode.
func (rt *GovernanceRuntime) handleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dbErr := rt.pingDB(ctx)
	redisErr := rt.pingRedis(ctx)

	w.Header().Set("Content-Type", "application/json")
	body := map[string]interface{}{
		"database_ok": dbErr == nil,
		"redis_ok":    redisErr == nil,
	}
	if dbErr != nil || redisErr != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(body)
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}
