// Package main is the entry point for the governed chat service.
//
// It exposes a single public endpoint, POST /api/chat, behind admission,
// policy, cost, and reliability controls, plus /healthz, /readyz, and
// /metrics for the load balancer and scrape target.
package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"governedchat/internal/config"
	"governedchat/internal/modelpipeline"
	"governedchat/internal/orchestrator"
)

func openDB(databaseURL string) *sql.DB {
	if databaseURL == "" {
		return nil
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		log.Printf("database open failed, continuing in degraded mode: %v", err)
		return nil
	}
	if err := db.Ping(); err != nil {
		log.Printf("database ping failed, continuing in degraded mode: %v", err)
		return nil
	}
	return db
}

func openRedis(redisURL string) *redis.Client {
	if redisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("redis url invalid, continuing in degraded mode: %v", err)
		return nil
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Printf("redis ping failed, continuing in degraded mode: %v", err)
		return nil
	}
	return rdb
}

func buildProvider(settings *config.Settings) modelpipeline.Provider {
	if !settings.Model.CallsEnabled {
		return disabledProvider{}
	}
	provider, err := modelpipeline.NewBedrockProvider(context.Background(), settings.Model)
	if err != nil {
		log.Fatalf("bedrock provider init failed: %v", err)
	}
	return provider
}

// disabledProvider backs MODEL_CALLS_ENABLED=false deployments (local dev,
// integration tests without AWS credentials): every call fails closed into
// the reliability engine's fallback path rather than reaching a provider.
type disabledProvider struct{}

func (disabledProvider) Call(ctx context.Context, req *modelpipeline.Request) (*modelpipeline.RawResponse, error) {
	return nil, errModelCallsDisabled
}

type disabledError struct{}

func (*disabledError) Error() string { return "model calls disabled" }

var errModelCallsDisabled = &disabledError{}

// main wires every dependency, then builds the runtime and router before
// binding the listener once. /healthz reports "starting" until MarkReady
// runs, so a load balancer probing immediately after bind still gets a
// 200 rather than a connection refused, without needing a second listener
// handoff the way a slower multi-minute init would.
func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	db := openDB(settings.DatabaseURL)
	rdb := openRedis(settings.RedisURL)
	provider := buildProvider(settings)

	rt := orchestrator.NewGovernanceRuntime(settings, db, rdb, provider, prometheus.DefaultRegisterer)
	router := orchestrator.NewRouter(rt)

	server := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	rt.MarkReady()
	log.Printf("governedchat listening on port %s", settings.Port)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
