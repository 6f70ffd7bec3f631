// Package config assembles the immutable Settings value the rest of the
// governance pipeline is built against. Settings is read once at process
// start from the environment (plus an optional YAML defaults file) and
// passed explicitly from there on, no package-level globals.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Env is the deployment environment gate.
type Env string

const (
	EnvLocal      Env = "local"
	EnvStaging    Env = "staging"
	EnvProduction Env = "production"
)

// WAFSettings tunes the WAF guard.
type WAFSettings struct {
	MaxBodyBytes          int64
	MaxUserTextChars      int
	IPBurstLimit          int
	IPBurstWindowSeconds  int
	IPSustainLimit        int
	IPSustainWindowSeconds int
	SubjBurstLimit        int
	SubjBurstWindowSeconds int
	SubjSustainLimit       int
	SubjSustainWindowSeconds int
	LockoutScheduleSeconds []int
	LockoutCooldownSeconds int
	EnforceRoutes          []string
}

// CostSettings tunes the cost policy.
type CostSettings struct {
	GlobalDailyTokenCap     int64
	IPWindowTokenCap        int64
	IPWindowSeconds         int
	ActorDailyTokenCap      int64 // 0 = not configured
	RequestMaxTokens        int
	RequestMaxOutputTokens  int
	BreakerFailureThreshold int
	BreakerWindowSeconds    int
	BreakerCooldownSeconds  int
	UsageRingSize           int
}

// ModelSettings wires the provider.
type ModelSettings struct {
	Provider              string
	Name                  string
	APIKey                string
	BaseURL               string
	TimeoutSeconds        int
	ConnectTimeoutSeconds int
	CallsEnabled          bool
}

// ReliabilitySettings tunes the reliability engine.
type ReliabilitySettings struct {
	MaxAttempts            int
	TotalTimeoutMS         int64
	PerAttemptTimeoutMS    int64
	SafetyKeywords         []string
	ForceBreakerOpen       bool
	ForceBudgetBlock       bool
	ForceProviderTimeout   bool
	ForceQualityFail       bool
	ForceSafetyBlock       bool
}

// CanarySettings tunes release bucketing.
type CanarySettings struct {
	Enabled       bool
	Percent       int
	Allowlist     map[string]bool
	HeaderEnabled bool
	BuildVersion  string
}

// PlanSettings maps subjects to plan tiers.
type PlanSettings struct {
	Default     string
	ProSubjects map[string]bool
	MaxSubjects map[string]bool
}

// Settings is the immutable, process-wide configuration value. It is built
// once by Load and passed by pointer through constructors; nothing in the
// pipeline reads the environment directly after startup.
type Settings struct {
	AppEnv Env

	DatabaseURL     string
	DBAllowlist     []string
	RedisURL        string
	CORSOrigins     []string
	AuthCookieSecure bool

	IdentityHashSalt   string
	AnonSessionTTLDays int
	SupabaseURL        string
	SupabaseJWTAud     string
	SupabaseJWTIssuer  string

	WAF         WAFSettings
	Cost        CostSettings
	Model       ModelSettings
	Reliability ReliabilitySettings
	Canary      CanarySettings
	Plan        PlanSettings

	Port string
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64Or(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envBoolOr(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func csv(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func csvSet(v string) map[string]bool {
	out := make(map[string]bool)
	for _, p := range csv(v) {
		out[p] = true
	}
	return out
}

func csvInts(v string, def []int) []int {
	parts := csv(v)
	if len(parts) == 0 {
		return def
	}
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return def
		}
		out = append(out, n)
	}
	return out
}

// yamlDefaults is the optional config.yaml overlay; any field present in the
// environment always wins over a YAML default.
type yamlDefaults struct {
	Port string `yaml:"port"`
}

// Load assembles Settings from the environment, optionally reading a YAML
// defaults file first (path from CONFIG_FILE, silently skipped if absent).
func Load() (*Settings, error) {
	var defaults yamlDefaults
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &defaults); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	appEnv := Env(envOr("APP_ENV", "local"))

	s := &Settings{
		AppEnv:             appEnv,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           envOr("REDIS_URL", "redis://localhost:6379/0"),
		CORSOrigins:        csv(os.Getenv("CORS_ORIGINS")),
		AuthCookieSecure:   envBoolOr("AUTH_COOKIE_SECURE", appEnv != EnvLocal),
		IdentityHashSalt:   os.Getenv("IDENTITY_HASH_SALT"),
		AnonSessionTTLDays: envIntOr("ANON_SESSION_TTL_DAYS", 30),
		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseJWTAud:     os.Getenv("SUPABASE_JWT_AUD"),
		SupabaseJWTIssuer:  os.Getenv("SUPABASE_JWT_ISSUER"),
		Port:               envOr("PORT", defaults.Port),

		WAF: WAFSettings{
			MaxBodyBytes:             envInt64Or("WAF_MAX_BODY_BYTES", 16384),
			MaxUserTextChars:         envIntOr("WAF_MAX_USER_TEXT_CHARS", 2000),
			IPBurstLimit:             envIntOr("WAF_IP_BURST_LIMIT", 10),
			IPBurstWindowSeconds:     envIntOr("WAF_IP_BURST_WINDOW_SECONDS", 10),
			IPSustainLimit:           envIntOr("WAF_IP_SUSTAIN_LIMIT", 120),
			IPSustainWindowSeconds:   envIntOr("WAF_IP_SUSTAIN_WINDOW_SECONDS", 3600),
			SubjBurstLimit:           envIntOr("WAF_SUBJECT_BURST_LIMIT", 20),
			SubjBurstWindowSeconds:   envIntOr("WAF_SUBJECT_BURST_WINDOW_SECONDS", 10),
			SubjSustainLimit:         envIntOr("WAF_SUBJECT_SUSTAIN_LIMIT", 300),
			SubjSustainWindowSeconds: envIntOr("WAF_SUBJECT_SUSTAIN_WINDOW_SECONDS", 3600),
			LockoutScheduleSeconds:   csvInts(os.Getenv("WAF_LOCKOUT_SCHEDULE_SECONDS"), []int{30, 120, 600, 3600}),
			LockoutCooldownSeconds:   envIntOr("WAF_LOCKOUT_COOLDOWN_SECONDS", 1800),
			EnforceRoutes:            append([]string{"/api/chat"}, csv(os.Getenv("WAF_ENFORCE_ROUTES"))...),
		},

		Cost: CostSettings{
			GlobalDailyTokenCap:     envInt64Or("COST_GLOBAL_DAILY_TOKEN_CAP", 5_000_000),
			IPWindowTokenCap:        envInt64Or("COST_IP_WINDOW_TOKEN_CAP", 20_000),
			IPWindowSeconds:         envIntOr("COST_IP_WINDOW_SECONDS", 3600),
			ActorDailyTokenCap:      envInt64Or("COST_ACTOR_DAILY_TOKEN_CAP", 0),
			RequestMaxTokens:        envIntOr("COST_REQUEST_MAX_TOKENS", 6000),
			RequestMaxOutputTokens:  envIntOr("COST_REQUEST_MAX_OUTPUT_TOKENS", 1024),
			BreakerFailureThreshold: envIntOr("COST_BREAKER_FAILURE_THRESHOLD", 5),
			BreakerWindowSeconds:    envIntOr("COST_BREAKER_WINDOW_SECONDS", 60),
			BreakerCooldownSeconds:  envIntOr("COST_BREAKER_COOLDOWN_SECONDS", 30),
			UsageRingSize:           envIntOr("COST_USAGE_RING_SIZE", 1000),
		},

		Model: ModelSettings{
			Provider:              envOr("MODEL_PROVIDER", "bedrock"),
			Name:                  envOr("MODEL_NAME", "anthropic.claude-3-haiku-20240307-v1:0"),
			APIKey:                os.Getenv("MODEL_API_KEY"),
			BaseURL:               os.Getenv("MODEL_BASE_URL"),
			TimeoutSeconds:        envIntOr("MODEL_TIMEOUT_SECONDS", 8),
			ConnectTimeoutSeconds: envIntOr("MODEL_CONNECT_TIMEOUT_SECONDS", 3),
			CallsEnabled:          envBoolOr("MODEL_CALLS_ENABLED", true),
		},

		Reliability: ReliabilitySettings{
			MaxAttempts:          envIntOr("RELIABILITY_MAX_ATTEMPTS", 2),
			TotalTimeoutMS:       envInt64Or("RELIABILITY_TOTAL_TIMEOUT_MS", 9000),
			PerAttemptTimeoutMS:  envInt64Or("RELIABILITY_PER_ATTEMPT_TIMEOUT_MS", 6000),
			SafetyKeywords:       csv(envOr("RELIABILITY_SAFETY_KEYWORDS", "")),
			ForceBreakerOpen:     envBoolOr("FORCE_BREAKER_OPEN", false),
			ForceBudgetBlock:     envBoolOr("FORCE_BUDGET_BLOCK", false),
			ForceProviderTimeout: envBoolOr("FORCE_PROVIDER_TIMEOUT", false),
			ForceQualityFail:     envBoolOr("FORCE_QUALITY_FAIL", false),
			ForceSafetyBlock:     envBoolOr("FORCE_SAFETY_BLOCK", false),
		},

		Canary: CanarySettings{
			Enabled:       envBoolOr("RELEASE_CANARY_ENABLED", false),
			Percent:       envIntOr("RELEASE_CANARY_PERCENT", 0),
			Allowlist:     csvSet(os.Getenv("RELEASE_CANARY_ALLOWLIST")),
			HeaderEnabled: envBoolOr("RELEASE_CANARY_HEADER_ENABLED", false),
			BuildVersion:  os.Getenv("RELEASE_CANARY_BUILD_VERSION"),
		},

		Plan: PlanSettings{
			Default:     envOr("PLAN_DEFAULT", "FREE"),
			ProSubjects: csvSet(os.Getenv("PRO_SUBJECTS")),
			MaxSubjects: csvSet(os.Getenv("MAX_SUBJECTS")),
		},
	}

	allowlistSuffix := strings.ToUpper(string(appEnv))
	if appEnv == EnvProduction {
		allowlistSuffix = "PROD"
	}
	s.DBAllowlist = csv(os.Getenv(fmt.Sprintf("DB_HOST_ALLOWLIST_%s", allowlistSuffix)))

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	if s.AppEnv != EnvLocal {
		if s.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL required outside local")
		}
		if len(s.CORSOrigins) == 0 {
			return fmt.Errorf("config: CORS_ORIGINS required outside local")
		}
		for _, o := range s.CORSOrigins {
			if o == "*" {
				return fmt.Errorf("config: CORS_ORIGINS must not contain '*' outside local")
			}
			if s.AppEnv == EnvProduction && strings.Contains(o, "localhost") {
				return fmt.Errorf("config: CORS_ORIGINS must not contain localhost in production")
			}
		}
		if s.AppEnv == EnvProduction {
			dbURL, err := url.Parse(s.DatabaseURL)
			if err != nil {
				return fmt.Errorf("config: DATABASE_URL is not a valid URL")
			}
			allowed := false
			for _, h := range s.DBAllowlist {
				if h == dbURL.Host || h == dbURL.Hostname() {
					allowed = true
				}
			}
			if !allowed {
				return fmt.Errorf("config: DATABASE_URL host is not in DB_HOST_ALLOWLIST_PROD")
			}
		}
	}
	return nil
}
