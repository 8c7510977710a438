package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	DatabaseURL     string
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	QueueURL        string
	CORSAllowOrigin []string
	RateLimit       RateLimit

	Routing   Routing
	Providers []ProviderSpec
	Research  Research
	Batch     Batch
}

// Routing selects the primary and fallback providers and the circuit threshold.
type Routing struct {
	Primary          string
	Fallback         string
	FailureThreshold int
}

// Research configures the live search tier of the research pipeline.
type Research struct {
	SearchURL     string
	SearchAPIKey  string
	Country       string
	Language      string
	ResultsPerQry int
	QueryDelay    time.Duration
	Timeout       time.Duration
}

// RateLimit bounds generation requests per client. Zero values disable it.
type RateLimit struct {
	GenerateRate  float64
	GenerateBurst int
}

// Batch configures the batch generation orchestrator.
type Batch struct {
	Concurrency       int
	WorkerConcurrency int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DatabaseURL:     dbURL,
		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", "artifacts"),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		QueueURL:        strings.TrimSpace(getEnv("JD_SQS_QUEUE_URL", "")),
		CORSAllowOrigin: splitList(getEnv("CORS_ALLOW_ORIGIN", "http://localhost:5173")),
		RateLimit: RateLimit{
			GenerateRate:  getEnvFloat("RATE_LIMIT_GENERATE_RPS", 0.5),
			GenerateBurst: getEnvInt("RATE_LIMIT_GENERATE_BURST", 5),
		},
		Routing: Routing{
			Primary:          getEnv("AI_PRIMARY_PROVIDER", ProviderGroq),
			Fallback:         getEnv("AI_FALLBACK_PROVIDER", ProviderOpenRouter),
			FailureThreshold: getEnvInt("AI_FAILURE_THRESHOLD", 5),
		},
		Research: Research{
			SearchURL:     getEnv("SERPER_URL", "https://google.serper.dev/search"),
			SearchAPIKey:  getEnv("SERPER_API_KEY", ""),
			Country:       getEnv("SERPER_COUNTRY", "ca"),
			Language:      getEnv("SERPER_LANGUAGE", "en"),
			ResultsPerQry: getEnvInt("SERPER_RESULTS_PER_QUERY", 3),
			QueryDelay:    getEnvDuration("SERPER_QUERY_DELAY", 500*time.Millisecond),
			Timeout:       getEnvDuration("SERPER_TIMEOUT", 10*time.Second),
		},
		Batch: Batch{
			Concurrency:       getEnvInt("BATCH_CONCURRENCY", 3),
			WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
		},
	}

	providers, err := LoadProviders(getEnv("PROVIDERS_FILE", ""))
	if err != nil {
		log.Printf("provider config invalid, using env defaults: %v", err)
		providers = DefaultProviders()
	}
	cfg.Providers = providers
	return cfg
}

// Provider returns the spec registered under id.
func (c Config) Provider(id string) (ProviderSpec, bool) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return ProviderSpec{}, false
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		log.Printf("config env %s invalid int: %q", key, raw)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil || val < 0 {
		log.Printf("config env %s invalid float: %q", key, raw)
		return def
	}
	return val
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val < 0 {
		log.Printf("config env %s invalid duration: %q", key, raw)
		return def
	}
	return val
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "none", "off":
		return "none"
	default:
		return "local"
	}
}
