package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Well-known provider IDs.
const (
	ProviderGroq       = "groq"
	ProviderOpenRouter = "openrouter"
)

// ProviderSpec describes one OpenAI-compatible chat-completions endpoint.
type ProviderSpec struct {
	ID             string
	BaseURL        string
	APIKey         string
	Model          string
	MaxTokens      int
	Temperature    float64
	TopP           float64
	Timeout        time.Duration
	RatePerMillion decimal.Decimal
	MonthlyLimit   decimal.Decimal
	Headers        map[string]string
}

type providersFile struct {
	Providers []providerEntry `yaml:"providers" validate:"required,min=1,dive"`
}

type providerEntry struct {
	ID             string            `yaml:"id" validate:"required"`
	BaseURL        string            `yaml:"base_url" validate:"required,url"`
	APIKeyEnv      string            `yaml:"api_key_env" validate:"required"`
	Model          string            `yaml:"model" validate:"required"`
	MaxTokens      int               `yaml:"max_tokens" validate:"gte=0"`
	Temperature    float64           `yaml:"temperature" validate:"gte=0,lte=2"`
	TopP           float64           `yaml:"top_p" validate:"gte=0,lte=1"`
	Timeout        string            `yaml:"timeout"`
	RatePerMillion string            `yaml:"rate_per_million" validate:"required,numeric"`
	MonthlyLimit   string            `yaml:"monthly_limit" validate:"required,numeric"`
	Headers        map[string]string `yaml:"headers"`
}

var validate = validator.New()

// DefaultProviders returns the Groq and OpenRouter specs configured from env.
func DefaultProviders() []ProviderSpec {
	timeout := getEnvDuration("AI_TIMEOUT", 30*time.Second)
	return []ProviderSpec{
		{
			ID:             ProviderGroq,
			BaseURL:        getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			APIKey:         getEnv("GROQ_API_KEY", ""),
			Model:          getEnv("GROQ_MODEL", "llama-3.1-70b-versatile"),
			MaxTokens:      getEnvInt("GROQ_MAX_TOKENS", 2000),
			Temperature:    0.7,
			TopP:           0.9,
			Timeout:        timeout,
			RatePerMillion: getEnvDecimal("GROQ_RATE_PER_MILLION", decimal.RequireFromString("0.59")),
			MonthlyLimit:   getEnvDecimal("GROQ_MONTHLY_LIMIT", decimal.NewFromInt(10)),
		},
		{
			ID:             ProviderOpenRouter,
			BaseURL:        getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			APIKey:         getEnv("OPENROUTER_API_KEY", ""),
			Model:          getEnv("OPENROUTER_MODEL", "meta-llama/llama-3.1-70b-instruct"),
			MaxTokens:      getEnvInt("OPENROUTER_MAX_TOKENS", 2000),
			Temperature:    0.7,
			TopP:           0.9,
			Timeout:        timeout,
			RatePerMillion: getEnvDecimal("OPENROUTER_RATE_PER_MILLION", decimal.RequireFromString("0.88")),
			MonthlyLimit:   getEnvDecimal("OPENROUTER_MONTHLY_LIMIT", decimal.NewFromInt(10)),
			Headers: map[string]string{
				"HTTP-Referer": getEnv("OPENROUTER_REFERER", "http://localhost:8080"),
				"X-Title":      getEnv("OPENROUTER_TITLE", "Job Application Assistant"),
			},
		},
	}
}

// LoadProviders reads provider specs from a YAML file. An empty path yields
// the env-based defaults.
func LoadProviders(path string) ([]ProviderSpec, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultProviders(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}
	return ParseProviders(raw)
}

// ParseProviders decodes and validates a YAML provider document.
func ParseProviders(raw []byte) ([]ProviderSpec, error) {
	var doc providersFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode providers file: %w", err)
	}
	if err := validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("validate providers file: %w", err)
	}

	seen := make(map[string]struct{}, len(doc.Providers))
	out := make([]ProviderSpec, 0, len(doc.Providers))
	for _, entry := range doc.Providers {
		if _, dup := seen[entry.ID]; dup {
			return nil, fmt.Errorf("duplicate provider id %q", entry.ID)
		}
		seen[entry.ID] = struct{}{}

		spec, err := entry.toSpec()
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", entry.ID, err)
		}
		out = append(out, spec)
	}
	return out, nil
}

func (e providerEntry) toSpec() (ProviderSpec, error) {
	rate, err := decimal.NewFromString(e.RatePerMillion)
	if err != nil {
		return ProviderSpec{}, fmt.Errorf("rate_per_million: %w", err)
	}
	limit, err := decimal.NewFromString(e.MonthlyLimit)
	if err != nil {
		return ProviderSpec{}, fmt.Errorf("monthly_limit: %w", err)
	}
	timeout := 30 * time.Second
	if strings.TrimSpace(e.Timeout) != "" {
		timeout, err = time.ParseDuration(e.Timeout)
		if err != nil {
			return ProviderSpec{}, fmt.Errorf("timeout: %w", err)
		}
	}
	maxTokens := e.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2000
	}
	return ProviderSpec{
		ID:             e.ID,
		BaseURL:        strings.TrimRight(e.BaseURL, "/"),
		APIKey:         os.Getenv(e.APIKeyEnv),
		Model:          e.Model,
		MaxTokens:      maxTokens,
		Temperature:    e.Temperature,
		TopP:           e.TopP,
		Timeout:        timeout,
		RatePerMillion: rate,
		MonthlyLimit:   limit,
		Headers:        e.Headers,
	}, nil
}

func getEnvDecimal(key string, def decimal.Decimal) decimal.Decimal {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := decimal.NewFromString(raw)
	if err != nil {
		return def
	}
	return val
}
