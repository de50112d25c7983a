package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// LLMProvider enumerates the supported text-completion providers.
// Provider selection is a closed set, not a string-keyed adapter lookup.
type LLMProvider string

const (
	ProviderOpenAI     LLMProvider = "openai"
	ProviderOpenRouter LLMProvider = "openrouter"
	ProviderLocal      LLMProvider = "local"
)

// Config holds all application configuration.
type Config struct {
	// App
	Port string
	Env  string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// Extraction
	EnableLLMNER        bool
	EnableProseNER      bool
	MaxReflectionPasses int

	// LLM
	LLMProvider    LLMProvider
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMTemperature float64
	LLMMaxTokens   int
	LLMTimeout     time.Duration

	// Cache
	EnableCache bool
	CacheTTL    time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("ENV", "development"),
		Neo4jURI:            getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:           getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:       getEnv("NEO4J_PASSWORD", "password"),
		EnableLLMNER:        getEnvBool("ENABLE_LLM_NER", false),
		EnableProseNER:      getEnvBool("ENABLE_PROSE_NER", true),
		MaxReflectionPasses: getEnvInt("LLM_NER_MAX_REFLECTION_PASSES", 2),
		LLMProvider:         LLMProvider(getEnv("LLM_PROVIDER", string(ProviderOpenAI))),
		LLMBaseURL:          getEnv("LLM_BASE_URL", ""),
		LLMAPIKey:           getEnv("LLM_API_KEY", ""),
		LLMModel:            getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTemperature:      getEnvFloat("LLM_TEMPERATURE", 0.0),
		LLMMaxTokens:        getEnvInt("LLM_MAX_TOKENS", 800),
		LLMTimeout:          time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 20)) * time.Second,
		EnableCache:         getEnvBool("ENABLE_CACHE", true),
		CacheTTL:            time.Duration(getEnvInt("CACHE_TTL_SECONDS", 3600)) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return fmt.Errorf("NEO4J_URI is required")
	}
	if c.Neo4jUser == "" {
		return fmt.Errorf("NEO4J_USER is required")
	}
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderOpenRouter, ProviderLocal:
	default:
		return fmt.Errorf("LLM_PROVIDER must be one of openai, openrouter, local (got %q)", c.LLMProvider)
	}
	if c.EnableLLMNER && c.LLMModel == "" {
		return fmt.Errorf("LLM_MODEL is required when ENABLE_LLM_NER is set")
	}
	if c.MaxReflectionPasses < 0 {
		c.MaxReflectionPasses = 0
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "yes":
		return true
	case "0", "false", "FALSE", "no":
		return false
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
