package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration values loaded from environment variables.
type Config struct {
	HTTPPort        string
	DatabaseURL     string
	AllowedOrigins  []string
	AnthropicAPIKey string
	AnthropicModel  string
	LLMBaseURL      string
	LLMTemperature  float64
	LLMMaxTokens    int
	LLMMaxRetries   int
	LLMRetryBackoff time.Duration
	LLMTimeout      time.Duration
	LLMCacheTTL     time.Duration
	LLMCacheSize    int
	ResponseTTL     time.Duration
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file (useful for development)
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Could not load .env file. Using environment variables only.", err)
		// Don't fail if .env is not present, might be in production
	}

	apiKey := getEnv("ANTHROPIC_API_KEY", "")
	if apiKey == "" {
		log.Fatal("FATAL: ANTHROPIC_API_KEY environment variable is not set.")
	}

	// DATABASE_URL is optional: without it the service runs on the in-memory
	// store, which is how local development and tests operate.
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		log.Println("Warning: DATABASE_URL not set, using in-memory store.")
	}

	origins := strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8081"),
		DatabaseURL:     dbURL,
		AllowedOrigins:  origins,
		AnthropicAPIKey: apiKey,
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
		LLMBaseURL:      getEnv("ANTHROPIC_BASE_URL", ""),
		LLMTemperature:  getEnvFloat("LLM_TEMPERATURE", 0.5),
		LLMMaxTokens:    getEnvInt("LLM_MAX_TOKENS", 1000),
		LLMMaxRetries:   getEnvInt("LLM_MAX_RETRIES", 2),
		LLMRetryBackoff: getEnvDuration("LLM_RETRY_BACKOFF", 2*time.Second),
		LLMTimeout:      getEnvDuration("LLM_TIMEOUT", 60*time.Second),
		LLMCacheTTL:     getEnvDuration("LLM_CACHE_TTL", 20*time.Minute),
		LLMCacheSize:    getEnvInt("LLM_CACHE_SIZE", 150),
		ResponseTTL:     getEnvDuration("RESPONSE_CACHE_TTL", 60*time.Second),
	}

	log.Printf("Loaded config: Port=%s, Model=%s, DB=%v", cfg.HTTPPort, cfg.AnthropicModel, dbURL != "")

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s', using default %d. Error: %v", key, raw, fallback, err)
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s', using default %g. Error: %v", key, raw, fallback, err)
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s', using default %s. Error: %v", key, raw, fallback, err)
		return fallback
	}
	return v
}
