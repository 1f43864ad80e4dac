package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Port         string
	DatabasePath string // SQLite file path
	BlobDir      string // durable export artifact storage
	RedisURL     string // optional: fast export cache + indexing queue

	// Embedding engine configuration
	EmbeddingProvider string // "ollama" or "genai"
	OllamaEndpoint    string
	OllamaModel       string
	GenAIAPIKey       string
	GenAIModel        string

	// Catalog seeding and curated bundles
	SeedFile    string // optional JSON file of items loaded at startup
	BundlesFile string // optional YAML file of curated bundle presets

	// Background reindex schedule (cron expression, empty = disabled)
	ReindexCron string

	// Indexing queue tuning
	QueueMaxAttempts int // dead-letter after this many delivery attempts

	// Fast cache TTL in seconds (0 = no expiry)
	ExportCacheTTL int
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "3001"),
		DatabasePath: getEnv("DATABASE_PATH", "stackhub.db"),
		BlobDir:      getEnv("BLOB_DIR", "./artifacts"),
		RedisURL:     getEnv("REDIS_URL", ""),

		EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
		OllamaEndpoint:    getEnv("OLLAMA_ENDPOINT", "http://localhost:11434"),
		OllamaModel:       getEnv("OLLAMA_MODEL", "embeddinggemma"),
		GenAIAPIKey:       getEnv("GENAI_API_KEY", ""),
		GenAIModel:        getEnv("GENAI_MODEL", "gemini-embedding-001"),

		SeedFile:    getEnv("ITEMS_SEED_FILE", ""),
		BundlesFile: getEnv("BUNDLES_FILE", ""),

		ReindexCron: getEnv("REINDEX_CRON", ""),

		QueueMaxAttempts: getIntEnv("QUEUE_MAX_ATTEMPTS", 5),
		ExportCacheTTL:   getIntEnv("EXPORT_CACHE_TTL_SECONDS", 0),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
