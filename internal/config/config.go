// Package config loads process-wide configuration from environment variables.
// Components never read the environment themselves; the resolved Config is
// passed explicitly into each constructor.
package config

import (
	"fmt"
	"os"
)

// Pipeline defaults. Chunk sizes are in runes, not bytes.
const (
	DefaultChunkSize       = 1000
	DefaultChunkOverlap    = 200
	DefaultTopK            = 5
	DefaultMinScore        = 0.4
	DefaultMaxContextSize  = 4000
	DefaultEmbedBatchSize  = 500
	DefaultVectorDimension = 1536
)

// Config holds all runtime settings for the RAG engine.
type Config struct {
	// HTTP server
	Port string

	// Qdrant connection
	QdrantHost string
	QdrantPort int

	// OpenAI API key for embeddings and generation
	OpenAIKey string

	// Ingestion defaults (overridable per request)
	ChunkSize    int
	ChunkOverlap int

	// Retrieval defaults
	TopK           int
	MinScore       float64
	MaxContextSize int

	// Embedding batching
	EmbedBatchSize int

	// GitHub course-material source for the sync command
	SyncOwner    string
	SyncRepo     string
	SyncBasePath string
}

// Load reads configuration from the environment, applying defaults for
// anything unset. It never fails; required values (like the OpenAI key)
// are validated by the components that need them.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		QdrantHost:     getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:     getEnvInt("QDRANT_PORT", 6334),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		ChunkSize:      getEnvInt("EDUFLOW_CHUNK_SIZE", DefaultChunkSize),
		ChunkOverlap:   getEnvInt("EDUFLOW_CHUNK_OVERLAP", DefaultChunkOverlap),
		TopK:           getEnvInt("EDUFLOW_TOP_K", DefaultTopK),
		MinScore:       getEnvFloat("EDUFLOW_MIN_SCORE", DefaultMinScore),
		MaxContextSize: getEnvInt("EDUFLOW_MAX_CONTEXT_SIZE", DefaultMaxContextSize),
		EmbedBatchSize: getEnvInt("EDUFLOW_EMBED_BATCH_SIZE", DefaultEmbedBatchSize),
		SyncOwner:      getEnv("EDUFLOW_SYNC_OWNER", ""),
		SyncRepo:       getEnv("EDUFLOW_SYNC_REPO", ""),
		SyncBasePath:   getEnv("EDUFLOW_SYNC_PATH", "content"),
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return f
		}
	}
	return defaultValue
}
