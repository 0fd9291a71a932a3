package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string
	EmbeddingDim       int
	DBPath             string
	QdrantURL          string
	QdrantCollection   string
	APIPort            string
	LogLevel           slog.Level
	LogFormat          string

	// Chunking.
	ChunkTargetWords     int
	ChunkOverlapFraction float64
	ChunkMinChars        int

	// Duplicate detection. Two distinct thresholds with different
	// consequences: above Block the upload is rejected, between Warn and
	// Block it proceeds with a warning.
	DuplicateWarnThreshold  float64
	DuplicateBlockThreshold float64
	DuplicateCandidates     int

	// Retrieval.
	RecallThreshold  float32 // low floor used for the high-recall fan-out
	DefaultThreshold float32 // caller-facing default similarity threshold
	DefaultLimit     int
	MaxPerDocument   int

	// Conversation.
	HistoryCapacity int

	// Ingestion throughput.
	IngestWorkers       int
	IngestInsertsPerSec float64

	// Bound on every remote call (embedding, vector store, completion).
	RemoteTimeout time.Duration

	// Canonical consultant roster used for author fuzzy matching, and
	// consultant-firm names excluded from client extraction.
	Roster           []string
	ClientExclusions []string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	// Check current directory first, then walk up to find project root (where go.mod is)
	_ = godotenv.Load() // Try current directory

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "text-embedding-3-small"),
		DBPath:             getEnv("DB_PATH", "./data/proposal-ai.db"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "proposal_chunks"),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	cfg.LogLevel = parseLogLevel(getEnv("LOG_LEVEL", "info"))

	var parseErr error
	cfg.EmbeddingDim = getEnvInt("EMBEDDING_DIM", 1536, &parseErr)
	cfg.ChunkTargetWords = getEnvInt("CHUNK_TARGET_WORDS", 400, &parseErr)
	cfg.ChunkOverlapFraction = getEnvFloat("CHUNK_OVERLAP_FRACTION", 0.15, &parseErr)
	cfg.ChunkMinChars = getEnvInt("CHUNK_MIN_CHARS", 50, &parseErr)
	cfg.DuplicateWarnThreshold = getEnvFloat("DUPLICATE_WARN_THRESHOLD", 0.85, &parseErr)
	cfg.DuplicateBlockThreshold = getEnvFloat("DUPLICATE_BLOCK_THRESHOLD", 0.95, &parseErr)
	cfg.DuplicateCandidates = getEnvInt("DUPLICATE_CANDIDATES", 100, &parseErr)
	cfg.RecallThreshold = float32(getEnvFloat("RECALL_THRESHOLD", 0.3, &parseErr))
	cfg.DefaultThreshold = float32(getEnvFloat("DEFAULT_THRESHOLD", 0.7, &parseErr))
	cfg.DefaultLimit = getEnvInt("DEFAULT_LIMIT", 8, &parseErr)
	cfg.MaxPerDocument = getEnvInt("MAX_PER_DOCUMENT", 2, &parseErr)
	cfg.HistoryCapacity = getEnvInt("HISTORY_CAPACITY", 10, &parseErr)
	cfg.IngestWorkers = getEnvInt("INGEST_WORKERS", 4, &parseErr)
	cfg.IngestInsertsPerSec = getEnvFloat("INGEST_INSERTS_PER_SEC", 5, &parseErr)
	timeoutSecs := getEnvInt("REMOTE_TIMEOUT_SECONDS", 30, &parseErr)
	if parseErr != nil {
		return nil, parseErr
	}
	cfg.RemoteTimeout = time.Duration(timeoutSecs) * time.Second

	cfg.Roster = splitList(getEnv("CONSULTANT_ROSTER", ""))
	cfg.ClientExclusions = splitList(getEnv("CLIENT_EXCLUSIONS", ""))

	if cfg.EmbeddingDim <= 0 {
		return nil, fmt.Errorf("EMBEDDING_DIM must be greater than 0")
	}
	if cfg.ChunkTargetWords <= 0 {
		return nil, fmt.Errorf("CHUNK_TARGET_WORDS must be greater than 0")
	}
	if cfg.ChunkOverlapFraction < 0 || cfg.ChunkOverlapFraction >= 1 {
		return nil, fmt.Errorf("CHUNK_OVERLAP_FRACTION must be in [0, 1)")
	}
	if cfg.DuplicateWarnThreshold >= cfg.DuplicateBlockThreshold {
		return nil, fmt.Errorf("DUPLICATE_WARN_THRESHOLD must be below DUPLICATE_BLOCK_THRESHOLD")
	}
	if cfg.MaxPerDocument <= 0 {
		return nil, fmt.Errorf("MAX_PER_DOCUMENT must be greater than 0")
	}
	if cfg.HistoryCapacity <= 0 {
		return nil, fmt.Errorf("HISTORY_CAPACITY must be greater than 0")
	}
	if cfg.IngestWorkers <= 0 {
		return nil, fmt.Errorf("INGEST_WORKERS must be greater than 0")
	}

	// Create ./data directory if it doesn't exist (for the DB file).
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int, parseErr *error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*parseErr = fmt.Errorf("%s must be a valid integer: %w", key, err)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64, parseErr *error) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		*parseErr = fmt.Errorf("%s must be a valid number: %w", key, err)
		return defaultValue
	}
	return f
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
