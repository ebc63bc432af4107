package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Vector   VectorConfig
	Ai       AIConfig
	Rag      RagConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	DocsPath           string
}

type DatabaseConfig struct {
	Connection string
}

type VectorConfig struct {
	Backend   string // "memory" or "postgres"
	IndexPath string // snapshot path for the memory backend
}

type AIConfig struct {
	EmbeddingProvider string // "ollama" or "gemini"
	OllamaBaseURL     string
	OllamaModel       string
	GoogleGemini      string
	LLMProvider       string // "anthropic" or "ollama"
	LLMModel          string
	AnthropicApiKey   string
	AnthropicBaseURL  string
}

type RagConfig struct {
	ChunkSize    int
	ChunkOverlap int
	MaxResults   int
	MaxHistory   int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			DocsPath:           getEnv("DOCS_PATH", "docs"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Vector: VectorConfig{
			Backend:   getEnv("VECTOR_BACKEND", "memory"),
			IndexPath: getEnv("VECTOR_INDEX_PATH", "data/vector_index.json"),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			GoogleGemini:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			LLMProvider:       getEnv("LLM_PROVIDER", "anthropic"),
			LLMModel:          getEnv("LLM_MODEL", "claude-sonnet-4-5"),
			AnthropicApiKey:   getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicBaseURL:  getEnv("ANTHROPIC_BASE_URL", ""),
		},
		Rag: RagConfig{
			ChunkSize:    getEnvAsInt("CHUNK_SIZE", 800),
			ChunkOverlap: getEnvAsInt("CHUNK_OVERLAP", 100),
			MaxResults:   getEnvAsInt("MAX_RESULTS", 5),
			MaxHistory:   getEnvAsInt("MAX_HISTORY", 2),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
