package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Env              string
	Port             string
	DBHost           string
	DBPort           string
	DBUser           string
	DBPassword       string
	DBName           string
	CohereURL        string
	CohereAPIKey     string
	EmbeddingModel   string
	GroqURL          string
	GroqAPIKey       string
	GroqModel        string
	EmbedTimeout     int
	LLMTimeout       int
	DefaultTopK      int
	AnswerMaxTokens  int
	RewriteCacheSize int
}

func Load() *Config {
	return &Config{
		Env:              getEnv("ENV", "development"),
		Port:             getEnv("PORT", "8000"),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           getEnv("DB_USER", "parks_user"),
		DBPassword:       getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "parks_password"),
		DBName:           getEnv("DB_NAME", "parks_db"),
		CohereURL:        getEnv("COHERE_URL", "https://api.cohere.com"),
		CohereAPIKey:     getSecret("COHERE_API_KEY", "COHERE_API_KEY_FILE", ""),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "embed-english-v3.0"),
		GroqURL:          getEnv("GROQ_URL", "https://api.groq.com"),
		GroqAPIKey:       getSecret("GROQ_API_KEY", "GROQ_API_KEY_FILE", ""),
		GroqModel:        getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		EmbedTimeout:     getEnvInt("EMBED_TIMEOUT_SECONDS", 30),
		LLMTimeout:       getEnvInt("LLM_TIMEOUT_SECONDS", 120),
		DefaultTopK:      getEnvInt("RAG_DEFAULT_TOP_K", 5),
		AnswerMaxTokens:  getEnvInt("RAG_ANSWER_MAX_TOKENS", 1024),
		RewriteCacheSize: getEnvInt("REWRITE_CACHE_SIZE", 256),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return strings.TrimSpace(value)
	}

	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
