package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Server configuration
	ServerPort  string
	Environment string

	// State persistence: "file", "redis" or "postgres"
	StateBackend  string
	StateFile     string
	RedisAddress  string
	RedisStateKey string

	// Database configuration (postgres backend)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Advice generation
	GeminiAPIKey string
	GeminiModel  string

	// Logging
	LogLevel string
	LogFile  string

	// Streaming and persistence tuning
	HeartbeatInterval time.Duration
	SubscriberBuffer  int
	PersistQueue      int

	FrontendAddress string
	DemoFile        string
}

// Global application configuration
var AppConfig Config

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	// Find .env file
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		// Try to find .env in parent directories
		envPath = filepath.Join("..", ".env")
		if _, err := os.Stat(envPath); os.IsNotExist(err) {
			envPath = filepath.Join("..", "..", ".env")
		}
	}

	// Load .env file if it exists
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			log.Warn().Err(err).Msg("error loading .env file")
		}
	}

	AppConfig = Config{
		ServerPort:        getEnv("PORT", "5174"),
		Environment:       getEnv("ENV", "development"),
		StateBackend:      getEnv("STATE_BACKEND", "file"),
		StateFile:         getEnv("STATE_FILE", filepath.Join("server", "state.json")),
		RedisAddress:      getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisStateKey:     getEnv("REDIS_STATE_KEY", "onboarding:state"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", "postgres"),
		DBName:            getEnv("DB_NAME", "onboarding_hub"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.0-flash-exp"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFile:           os.Getenv("LOG_FILE"),
		HeartbeatInterval: getEnvDuration("HEARTBEAT_INTERVAL", 30*time.Second),
		SubscriberBuffer:  getEnvInt("SUBSCRIBER_BUFFER", 16),
		PersistQueue:      getEnvInt("PERSIST_QUEUE", 64),
		FrontendAddress:   getEnv("FRONTEND_ADDRESS", "https://production-frontend.com"),
		DemoFile:          getEnv("DEMO_FILE", filepath.Join("server", "demo.html")),
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
