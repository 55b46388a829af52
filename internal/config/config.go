package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port             string
	Environment      string
	FirestoreProject string
	FinnhubKey       string
	GeminiKey        string
	GeminiModel      string
	JWTSecret        string
	TokenExpiry      time.Duration
	EnrichTimeout    time.Duration
	InsightTimeout   time.Duration
	MaxConcurrentFetches int
}

func Load() *Config {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Environment:      getEnv("ENVIRONMENT", "production"),
		FirestoreProject: getEnv("FIRESTORE_PROJECT_ID", ""),
		FinnhubKey:       getEnv("FINNHUB_API_KEY", ""),
		GeminiKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		TokenExpiry:      getDuration("TOKEN_EXPIRY", 24*time.Hour),
		EnrichTimeout:    getDuration("ENRICH_TIMEOUT", 10*time.Second),
		InsightTimeout:   getDuration("INSIGHT_TIMEOUT", 15*time.Second),
		MaxConcurrentFetches: getInt("MAX_CONCURRENT_FETCHES", 10),
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		log.Fatal("❌ JWT_SECRET is required")
	}

	if cfg.FinnhubKey == "" {
		log.Println("⚠️  FINNHUB_API_KEY not set, quote lookups will fail")
	}

	if cfg.GeminiKey == "" {
		log.Println("⚠️  GEMINI_API_KEY not set, insights fall back to placeholders")
	}

	if cfg.FirestoreProject == "" {
		log.Println("⚠️  FIRESTORE_PROJECT_ID not set, using in-memory storage")
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
