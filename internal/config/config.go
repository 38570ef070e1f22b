package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ChatAPIBase  string
	WSBase       string
	JWTSecret    string
	SessionStore string // "memory" | "redis" | "postgres"
	RedisURL     string
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	SessionTTL   time.Duration
	BackoffBase  time.Duration
}

func Load() *Config {
	return &Config{
		ChatAPIBase:  getEnv("CHAT_API_BASE", "http://localhost:8080/api/v1"),
		WSBase:       getEnv("WS_BASE", "ws://localhost:8080/ws"),
		JWTSecret:    getEnv("JWT_SECRET", "dev-secret-change-me"),
		SessionStore: getEnv("SESSION_STORE", "memory"),
		RedisURL:     getEnv("REDIS_URL", "localhost:6379"),
		DBHost:       getEnv("DB_HOST", "localhost"),
		DBPort:       getEnv("DB_PORT", "5432"),
		DBUser:       getEnv("DB_USER", "roomchat"),
		DBPassword:   getEnv("DB_PASSWORD", "roomchat_dev_password"),
		DBName:       getEnv("DB_NAME", "roomchat"),
		SessionTTL:   time.Duration(getInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		BackoffBase:  time.Duration(getInt("RECONNECT_BASE_MS", 2000)) * time.Millisecond,
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}

func getInt(key string, fallback int64) int64 {
	if val, exists := os.LookupEnv(key); exists {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
