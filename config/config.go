package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	JWTSecret          string
	Port               string
	Environment        string
	AllowedOrigins     []string
	AttachmentBucket   string
	PollInterval       time.Duration
	FeedJoinTimeout    time.Duration
	FeedHeartbeat      time.Duration
}

func NewConfig() *Config {
	allowedOriginsStr := os.Getenv("ALLOWED_ORIGINS")
	allowedOrigins := []string{"http://localhost:3000"}
	if allowedOriginsStr != "" {
		allowedOrigins = strings.Split(allowedOriginsStr, ",")
	}

	return &Config{
		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey:    os.Getenv("SUPABASE_ANON_KEY"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		Port:               getEnvOrDefault("PORT", "8080"),
		Environment:        getEnvOrDefault("ENVIRONMENT", "development"),
		AllowedOrigins:     allowedOrigins,
		AttachmentBucket:   getEnvOrDefault("ATTACHMENT_BUCKET", "chat-attachments"),
		PollInterval:       getEnvSeconds("POLL_INTERVAL_SECONDS", 5),
		FeedJoinTimeout:    getEnvSeconds("FEED_JOIN_TIMEOUT_SECONDS", 10),
		FeedHeartbeat:      getEnvSeconds("FEED_HEARTBEAT_SECONDS", 30),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(defaultSeconds) * time.Second
}
