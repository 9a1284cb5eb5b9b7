package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	DatabaseURL string
	RedisURL    string
	Port        string
	Env         string

	LogLevel  string
	LogFormat string

	SessionSecret string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// TickInterval is how often the summary scheduler wakes up. Trigger
	// detection matches on the hour of day, so anything coarser than one
	// hour can skip a user's trigger window entirely.
	TickInterval time.Duration

	SeedDevData bool
}

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		Port:          getEnvWithDefault("PORT", "8080"),
		Env:           getEnvWithDefault("ENV", "development"),
		LogLevel:      getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat:     getEnvWithDefault("LOG_FORMAT", "text"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPPort:      getEnvInt("SMTP_PORT", 587),
		SMTPUsername:  os.Getenv("SMTP_USERNAME"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:      getEnvWithDefault("SMTP_FROM", "no-reply@tasklane.app"),
		TickInterval:  getEnvDuration("SUMMARY_TICK_INTERVAL", time.Hour),
		SeedDevData:   os.Getenv("SEED_DEV_DATA") == "true",
	}

	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "dev-secret-change-in-production-use-openssl-rand-hex-32"
		log.Println("WARNING: Using default SESSION_SECRET. Generate a secure secret with: openssl rand -hex 32")
	}

	if cfg.TickInterval > time.Hour {
		log.Printf("WARNING: SUMMARY_TICK_INTERVAL %s is coarser than one hour; users' trigger hours can be skipped", cfg.TickInterval)
	}

	return cfg
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("WARNING: invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
