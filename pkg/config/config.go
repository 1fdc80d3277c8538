// Package config loads service settings from the environment, reading a
// local .env file first when one exists.
package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Scan     ScanConfig
}

type ServerConfig struct {
	Port       int
	UploadBase string
}

type DatabaseConfig struct {
	DSN         string
	AutoMigrate bool
}

// Enabled reports whether a Postgres DSN was configured.
func (c DatabaseConfig) Enabled() bool { return c.DSN != "" }

type AuthConfig struct {
	JWTSecret string
}

type ScanConfig struct {
	SessionIdle time.Duration
	// Frame endpoints share one limiter: RateLimit events per second, RateBurst burst.
	RateLimit int
	RateBurst int
	Languages []string
}

const devSecret = "dev-insecure-secret-change"

// Load reads configuration from environment variables. Values already set in
// the environment win over the .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: ignoring .env: %v", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:       getEnvAsInt("SERVER_PORT", 8081),
			UploadBase: getEnv("UPLOAD_BASE", "uploads"),
		},
		Database: DatabaseConfig{
			DSN:         getEnv("DB_DSN", ""),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", devSecret),
		},
		Scan: ScanConfig{
			SessionIdle: time.Duration(getEnvAsInt("SESSION_IDLE_MINUTES", 10)) * time.Minute,
			RateLimit:   getEnvAsInt("FRAME_RATE_LIMIT", 30),
			RateBurst:   getEnvAsInt("FRAME_RATE_BURST", 60),
			Languages:   splitList(getEnv("OCR_LANG", "eng")),
		},
	}

	if cfg.Scan.SessionIdle <= 0 {
		return nil, errors.New("SESSION_IDLE_MINUTES must be positive")
	}
	if cfg.Scan.RateLimit <= 0 || cfg.Scan.RateBurst <= 0 {
		return nil, errors.New("FRAME_RATE_LIMIT and FRAME_RATE_BURST must be positive")
	}
	if cfg.Auth.JWTSecret == devSecret {
		log.Println("config: JWT_SECRET not set, using development secret")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool also accepts yes/no.
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch valueStr {
	case "yes", "y", "on":
		return true
	case "no", "n", "off":
		return false
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// splitList splits a "+" or "," separated list, the way Tesseract language
// lists are usually written.
func splitList(s string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == ',' }) {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
