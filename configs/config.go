package configs

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Mail     MailConfig
	SMTP     SMTPConfig
	Uploads  UploadConfig
	Logging  LoggingConfig
	Ledger   LedgerConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Env             string
	CORSOrigins     []string
	RateLimitWindow time.Duration
	RateLimitMax    int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// AuthConfig holds session token configuration
type AuthConfig struct {
	JWTSecret string
}

// MailConfig holds the primary (API) mail provider configuration
type MailConfig struct {
	APIURL string
	APIKey string
	From   string
}

// SMTPConfig holds the fallback (SMTP) mail provider configuration
type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
}

// UploadConfig holds document storage configuration
type UploadConfig struct {
	Dir     string
	BaseURL string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LedgerConfig holds ledger maintenance configuration
type LedgerConfig struct {
	PendingTxMaxAge time.Duration
}

// IsProduction reports whether the server runs in production mode
func (c ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Env:             getEnv("GO_ENV", "development"),
			CORSOrigins:     splitEnv("CORS_ORIGINS", "http://localhost:3000"),
			RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
			RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 100),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "default-secret-change-in-production"),
		},
		Mail: MailConfig{
			APIURL: getEnv("MAIL_API_URL", ""),
			APIKey: getEnv("MAIL_API_KEY", ""),
			From:   getEnv("MAIL_FROM", "no-reply@brokerdesk.local"),
		},
		SMTP: SMTPConfig{
			Host: getEnv("SMTP_HOST", "localhost"),
			Port: getEnv("SMTP_PORT", "587"),
			User: getEnv("SMTP_USER", ""),
			Pass: getEnv("SMTP_PASS", ""),
		},
		Uploads: UploadConfig{
			Dir:     getEnv("UPLOAD_DIR", "./uploads"),
			BaseURL: getEnv("UPLOAD_BASE_URL", "http://localhost:8080/uploads"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Ledger: LedgerConfig{
			PendingTxMaxAge: time.Duration(getEnvInt("PENDING_TX_MAX_AGE_HOURS", 168)) * time.Hour,
		},
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitEnv(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
