package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Scheduler    SchedulerConfig
	Email        EmailConfig
	AudienceList AudienceListConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	PublicBaseURL      string // used to build join links in reminder emails
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT validation settings. Tokens are issued by the auth service;
// this backend only validates them.
type JWTConfig struct {
	Secret string
}

// SchedulerConfig holds reminder sweep settings.
type SchedulerConfig struct {
	SweepInterval time.Duration // how often the sweep runs
	LeadTime      time.Duration // how long before scheduled_at the reminder goes out
	Tolerance     time.Duration // window half-width to absorb sweep jitter
	Locale        string        // BCP 47 tag for reminder date formatting, e.g. en-US
}

// EmailConfig selects and configures the notification provider.
type EmailConfig struct {
	Provider           string // "ses" or "noop"
	FromAddress        string
	FromName           string
	ReminderTemplateID string
	SES                SESConfig
}

// SESConfig holds AWS SES credentials.
type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// AudienceListConfig holds the external audience-list service settings.
type AudienceListConfig struct {
	BaseURL  string
	APIKey   string
	PageSize int
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			PublicBaseURL:      getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/webinar?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "webinar"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-me-in-production"),
		},
		Scheduler: SchedulerConfig{
			SweepInterval: getEnvDuration("REMINDER_SWEEP_INTERVAL", time.Minute),
			LeadTime:      getEnvDuration("REMINDER_LEAD_TIME", 15*time.Minute),
			Tolerance:     getEnvDuration("REMINDER_TOLERANCE", time.Minute),
			Locale:        getEnv("REMINDER_LOCALE", "en-US"),
		},
		Email: EmailConfig{
			Provider:           getEnv("EMAIL_PROVIDER", "noop"),
			FromAddress:        getEnv("EMAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:           getEnv("EMAIL_FROM_NAME", "Lumen Live"),
			ReminderTemplateID: getEnv("EMAIL_REMINDER_TEMPLATE_ID", "webinar-reminder"),
			SES: SESConfig{
				Region:          getEnv("AWS_REGION", "us-east-1"),
				AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			},
		},
		AudienceList: AudienceListConfig{
			BaseURL:  getEnv("AUDIENCE_LIST_BASE_URL", ""),
			APIKey:   getEnv("AUDIENCE_LIST_API_KEY", ""),
			PageSize: getEnvInt("AUDIENCE_LIST_PAGE_SIZE", 100),
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
