package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EmailProviderNoop     = "noop"
	EmailProviderSendGrid = "sendgrid"
	EmailProviderSMTP     = "smtp"
	EmailProviderSES      = "ses"
)

type Config struct {
	Addr                  string
	DatabaseURL           string
	JWTSecret             string
	AccessTokenTTL        time.Duration
	RefreshTokenTTL       time.Duration
	PasswordResetTTL      time.Duration
	DataEncryptionKey     string
	Environment           string
	FrontendURL           string
	SeedAdminEmail        string
	SeedAdminPassword     string
	SeedAdminName         string
	StripeSecretKey       string
	StripeWebhookSecret   string
	Currency              string
	EmailProvider         string
	EmailFrom             string
	SendGridAPIKey        string
	SendGridBaseURL       string
	SMTPHost              string
	SMTPPort              int
	SMTPUser              string
	SMTPPassword          string
	SMTPUseTLS            bool
	AWSRegion             string
	RunMigrations         bool
	RunSeed               bool
	MaxBodyBytes          int64
	RateLimitPerMinute    int
	TransferRetrySchedule string
	GigExpirySchedule     string
	TokenPurgeSchedule    string
	MetricsEnabled        bool
	PlatformConfigPath    string
	Platform              Platform
}

// Load reads .env (when present), the environment and the optional platform YAML file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("dotenv load failed", "err", err)
	}

	cfg := Config{
		Addr:                  getEnv("APP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		AccessTokenTTL:        getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:       getEnvDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		PasswordResetTTL:      getEnvDuration("PASSWORD_RESET_TTL", 2*time.Hour),
		DataEncryptionKey:     getEnv("DATA_ENCRYPTION_KEY", ""),
		Environment:           getEnv("APP_ENV", "development"),
		FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:3000"),
		SeedAdminEmail:        getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword:     getEnv("SEED_ADMIN_PASSWORD", ""),
		SeedAdminName:         getEnv("SEED_ADMIN_NAME", "Platform Admin"),
		StripeSecretKey:       getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:   getEnv("STRIPE_WEBHOOK_SECRET", ""),
		Currency:              strings.ToLower(getEnv("CURRENCY", "usd")),
		EmailProvider:         strings.ToLower(getEnv("EMAIL_PROVIDER", "")),
		EmailFrom:             getEnv("EMAIL_FROM", "no-reply@quickshift.app"),
		SendGridAPIKey:        getEnv("SENDGRID_API_KEY", ""),
		SendGridBaseURL:       getEnv("SENDGRID_BASE_URL", "https://api.sendgrid.com/v3"),
		SMTPHost:              getEnv("SMTP_HOST", ""),
		SMTPPort:              getEnvInt("SMTP_PORT", 587),
		SMTPUser:              getEnv("SMTP_USER", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:            getEnvBool("SMTP_USE_TLS", true),
		AWSRegion:             getEnv("AWS_REGION", "us-east-1"),
		RunMigrations:         getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:               getEnvBool("RUN_SEED", true),
		MaxBodyBytes:          int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute:    getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		TransferRetrySchedule: getEnv("TRANSFER_RETRY_SCHEDULE", "@every 1h"),
		GigExpirySchedule:     getEnv("GIG_EXPIRY_SCHEDULE", "@every 15m"),
		TokenPurgeSchedule:    getEnv("TOKEN_PURGE_SCHEDULE", "@daily"),
		MetricsEnabled:        getEnvBool("METRICS_ENABLED", true),
		PlatformConfigPath:    getEnv("PLATFORM_CONFIG", "config/platform.yaml"),
	}
	if cfg.EmailProvider == "" {
		cfg.EmailProvider = defaultEmailProvider(cfg)
	}

	platform, err := LoadPlatform(cfg.PlatformConfigPath)
	if err != nil {
		slog.Warn("platform config load failed, using defaults", "path", cfg.PlatformConfigPath, "err", err)
		platform = DefaultPlatform()
	}
	platform.Pricing.ServiceFeeRate = getEnvFloat("SERVICE_FEE_RATE", platform.Pricing.ServiceFeeRate)
	platform.Pricing.TaxRate = getEnvFloat("TAX_RATE", platform.Pricing.TaxRate)
	if platform.Pricing.Currency == "" {
		platform.Pricing.Currency = cfg.Currency
	}
	cfg.Platform = platform
	return cfg
}

func defaultEmailProvider(cfg Config) string {
	switch {
	case cfg.SendGridAPIKey != "":
		return EmailProviderSendGrid
	case cfg.SMTPHost != "":
		return EmailProviderSMTP
	default:
		return EmailProviderNoop
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
		}
		if strings.TrimSpace(c.StripeSecretKey) == "" || strings.TrimSpace(c.StripeWebhookSecret) == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET must be set in production")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be set or RUN_SEED disabled in production")
		}
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= c.AccessTokenTTL {
		return fmt.Errorf("REFRESH_TOKEN_TTL must be longer than a positive ACCESS_TOKEN_TTL")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	switch c.EmailProvider {
	case EmailProviderNoop:
	case EmailProviderSendGrid:
		if c.SendGridAPIKey == "" {
			return fmt.Errorf("SENDGRID_API_KEY must be set when EMAIL_PROVIDER is sendgrid")
		}
	case EmailProviderSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST must be set when EMAIL_PROVIDER is smtp")
		}
	case EmailProviderSES:
		if c.AWSRegion == "" {
			return fmt.Errorf("AWS_REGION must be set when EMAIL_PROVIDER is ses")
		}
	default:
		return fmt.Errorf("EMAIL_PROVIDER must be one of noop, sendgrid, smtp, ses")
	}
	return c.Platform.Validate()
}
