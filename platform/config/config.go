// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// AdminConfig provides the shared-secret key protecting the admin API.
type AdminConfig interface {
	GetAdminAPIKey() string
}

// CronConfig provides the bearer secret required by scheduler-triggered endpoints.
type CronConfig interface {
	GetCronSecret() string
}

// SMSConfig provides settings for the SMS gateway client.
type SMSConfig interface {
	GetSMSBaseURL() string
	GetSMSAccountSID() string
	GetSMSAuthToken() string
	GetSMSFromNumber() string
	GetAdminPhone() string
	IsSMSEnabled() bool
}

// PushConfig provides settings for the push notification gateway.
type PushConfig interface {
	GetPushURL() string
	GetPushAppID() string
	GetPushAPIKey() string
	IsPushEnabled() bool
}

// AIConfig provides settings for the LLM response generator.
type AIConfig interface {
	GetGeminiAPIKey() string
	GetGeminiModel() string
	IsAIEnabled() bool
}

// SchedulerConfig provides settings for the asynq worker and client.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// EmailConfig provides settings for operator escalation email.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUser() string
	GetSMTPPassword() string
	GetEmailFromAddress() string
	GetOperatorEmail() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env              string
	HTTPAddr         string
	DatabaseURL      string
	CORSAllowAll     bool
	CORSOrigins      []string
	CORSAllowCreds   bool
	AdminAPIKey      string
	CronSecret       string
	SMSBaseURL       string
	SMSAccountSID    string
	SMSAuthToken     string
	SMSFromNumber    string
	AdminPhone       string
	PushURL          string
	PushAppID        string
	PushAPIKey       string
	GeminiAPIKey     string
	GeminiModel      string
	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int
	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUser         string
	SMTPPassword     string
	EmailFromAddress string
	OperatorEmail    string
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetHTTPAddr() string        { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool      { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string   { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool    { return c.CORSAllowCreds }

func (c *Config) GetAdminAPIKey() string { return c.AdminAPIKey }
func (c *Config) GetCronSecret() string  { return c.CronSecret }

func (c *Config) GetSMSBaseURL() string    { return c.SMSBaseURL }
func (c *Config) GetSMSAccountSID() string { return c.SMSAccountSID }
func (c *Config) GetSMSAuthToken() string  { return c.SMSAuthToken }
func (c *Config) GetSMSFromNumber() string { return c.SMSFromNumber }
func (c *Config) GetAdminPhone() string    { return c.AdminPhone }
func (c *Config) IsSMSEnabled() bool {
	return c.SMSAccountSID != "" && c.SMSAuthToken != "" && c.SMSFromNumber != ""
}

func (c *Config) GetPushURL() string    { return c.PushURL }
func (c *Config) GetPushAppID() string  { return c.PushAppID }
func (c *Config) GetPushAPIKey() string { return c.PushAPIKey }
func (c *Config) IsPushEnabled() bool   { return c.PushAppID != "" && c.PushAPIKey != "" }

func (c *Config) GetGeminiAPIKey() string { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string  { return c.GeminiModel }
func (c *Config) IsAIEnabled() bool       { return c.GeminiAPIKey != "" }

func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetEmailEnabled() bool      { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string        { return c.SMTPHost }
func (c *Config) GetSMTPPort() int           { return c.SMTPPort }
func (c *Config) GetSMTPUser() string        { return c.SMTPUser }
func (c *Config) GetSMTPPassword() string    { return c.SMTPPassword }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetOperatorEmail() string   { return c.OperatorEmail }

// =============================================================================
// Loading
// =============================================================================

// Load reads configuration from the environment. A .env file is honored
// when present (local development); real deployments set env vars directly.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		CORSOrigins:      splitCSV(os.Getenv("CORS_ORIGINS")),
		CORSAllowCreds:   getBool("CORS_ALLOW_CREDENTIALS", false),
		AdminAPIKey:      os.Getenv("ADMIN_API_KEY"),
		CronSecret:       os.Getenv("CRON_SECRET"),
		SMSBaseURL:       getEnv("SMS_BASE_URL", "https://api.twilio.com"),
		SMSAccountSID:    os.Getenv("SMS_ACCOUNT_SID"),
		SMSAuthToken:     os.Getenv("SMS_AUTH_TOKEN"),
		SMSFromNumber:    os.Getenv("SMS_FROM_NUMBER"),
		AdminPhone:       os.Getenv("ADMIN_PHONE"),
		PushURL:          getEnv("PUSH_URL", "https://onesignal.com/api/v1/notifications"),
		PushAppID:        os.Getenv("PUSH_APP_ID"),
		PushAPIKey:       os.Getenv("PUSH_API_KEY"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		RedisURL:         os.Getenv("REDIS_URL"),
		RedisTLSInsecure: getBool("REDIS_TLS_INSECURE", false),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getInt("ASYNQ_CONCURRENCY", 10),
		EmailEnabled:     getBool("EMAIL_ENABLED", false),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         getInt("SMTP_PORT", 587),
		SMTPUser:         os.Getenv("SMTP_USER"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		EmailFromAddress: os.Getenv("EMAIL_FROM_ADDRESS"),
		OperatorEmail:    os.Getenv("OPERATOR_EMAIL"),
	}

	cfg.CORSAllowAll = containsWildcard(cfg.CORSOrigins)

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsWildcard(values []string) bool {
	for _, v := range values {
		if v == "*" {
			return true
		}
	}
	return false
}
