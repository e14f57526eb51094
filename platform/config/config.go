// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

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
}

// CronAuthConfig provides settings for authenticating scheduler calls to the
// job endpoints.
type CronAuthConfig interface {
	GetCronAuthSecret() string
}

// GatewayConfig provides settings for the WhatsApp messaging gateway.
type GatewayConfig interface {
	GetGatewayURL() string
	GetGatewayTimeout() time.Duration
	GetGatewaySendsPerSecond() float64
}

// SchedulerConfig provides settings for the asynq-based scheduler binary.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetReminderDispatchSpec() string
	GetAgentJobsSpec() string
	GetExpirySweepSpec() string
	GetStuckReleaseSpec() string
}

// EmailConfig provides settings for the job failure report mailer.
type EmailConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetReportFromAddress() string
	GetReportToAddress() string
	IsReportEmailEnabled() bool
}

// DispatchConfig provides tuning knobs for the reminder dispatch pipeline.
type DispatchConfig interface {
	GetDispatchConcurrency() int
	GetStuckProcessingAge() time.Duration
	GetFallbackUTCOffsetHours() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                    string
	HTTPAddr               string
	DatabaseURL            string
	CORSAllowAll           bool
	CORSOrigins            []string
	CronAuthSecret         string
	GatewayURL             string
	GatewayTimeout         time.Duration
	GatewaySendsPerSecond  float64
	RedisURL               string
	RedisTLSInsecure       bool
	AsynqQueueName         string
	AsynqConcurrency       int
	ReminderDispatchSpec   string
	AgentJobsSpec          string
	ExpirySweepSpec        string
	StuckReleaseSpec       string
	SMTPHost               string
	SMTPPort               int
	SMTPUsername           string
	SMTPPassword           string
	ReportFromAddress      string
	ReportToAddress        string
	DispatchConcurrency    int
	StuckProcessingAge     time.Duration
	FallbackUTCOffsetHours int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// CronAuthConfig implementation
func (c *Config) GetCronAuthSecret() string { return c.CronAuthSecret }

// GatewayConfig implementation
func (c *Config) GetGatewayURL() string              { return c.GatewayURL }
func (c *Config) GetGatewayTimeout() time.Duration   { return c.GatewayTimeout }
func (c *Config) GetGatewaySendsPerSecond() float64  { return c.GatewaySendsPerSecond }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string             { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool       { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string       { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int        { return c.AsynqConcurrency }
func (c *Config) GetReminderDispatchSpec() string { return c.ReminderDispatchSpec }
func (c *Config) GetAgentJobsSpec() string        { return c.AgentJobsSpec }
func (c *Config) GetExpirySweepSpec() string      { return c.ExpirySweepSpec }
func (c *Config) GetStuckReleaseSpec() string     { return c.StuckReleaseSpec }

// EmailConfig implementation
func (c *Config) GetSMTPHost() string          { return c.SMTPHost }
func (c *Config) GetSMTPPort() int             { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string      { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string      { return c.SMTPPassword }
func (c *Config) GetReportFromAddress() string { return c.ReportFromAddress }
func (c *Config) GetReportToAddress() string   { return c.ReportToAddress }
func (c *Config) IsReportEmailEnabled() bool {
	return c.SMTPHost != "" && c.ReportToAddress != ""
}

// DispatchConfig implementation
func (c *Config) GetDispatchConcurrency() int           { return c.DispatchConcurrency }
func (c *Config) GetStuckProcessingAge() time.Duration  { return c.StuckProcessingAge }
func (c *Config) GetFallbackUTCOffsetHours() int        { return c.FallbackUTCOffsetHours }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                    getEnv("APP_ENV", "development"),
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		CORSAllowAll:           strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true"),
		CORSOrigins:            splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200")),
		CronAuthSecret:         getEnv("CRON_AUTH_SECRET", ""),
		GatewayURL:             getEnv("WHATSAPP_GATEWAY_URL", ""),
		GatewayTimeout:         mustDuration(getEnv("WHATSAPP_GATEWAY_TIMEOUT", "10s")),
		GatewaySendsPerSecond:  mustFloat(getEnv("WHATSAPP_SENDS_PER_SECOND", "5")),
		RedisURL:               getEnv("REDIS_URL", ""),
		RedisTLSInsecure:       strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:         getEnv("ASYNQ_QUEUE", "jobs"),
		AsynqConcurrency:       mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		ReminderDispatchSpec:   getEnv("REMINDER_DISPATCH_CRON", "*/5 * * * *"),
		AgentJobsSpec:          getEnv("AGENT_JOBS_CRON", "0 6 * * *"),
		ExpirySweepSpec:        getEnv("EXPIRY_SWEEP_CRON", "30 6 * * *"),
		StuckReleaseSpec:       getEnv("STUCK_RELEASE_CRON", "15 * * * *"),
		SMTPHost:               getEnv("SMTP_HOST", ""),
		SMTPPort:               mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:           getEnv("SMTP_USERNAME", ""),
		SMTPPassword:           getEnv("SMTP_PASSWORD", ""),
		ReportFromAddress:      getEnv("REPORT_FROM_ADDRESS", ""),
		ReportToAddress:        getEnv("REPORT_TO_ADDRESS", ""),
		DispatchConcurrency:    mustInt(getEnv("DISPATCH_CONCURRENCY", "8")),
		StuckProcessingAge:     mustDuration(getEnv("STUCK_PROCESSING_AGE", "1h")),
		FallbackUTCOffsetHours: mustInt(getEnv("FALLBACK_UTC_OFFSET_HOURS", "-6")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("WHATSAPP_GATEWAY_URL is required")
	}
	if !strings.EqualFold(cfg.Env, "development") && cfg.CronAuthSecret == "" {
		return nil, fmt.Errorf("CRON_AUTH_SECRET is required outside development")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}
