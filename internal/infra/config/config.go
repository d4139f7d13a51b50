package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"

	ChannelTelegram = "telegram"
	ChannelEmail    = "email"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken     string
	StudentTelegramID int64
	DatabaseURL       string
	DashboardID       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LedgerBackend    string // durable markers: postgres or redis
	SessionBackend   string // session markers: memory or redis
	NotifyChannel    string // telegram or email
	NotifyPermission string // used when the dashboard has none saved

	SendgridAPIKey string
	EmailFrom      string
	EmailFromName  string
	EmailTo        string

	AgentChannel string
	AgentIcon    string

	CronSpecReminderCheck string
	InitialCheckDelay     time.Duration
	LedgerRetention       time.Duration
	LeaderLock            bool
	TelegramRatePerSecond float64

	LogLevel    string
	Environment string
}

// RedisEnabled reports whether a Redis address was configured.
func (c *AppConfig) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load does not override variables already set.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	cfg.DashboardID = getOrDefault("DASHBOARD_ID", "default")

	if err = loadRedis(cfg); err != nil {
		return nil, err
	}
	if err = loadDelivery(cfg); err != nil {
		return nil, err
	}

	cfg.LedgerBackend = strings.ToLower(getOrDefault("LEDGER_BACKEND", BackendPostgres))
	if cfg.LedgerBackend != BackendPostgres && cfg.LedgerBackend != BackendRedis {
		return nil, fmt.Errorf("invalid LEDGER_BACKEND %q: use postgres or redis", cfg.LedgerBackend)
	}
	cfg.SessionBackend = strings.ToLower(getOrDefault("SESSION_BACKEND", BackendMemory))
	if cfg.SessionBackend != BackendMemory && cfg.SessionBackend != BackendRedis {
		return nil, fmt.Errorf("invalid SESSION_BACKEND %q: use memory or redis", cfg.SessionBackend)
	}
	if (cfg.LedgerBackend == BackendRedis || cfg.SessionBackend == BackendRedis) && !cfg.RedisEnabled() {
		return nil, fmt.Errorf("REDIS_ADDR is required for the redis marker backend")
	}

	cfg.NotifyPermission = strings.ToLower(getOrDefault("NOTIFY_PERMISSION", "default"))

	cfg.CronSpecReminderCheck = getOrDefault("CRON_SPEC_REMINDER_CHECK", "*/5 * * * *") // every 5 minutes

	if cfg.InitialCheckDelay, err = time.ParseDuration(getOrDefault("INITIAL_CHECK_DELAY", "3s")); err != nil {
		return nil, fmt.Errorf("invalid INITIAL_CHECK_DELAY: %w", err)
	}
	if cfg.LedgerRetention, err = time.ParseDuration(getOrDefault("LEDGER_RETENTION", "168h")); err != nil {
		return nil, fmt.Errorf("invalid LEDGER_RETENTION: %w", err)
	}
	if cfg.LeaderLock, err = strconv.ParseBool(getOrDefault("LEADER_LOCK", "false")); err != nil {
		return nil, fmt.Errorf("invalid LEADER_LOCK: %w", err)
	}
	if cfg.LeaderLock && !cfg.RedisEnabled() {
		return nil, fmt.Errorf("REDIS_ADDR is required when LEADER_LOCK is enabled")
	}

	return cfg, nil
}

// LoadAgent reads the subset needed by the background delivery agent: Redis and
// the direct notification channel.
func LoadAgent() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if err := loadRedis(cfg); err != nil {
		return nil, err
	}
	if !cfg.RedisEnabled() {
		return nil, fmt.Errorf("REDIS_ADDR is not set")
	}
	if err := loadDelivery(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRedis(cfg *AppConfig) error {
	var err error
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisDB, err = strconv.Atoi(getOrDefault("REDIS_DB", "0")); err != nil {
		return fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.AgentChannel = getOrDefault("AGENT_CHANNEL", "uniportal:notify")
	return nil
}

func loadDelivery(cfg *AppConfig) error {
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is not set")
	}
	studentIDStr := os.Getenv("STUDENT_TELEGRAM_ID")
	if studentIDStr == "" {
		return fmt.Errorf("STUDENT_TELEGRAM_ID is not set")
	}
	cfg.StudentTelegramID, err = strconv.ParseInt(studentIDStr, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid STUDENT_TELEGRAM_ID: %w", err)
	}
	cfg.TelegramRatePerSecond, err = strconv.ParseFloat(getOrDefault("TELEGRAM_RATE_PER_SECOND", "1"), 64)
	if err != nil || cfg.TelegramRatePerSecond <= 0 {
		return fmt.Errorf("invalid TELEGRAM_RATE_PER_SECOND %q", os.Getenv("TELEGRAM_RATE_PER_SECOND"))
	}

	cfg.NotifyChannel = strings.ToLower(getOrDefault("NOTIFY_CHANNEL", ChannelTelegram))
	switch cfg.NotifyChannel {
	case ChannelTelegram:
	case ChannelEmail:
		cfg.SendgridAPIKey = os.Getenv("SENDGRID_API_KEY")
		cfg.EmailFrom = os.Getenv("EMAIL_FROM")
		cfg.EmailTo = os.Getenv("EMAIL_TO")
		if cfg.SendgridAPIKey == "" || cfg.EmailFrom == "" || cfg.EmailTo == "" {
			return fmt.Errorf("SENDGRID_API_KEY, EMAIL_FROM and EMAIL_TO are required for the email channel")
		}
		cfg.EmailFromName = getOrDefault("EMAIL_FROM_NAME", "UniPortal")
	default:
		return fmt.Errorf("invalid NOTIFY_CHANNEL %q: use telegram or email", cfg.NotifyChannel)
	}
	cfg.AgentIcon = getOrDefault("AGENT_ICON", "./icon-192.png")

	cfg.LogLevel = strings.ToLower(getOrDefault("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getOrDefault("ENVIRONMENT", "development"))
	return nil
}

func getOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
