package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	Worker WorkerConfig
	Alert  AlertConfig
}

// WorkerConfig controls the outreach loop.
type WorkerConfig struct {
	WorkerID      string
	CycleInterval time.Duration
	LeaseTTL      time.Duration

	// Send caps. BatchCap bounds one cycle; DailySendCap is the
	// system-wide fallback when a campaign has no cap of its own.
	BatchCap     int
	DailySendCap int
	MaxRetries   int

	// Follow-up timing.
	NoReplyWindow time.Duration

	// Auto-pause rules.
	AutoPauseEnabled bool
	MinSentForPause  int
	PauseReplyRate   float64

	SenderURL     string
	SenderSecret  string
	InboxURL      string
	InboxProvider string
}

// AlertConfig controls human notification on positive replies.
type AlertConfig struct {
	WebhookURL string
	Recipients string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbURL := getEnv("DATABASE_URL", "")
	redisURL := getEnv("REDIS_URL", "")

	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	senderURL := getEnv("SENDER_URL", "")
	if senderURL == "" {
		return nil, fmt.Errorf("SENDER_URL is required")
	}
	inboxURL := getEnv("INBOX_URL", "")
	if inboxURL == "" {
		return nil, fmt.Errorf("INBOX_URL is required")
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "worker"
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: dbURL,
		RedisURL:    redisURL,
		Worker: WorkerConfig{
			WorkerID:      getEnv("WORKER_ID", fmt.Sprintf("%s-%d", hostname, os.Getpid())),
			CycleInterval: getEnvDuration("CYCLE_INTERVAL", 5*time.Minute),
			LeaseTTL:      getEnvDuration("LEASE_TTL", 15*time.Minute),

			BatchCap:     getEnvInt("BATCH_SEND_CAP", 50),
			DailySendCap: getEnvInt("DAILY_SEND_CAP", 200),
			MaxRetries:   getEnvInt("SEND_MAX_RETRIES", 3),

			NoReplyWindow: getEnvDuration("NO_REPLY_WINDOW", 72*time.Hour),

			AutoPauseEnabled: getEnvBool("AUTO_PAUSE_ENABLED", true),
			MinSentForPause:  getEnvInt("MIN_SENT_FOR_PAUSE", 50),
			PauseReplyRate:   getEnvFloat("PAUSE_REPLY_RATE", 0.01),

			SenderURL:     senderURL,
			SenderSecret:  getEnv("SENDER_SECRET", ""),
			InboxURL:      inboxURL,
			InboxProvider: getEnv("INBOX_PROVIDER", "imap-bridge"),
		},
		Alert: AlertConfig{
			WebhookURL: getEnv("ALERT_WEBHOOK_URL", ""),
			Recipients: getEnv("ALERT_RECIPIENTS", ""),
		},
	}

	if cfg.Worker.CycleInterval <= 0 {
		return nil, fmt.Errorf("CYCLE_INTERVAL must be > 0")
	}
	if cfg.Worker.LeaseTTL <= cfg.Worker.CycleInterval {
		return nil, fmt.Errorf("LEASE_TTL must be greater than CYCLE_INTERVAL")
	}
	if cfg.Worker.BatchCap <= 0 {
		return nil, fmt.Errorf("BATCH_SEND_CAP must be > 0")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
