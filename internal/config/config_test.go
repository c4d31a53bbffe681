package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/outreach")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("SENDER_URL", "http://relay.local/send")
	t.Setenv("INBOX_URL", "http://inbox.local/messages")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %s, want 8080", cfg.Port)
	}
	if cfg.Worker.CycleInterval != 5*time.Minute {
		t.Errorf("cycle interval = %s, want 5m", cfg.Worker.CycleInterval)
	}
	if cfg.Worker.LeaseTTL != 15*time.Minute {
		t.Errorf("lease ttl = %s, want 15m", cfg.Worker.LeaseTTL)
	}
	if cfg.Worker.BatchCap != 50 || cfg.Worker.DailySendCap != 200 || cfg.Worker.MaxRetries != 3 {
		t.Errorf("send limits = %d/%d/%d, want 50/200/3",
			cfg.Worker.BatchCap, cfg.Worker.DailySendCap, cfg.Worker.MaxRetries)
	}
	if cfg.Worker.NoReplyWindow != 72*time.Hour {
		t.Errorf("no-reply window = %s, want 72h", cfg.Worker.NoReplyWindow)
	}
	if !cfg.Worker.AutoPauseEnabled || cfg.Worker.MinSentForPause != 50 || cfg.Worker.PauseReplyRate != 0.01 {
		t.Errorf("pause rules = %v/%d/%v, want true/50/0.01",
			cfg.Worker.AutoPauseEnabled, cfg.Worker.MinSentForPause, cfg.Worker.PauseReplyRate)
	}
	if cfg.Worker.InboxProvider != "imap-bridge" {
		t.Errorf("inbox provider = %s, want imap-bridge", cfg.Worker.InboxProvider)
	}
	if cfg.Worker.WorkerID == "" {
		t.Error("worker id not derived")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("WORKER_ID", "outreach-7")
	t.Setenv("CYCLE_INTERVAL", "1m")
	t.Setenv("LEASE_TTL", "5m")
	t.Setenv("DAILY_SEND_CAP", "25")
	t.Setenv("AUTO_PAUSE_ENABLED", "false")
	t.Setenv("PAUSE_REPLY_RATE", "0.05")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || cfg.Worker.WorkerID != "outreach-7" {
		t.Errorf("port/worker id = %s/%s", cfg.Port, cfg.Worker.WorkerID)
	}
	if cfg.Worker.CycleInterval != time.Minute || cfg.Worker.LeaseTTL != 5*time.Minute {
		t.Errorf("timings = %s/%s", cfg.Worker.CycleInterval, cfg.Worker.LeaseTTL)
	}
	if cfg.Worker.DailySendCap != 25 {
		t.Errorf("daily cap = %d, want 25", cfg.Worker.DailySendCap)
	}
	if cfg.Worker.AutoPauseEnabled {
		t.Error("auto-pause not disabled")
	}
	if cfg.Worker.PauseReplyRate != 0.05 {
		t.Errorf("pause reply rate = %v, want 0.05", cfg.Worker.PauseReplyRate)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	keys := []string{"DATABASE_URL", "REDIS_URL", "SENDER_URL", "INBOX_URL"}
	for _, missing := range keys {
		t.Run(missing, func(t *testing.T) {
			setRequired(t)
			t.Setenv(missing, "")

			if _, err := Load(); err == nil {
				t.Fatalf("Load succeeded without %s", missing)
			} else if !strings.Contains(err.Error(), missing) {
				t.Errorf("error %q does not name %s", err, missing)
			}
		})
	}
}

func TestLoadRejectsLeaseShorterThanCycle(t *testing.T) {
	setRequired(t)
	t.Setenv("CYCLE_INTERVAL", "10m")
	t.Setenv("LEASE_TTL", "5m")

	if _, err := Load(); err == nil {
		t.Fatal("Load accepted a lease TTL shorter than the cycle interval")
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	setRequired(t)
	t.Setenv("DAILY_SEND_CAP", "lots")
	t.Setenv("CYCLE_INTERVAL", "soon")
	t.Setenv("AUTO_PAUSE_ENABLED", "yep")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Worker.DailySendCap != 200 {
		t.Errorf("daily cap = %d, want fallback 200", cfg.Worker.DailySendCap)
	}
	if cfg.Worker.CycleInterval != 5*time.Minute {
		t.Errorf("cycle interval = %s, want fallback 5m", cfg.Worker.CycleInterval)
	}
	if !cfg.Worker.AutoPauseEnabled {
		t.Error("auto-pause flag lost its fallback")
	}
}
