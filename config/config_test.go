package config

import (
	"strings"
	"testing"
	"time"
)

func setBase(t *testing.T) {
	t.Helper()
	t.Setenv("RIOT_API_KEY", "RGAPI-secret")
	t.Setenv("LOL_PLAYER", "Faker#KR1")
	t.Setenv("LOL_REGION", "kr")
}

func TestLoadDefaults(t *testing.T) {
	setBase(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CheckInterval != 150*time.Second || cfg.ActiveInterval != time.Minute || cfg.ActiveStep != 30*time.Second {
		t.Errorf("intervals = %s/%s/%s", cfg.CheckInterval, cfg.ActiveInterval, cfg.ActiveStep)
	}
	if cfg.HungThreshold != 30*time.Minute || cfg.AliveInterval != 6*time.Hour {
		t.Errorf("hung=%s alive=%s", cfg.HungThreshold, cfg.AliveInterval)
	}
	if cfg.RecentMatches != 10 || cfg.DedupCapacity != 500 {
		t.Errorf("recent=%d dedup=%d", cfg.RecentMatches, cfg.DedupCapacity)
	}
	if cfg.StatusNotifications || !cfg.ErrorNotifications || cfg.ForbiddenNotifications {
		t.Errorf("toggles = %t/%t/%t", cfg.StatusNotifications, cfg.ErrorNotifications, cfg.ForbiddenNotifications)
	}
	if cfg.EmailProvider != ProviderMock {
		t.Errorf("EmailProvider = %q", cfg.EmailProvider)
	}
}

func TestLoadOverrides(t *testing.T) {
	setBase(t)
	t.Setenv("CHECK_INTERVAL", "5m")
	t.Setenv("ACTIVE_CHECK_INTERVAL", "45")
	t.Setenv("STATUS_NOTIFICATIONS", "true")
	t.Setenv("RECENT_MATCHES", "20")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CheckInterval != 5*time.Minute {
		t.Errorf("CheckInterval = %s", cfg.CheckInterval)
	}
	if cfg.ActiveInterval != 45*time.Second {
		t.Errorf("ActiveInterval = %s, want bare numbers read as seconds", cfg.ActiveInterval)
	}
	if !cfg.StatusNotifications || cfg.RecentMatches != 20 {
		t.Errorf("status=%t recent=%d", cfg.StatusNotifications, cfg.RecentMatches)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing key", map[string]string{"RIOT_API_KEY": ""}, "RIOT_API_KEY"},
		{"player without tag", map[string]string{"LOL_PLAYER": "Faker"}, "name#tag"},
		{"unknown region", map[string]string{"LOL_REGION": "moon1"}, "LOL_REGION"},
		{"bad duration", map[string]string{"CHECK_INTERVAL": "soon"}, "CHECK_INTERVAL"},
		{"bad bool", map[string]string{"ERROR_NOTIFICATIONS": "maybe"}, "ERROR_NOTIFICATIONS"},
		{"zero active interval", map[string]string{"ACTIVE_CHECK_INTERVAL": "0s"}, "must be positive"},
		{"brevo without key", map[string]string{"EMAIL_TO": "me@example.com", "EMAIL_PROVIDER": "brevo"}, "BREVO_API_KEY"},
		{"smtp without host", map[string]string{"EMAIL_TO": "me@example.com", "EMAIL_PROVIDER": "smtp", "EMAIL_FROM": "a@b.c"}, "SMTP_HOST"},
		{"dedup capacity equal to window", map[string]string{"RECENT_MATCHES": "10", "DEDUP_CAPACITY": "10"}, "DEDUP_CAPACITY"},
		{"negative dedup capacity", map[string]string{"DEDUP_CAPACITY": "-1"}, "DEDUP_CAPACITY"},
		{"unknown provider", map[string]string{"EMAIL_TO": "me@example.com", "EMAIL_PROVIDER": "pigeon"}, "EMAIL_PROVIDER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBase(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestRedactedHidesSecrets(t *testing.T) {
	cfg := &Config{
		APIKey:            "RGAPI-secret",
		Player:            "Faker#KR1",
		DiscordWebhookURL: "https://discord.com/api/webhooks/1/token",
		CSVBucket:         "bucket",
		CSVObject:         "m.csv",
	}
	got := cfg.Redacted()
	for _, secret := range []string{"RGAPI-secret", "token"} {
		if strings.Contains(got, secret) {
			t.Errorf("Redacted() leaks %q: %s", secret, got)
		}
	}
	if !strings.Contains(got, "gs://bucket/m.csv") || !strings.Contains(got, "apiKey=[set]") {
		t.Errorf("Redacted() = %s", got)
	}
}

func TestLoadAcceptsUnboundedDedup(t *testing.T) {
	setBase(t)
	t.Setenv("DEDUP_CAPACITY", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DedupCapacity != 0 {
		t.Errorf("DedupCapacity = %d, want 0", cfg.DedupCapacity)
	}
}
