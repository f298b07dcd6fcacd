// Package config reads monitor settings from the environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"lol-monitor/riot"
)

// Email providers.
const (
	ProviderGmail = "gmail"
	ProviderBrevo = "brevo"
	ProviderSMTP  = "smtp"
	ProviderMock  = "mock"
)

// Config is the full runtime configuration.
type Config struct {
	APIKey string
	Player string // name#tag
	Region string // platform id, e.g. eun1

	CheckInterval  time.Duration
	ActiveInterval time.Duration
	ActiveStep     time.Duration
	AliveInterval  time.Duration
	HungThreshold  time.Duration
	CallTimeout    time.Duration
	RecentMatches  int
	DedupCapacity  int

	StatusNotifications    bool
	ErrorNotifications     bool
	ForbiddenNotifications bool

	// Email is disabled when EmailTo is empty.
	EmailProvider     string
	EmailTo           string
	EmailFrom         string
	BrevoAPIKey       string
	GoogleCredentials string
	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPassword      string

	DiscordWebhookURL string

	// CSVFile wins over CSVBucket when both are set.
	CSVFile   string
	CSVBucket string
	CSVObject string

	ControlPort string
	LogFile     string
	LogLevel    string
}

// Load reads the environment. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	p := &parser{}
	cfg := &Config{
		APIKey: os.Getenv("RIOT_API_KEY"),
		Player: strings.TrimSpace(os.Getenv("LOL_PLAYER")),
		Region: firstNonEmpty(os.Getenv("LOL_REGION"), "eun1"),

		CheckInterval:  p.duration("CHECK_INTERVAL", 150*time.Second),
		ActiveInterval: p.duration("ACTIVE_CHECK_INTERVAL", 60*time.Second),
		ActiveStep:     p.duration("ACTIVE_CHECK_STEP", 30*time.Second),
		AliveInterval:  p.duration("ALIVE_INTERVAL", 6*time.Hour),
		HungThreshold:  p.duration("HUNG_THRESHOLD", 30*time.Minute),
		CallTimeout:    p.duration("CALL_TIMEOUT", 30*time.Second),
		RecentMatches:  p.integer("RECENT_MATCHES", 10),
		DedupCapacity:  p.integer("DEDUP_CAPACITY", 500),

		StatusNotifications:    p.boolean("STATUS_NOTIFICATIONS", false),
		ErrorNotifications:     p.boolean("ERROR_NOTIFICATIONS", true),
		ForbiddenNotifications: p.boolean("FORBIDDEN_NOTIFICATIONS", false),

		EmailProvider:     strings.ToLower(firstNonEmpty(os.Getenv("EMAIL_PROVIDER"), ProviderMock)),
		EmailTo:           os.Getenv("EMAIL_TO"),
		EmailFrom:         os.Getenv("EMAIL_FROM"),
		BrevoAPIKey:       os.Getenv("BREVO_API_KEY"),
		GoogleCredentials: os.Getenv("GOOGLE_CREDENTIALS_JSON"),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          p.integer("SMTP_PORT", 587),
		SMTPUser:          os.Getenv("SMTP_USER"),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),

		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),

		CSVFile:   os.Getenv("CSV_FILE"),
		CSVBucket: os.Getenv("CSV_BUCKET"),
		CSVObject: firstNonEmpty(os.Getenv("CSV_OBJECT"), "lol-monitor/matches.csv"),

		ControlPort: os.Getenv("CONTROL_PORT"),
		LogFile:     os.Getenv("LOG_FILE"),
		LogLevel:    firstNonEmpty(os.Getenv("LOG_LEVEL"), "info"),
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("missing RIOT_API_KEY")
	}
	name, tag, ok := strings.Cut(c.Player, "#")
	if !ok || name == "" || tag == "" {
		return fmt.Errorf("LOL_PLAYER must be name#tag, got %q", c.Player)
	}
	if riot.NormalizePlatform(c.Region) == "" {
		return fmt.Errorf("unknown LOL_REGION %q", c.Region)
	}
	if c.CheckInterval <= 0 || c.ActiveInterval <= 0 {
		return errors.New("CHECK_INTERVAL and ACTIVE_CHECK_INTERVAL must be positive")
	}
	if c.ActiveStep <= 0 {
		return errors.New("ACTIVE_CHECK_STEP must be positive")
	}
	if c.RecentMatches < 1 || c.RecentMatches > 100 {
		return fmt.Errorf("RECENT_MATCHES must be between 1 and 100, got %d", c.RecentMatches)
	}
	// 0 keeps every id; a bounded set needs room for the window plus the matches it displaces.
	if c.DedupCapacity < 0 || (c.DedupCapacity > 0 && c.DedupCapacity < 2*c.RecentMatches) {
		return fmt.Errorf("DEDUP_CAPACITY must be 0 or at least twice RECENT_MATCHES (%d), got %d", c.RecentMatches, c.DedupCapacity)
	}

	if c.EmailTo == "" {
		return nil
	}
	switch c.EmailProvider {
	case ProviderMock:
	case ProviderGmail:
	case ProviderBrevo:
		if c.BrevoAPIKey == "" || c.EmailFrom == "" {
			return errors.New("brevo email needs BREVO_API_KEY and EMAIL_FROM")
		}
	case ProviderSMTP:
		if c.SMTPHost == "" || c.EmailFrom == "" {
			return errors.New("smtp email needs SMTP_HOST and EMAIL_FROM")
		}
	default:
		return fmt.Errorf("unknown EMAIL_PROVIDER %q", c.EmailProvider)
	}
	return nil
}

// Redacted describes the configuration without secrets, for the startup log.
func (c *Config) Redacted() string {
	return fmt.Sprintf(
		"player=%q region=%s check=%s active=%s step=%s status=%t errors=%t forbidden=%t email=%s to=%q discord=%s csv=%s control=%q apiKey=%s",
		c.Player, c.Region, c.CheckInterval, c.ActiveInterval, c.ActiveStep,
		c.StatusNotifications, c.ErrorNotifications, c.ForbiddenNotifications,
		c.EmailProvider, c.EmailTo, setOrEmpty(c.DiscordWebhookURL), c.csvLocation(), c.ControlPort, setOrEmpty(c.APIKey),
	)
}

func (c *Config) csvLocation() string {
	switch {
	case c.CSVFile != "":
		return c.CSVFile
	case c.CSVBucket != "":
		return "gs://" + c.CSVBucket + "/" + c.CSVObject
	default:
		return "[off]"
	}
}

func setOrEmpty(s string) string {
	if s == "" {
		return "[empty]"
	}
	return "[set]"
}

func firstNonEmpty(v, d string) string {
	if v == "" {
		return d
	}
	return v
}

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" || p.err != nil {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Bare numbers are seconds.
		n, nerr := strconv.Atoi(v)
		if nerr != nil {
			p.err = fmt.Errorf("%s: %w", key, err)
			return def
		}
		return time.Duration(n) * time.Second
	}
	return d
}

func (p *parser) integer(key string, def int) int {
	v := os.Getenv(key)
	if v == "" || p.err != nil {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", key, err)
		return def
	}
	return n
}

func (p *parser) boolean(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" || p.err != nil {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", key, err)
		return def
	}
	return b
}
