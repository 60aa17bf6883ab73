package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
)

type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

type Config struct {
	Addr     string // API bind address, e.g., "127.0.0.1:8080" (Windows) or ":8080" (Docker)
	LogDir   string
	LogLevel string
	LogToStd bool // mirror logs to stderr

	DatabaseURL string // postgres://...; wins over SQLitePath
	SQLitePath  string // empty with no DatabaseURL means in-memory

	HTTPTimeout     time.Duration
	SlowThresholdMS float64
	RollingWindow   int
	AlertCooldown   time.Duration
	DefaultInterval int // seconds

	HistoryMaxRecords int
	HistoryMaxAge     time.Duration // 0 keeps records until MaxRecords evicts them

	HeaderOverridesFile string
	DNSDiagnose         bool

	SlackWebhookURL string
	SMTP            SMTP
	BrevoAPIKey     string
	BrevoFrom       string
	BrevoTo         string

	PublicRPM      int
	PublicBurst    int
	AllowedOrigins []string

	PurgeHistoryOnDelete bool
}

func FromEnv() Config {
	return Config{
		Addr:     envString("API_ADDR", "127.0.0.1:8080"),
		LogDir:   envString("LOG_DIR", "logs"),
		LogLevel: envString("LOG_LEVEL", "info"),
		LogToStd: envBool("LOG_STDERR", false),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  os.Getenv("SQLITE_PATH"),

		HTTPTimeout:     envMillis("HTTP_TIMEOUT_MS", 5000),
		SlowThresholdMS: float64(envInt("SLOW_THRESHOLD_MS", 1000)),
		RollingWindow:   envInt("ROLLING_WINDOW", 5),
		AlertCooldown:   envMillis("ALERT_COOLDOWN_MS", 5000),
		DefaultInterval: envInt("DEFAULT_INTERVAL_SEC", 5),

		HistoryMaxRecords: envInt("HISTORY_MAX_RECORDS", 5000),
		HistoryMaxAge:     envDuration("HISTORY_MAX_AGE", 0),

		HeaderOverridesFile: os.Getenv("HEADER_OVERRIDES_FILE"),
		DNSDiagnose:         envBool("DNS_DIAGNOSE", true),

		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		SMTP: SMTP{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
			To:       os.Getenv("SMTP_TO"),
		},
		BrevoAPIKey: os.Getenv("BREVO_API_KEY"),
		BrevoFrom:   os.Getenv("BREVO_FROM"),
		BrevoTo:     os.Getenv("BREVO_TO"),

		PublicRPM:      envInt("PUBLIC_RPM", 600),
		PublicBurst:    envInt("PUBLIC_BURST", 60),
		AllowedOrigins: envList("ALLOWED_ORIGINS", []string{"*"}),

		PurgeHistoryOnDelete: envBool("PURGE_HISTORY_ON_DELETE", true),
	}
}

// Validate reports every setting that cannot be used, not just the first.
func (c Config) Validate() error {
	var err error
	if c.Addr == "" {
		err = multierr.Append(err, errors.New("API_ADDR is empty"))
	}
	if c.HTTPTimeout <= 0 {
		err = multierr.Append(err, errors.New("HTTP_TIMEOUT_MS must be positive"))
	}
	if c.SlowThresholdMS <= 0 {
		err = multierr.Append(err, errors.New("SLOW_THRESHOLD_MS must be positive"))
	}
	if c.RollingWindow < 1 {
		err = multierr.Append(err, errors.New("ROLLING_WINDOW must be at least 1"))
	}
	if c.AlertCooldown < 0 {
		err = multierr.Append(err, errors.New("ALERT_COOLDOWN_MS must not be negative"))
	}
	if c.DefaultInterval < 1 {
		err = multierr.Append(err, errors.New("DEFAULT_INTERVAL_SEC must be at least 1"))
	}
	if c.HistoryMaxRecords < 1 {
		err = multierr.Append(err, errors.New("HISTORY_MAX_RECORDS must be at least 1"))
	}
	if c.SMTP.Host != "" && (c.SMTP.Port < 1 || c.SMTP.Port > 65535) {
		err = multierr.Append(err, fmt.Errorf("SMTP_PORT %d out of range", c.SMTP.Port))
	}
	return err
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt falls back to def on a missing or malformed value.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func envMillis(key string, def int) time.Duration {
	return time.Duration(envInt(key, def)) * time.Millisecond
}

// envDuration accepts Go durations ("72h") or plain seconds.
func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
