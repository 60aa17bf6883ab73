// cmd/preflight/main.go
package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/hamed0406/healthwatch/internal/config"
	"github.com/hamed0406/healthwatch/internal/probe"
)

func main() {
	failed := false
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		failed = true
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		for _, line := range strings.Split(err.Error(), "; ") {
			fail(line)
		}
	}
	ok("API_ADDR=" + cfg.Addr)

	switch {
	case cfg.DatabaseURL != "":
		if u, err := url.Parse(cfg.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			fail("DATABASE_URL is not a postgres:// URL.")
		} else {
			ok("DATABASE_URL present (host " + u.Host + ")")
		}
		if cfg.SQLitePath != "" {
			warn("SQLITE_PATH is ignored because DATABASE_URL is set.")
		}
	case cfg.SQLitePath != "":
		ok("SQLITE_PATH=" + cfg.SQLitePath)
	default:
		warn("No DATABASE_URL or SQLITE_PATH: targets and history live in memory only.")
	}

	if cfg.HeaderOverridesFile != "" {
		if o, err := probe.LoadHeaderOverrides(cfg.HeaderOverridesFile); err != nil {
			fail("HEADER_OVERRIDES_FILE: " + err.Error())
		} else {
			ok(fmt.Sprintf("header overrides for %d hosts", len(o)))
		}
	}

	channels := 0
	if cfg.SlackWebhookURL != "" {
		ok("Slack alerts enabled")
		channels++
	}
	if cfg.SMTP.Host != "" {
		if cfg.SMTP.To == "" {
			fail("SMTP_HOST set but SMTP_TO is empty.")
		} else {
			ok("SMTP alerts enabled via " + cfg.SMTP.Host)
			channels++
		}
	}
	if cfg.BrevoAPIKey != "" {
		if cfg.BrevoFrom == "" || cfg.BrevoTo == "" {
			fail("BREVO_API_KEY set but BREVO_FROM or BREVO_TO is empty.")
		} else {
			ok("Brevo alerts enabled")
			channels++
		}
	}
	if channels == 0 {
		warn("No alert channels configured; transitions are only logged.")
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		warn("ALLOWED_ORIGINS is * (any origin may call the API).")
	} else {
		ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
	}

	if failed {
		os.Exit(1)
	}
	ok("preflight passed")
}
