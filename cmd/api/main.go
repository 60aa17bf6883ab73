package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/healthwatch/internal/config"
	"github.com/hamed0406/healthwatch/internal/health"
	"github.com/hamed0406/healthwatch/internal/history"
	"github.com/hamed0406/healthwatch/internal/httpapi"
	"github.com/hamed0406/healthwatch/internal/logging"
	"github.com/hamed0406/healthwatch/internal/notify"
	"github.com/hamed0406/healthwatch/internal/probe"
	"github.com/hamed0406/healthwatch/internal/registry"
	"github.com/hamed0406/healthwatch/internal/repo"
	"github.com/hamed0406/healthwatch/internal/repo/memory"
	"github.com/hamed0406/healthwatch/internal/repo/postgres"
	"github.com/hamed0406/healthwatch/internal/repo/sqlite"
	"github.com/hamed0406/healthwatch/internal/scheduler"
)

func main() {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel, cfg.LogToStd)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store_open_failed", zap.Error(err))
	}
	defer store.Close()

	checker := buildChecker(cfg, logger)
	hist := history.New(history.Options{MaxRecords: cfg.HistoryMaxRecords, MaxAge: cfg.HistoryMaxAge})
	reg := registry.New(store)
	hub := httpapi.NewHub(logger)

	alerter := scheduler.NewAlerter(logger, buildChannels(cfg, logger), scheduler.AlerterConfig{Cooldown: cfg.AlertCooldown})
	sched := scheduler.New(scheduler.Deps{
		Logger:     logger,
		Registry:   reg,
		Checker:    checker,
		Classifier: health.NewClassifier(cfg.SlowThresholdMS),
		History:    hist,
		Persist:    store,
		Alerter:    alerter,
		Sink:       hub,
	}, scheduler.Config{
		Timeout:    cfg.HTTPTimeout,
		WindowSize: cfg.RollingWindow,
		SeedLimit:  cfg.HistoryMaxRecords,
		SeedMaxAge: cfg.HistoryMaxAge,
	})

	if err := sched.Start(ctx); err != nil {
		logger.Fatal("scheduler_start_failed", zap.Error(err))
	}
	logger.Info("monitoring_started", zap.Int("targets", len(reg.List())), zap.Int("active", len(reg.ListActive())))

	api := httpapi.NewServer(logger, sched, reg, hist, store, hub, httpapi.Options{
		DefaultInterval: cfg.DefaultInterval,
		PurgeOnDelete:   cfg.PurgeHistoryOnDelete,
		AllowedOrigins:  cfg.AllowedOrigins,
		PublicRPM:       cfg.PublicRPM,
		PublicBurst:     cfg.PublicBurst,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown_requested")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_listen_failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown_failed", zap.Error(err))
	}
	hub.Close()
	sched.Stop()
	logger.Info("shutdown_complete")
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.Store, error) {
	switch {
	case cfg.DatabaseURL != "":
		s, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		logger.Info("store_selected", zap.String("kind", "postgres"))
		return s, nil
	case cfg.SQLitePath != "":
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("store_selected", zap.String("kind", "sqlite"), zap.String("path", cfg.SQLitePath))
		return s, nil
	default:
		logger.Warn("store_selected", zap.String("kind", "memory"))
		return memory.New(memory.WithMaxRecords(cfg.HistoryMaxRecords), memory.WithMaxAge(cfg.HistoryMaxAge)), nil
	}
}

func buildChecker(cfg config.Config, logger *zap.Logger) probe.Checker {
	var overrides map[string]map[string]string
	if cfg.HeaderOverridesFile != "" {
		o, err := probe.LoadHeaderOverrides(cfg.HeaderOverridesFile)
		if err != nil {
			logger.Warn("header_overrides_failed", zap.String("path", cfg.HeaderOverridesFile), zap.Error(err))
		} else {
			overrides = o
		}
	}
	var c probe.Checker = probe.NewHTTPChecker(cfg.HTTPTimeout, probe.NewHeaderTable(overrides))
	if cfg.DNSDiagnose {
		c = probe.NewDNSDiagnoser(c, net.DefaultResolver, logger)
	}
	return c
}

// buildChannels only wraps notifiers that are configured; the constructors
// return nil pointers otherwise and those must not reach an interface.
func buildChannels(cfg config.Config, logger *zap.Logger) []notify.Channel {
	var channels []notify.Channel
	if s := notify.NewSlack(cfg.SlackWebhookURL); s != nil {
		channels = append(channels, notify.NewChannel("chat", s))
	}

	var email notify.Multi
	if m := notify.NewMail(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		To:       cfg.SMTP.To,
	}); m != nil {
		email = append(email, m)
	}
	if b := notify.NewBrevo(cfg.BrevoAPIKey, cfg.BrevoFrom, cfg.BrevoTo); b != nil {
		email = append(email, b)
	}
	if len(email) > 0 {
		channels = append(channels, notify.NewChannel("email", email))
	}

	names := make([]string, 0, len(channels))
	for _, c := range channels {
		names = append(names, c.Name())
	}
	logger.Info("alert_channels", zap.Strings("channels", names))
	return channels
}
