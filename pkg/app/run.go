// Package app provides the shared entry point for the obgram binary.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flemzord/obgram/internal/bus"
	"github.com/flemzord/obgram/internal/config"
	"github.com/flemzord/obgram/internal/cron"
	"github.com/flemzord/obgram/internal/gateway"
	"github.com/flemzord/obgram/internal/security"
	"github.com/flemzord/obgram/internal/store"
	"github.com/flemzord/obgram/internal/telegram"
	"github.com/flemzord/obgram/internal/telemetry"
	"github.com/flemzord/obgram/pkg/onebot"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is the path to the YAML configuration file.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string
}

// Run loads configuration, wires the adapter, and blocks until a shutdown
// signal is received.
func Run(params RunParams) error {
	cfg, err := config.Load(params.ConfigPath)
	if err != nil {
		return err
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	// Wrap the text handler in a redacting handler so the bot token never
	// reaches log output, even inside transport error strings.
	redactor := security.NewRedactor()
	redactor.AddLiteral(cfg.Telegram.Token)
	innerHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(security.NewRedactingHandler(innerHandler, redactor))
	slog.SetDefault(logger)

	logger.Info("obgram starting",
		"version", params.Version,
		"commit", params.Commit,
		"mode", cfg.Telegram.Mode,
	)

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.OTLPEndpoint, "obgram")
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("trace shutdown failed", "error", err)
		}
	}()

	var db *store.Store
	if cfg.Store.Path != "" {
		db, err = store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		logger.Info("store opened", "path", cfg.Store.Path)
	}

	client := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.APIURL)
	converter := telegram.NewConverter(client.FileURL)

	// Identify the bot so converted events carry the correct self id.
	me, err := client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram: getMe failed: %w", err)
	}
	if id, ok := me["id"].(float64); ok {
		converter.SetSelfUserID(fmt.Sprintf("%.0f", id))
	}
	if username, ok := me["username"].(string); ok {
		logger.Info("authenticated", "bot", "@"+username)
	}

	eventBus := bus.New()
	hub := bus.NewHub(eventBus, logger)
	defer hub.Close()

	if db != nil {
		eventBus.Subscribe(func(ev *onebot.Event) {
			if err := db.AppendEvent(ctx, ev); err != nil {
				logger.Warn("audit append failed", "event_id", ev.ID, "error", err)
			}
		})
	}

	gw := gateway.New(cfg.Gateway.Listen, logger)
	gw.MountEvents(hub)

	var poller *telegram.Poller
	switch cfg.Telegram.Mode {
	case "webhook":
		handler := telegram.NewWebhookHandler(converter, eventBus.Publish, cfg.Telegram.WebhookSecret, logger)
		gw.MountWebhook(handler)
		if err := client.SetWebhook(ctx, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret, cfg.Telegram.AllowedUpdates); err != nil {
			return err
		}
		defer func() {
			if err := client.DeleteWebhook(context.Background()); err != nil {
				logger.Warn("deleting webhook failed", "error", err)
			}
		}()
	default:
		// Polling mode must not compete with a stale webhook registration.
		if err := client.DeleteWebhook(ctx); err != nil {
			logger.Warn("clearing webhook before polling failed", "error", err)
		}
		var offsets telegram.OffsetStore
		if db != nil {
			offsets = db
		}
		poller = telegram.NewPoller(client, converter, eventBus.Publish, offsets, logger, cfg.Telegram)
	}

	if err := gw.Start(); err != nil {
		return err
	}

	scheduler := cron.NewScheduler(logger)
	if db != nil && cfg.Store.RetentionDays > 0 {
		job := &cron.AuditPurgeJob{
			Store:     db,
			Retention: time.Duration(cfg.Store.RetentionDays) * 24 * time.Hour,
			Logger:    logger,
		}
		if err := scheduler.RegisterJob(job); err != nil {
			return err
		}
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer func() { _ = scheduler.Stop(context.Background()) }()
	}

	if poller != nil {
		poller.Start()
		logger.Info("polling started", "timeout", cfg.Telegram.PollingTimeout)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	if poller != nil {
		poller.Stop()
	}
	if err := gw.Stop(context.Background()); err != nil {
		logger.Warn("gateway stop failed", "error", err)
	}

	return nil
}
