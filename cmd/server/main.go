package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yahya-ubnt/IMSys-sub002/internal/alert"
	"github.com/yahya-ubnt/IMSys-sub002/internal/config"
	"github.com/yahya-ubnt/IMSys-sub002/internal/diagnostic"
	httpapi "github.com/yahya-ubnt/IMSys-sub002/internal/http"
	"github.com/yahya-ubnt/IMSys-sub002/internal/monitor"
	"github.com/yahya-ubnt/IMSys-sub002/internal/routeros"
	"github.com/yahya-ubnt/IMSys-sub002/internal/scheduler"
	"github.com/yahya-ubnt/IMSys-sub002/internal/secret"
	"github.com/yahya-ubnt/IMSys-sub002/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := os.MkdirAll(cfg.DBDir(), 0o755); err != nil {
		logger.Error("failed to create db directory", "err", err)
		os.Exit(1)
	}

	repo, err := storage.New(ctx, cfg.DBPath, logger)
	if err != nil {
		logger.Error("failed to initialize storage", "err", err)
		os.Exit(1)
	}
	defer repo.Close()

	codec := secret.NewCodec(cfg.EncryptionKey)
	if cfg.EncryptionKey == "change-me" {
		logger.Warn("IMSYS_ENCRYPTION_KEY is still the default; set a real key before storing router credentials")
	}

	hub := alert.NewHub(logger)
	mailer := alert.NewSMTPMailer(cfg.SMTP)
	notifier := alert.NewStoreNotifier(repo, hub, mailer, logger)
	alerts := alert.NewService(notifier, repo, logger)

	dial := func(ctx context.Context, roCfg routeros.Config) (monitor.Conn, error) {
		return routeros.Dial(ctx, roCfg, logger)
	}
	checker := monitor.NewChecker(dial, codec, cfg.Probe, logger)
	mon := monitor.NewService(repo, checker, alerts, logger)
	diags := diagnostic.NewService(repo, checker, mon, logger)

	sched := scheduler.New(mon, cfg.Sweep, logger)
	go func() {
		if err := sched.Run(ctx); err != nil {
			logger.Error("scheduler stopped", "err", err)
		}
	}()

	api := httpapi.New(repo, mon, diags, sched, hub, codec, logger)

	// No WriteTimeout: diagnostic runs stream over long-lived SSE responses.
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("server starting", "addr", httpServer.Addr)
	if err := httpapi.RunServer(ctx, httpServer, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server terminated with error", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
