package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/flowbot/goradar/internal/engine"
	"github.com/flowbot/goradar/internal/health"
	"github.com/flowbot/goradar/internal/notify"
	"github.com/flowbot/goradar/internal/snapshot"
	"github.com/flowbot/goradar/pkg/config"
	"github.com/flowbot/goradar/pkg/logger"
	"github.com/flowbot/goradar/pkg/shutdown"
	"github.com/flowbot/goradar/pkg/telegram"
)

func main() {
	configPath := flag.String("config", "", "config file path (.yaml)")
	flag.Parse()

	// .env is optional; deployment platforms inject variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
		Compress:   true,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	logrus.Info("🚀 starting flow radar")

	// Liveness first, so orchestration health checks pass while the engine
	// warms up or reconnects.
	health.Start(cfg.HealthAddr)

	var notifier notify.Notifier = notify.NopNotifier{}
	var tg *telegram.Client
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != "" {
		tg = telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.ChatID)
		notifier = notify.NewTelegramNotifier(tg, 30*time.Second)
	} else {
		logrus.Warn("telegram credentials missing, notifications disabled")
	}

	snaps, err := snapshot.Open(cfg.SnapshotPath)
	if err != nil {
		// Persistence failure degrades to a memory-only engine.
		logrus.Errorf("snapshot store unavailable: %v", err)
		snaps = nil
	}

	eng := engine.New(cfg, notifier, snaps)
	if snaps != nil {
		if st, err := snaps.Load(); err != nil {
			logrus.Errorf("snapshot load failed, starting fresh: %v", err)
		} else {
			eng.Restore(st)
		}
	}
	if tg != nil {
		eng.SetCommandClient(tg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := shutdown.NewManager()
	mgr.OnShutdown(func(ctx context.Context) {
		eng.SaveSnapshot()
		if snaps != nil {
			if err := snaps.Close(); err != nil {
				logrus.Errorf("snapshot store close: %v", err)
			}
		}
	})

	go eng.Run(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logrus.Info("signal received, shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	mgr.Shutdown(shutdownCtx)
}
