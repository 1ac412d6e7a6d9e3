package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"permitnorm/internal/config"
	"permitnorm/internal/listener"
	"permitnorm/internal/logging"
	"permitnorm/internal/runner"
	"permitnorm/internal/storage"
	"permitnorm/internal/vocab"
)

func main() {
	cfg, err := config.Load()
	must(err)

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	must(err)
	defer func() { _ = logger.Sync() }()

	set, err := vocab.Load(cfg.VocabPath)
	must(err)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	svc := listener.NewService(db, cfg, runner.New(cfg, db, set, logger), logger)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("intake listener started",
		zap.String("provider", cfg.IntakeProvider),
		zap.String("label", cfg.IntakeLabel),
		zap.Int("interval_sec", cfg.IntakeIntervalSec))
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
