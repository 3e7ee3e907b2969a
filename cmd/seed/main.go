package main

import (
	"context"
	"log/slog"
	"os"

	"bestwishes/internal/config"
	"bestwishes/internal/db"
	"bestwishes/internal/seed"
	"bestwishes/pkg/logging"
)

func main() {
	logging.Setup()
	logger := slog.Default()
	cfg := config.FromEnv()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Error("connect db", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := seed.Apply(ctx, pool); err != nil {
		logger.Error("seed apply", "err", err)
		os.Exit(1)
	}

	logger.Info("seed applied")
}
