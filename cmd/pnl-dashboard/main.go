package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pnl_dashboard/config"
	"pnl_dashboard/internal/app"
	"pnl_dashboard/logger"
)

func main() {
	log := logger.GetLogger().WithComponent("main")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("config load failed")
		os.Exit(1)
	}
	if err := logger.GetLogger().Configure(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.MaxAge); err != nil {
		log.WithError(err).Warn("logger configure failed, keeping defaults")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Error("init failed")
		os.Exit(1)
	}
	if err := application.Run(ctx); err != nil {
		log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}
