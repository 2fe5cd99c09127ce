package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"pnl_dashboard/backfill"
	"pnl_dashboard/config"
	"pnl_dashboard/internal/store"
	"pnl_dashboard/logger"
)

func main() {
	log := logger.GetLogger().WithComponent("import")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("config load failed")
		os.Exit(1)
	}
	dir := flag.String("dir", cfg.SnapshotDir, "directory of <tab>.csv snapshots")
	dbPath := flag.String("db", cfg.DBPath, "sqlite database to import into")
	limit := flag.Int("limit", 0, "import at most this many files, newest first (0 = all)")
	flag.Parse()

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.WithError(err).Error("ensure db dir failed")
		os.Exit(1)
	}
	st, err := store.Open(*dbPath)
	if err != nil {
		log.WithError(err).Error("open store failed")
		os.Exit(1)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	summary, err := backfill.Run(ctx, backfill.NewSnapshots(*dir, st, cfg.Tables), *limit)
	if err != nil {
		log.WithError(err).Error("import failed")
		st.Close()
		os.Exit(1)
	}
	_ = json.NewEncoder(os.Stdout).Encode(summary)
	if summary.Failed > 0 {
		st.Close()
		os.Exit(2)
	}
}
