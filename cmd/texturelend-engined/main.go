package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"texturelend/config"
	"texturelend/daemon"
	"texturelend/observability/logging"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./texturelend-engined.toml", "path to the engine daemon's config file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.Setup("texturelend-engined", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := daemon.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("build engine: %v", err)
	}
	defer func() {
		if err := d.Close(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	logger.Info("texturelend-engined listening", slog.String("addr", cfg.ListenAddress), slog.String("data_dir", cfg.DataDir))
	if err := d.ListenAndServe(ctx); err != nil && !strings.Contains(err.Error(), "closed") {
		logger.Error("serve failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("texturelend-engined shut down")
}
