package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"pulseboard/internal/app"
	"pulseboard/internal/config"
	"pulseboard/internal/logging"
)

func main() {
	_ = godotenv.Load()

	mode := flag.String("mode", "all", "run mode: all (fetch + render), fetch, render, serve")
	configDir := flag.String("config", "", "directory holding metrics.yaml and feeds.yaml (default: config)")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		logging.New("info").Error("load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx := context.Background()

	switch *mode {
	case "all":
		err = application.Refresh(ctx)
	case "fetch":
		err = application.Fetch(ctx)
	case "render":
		err = application.Render(ctx)
	case "serve":
		err = application.Serve()
	default:
		logger.Error("unknown mode", "mode", *mode)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("run failed", "mode", *mode, "error", err)
		os.Exit(1)
	}
}
