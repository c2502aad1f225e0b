package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"riwa-pos/internal/app"
	"riwa-pos/internal/common/config"
	"riwa-pos/internal/common/logger"
)

func main() {
	mode := flag.String("mode", "", "terminal | kds | board")
	cfgPath := flag.String("config", "", "path to YAML config (default: config.yaml if present)")
	port := flag.Int("port", 0, "http port for the local API (overrides config)")
	station := flag.String("station", "", "kds: station to show (overrides config)")
	flag.Parse()

	lg := logger.New("bootstrap")

	if *cfgPath == "" {
		p, err := config.FindConfig()
		if err != nil && !config.IsNotFound(err) {
			lg.Error("config_lookup_failed", err, nil)
			os.Exit(1)
		}
		*cfgPath = p
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		lg.Error("config_load_failed", err, map[string]any{"path": *cfgPath})
		os.Exit(1)
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}
	if *station != "" {
		cfg.KDS.Station = *station
	}
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		lg.Warn("log_level_ignored", map[string]any{"error": err.Error()})
	}
	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case app.ModeTerminal, app.ModeKDS, app.ModeBoard:
		if err := app.Run(ctx, *mode, cfg); err != nil {
			lg.Error("fatal", err, map[string]any{"mode": *mode})
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "--mode is required: terminal | kds | board")
		os.Exit(2)
	}
}
