package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"campus-eats/internal/backendsim"
	"campus-eats/internal/config"
	"campus-eats/internal/console"
	"campus-eats/internal/logger"

	"go.uber.org/zap"
)

func main() {
	mode := flag.String("mode", "", "vendor-console | backend-sim")
	configPath := flag.String("config", "config.yml", "path to YAML config")
	port := flag.Int("port", 0, "http port")
	vendor := flag.String("vendor", "", "vendor-console: actor id of the vendor session")
	flag.Parse()

	logger.Init(os.Getenv("APP_ENV"))
	defer logger.Sync()
	log := logger.L()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("config load failed", zap.Error(err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "vendor-console":
		if *vendor == "" {
			fmt.Fprintln(os.Stderr, "--vendor is required for vendor-console")
			os.Exit(2)
		}
		if err := cfg.ValidateConsole(); err != nil {
			log.Error("invalid config", zap.Error(err))
			os.Exit(1)
		}
		if *port == 0 {
			*port = 3001
		}
		if err := console.Run(ctx, cfg, *port, *vendor); err != nil {
			log.Error("fatal", zap.Error(err))
			os.Exit(1)
		}
	case "backend-sim":
		if err := cfg.ValidateSim(); err != nil {
			log.Error("invalid config", zap.Error(err))
			os.Exit(1)
		}
		if *port == 0 {
			*port = 3000
		}
		if err := backendsim.Run(ctx, cfg, *port); err != nil {
			log.Error("fatal", zap.Error(err))
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "--mode is required: vendor-console | backend-sim")
		os.Exit(2)
	}
}
