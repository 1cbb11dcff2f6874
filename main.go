package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"erbgo/internal/cli"
	"erbgo/internal/common/logging"
	"erbgo/internal/config"
)

func main() {
	// A missing .env is fine
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	closeLog, err := logging.InitGlobalLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}

	err = cli.Execute(context.Background(), cfg, os.Args[1:])
	_ = closeLog()
	if err != nil {
		os.Exit(1)
	}
}
