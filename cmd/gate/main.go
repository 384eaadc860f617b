package main

import (
	"context"
	"log"
	"os"

	"github.com/catermarket/caterauth/internal/logging"
	"github.com/catermarket/caterauth/internal/server"
	"github.com/catermarket/caterauth/internal/server/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.New(cfg.LogLevel, os.Stdout)
	app, err := server.NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		logger.Error(context.Background(), "gate stopped", "error", err)
		os.Exit(1)
	}
}
