package main

import (
	"context"
	"log"
	"os"

	"github.com/catermarket/caterauth/internal/client/cli"
	"github.com/catermarket/caterauth/internal/client/config"
	"github.com/catermarket/caterauth/internal/logging"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx := context.Background()
	logger := logging.New(cfg.LogLevel, os.Stderr).With("profile", cfg.Profile)

	app, closeFn, err := cli.Bootstrap(ctx, cfg, logger, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.Warn(ctx, "close resources", "error", err)
		}
	}()

	app.Run(ctx)
}
