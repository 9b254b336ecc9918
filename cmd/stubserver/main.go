package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/ocrdesk/internal/buildinfo"
	"github.com/dmitrijs2005/ocrdesk/internal/logging"
	"github.com/dmitrijs2005/ocrdesk/internal/stubserver"
	"github.com/dmitrijs2005/ocrdesk/internal/stubserver/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stdout, cfg.LogLevel, logging.FormatJSON)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app, err := stubserver.NewApp(cfg, logger)
	if err != nil {
		logger.Error(context.Background(), "init failed", "error", err)
		os.Exit(1)
	}

	if err := app.Run(context.Background()); err != nil {
		logger.Error(context.Background(), "server stopped", "error", err)
		os.Exit(1)
	}
}
