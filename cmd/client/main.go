package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/pawkit/pawkit/internal/buildinfo"
	"github.com/pawkit/pawkit/internal/client/cli"
	"github.com/pawkit/pawkit/internal/client/config"
	"github.com/pawkit/pawkit/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
