package main

import (
	"context"
	"log"
	"os"

	"github.com/pawkit/pawkit/internal/buildinfo"
	"github.com/pawkit/pawkit/internal/server"
	"github.com/pawkit/pawkit/internal/server/config"
)

func main() {
	ctx := context.Background()

	buildinfo.PrintBuildData(os.Stdout)

	cfg := config.LoadConfig()

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)
}
