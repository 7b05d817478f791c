package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/lalds/AntigravityManager/internal/buildinfo"
	"github.com/lalds/AntigravityManager/internal/cli"
	"github.com/lalds/AntigravityManager/internal/config"
	"github.com/lalds/AntigravityManager/internal/flagx"
	"github.com/lalds/AntigravityManager/internal/logging"
)

func main() {
	args := flagx.Positional(os.Args[1:])
	if len(args) == 0 {
		buildinfo.PrintBuildData(os.Stdout)
	}

	level := slog.LevelWarn
	if os.Getenv("AGM_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := cli.NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	if err := app.Run(ctx, args); err != nil {
		log.Fatalf("%v", err)
	}
}
