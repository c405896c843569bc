package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/desertthunder/musicvault/internal/auth"
	"github.com/desertthunder/musicvault/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	configPath := os.Getenv("MUSICVAULT_CONFIG")
	if configPath == "" {
		configPath = "config.toml"
	}
	if _, err := os.Stat(configPath); err == nil {
		if loaded, err := shared.LoadConfig(configPath); err == nil {
			config = loaded
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:     "musicvault",
		Usage:    "Keep Spotify song notes in an Obsidian vault",
		Version:  "0.1.0",
		Flags:    []cli.Flag{verboseFlag()},
		Before:   runner.before,
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		if auth.IsAuthError(err) {
			logger.Error("not signed in; run 'musicvault auth login'")
			os.Exit(1)
		}
		logger.Fatalf("application error: %v", err)
	}
}
