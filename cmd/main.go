package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	app := newApp(NewRunner(RunnerOpts{Logger: logger}))

	if err := app.Run(context.Background(), os.Args); err != nil {
		if rae, ok := shared.AsRestrictedAccess(err); ok {
			logger.Error("playlist is not accessible", "url", rae.PlaylistURL)
			os.Exit(2)
		}
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "ytsync",
		Usage:   "Keep local audio copies of YouTube playlists in sync",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("YTSYNC_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level (debug, info, warn, error)",
			},
		},
		Before:   r.Before,
		After:    r.After,
		Commands: r.register(),
	}
}
