// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/ytsync/internal/formatter"
	"github.com/desertthunder/ytsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// setupCommand prepares config, directories and storage
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file, data directories and database",
		Action: r.Setup,
	}
}

// playlistCommand handles tracked playlists
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Manage tracked playlists",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Start tracking a playlist",
				ArgsUsage: "<url>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "url"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AddPlaylist,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List tracked playlists",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.ListPlaylists,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Stop tracking a playlist and forget its items",
				ArgsUsage: "<id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.RemovePlaylist,
			},
			{
				Name:      "stats",
				Usage:     "Show download counts for a playlist",
				ArgsUsage: "<id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PlaylistStats,
			},
			{
				Name:      "export",
				Usage:     "Export a playlist and its items",
				ArgsUsage: "<id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (json, yaml, csv, markdown, txt)",
						Value:   string(formatter.JSON),
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path; prints to stdout when empty",
					},
				},
				Action: r.ExportPlaylist,
			},
			{
				Name:  "export-all",
				Usage: "Export playlists concurrently into a directory",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"d"},
						Usage:   "Output directory (default ytsync_export_<timestamp>)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (json, yaml, csv, markdown, txt)",
						Value:   string(formatter.JSON),
					},
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Number of concurrent export workers",
						Value:   tasks.DefaultExportWorkers,
					},
					&cli.StringSliceFlag{
						Name:  "id",
						Usage: "Playlist ID to export (repeatable, default all)",
					},
				},
				Action: r.ExportAll,
			},
		},
	}
}

// syncCommand runs a sync in the foreground
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Fetch new items and download pending ones",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "id",
				Usage: "Sync a single playlist instead of all of them",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the result as JSON instead of progress",
			},
		},
		Action: r.Sync,
	}
}

// daemonCommand runs the scheduler and HTTP API
func daemonCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "daemon",
		Usage: "Sync on a schedule and serve the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default from [server] config)",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Override the sync interval",
			},
			&cli.BoolFlag{
				Name:  "no-metrics",
				Usage: "Do not expose /metrics",
			},
		},
		Action: r.Daemon,
	}
}

// statusCommand queries a running daemon
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the scheduler state of a running daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Daemon address (default from [server] config)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}

// doctorCommand checks the local environment
func doctorCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "doctor",
		Usage:  "Check yt-dlp and the configured paths",
		Action: r.Doctor,
	}
}
