package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/ytsync/internal/formatter"
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/server"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/desertthunder/ytsync/internal/tasks"
	"github.com/desertthunder/ytsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// AddPlaylist starts tracking the playlist at the given URL.
func (r *Runner) AddPlaylist(ctx context.Context, cmd *cli.Command) error {
	url := cmd.StringArg("url")
	if url == "" {
		return fmt.Errorf("%w: playlist url", shared.ErrMissingArgument)
	}

	engine, err := r.Engine()
	if err != nil {
		return err
	}

	p, err := engine.AddPlaylist(ctx, url)
	if err != nil {
		r.restrictedHint(err)
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(r.playlistView(engine, p), true)
	}
	r.writePlain("%s Tracking %s (%s), %d videos\n", r.palette.OK("✓"), p.DisplayTitle(), p.ID(), p.VideoCount())
	r.writePlain("%s\n", r.palette.Help("Run 'ytsync sync --id "+p.ID()+"' to download it now"))
	return nil
}

// ListPlaylists prints every tracked playlist with its download counts.
func (r *Runner) ListPlaylists(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Engine()
	if err != nil {
		return err
	}

	playlists, err := engine.ListPlaylists()
	if err != nil {
		return err
	}

	views := make([]server.PlaylistResponse, 0, len(playlists))
	for _, p := range playlists {
		views = append(views, r.playlistView(engine, p))
	}

	if cmd.Bool("json") {
		return r.writeJSON(views, cmd.Bool("pretty"))
	}

	if len(views) == 0 {
		r.writePlain("No playlists tracked yet. Add one with 'ytsync playlist add <url>'.\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Playlists (%d)", len(views)))
	for _, v := range views {
		synced := "never"
		if v.LastSyncedAt != nil {
			synced = v.LastSyncedAt.Local().Format("2006-01-02 15:04")
		}
		mark := r.palette.Check(v.Stats.Pending == 0, fmt.Sprintf("%d/%d", v.Stats.Downloaded, v.Stats.Total))
		r.writePlain("%s  %s\n", v.ID, r.palette.Title(v.Title))
		r.writePlain("    %s downloaded, last synced %s\n", mark, synced)
	}
	return nil
}

// RemovePlaylist stops tracking a playlist. Downloaded files stay on disk.
func (r *Runner) RemovePlaylist(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	engine, err := r.Engine()
	if err != nil {
		return err
	}
	if err := engine.RemovePlaylist(id); err != nil {
		return err
	}
	r.writePlain("%s Removed %s\n", r.palette.OK("✓"), id)
	return nil
}

// PlaylistStats prints total, downloaded and pending counts. Unknown ids report zeros.
func (r *Runner) PlaylistStats(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	engine, err := r.Engine()
	if err != nil {
		return err
	}
	stats, err := engine.PlaylistStats(id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}
	r.writePlainHeader(id)
	r.writePlain("Total:      %d\n", stats.Total)
	r.writePlain("Downloaded: %d\n", stats.Downloaded)
	r.writePlain("Pending:    %d\n", stats.Pending)
	r.writePlain("%s\n", ui.Bar(stats.Downloaded, stats.Total, 30))
	return nil
}

// ExportPlaylist renders one playlist to stdout or writes it to --output.
func (r *Runner) ExportPlaylist(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	engine, err := r.Engine()
	if err != nil {
		return err
	}
	export, err := engine.ExportPlaylist(id)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output == "" {
		data, err := formatter.Render(export, format)
		if err != nil {
			return err
		}
		if _, err := r.output.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	path, err := formatter.WriteExport(export, format, output)
	if err != nil {
		return err
	}
	r.writePlain("%s Exported %d videos to %s\n", r.palette.OK("✓"), len(export.Videos), path)
	return nil
}

// ExportAll exports many playlists concurrently and writes a manifest next to the files.
func (r *Runner) ExportAll(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	engine, err := r.Engine()
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 32)
	done := make(chan struct{})
	go r.drainProgress(progress, done)

	result, err := engine.ExportPlaylists(ctx, progress, cmd.StringSlice("id"), tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("dir"),
		NumWorkers: cmd.Int("workers"),
	})
	close(progress)
	<-done

	if result != nil {
		r.writePlainln("Exported %d of %d playlists to %s", result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory)
		for _, res := range result.Results {
			if res.Error != nil {
				r.writePlain("  %s %s: %v\n", r.palette.Err("✗"), res.PlaylistID, res.Error)
			}
		}
		if result.ManifestPath != "" {
			r.writePlain("Manifest: %s\n", result.ManifestPath)
		}
	}
	return err
}

func (r *Runner) playlistView(engine *tasks.PlaylistEngine, p models.Playlist) server.PlaylistResponse {
	stats, err := engine.PlaylistStats(p.ID())
	if err != nil {
		r.logger.Warn("failed to count playlist videos", "playlist", p.ID(), "error", err)
	}
	return server.PlaylistResponse{
		ID:           p.ID(),
		Title:        p.DisplayTitle(),
		URL:          p.URL(),
		VideoCount:   p.VideoCount(),
		LastSyncedAt: p.LastSyncedAt(),
		Stats:        stats,
	}
}

// restrictedHint explains how to reach a private playlist when err reports one.
func (r *Runner) restrictedHint(err error) {
	rae, ok := shared.AsRestrictedAccess(err)
	if !ok {
		return
	}
	r.writePlain("%s %s\n", r.palette.Warn("!"), rae.Error())
	if !rae.AuthConfigured {
		r.writePlain("%s\n", r.palette.Help(strings.Join([]string{
			"Set cookies_enabled = true and cookies_browser in the [ytdlp] section of your config,",
			"then sign in to YouTube in that browser.",
		}, "\n")))
	}
}
