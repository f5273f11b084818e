package main

import (
	"context"

	"github.com/desertthunder/ytsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Sync runs one playlist with --id, otherwise every tracked playlist, printing progress as it goes.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Engine()
	if err != nil {
		return err
	}

	asJSON := cmd.Bool("json")
	var progress chan tasks.ProgressUpdate
	done := make(chan struct{})
	if asJSON {
		close(done)
	} else {
		progress = make(chan tasks.ProgressUpdate, 64)
		go r.drainProgress(progress, done)
	}
	finish := func() {
		if progress != nil {
			close(progress)
		}
		<-done
	}

	if id := cmd.String("id"); id != "" {
		res, err := engine.SyncPlaylist(ctx, id, progress)
		finish()
		if err != nil {
			r.restrictedHint(err)
			return err
		}
		if asJSON {
			return r.writeJSON(res, true)
		}
		ok := res.Message == tasks.MessageOK
		r.writePlainln("%s %s: %d new, %d downloaded", r.palette.Check(ok, res.Message), id, res.NewItems, res.Downloaded)
		return nil
	}

	res, err := engine.SyncAllPlaylists(ctx, progress)
	finish()
	if err != nil {
		return err
	}
	if asJSON {
		return r.writeJSON(res, true)
	}

	r.writePlainHeader("Sync complete")
	r.writePlain("Run:        %s\n", res.RunID)
	r.writePlain("Playlists:  %d\n", res.Playlists)
	r.writePlain("New items:  %d\n", res.NewItems)
	r.writePlain("Downloaded: %d\n", res.Downloaded)
	for _, f := range res.Failures {
		r.writePlain("%s %s: %s\n", r.palette.Err("✗"), f.PlaylistID, f.Message)
	}
	return nil
}
