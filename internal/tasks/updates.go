package tasks

import (
	"fmt"

	"github.com/desertthunder/ytsync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or HTTP layer for display.
type ProgressUpdate struct {
	Phase      Phase  // Operation phase
	PlaylistID string // Playlist the update is about, empty for run-level updates
	Step       int    // Current step number within phase
	Total      int    // Total steps in this phase
	Message    string // Human-readable message for display
	Data       any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	Resolve Phase = iota
	Fetch
	Persist
	Download
	Finalize
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case Resolve:
		return "resolve"
	case Fetch:
		return "fetch"
	case Persist:
		return "persist"
	case Download:
		return "download"
	case Finalize:
		return "finalize"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

func resolveUpdate(step, total int, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:      Resolve,
		PlaylistID: id,
		Step:       step,
		Total:      total,
		Message:    fmt.Sprintf("[%d/%d] Resolving playlist %s...", step, total, id),
	}
}

func fetchUpdate(p models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:      Fetch,
		PlaylistID: p.ID(),
		Step:       1,
		Total:      1,
		Message:    fmt.Sprintf("Fetching items of %s...", p.DisplayTitle()),
	}
}

func fetchedUpdate(p models.Playlist, outcome FetchOutcome, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:      Fetch,
		PlaylistID: p.ID(),
		Step:       1,
		Total:      1,
		Message:    fmt.Sprintf("Fetched %d items (%s)", count, outcome),
		Data:       outcome,
	}
}

func newItemUpdate(p models.Playlist, step, total int, v models.Video) ProgressUpdate {
	return ProgressUpdate{
		Phase:      Persist,
		PlaylistID: p.ID(),
		Step:       step,
		Total:      total,
		Message:    fmt.Sprintf("+ %s", v.Title()),
		Data:       v,
	}
}

func downloadUpdate(p models.Playlist, step, total int, v models.Video, ok bool) ProgressUpdate {
	mark := "✓"
	if !ok {
		mark = "✗"
	}
	return ProgressUpdate{
		Phase:      Download,
		PlaylistID: p.ID(),
		Step:       step,
		Total:      total,
		Message:    fmt.Sprintf("[%d/%d] %s %s", step, total, mark, v.Title()),
		Data:       v,
	}
}

func finalizeUpdate(p models.Playlist, res models.SyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:      Finalize,
		PlaylistID: p.ID(),
		Step:       1,
		Total:      1,
		Message:    fmt.Sprintf("%s: %d new, %d downloaded (%s)", p.DisplayTitle(), res.NewItems, res.Downloaded, res.Message),
		Data:       res,
	}
}

func exportCompletedUpdate(step, total int, name string, file string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s -> %s", step, total, name, file),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
