package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/ytsync/internal/formatter"
	"github.com/desertthunder/ytsync/internal/shared"
)

const (
	DefaultExportWorkers = 4
	MaxExportWorkers     = 10
	manifestName         = "export_manifest.json"
)

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     formatter.Format // Export format (default: json)
	OutputDir  string           // Base output directory (default: ytsync_export_{epoch})
	NumWorkers int              // Concurrent workers (default: 4, max: 10)
}

// PlaylistExportResult is the outcome of exporting one playlist.
type PlaylistExportResult struct {
	PlaylistID string
	Title      string
	File       string
	Error      error
}

// BulkExportResult summarizes a bulk export.
type BulkExportResult struct {
	TotalPlaylists    int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []PlaylistExportResult
}

// ExportPlaylists writes one export file per playlist using a bounded worker pool, then a manifest.
//
// An empty ids slice exports every stored playlist. Playlists that fail are recorded in the result
// and the manifest; the remaining ones are still exported.
func (e *PlaylistEngine) ExportPlaylists(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	ids []string,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.JSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("ytsync_export_%d", e.now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = DefaultExportWorkers
	}
	if opts.NumWorkers > MaxExportWorkers {
		opts.NumWorkers = MaxExportWorkers
	}

	if len(ids) == 0 {
		playlists, err := e.ListPlaylists()
		if err != nil {
			return nil, err
		}
		for _, p := range playlists {
			ids = append(ids, p.ID())
		}
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalPlaylists:  len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, len(ids)),
	}

	jobs := make(chan string, len(ids))
	results := make(chan PlaylistExportResult, len(ids))

	names := &exportNames{used: make(map[string]bool)}

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, names, opts)
	}

	for _, id := range ids {
		jobs <- id
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Error == nil {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.Title, res.File))
		} else {
			result.FailedExports++
			e.logger.Warn("playlist export failed", "playlist", res.PlaylistID, "error", res.Error)
			e.sendProgress(prog, exportFailedUpdate(completed, len(ids), res.Title, res.Error))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, manifestName)
	if err := formatter.WriteManifest(e.manifest(result, opts.Format), manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, ctx.Err()
}

// exportWorker exports playlists from the jobs channel until it closes. Jobs left after
// cancellation are reported as failed so every id gets a result.
func (e *PlaylistEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan string,
	results chan<- PlaylistExportResult,
	names *exportNames,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for id := range jobs {
		if err := ctx.Err(); err != nil {
			results <- PlaylistExportResult{PlaylistID: id, Title: id, Error: err}
			continue
		}
		results <- e.exportSinglePlaylist(id, names, opts)
	}
}

// ExportPlaylist builds the export of one stored playlist.
func (e *PlaylistEngine) ExportPlaylist(id string) (formatter.PlaylistExport, error) {
	p, found, err := e.playlists.FindByID(id)
	if err != nil {
		return formatter.PlaylistExport{}, fmt.Errorf("failed to look up playlist %s: %w", id, err)
	}
	if !found {
		return formatter.PlaylistExport{}, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}

	videos, err := e.videos.FindByPlaylist(id)
	if err != nil {
		return formatter.PlaylistExport{}, fmt.Errorf("failed to list videos of %s: %w", id, err)
	}
	return formatter.NewPlaylistExport(p, videos), nil
}

func (e *PlaylistEngine) exportSinglePlaylist(id string, names *exportNames, opts BulkExportOpts) PlaylistExportResult {
	result := PlaylistExportResult{PlaylistID: id, Title: id}

	export, err := e.ExportPlaylist(id)
	if err != nil {
		result.Error = err
		return result
	}
	result.Title = export.Playlist.DisplayTitle()

	name := names.claim(formatter.FileName(export.Playlist, opts.Format, e.asciiPaths), export.Playlist.ID())
	file, err := formatter.WriteExport(export, opts.Format, filepath.Join(opts.OutputDir, name))
	if err != nil {
		result.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		return result
	}
	result.File = file
	return result
}

func (e *PlaylistEngine) manifest(result *BulkExportResult, format formatter.Format) formatter.Manifest {
	m := formatter.Manifest{
		ExportedAt: e.now().UTC().Truncate(time.Second),
		Format:     format,
		Total:      result.TotalPlaylists,
		Succeeded:  result.SuccessfulExports,
		Failed:     result.FailedExports,
		Entries:    make([]formatter.ManifestEntry, 0, len(result.Results)),
	}
	for _, r := range result.Results {
		entry := formatter.ManifestEntry{
			PlaylistID: r.PlaylistID,
			Title:      r.Title,
			Success:    r.Error == nil,
		}
		if r.File != "" {
			entry.File = filepath.Base(r.File)
		}
		if r.Error != nil {
			entry.Error = r.Error.Error()
		}
		m.Entries = append(m.Entries, entry)
	}
	return m
}

// exportNames hands out file names so playlists sharing a sanitized title do not overwrite each other.
type exportNames struct {
	mu   sync.Mutex
	used map[string]bool
}

func (n *exportNames) claim(name, id string) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.used[name] {
		ext := filepath.Ext(name)
		name = fmt.Sprintf("%s-%s%s", strings.TrimSuffix(name, ext), id, ext)
	}
	n.used[name] = true
	return name
}
