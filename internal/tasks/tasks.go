package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/services"
	"github.com/desertthunder/ytsync/internal/shared"
)

// SyncResult messages.
const (
	MessageOK       = "ok"
	MessageNotFound = "not found"
)

// SyncEngine defines the playlist operations shared by the CLI, the scheduler and the HTTP server.
type SyncEngine interface {
	// AddPlaylist starts tracking the playlist behind url. Adding a tracked playlist returns it unchanged.
	AddPlaylist(ctx context.Context, url string) (models.Playlist, error)

	// RemovePlaylist deletes a playlist and every item belonging to it.
	RemovePlaylist(id string) error

	// SyncPlaylist fetches new items for one playlist and downloads everything pending.
	SyncPlaylist(ctx context.Context, id string, progress chan<- ProgressUpdate) (models.SyncResult, error)

	// SyncAllPlaylists syncs every stored playlist, isolating failures per playlist.
	SyncAllPlaylists(ctx context.Context, progress chan<- ProgressUpdate) (models.SyncAllResult, error)

	// ListPlaylists returns stored playlists in store enumeration order.
	ListPlaylists() ([]models.Playlist, error)

	// PlaylistStats counts a playlist's items by download state.
	PlaylistStats(id string) (models.PlaylistStats, error)
}

// AllSyncer is the part of [SyncEngine] the [Scheduler] drives.
type AllSyncer interface {
	SyncAllPlaylists(ctx context.Context, progress chan<- ProgressUpdate) (models.SyncAllResult, error)
}

// EngineOpts configures a [PlaylistEngine]. Logger, Recorder and Now default when nil.
type EngineOpts struct {
	Playlists   models.PlaylistStore
	Videos      models.VideoStore
	Fetcher     services.Fetcher
	Downloader  services.Downloader
	DownloadDir string
	ASCIIPaths  bool
	Logger      *log.Logger
	Recorder    Recorder
	Now         func() time.Time
}

// PlaylistEngine implements [SyncEngine] over a pair of stores and the remote collaborators.
//
// It holds no lock across a sync: overlapping syncs of the same playlist may both download a pending item.
// Only the read-then-write of a single item or playlist is serialized, so a downloaded item never reverts.
type PlaylistEngine struct {
	writeMu sync.Mutex

	playlists   models.PlaylistStore
	videos      models.VideoStore
	fetcher     services.Fetcher
	downloader  services.Downloader
	downloadDir string
	asciiPaths  bool
	logger      *log.Logger
	recorder    Recorder
	now         func() time.Time
}

// NewPlaylistEngine creates a new PlaylistEngine.
func NewPlaylistEngine(opts EngineOpts) *PlaylistEngine {
	e := &PlaylistEngine{
		playlists:   opts.Playlists,
		videos:      opts.Videos,
		fetcher:     opts.Fetcher,
		downloader:  opts.Downloader,
		downloadDir: opts.DownloadDir,
		asciiPaths:  opts.ASCIIPaths,
		logger:      opts.Logger,
		recorder:    opts.Recorder,
		now:         opts.Now,
	}
	if e.logger == nil {
		e.logger = shared.NewLogger(nil)
	}
	if e.recorder == nil {
		e.recorder = nopRecorder{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// sendProgress sends a progress update through the channel without blocking.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// AddPlaylist derives the playlist id from url and persists a new playlist built from its metadata.
//
// A playlist whose metadata comes back unknown is probed once more by listing its items; if that
// listing is classified as restricted, a [shared.RestrictedAccessError] is returned and nothing is stored.
func (e *PlaylistEngine) AddPlaylist(ctx context.Context, url string) (models.Playlist, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return models.Playlist{}, fmt.Errorf("%w: playlist url", shared.ErrMissingArgument)
	}

	id := e.fetcher.ExtractID(url)
	existing, found, err := e.playlists.FindByID(id)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("failed to look up playlist %s: %w", id, err)
	}
	if found {
		e.logger.Debug("playlist already tracked", "id", id)
		return existing, nil
	}

	meta := e.fetcher.FetchMetadata(ctx, url)
	if meta.Empty() && meta.Title == models.UnknownTitle {
		probe := e.fetcher.FetchItems(ctx, url)
		if Classify(probe.Diagnostic, len(probe.Items), probe.OK) == FetchRestricted {
			e.recorder.ObserveFetch(FetchRestricted)
			return models.Playlist{}, e.restricted(url, meta.VideoCount)
		}
	}

	p, err := models.NewPlaylist(id, url, meta.Title, meta.VideoCount)
	if err != nil {
		return models.Playlist{}, err
	}
	if err := e.save(e.playlists.Save(p)); err != nil {
		return models.Playlist{}, fmt.Errorf("failed to save playlist %s: %w", id, err)
	}
	e.logger.Info("playlist added", "id", id, "title", p.DisplayTitle(), "videos", p.VideoCount())
	return p, nil
}

// RemovePlaylist deletes the playlist's items first, then the playlist. Absent ids are a no-op.
//
// It holds the write lock throughout, so a sync running concurrently cannot add items to a removed playlist.
func (e *PlaylistEngine) RemovePlaylist(id string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	exists, err := e.playlists.Exists(id)
	if err != nil {
		return fmt.Errorf("failed to look up playlist %s: %w", id, err)
	}
	if !exists {
		return nil
	}

	removed, err := e.videos.DeleteByPlaylist(id)
	if err := e.save(err); err != nil {
		return fmt.Errorf("failed to delete videos of %s: %w", id, err)
	}
	if err := e.save(e.playlists.Delete(id)); err != nil {
		return fmt.Errorf("failed to delete playlist %s: %w", id, err)
	}
	e.logger.Info("playlist removed", "id", id, "videos", removed)
	return nil
}

// SyncPlaylist runs resolve, fetch, persist, download and finalize for one playlist.
//
// An unknown id is reported as a "not found" result rather than an error.
func (e *PlaylistEngine) SyncPlaylist(ctx context.Context, id string, progress chan<- ProgressUpdate) (models.SyncResult, error) {
	started := e.now()
	res, err := e.syncPlaylist(ctx, id, progress)
	e.recorder.ObserveSync(e.now().Sub(started), res.Message)
	return res, err
}

func (e *PlaylistEngine) syncPlaylist(ctx context.Context, id string, progress chan<- ProgressUpdate) (models.SyncResult, error) {
	logger := shared.WithLogger(e.logger, "playlist", id)

	e.sendProgress(progress, resolveUpdate(1, 1, id))
	p, found, err := e.playlists.FindByID(id)
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("failed to look up playlist %s: %w", id, err)
	}
	if !found {
		logger.Warn("playlist not found")
		return models.SyncResult{Message: MessageNotFound}, nil
	}

	e.sendProgress(progress, fetchUpdate(p))
	fetched := e.fetcher.FetchItems(ctx, p.URL())
	outcome := Classify(fetched.Diagnostic, len(fetched.Items), fetched.OK)

	var hint int
	if outcome == FetchEmpty {
		meta := e.fetcher.FetchMetadata(ctx, p.URL())
		hint = meta.VideoCount
		if meta.Empty() {
			outcome = FetchRestricted
		}
	} else if outcome == FetchRestricted {
		hint = e.fetcher.FetchMetadata(ctx, p.URL()).VideoCount
	}
	e.recorder.ObserveFetch(outcome)
	e.sendProgress(progress, fetchedUpdate(p, outcome, len(fetched.Items)))

	if outcome == FetchRestricted {
		logger.Warn("playlist is restricted", "hint", hint, "auth", e.fetcher.AuthConfigured())
		return models.SyncResult{}, e.restricted(p.URL(), hint)
	}

	items := fetched.Items
	if outcome == FetchTransportError {
		logger.Warn("fetch failed, treating as zero items", "diagnostic", services.LastLine(fetched.Diagnostic))
		items = nil
	}

	newItems, err := e.persistNew(p, items, progress)
	if err != nil {
		return models.SyncResult{NewItems: newItems}, err
	}
	e.recorder.ObserveNewItems(newItems)

	downloaded, err := e.downloadPending(ctx, p, progress)
	if err != nil {
		return models.SyncResult{NewItems: newItems, Downloaded: downloaded}, err
	}

	res := models.SyncResult{NewItems: newItems, Downloaded: downloaded, Message: MessageOK}
	if err := e.finalize(p, len(items)); err != nil {
		return res, err
	}

	e.sendProgress(progress, finalizeUpdate(p, res))
	logger.Info("playlist synced", "new", newItems, "downloaded", downloaded, "outcome", outcome)
	return res, nil
}

// persistNew stores every fetched item whose id is not yet known. Known items keep their stored fields.
func (e *PlaylistEngine) persistNew(p models.Playlist, items []models.RemoteVideo, progress chan<- ProgressUpdate) (int, error) {
	added := 0
	for i, item := range items {
		v, err := item.ToVideo(p.ID())
		if err != nil {
			e.logger.Warn("skipping invalid item", "playlist", p.ID(), "id", item.ID, "error", err)
			continue
		}

		created, err := e.insertVideo(v)
		if err != nil {
			return added, err
		}
		if created {
			added++
			e.sendProgress(progress, newItemUpdate(p, i+1, len(items), v))
		}
	}
	return added, nil
}

func (e *PlaylistEngine) insertVideo(v models.Video) (bool, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	tracked, err := e.playlists.Exists(v.PlaylistID())
	if err != nil {
		return false, fmt.Errorf("failed to look up playlist %s: %w", v.PlaylistID(), err)
	}
	if !tracked {
		return false, nil
	}

	exists, err := e.videos.Exists(v.ID())
	if err != nil {
		return false, fmt.Errorf("failed to look up video %s: %w", v.ID(), err)
	}
	if exists {
		return false, nil
	}
	if err := e.save(e.videos.Save(v)); err != nil {
		return false, fmt.Errorf("failed to save video %s: %w", v.ID(), err)
	}
	return true, nil
}

// downloadPending attempts every not-downloaded item of p in store order, one at a time.
func (e *PlaylistEngine) downloadPending(ctx context.Context, p models.Playlist, progress chan<- ProgressUpdate) (int, error) {
	pending, err := e.videos.FindNotDownloadedByPlaylist(p.ID())
	if err != nil {
		return 0, fmt.Errorf("failed to list pending videos of %s: %w", p.ID(), err)
	}

	dir := e.DestinationDir(p)
	downloaded := 0
	for i, v := range pending {
		tracked, err := e.playlists.Exists(p.ID())
		if err != nil {
			return downloaded, fmt.Errorf("failed to look up playlist %s: %w", p.ID(), err)
		}
		if !tracked {
			e.logger.Info("playlist removed during sync, skipping remaining downloads", "playlist", p.ID())
			break
		}

		ok := e.downloader.Download(ctx, v, dir)
		e.recorder.ObserveDownload(ok)
		e.sendProgress(progress, downloadUpdate(p, i+1, len(pending), v, ok))
		if !ok {
			e.logger.Warn("download failed, will retry next sync", "playlist", p.ID(), "video", v.ID())
			continue
		}

		marked, err := e.markDownloaded(v.ID())
		if err != nil {
			return downloaded, err
		}
		if marked {
			downloaded++
		}
	}
	return downloaded, nil
}

// markDownloaded re-reads the item so a concurrent sync that already marked it, or a remove that
// deleted it together with its playlist, wins.
func (e *PlaylistEngine) markDownloaded(id string) (bool, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	current, found, err := e.videos.FindByID(id)
	if err != nil {
		return false, fmt.Errorf("failed to look up video %s: %w", id, err)
	}
	if !found || current.Downloaded() {
		return false, nil
	}
	if err := e.save(e.videos.Save(current.MarkDownloaded(e.now()))); err != nil {
		return false, fmt.Errorf("failed to save video %s: %w", id, err)
	}
	return true, nil
}

// finalize records the sync on the stored playlist unless it was removed while syncing.
func (e *PlaylistEngine) finalize(p models.Playlist, count int) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	current, found, err := e.playlists.FindByID(p.ID())
	if err != nil {
		return fmt.Errorf("failed to look up playlist %s: %w", p.ID(), err)
	}
	if !found {
		e.logger.Debug("playlist removed during sync", "playlist", p.ID())
		return nil
	}
	if err := e.save(e.playlists.Save(current.WithSync(e.now(), count))); err != nil {
		return fmt.Errorf("failed to save playlist %s: %w", p.ID(), err)
	}
	return nil
}

// SyncAllPlaylists syncs every stored playlist in order. A failing or panicking playlist is
// recorded in the result and the loop moves on.
func (e *PlaylistEngine) SyncAllPlaylists(ctx context.Context, progress chan<- ProgressUpdate) (models.SyncAllResult, error) {
	runID := shared.GenerateID()
	logger := shared.WithLogger(e.logger, "run", runID)
	started := e.now()

	playlists, err := e.playlists.FindAll()
	if err != nil {
		return models.SyncAllResult{RunID: runID}, fmt.Errorf("failed to list playlists: %w", err)
	}

	result := models.SyncAllResult{RunID: runID, Playlists: len(playlists)}
	logger.Info("sync run started", "playlists", len(playlists))
	for i, p := range playlists {
		e.sendProgress(progress, resolveUpdate(i+1, len(playlists), p.ID()))

		res, err := e.safeSync(ctx, p.ID(), progress)
		result.NewItems += res.NewItems
		result.Downloaded += res.Downloaded
		if err != nil {
			logger.Error("playlist sync failed", "playlist", p.ID(), "error", err)
			result.Failures = append(result.Failures, models.SyncFailure{
				PlaylistID: p.ID(),
				Message:    err.Error(),
				Err:        err,
			})
		}
	}

	e.recorder.ObserveRun(started, len(playlists), len(result.Failures))
	logger.Info("sync run finished",
		"new", result.NewItems, "downloaded", result.Downloaded, "failures", len(result.Failures),
		"elapsed", e.now().Sub(started).Round(time.Millisecond))
	return result, nil
}

func (e *PlaylistEngine) safeSync(ctx context.Context, id string, progress chan<- ProgressUpdate) (res models.SyncResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync of %s panicked: %v", id, r)
		}
	}()
	return e.SyncPlaylist(ctx, id, progress)
}

// ListPlaylists returns every stored playlist.
func (e *PlaylistEngine) ListPlaylists() ([]models.Playlist, error) {
	playlists, err := e.playlists.FindAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	return playlists, nil
}

// PlaylistStats counts items by download state. An absent playlist yields zero stats.
func (e *PlaylistEngine) PlaylistStats(id string) (models.PlaylistStats, error) {
	exists, err := e.playlists.Exists(id)
	if err != nil {
		return models.PlaylistStats{}, fmt.Errorf("failed to look up playlist %s: %w", id, err)
	}
	if !exists {
		return models.PlaylistStats{}, nil
	}

	total, err := e.videos.CountByPlaylist(id)
	if err != nil {
		return models.PlaylistStats{}, fmt.Errorf("failed to count videos of %s: %w", id, err)
	}
	pending, err := e.videos.FindNotDownloadedByPlaylist(id)
	if err != nil {
		return models.PlaylistStats{}, fmt.Errorf("failed to list pending videos of %s: %w", id, err)
	}
	return models.NewPlaylistStats(total, total-len(pending)), nil
}

// DestinationDir is the download directory for p: the sanitized display title under the download
// root, or the playlist id when the title sanitizes to nothing.
func (e *PlaylistEngine) DestinationDir(p models.Playlist) string {
	name := shared.SanitizePathSegment(p.Title(), e.asciiPaths)
	if name == "" || name == models.UnknownTitle {
		name = shared.SanitizePathSegment(p.ID(), e.asciiPaths)
	}
	return filepath.Join(e.downloadDir, name)
}

func (e *PlaylistEngine) restricted(url string, hint int) error {
	return &shared.RestrictedAccessError{
		PlaylistURL:    url,
		ItemCountHint:  hint,
		AuthConfigured: e.fetcher.AuthConfigured(),
		Liked:          services.IsLikedCollection(url),
	}
}

// save logs persistence failures and swallows them: the in-memory state stays authoritative.
// Other store errors are returned.
func (e *PlaylistEngine) save(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, shared.ErrPersistence) {
		e.logger.Error("change kept in memory only", "error", err)
		return nil
	}
	return err
}
