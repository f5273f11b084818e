package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/lrstanley/go-ytdlp"
	"golang.org/x/time/rate"
)

// runFunc executes a prepared yt-dlp command with trailing args, usually a single url.
type runFunc func(ctx context.Context, cmd *ytdlp.Command, args ...string) (*ytdlp.Result, error)

func runCommand(ctx context.Context, cmd *ytdlp.Command, args ...string) (*ytdlp.Result, error) {
	return cmd.Run(ctx, args...)
}

// ytdlpBase holds settings shared by the fetcher and the downloader.
type ytdlpBase struct {
	path           string
	cookiesEnabled bool
	cookiesBrowser string
	logger         *log.Logger
	run            runFunc
}

func newBase(cfg shared.YtDlpConfig, logger *log.Logger, component string) ytdlpBase {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	path := cfg.Path
	if path == "" {
		path = "yt-dlp"
	}
	return ytdlpBase{
		path:           path,
		cookiesEnabled: cfg.CookiesEnabled,
		cookiesBrowser: cfg.CookiesBrowser,
		logger:         shared.WithLogger(logger, "component", component),
		run:            runCommand,
	}
}

func (b ytdlpBase) command() *ytdlp.Command {
	cmd := ytdlp.New().SetExecutable(b.path)
	if b.cookiesEnabled && b.cookiesBrowser != "" {
		cmd = cmd.CookiesFromBrowser(b.cookiesBrowser)
	}
	return cmd
}

// YtDlpFetcher implements [Fetcher] by running yt-dlp.
type YtDlpFetcher struct {
	ytdlpBase
	limiter *rate.Limiter
}

// NewYtDlpFetcher creates a fetcher throttled to cfg.RequestsPerSecond invocations (unlimited when 0).
func NewYtDlpFetcher(cfg shared.YtDlpConfig, logger *log.Logger) *YtDlpFetcher {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &YtDlpFetcher{
		ytdlpBase: newBase(cfg, logger, "fetcher"),
		limiter:   rate.NewLimiter(limit, 1),
	}
}

func (f *YtDlpFetcher) ExtractID(locator string) string {
	return ExtractPlaylistID(locator)
}

func (f *YtDlpFetcher) AuthConfigured() bool {
	return f.cookiesEnabled
}

// FetchMetadata reads the playlist title and count from the first flat entry.
func (f *YtDlpFetcher) FetchMetadata(ctx context.Context, locator string) models.PlaylistMetadata {
	id := f.ExtractID(locator)
	unknown := models.UnknownMetadata(id)

	if err := f.limiter.Wait(ctx); err != nil {
		return unknown
	}

	res, err := f.run(ctx, f.command().FlatPlaylist().DumpJSON().PlaylistItems("1"), locator)
	if err != nil {
		f.logger.Warn("failed to fetch playlist metadata", "locator", locator, "error", err, "stderr", stderrOf(res))
		return unknown
	}

	entries := parseEntries(stdoutOf(res), f.logger)
	if len(entries) == 0 {
		return unknown
	}

	first := entries[0]
	meta := models.PlaylistMetadata{ID: id, Title: first.PlaylistTitle, VideoCount: first.playlistCount()}
	if meta.Title == "" {
		meta.Title = models.UnknownTitle
	}
	return meta
}

// FetchItems lists every entry of the playlist. Entries decoded before a failure are still returned.
func (f *YtDlpFetcher) FetchItems(ctx context.Context, locator string) FetchResult {
	if err := f.limiter.Wait(ctx); err != nil {
		return FetchResult{Diagnostic: err.Error()}
	}

	res, err := f.run(ctx, f.command().FlatPlaylist().DumpJSON(), locator)
	diagnostic := stderrOf(res)

	var items []models.RemoteVideo
	for _, e := range parseEntries(stdoutOf(res), f.logger) {
		items = append(items, e.toRemote())
	}

	if err != nil {
		f.logger.Debug("yt-dlp exited with error", "locator", locator, "error", err)
		return FetchResult{Items: items, Diagnostic: strings.TrimSpace(diagnostic + "\n" + err.Error()), OK: false}
	}
	return FetchResult{Items: items, Diagnostic: diagnostic, OK: true}
}

// YtDlpDownloader implements [Downloader] and [Prober] by running yt-dlp.
type YtDlpDownloader struct {
	ytdlpBase
	audioFormat  string
	audioQuality string
}

// NewYtDlpDownloader creates a downloader extracting audio in the configured format and quality.
func NewYtDlpDownloader(cfg shared.YtDlpConfig, download shared.DownloadConfig, logger *log.Logger) *YtDlpDownloader {
	return &YtDlpDownloader{
		ytdlpBase:    newBase(cfg, logger, "downloader"),
		audioFormat:  download.AudioFormat,
		audioQuality: download.AudioQuality,
	}
}

// Download extracts the audio of video into dir as "<title>.<ext>".
func (d *YtDlpDownloader) Download(ctx context.Context, video models.Video, dir string) bool {
	if err := os.MkdirAll(dir, 0755); err != nil {
		d.logger.Error("failed to create download directory", "dir", dir, "error", err)
		return false
	}

	cmd := d.command().
		ExtractAudio().
		AudioFormat(d.audioFormat).
		AudioQuality(d.audioQuality).
		NoPlaylist().
		Output(filepath.Join(dir, "%(title)s.%(ext)s")).
		NoMtime().
		EmbedThumbnail().
		EmbedMetadata()

	started := time.Now()
	res, err := d.run(ctx, cmd, video.URL())
	if err != nil {
		d.logger.Warn("download failed", "video_id", video.ID(), "error", err, "stderr", LastLine(stderrOf(res)))
		return false
	}

	d.logger.Info("downloaded", "video_id", video.ID(), "title", video.Title(), "elapsed", time.Since(started).Round(time.Millisecond))
	return true
}

func (d *YtDlpDownloader) Available(ctx context.Context) bool {
	_, err := d.Version(ctx)
	return err == nil
}

// Version runs "yt-dlp --version".
func (d *YtDlpDownloader) Version(ctx context.Context) (string, error) {
	res, err := d.run(ctx, d.command(), "--version")
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", shared.ErrToolUnavailable, d.path, err)
	}
	return strings.TrimSpace(stdoutOf(res)), nil
}

// flatEntry is one line of "--flat-playlist --dump-json" output.
type flatEntry struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	WebpageURL    string   `json:"webpage_url"`
	UploadDate    string   `json:"upload_date"`
	Timestamp     *float64 `json:"timestamp"`
	PlaylistTitle string   `json:"playlist_title"`
	PlaylistCount *int     `json:"playlist_count"`
	NEntries      *int     `json:"n_entries"`
}

func (e flatEntry) playlistCount() int {
	switch {
	case e.PlaylistCount != nil:
		return *e.PlaylistCount
	case e.NEntries != nil:
		return *e.NEntries
	}
	return 0
}

func (e flatEntry) toRemote() models.RemoteVideo {
	url := e.URL
	if !strings.HasPrefix(url, "http") {
		url = e.WebpageURL
	}
	if url == "" {
		url = VideoURL(e.ID)
	}
	return models.RemoteVideo{ID: e.ID, Title: e.Title, URL: url, PublishedAt: e.publishedAt()}
}

// publishedAt prefers upload_date (YYYYMMDD) and falls back to the unix timestamp.
func (e flatEntry) publishedAt() *time.Time {
	if e.UploadDate != "" {
		if t, err := time.Parse("20060102", e.UploadDate); err == nil {
			return &t
		}
	}
	if e.Timestamp != nil {
		sec, frac := math.Modf(*e.Timestamp)
		t := time.Unix(int64(sec), int64(frac*1e9)).UTC()
		return &t
	}
	return nil
}

// parseEntries decodes JSON lines, skipping lines that are not entries.
func parseEntries(stdout string, logger *log.Logger) []flatEntry {
	var entries []flatEntry
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}

		var e flatEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			logger.Debug("skipping unparseable entry", "error", err)
			continue
		}
		if e.ID == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

func stdoutOf(res *ytdlp.Result) string {
	if res == nil {
		return ""
	}
	return res.Stdout
}

func stderrOf(res *ytdlp.Result) string {
	if res == nil {
		return ""
	}
	return res.Stderr
}

// LastLine returns the final non-blank line of s, which for yt-dlp output is usually the error.
func LastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
