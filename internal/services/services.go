package services

import (
	"context"

	"github.com/desertthunder/ytsync/internal/models"
)

// Fetcher reads playlists from the remote source.
type Fetcher interface {
	// ExtractID derives the playlist id from a locator. It is a pure function of the locator.
	ExtractID(locator string) string

	// FetchMetadata returns the playlist title and item count, or [models.UnknownMetadata] on failure.
	FetchMetadata(ctx context.Context, locator string) models.PlaylistMetadata

	// FetchItems lists the playlist's current items.
	FetchItems(ctx context.Context, locator string) FetchResult

	// AuthConfigured reports whether credentialed access is enabled.
	AuthConfigured() bool
}

// FetchResult carries fetched items together with the raw diagnostic output of the fetch.
type FetchResult struct {
	Items      []models.RemoteVideo
	Diagnostic string
	OK         bool
}

// Downloader materializes items locally.
type Downloader interface {
	// Download stores the item under dir and reports whether it succeeded.
	Download(ctx context.Context, video models.Video, dir string) bool
}

// Prober checks that an external tool can be run.
type Prober interface {
	Available(ctx context.Context) bool
	Version(ctx context.Context) (string, error)
}
