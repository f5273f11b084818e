// Package services defines the remote collaborators of the sync engine and implements them on yt-dlp.
//
// # Collaborators
//
// A [Fetcher] resolves a playlist locator into a stable id, best-effort metadata and the current list of items.
// Fetching items never returns an error value: failures are reported through [FetchResult.OK] and the raw
// diagnostic text so the engine can tell an empty playlist from a restricted one.
//
// A [Downloader] materializes a single item into a destination directory and reports success as a bool.
// [Prober] exposes availability and version checks used by the CLI and the health endpoint.
//
// # yt-dlp Implementations
//
// [YtDlpFetcher] lists playlists with "--flat-playlist --dump-json" and reads metadata from the first entry only.
// Invocations are throttled with a [rate.Limiter]. [YtDlpDownloader] extracts audio with thumbnail and metadata
// embedded. Both pass "--cookies-from-browser" when cookies are enabled in [shared.YtDlpConfig].
//
// Playlist ids come from [ExtractPlaylistID]: the "list=" query value when present, else a hash of the locator.
package services
