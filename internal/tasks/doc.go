// Package tasks runs playlist sync operations with real-time progress reporting.
//
// # Core Operations
//
// The [SyncEngine] interface defines the playlist lifecycle:
//
//  1. [SyncEngine.AddPlaylist] : Start tracking a playlist
//     - Derives a stable id from the locator
//     - Returns the stored playlist unchanged when already tracked
//     - Stores title and item count from the fetcher's metadata
//
//  2. [SyncEngine.SyncPlaylist] : Bring one playlist up to date
//     - Resolve: unknown ids report "not found"
//     - Fetch: the listing is classified by [Classify]; restricted playlists return
//     a [shared.RestrictedAccessError] without touching the stores
//     - Persist: unseen items are stored as pending; known items keep their first fields
//     - Download: pending items are downloaded one at a time in store order
//     - Finalize: the playlist records the fetched count and sync time
//
//  3. [SyncEngine.SyncAllPlaylists] : Sync every playlist, isolating failures per playlist
//
//  4. [SyncEngine.RemovePlaylist] : Delete a playlist's items, then the playlist
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default so a slow reader never stalls a sync.
//
// # Scheduling
//
// [Scheduler] fires [PlaylistEngine.SyncAllPlaylists] after a warm-up delay and then at a fixed rate.
// A manual sync may overlap a scheduled one; the engine does not exclude them.
//
// # Implementation
//
// [PlaylistEngine] implements [SyncEngine] with dependencies on:
//   - [models.PlaylistStore] and [models.VideoStore] : snapshot or SQLite stores
//   - [services.Fetcher] : lists playlists and their items
//   - [services.Downloader] : materializes items locally
//   - [Recorder] : optional metrics sink
package tasks
