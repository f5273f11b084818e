package models

// Entity is anything a [Store] can key by id.
type Entity interface {
	ID() string
}

// Store defines the operations shared by every entity store.
//
// Save is insert-or-replace by id and must be visible to any read that follows it.
// Delete of an unknown id is a no-op.
type Store[T Entity] interface {
	Save(entity T) error                 // Save inserts or replaces the entity
	FindByID(id string) (T, bool, error) // FindByID returns the entity and whether it was found
	FindAll() ([]T, error)               // FindAll returns every entity in enumeration order
	Delete(id string) error              // Delete removes the entity if present
	Exists(id string) (bool, error)      // Exists reports whether an entity with id is stored
}

// PlaylistStore persists [Playlist] values.
type PlaylistStore interface {
	Store[Playlist]
	FindByURL(url string) (Playlist, bool, error) // FindByURL returns the playlist tracked for a locator
}

// VideoStore persists [Video] values.
type VideoStore interface {
	Store[Video]
	FindByPlaylist(playlistID string) ([]Video, error)              // FindByPlaylist lists every item of a playlist
	FindNotDownloadedByPlaylist(playlistID string) ([]Video, error) // FindNotDownloadedByPlaylist lists pending items
	CountByPlaylist(playlistID string) (int, error)                 // CountByPlaylist counts the items of a playlist
	DeleteByPlaylist(playlistID string) (int, error)                // DeleteByPlaylist removes every item of a playlist
}

// SyncResult summarizes a single playlist sync.
type SyncResult struct {
	NewItems   int    `json:"new_items"`
	Downloaded int    `json:"downloaded"`
	Message    string `json:"message"`
}

// SyncFailure records a playlist whose sync failed during [SyncAllResult] aggregation.
type SyncFailure struct {
	PlaylistID string `json:"playlist_id"`
	Message    string `json:"error"`
	Err        error  `json:"-"`
}

// SyncAllResult aggregates one pass over every stored playlist.
type SyncAllResult struct {
	RunID      string        `json:"run_id"`
	Playlists  int           `json:"playlists"`
	NewItems   int           `json:"new_items"`
	Downloaded int           `json:"downloaded"`
	Failures   []SyncFailure `json:"failures,omitempty"`
}

// PlaylistStats counts a playlist's items by download state.
type PlaylistStats struct {
	Total      int `json:"total"`
	Downloaded int `json:"downloaded"`
	Pending    int `json:"pending"`
}

// NewPlaylistStats derives the pending count from total and downloaded.
func NewPlaylistStats(total, downloaded int) PlaylistStats {
	return PlaylistStats{Total: total, Downloaded: downloaded, Pending: total - downloaded}
}
