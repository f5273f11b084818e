package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/models"
)

type playlistRecord struct {
	ID           string  `json:"id"`
	URL          string  `json:"url"`
	Title        string  `json:"title"`
	VideoCount   int     `json:"video_count"`
	LastSyncedAt *string `json:"last_synced_at"`
}

func encodePlaylist(p models.Playlist) playlistRecord {
	return playlistRecord{
		ID:           p.ID(),
		URL:          p.URL(),
		Title:        p.Title(),
		VideoCount:   p.VideoCount(),
		LastSyncedAt: formatTime(p.LastSyncedAt()),
	}
}

func decodePlaylist(r playlistRecord) (models.Playlist, error) {
	syncedAt, err := parseTime(r.LastSyncedAt)
	if err != nil {
		return models.Playlist{}, err
	}
	return models.RestorePlaylist(r.ID, r.URL, r.Title, r.VideoCount, syncedAt)
}

// PlaylistSnapshot implements [models.PlaylistStore] on a JSON snapshot file.
type PlaylistSnapshot struct {
	table *snapshotTable[models.Playlist, playlistRecord]
}

// NewPlaylistSnapshot loads the snapshot at path, or starts empty.
func NewPlaylistSnapshot(path string, logger *log.Logger) *PlaylistSnapshot {
	return &PlaylistSnapshot{table: openSnapshot(path, logger, encodePlaylist, decodePlaylist)}
}

func (s *PlaylistSnapshot) Save(p models.Playlist) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return s.table.put(p)
}

func (s *PlaylistSnapshot) FindByID(id string) (models.Playlist, bool, error) {
	p, ok := s.table.get(id)
	return p, ok, nil
}

func (s *PlaylistSnapshot) FindAll() ([]models.Playlist, error) {
	return s.table.filter(nil), nil
}

func (s *PlaylistSnapshot) Delete(id string) error {
	_, err := s.table.removeWhere(func(p models.Playlist) bool { return p.ID() == id })
	return err
}

func (s *PlaylistSnapshot) Exists(id string) (bool, error) {
	return s.table.has(id), nil
}

// FindByURL scans the table for a playlist tracked under url.
func (s *PlaylistSnapshot) FindByURL(url string) (models.Playlist, bool, error) {
	matches := s.table.filter(func(p models.Playlist) bool { return p.URL() == url })
	if len(matches) == 0 {
		return models.Playlist{}, false, nil
	}
	return matches[0], true, nil
}

// PlaylistRepository implements [models.PlaylistStore] on SQLite.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

const playlistColumns = "id, url, title, video_count, last_synced_at"

// Save upserts the playlist. New rows get the next sequence number.
func (r *PlaylistRepository) Save(p models.Playlist) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	exists, err := r.Exists(p.ID())
	if err != nil {
		return err
	}
	if exists {
		_, err = r.db.Exec(
			"UPDATE playlists SET url = ?, title = ?, video_count = ?, last_synced_at = ? WHERE id = ?",
			p.URL(), p.Title(), p.VideoCount(), formatTime(p.LastSyncedAt()), p.ID(),
		)
		if err != nil {
			return fmt.Errorf("failed to update playlist: %w", err)
		}
		return nil
	}

	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	_, err = r.db.Exec(
		"INSERT INTO playlists (id, sequence, url, title, video_count, last_synced_at) VALUES (?, ?, ?, ?, ?, ?)",
		p.ID(), sequence, p.URL(), p.Title(), p.VideoCount(), formatTime(p.LastSyncedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}
	return nil
}

func (r *PlaylistRepository) FindByID(id string) (models.Playlist, bool, error) {
	return r.scanOne(r.db.QueryRow("SELECT "+playlistColumns+" FROM playlists WHERE id = ?", id))
}

// FindByURL returns the earliest playlist tracked under url.
func (r *PlaylistRepository) FindByURL(url string) (models.Playlist, bool, error) {
	return r.scanOne(r.db.QueryRow("SELECT "+playlistColumns+" FROM playlists WHERE url = ? ORDER BY sequence ASC LIMIT 1", url))
}

func (r *PlaylistRepository) FindAll() ([]models.Playlist, error) {
	rows, err := r.db.Query("SELECT " + playlistColumns + " FROM playlists ORDER BY sequence ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return playlists, nil
}

// Delete hard-deletes the playlist row. Unknown ids are ignored.
func (r *PlaylistRepository) Delete(id string) error {
	if _, err := r.db.Exec("DELETE FROM playlists WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	return nil
}

func (r *PlaylistRepository) Exists(id string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow("SELECT EXISTS(SELECT 1 FROM playlists WHERE id = ?)", id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check playlist: %w", err)
	}
	return exists, nil
}

func (r *PlaylistRepository) scanOne(row *sql.Row) (models.Playlist, bool, error) {
	p, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Playlist{}, false, nil
	}
	if err != nil {
		return models.Playlist{}, false, err
	}
	return p, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanPlaylist scans a single row into a [models.Playlist]
func scanPlaylist(row scanner) (models.Playlist, error) {
	var (
		rec      playlistRecord
		syncedAt sql.NullString
	)

	err := row.Scan(&rec.ID, &rec.URL, &rec.Title, &rec.VideoCount, &syncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Playlist{}, err
	}
	if err != nil {
		return models.Playlist{}, fmt.Errorf("failed to scan playlist: %w", err)
	}

	rec.LastSyncedAt = nullString(syncedAt)
	return decodePlaylist(rec)
}
