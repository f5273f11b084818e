package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/models"
)

type videoRecord struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	URL          string  `json:"url"`
	PlaylistID   string  `json:"playlist_id"`
	PublishedAt  *string `json:"published_at"`
	Downloaded   bool    `json:"downloaded"`
	DownloadedAt *string `json:"downloaded_at"`
}

func encodeVideo(v models.Video) videoRecord {
	return videoRecord{
		ID:           v.ID(),
		Title:        v.Title(),
		URL:          v.URL(),
		PlaylistID:   v.PlaylistID(),
		PublishedAt:  formatTime(v.PublishedAt()),
		Downloaded:   v.Downloaded(),
		DownloadedAt: formatTime(v.DownloadedAt()),
	}
}

func decodeVideo(r videoRecord) (models.Video, error) {
	publishedAt, err := parseTime(r.PublishedAt)
	if err != nil {
		return models.Video{}, err
	}
	downloadedAt, err := parseTime(r.DownloadedAt)
	if err != nil {
		return models.Video{}, err
	}
	if r.Downloaded != (downloadedAt != nil) {
		return models.Video{}, fmt.Errorf("video %s: downloaded=%t disagrees with downloaded_at", r.ID, r.Downloaded)
	}
	return models.RestoreVideo(r.ID, r.Title, r.URL, r.PlaylistID, publishedAt, downloadedAt)
}

func inPlaylist(playlistID string) func(models.Video) bool {
	return func(v models.Video) bool { return v.PlaylistID() == playlistID }
}

// VideoSnapshot implements [models.VideoStore] on a JSON snapshot file.
type VideoSnapshot struct {
	table *snapshotTable[models.Video, videoRecord]
}

// NewVideoSnapshot loads the snapshot at path, or starts empty.
func NewVideoSnapshot(path string, logger *log.Logger) *VideoSnapshot {
	return &VideoSnapshot{table: openSnapshot(path, logger, encodeVideo, decodeVideo)}
}

func (s *VideoSnapshot) Save(v models.Video) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return s.table.put(v)
}

func (s *VideoSnapshot) FindByID(id string) (models.Video, bool, error) {
	v, ok := s.table.get(id)
	return v, ok, nil
}

func (s *VideoSnapshot) FindAll() ([]models.Video, error) {
	return s.table.filter(nil), nil
}

func (s *VideoSnapshot) Delete(id string) error {
	_, err := s.table.removeWhere(func(v models.Video) bool { return v.ID() == id })
	return err
}

func (s *VideoSnapshot) Exists(id string) (bool, error) {
	return s.table.has(id), nil
}

func (s *VideoSnapshot) FindByPlaylist(playlistID string) ([]models.Video, error) {
	return s.table.filter(inPlaylist(playlistID)), nil
}

func (s *VideoSnapshot) FindNotDownloadedByPlaylist(playlistID string) ([]models.Video, error) {
	match := inPlaylist(playlistID)
	return s.table.filter(func(v models.Video) bool { return match(v) && !v.Downloaded() }), nil
}

func (s *VideoSnapshot) CountByPlaylist(playlistID string) (int, error) {
	return len(s.table.filter(inPlaylist(playlistID))), nil
}

// DeleteByPlaylist removes every video of a playlist with a single snapshot rewrite.
func (s *VideoSnapshot) DeleteByPlaylist(playlistID string) (int, error) {
	return s.table.removeWhere(inPlaylist(playlistID))
}

// VideoRepository implements [models.VideoStore] on SQLite.
type VideoRepository struct {
	db *sql.DB
}

// NewVideoRepository creates a new VideoRepository with the given database connection
func NewVideoRepository(db *sql.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

const videoColumns = "id, title, url, playlist_id, published_at, downloaded, downloaded_at"

// Save upserts the video. New rows get the next sequence number.
func (r *VideoRepository) Save(v models.Video) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	exists, err := r.Exists(v.ID())
	if err != nil {
		return err
	}
	if exists {
		_, err = r.db.Exec(
			"UPDATE videos SET title = ?, url = ?, playlist_id = ?, published_at = ?, downloaded = ?, downloaded_at = ? WHERE id = ?",
			v.Title(), v.URL(), v.PlaylistID(), formatTime(v.PublishedAt()), v.Downloaded(), formatTime(v.DownloadedAt()), v.ID(),
		)
		if err != nil {
			return fmt.Errorf("failed to update video: %w", err)
		}
		return nil
	}

	sequence, err := NextSequence(r.db, "videos")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	_, err = r.db.Exec(
		"INSERT INTO videos (id, sequence, title, url, playlist_id, published_at, downloaded, downloaded_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		v.ID(), sequence, v.Title(), v.URL(), v.PlaylistID(), formatTime(v.PublishedAt()), v.Downloaded(), formatTime(v.DownloadedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

func (r *VideoRepository) FindByID(id string) (models.Video, bool, error) {
	v, err := scanVideo(r.db.QueryRow("SELECT "+videoColumns+" FROM videos WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Video{}, false, nil
	}
	if err != nil {
		return models.Video{}, false, err
	}
	return v, true, nil
}

func (r *VideoRepository) FindAll() ([]models.Video, error) {
	return r.list("SELECT " + videoColumns + " FROM videos ORDER BY sequence ASC")
}

func (r *VideoRepository) FindByPlaylist(playlistID string) ([]models.Video, error) {
	return r.list("SELECT "+videoColumns+" FROM videos WHERE playlist_id = ? ORDER BY sequence ASC", playlistID)
}

func (r *VideoRepository) FindNotDownloadedByPlaylist(playlistID string) ([]models.Video, error) {
	return r.list("SELECT "+videoColumns+" FROM videos WHERE playlist_id = ? AND downloaded = 0 ORDER BY sequence ASC", playlistID)
}

func (r *VideoRepository) CountByPlaylist(playlistID string) (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM videos WHERE playlist_id = ?", playlistID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count videos: %w", err)
	}
	return count, nil
}

// Delete hard-deletes the video row. Unknown ids are ignored.
func (r *VideoRepository) Delete(id string) error {
	if _, err := r.db.Exec("DELETE FROM videos WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	return nil
}

func (r *VideoRepository) DeleteByPlaylist(playlistID string) (int, error) {
	result, err := r.db.Exec("DELETE FROM videos WHERE playlist_id = ?", playlistID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete videos: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(rows), nil
}

func (r *VideoRepository) Exists(id string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow("SELECT EXISTS(SELECT 1 FROM videos WHERE id = ?)", id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check video: %w", err)
	}
	return exists, nil
}

func (r *VideoRepository) list(query string, args ...any) ([]models.Video, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return videos, nil
}

// scanVideo scans a single row into a [models.Video]
func scanVideo(row scanner) (models.Video, error) {
	var (
		rec          videoRecord
		publishedAt  sql.NullString
		downloadedAt sql.NullString
	)

	err := row.Scan(&rec.ID, &rec.Title, &rec.URL, &rec.PlaylistID, &publishedAt, &rec.Downloaded, &downloadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Video{}, err
	}
	if err != nil {
		return models.Video{}, fmt.Errorf("failed to scan video: %w", err)
	}

	rec.PublishedAt = nullString(publishedAt)
	rec.DownloadedAt = nullString(downloadedAt)
	return decodeVideo(rec)
}
