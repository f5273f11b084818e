package repositories

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
)

const (
	playlistsFile = "playlists.json"
	videosFile    = "videos.json"
)

// Stores bundles the playlist and video stores of one backend.
type Stores struct {
	Playlists models.PlaylistStore
	Videos    models.VideoStore
	Backend   string
	db        *sql.DB
}

// Close releases the database handle of the sqlite backend.
func (s *Stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Open builds the stores selected by cfg.Backend.
func Open(cfg shared.StorageConfig, logger *log.Logger) (*Stores, error) {
	switch cfg.Backend {
	case "", "snapshot":
		return &Stores{
			Playlists: NewPlaylistSnapshot(filepath.Join(cfg.DataDir, playlistsFile), logger),
			Videos:    NewVideoSnapshot(filepath.Join(cfg.DataDir, videosFile), logger),
			Backend:   "snapshot",
		}, nil
	case "sqlite":
		db, err := shared.NewDatabase(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return &Stores{
			Playlists: NewPlaylistRepository(db),
			Videos:    NewVideoRepository(db),
			Backend:   "sqlite",
			db:        db,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers preserve insertion order for enumeration and are never shown to users.
func NextSequence(db *sql.DB, table string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequenceTable := table + "_sequence"

	var sequence int
	err = tx.QueryRow(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1 RETURNING value", sequenceTable)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}

// formatTime renders timestamps as sortable RFC 3339 text in UTC.
func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}

func parseTime(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", *s, err)
	}
	return &t, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
