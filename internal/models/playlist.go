package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/ytsync/internal/shared"
)

// Playlist is a remote playlist tracked locally.
//
// id and url never change after construction. A sync produces a new value through [Playlist.WithSync].
type Playlist struct {
	id           string
	url          string
	title        string
	videoCount   int
	lastSyncedAt *time.Time
}

// NewPlaylist builds a playlist that has never been synced.
func NewPlaylist(id, url, title string, videoCount int) (Playlist, error) {
	return RestorePlaylist(id, url, title, videoCount, nil)
}

// RestorePlaylist rebuilds a playlist from stored fields.
func RestorePlaylist(id, url, title string, videoCount int, lastSyncedAt *time.Time) (Playlist, error) {
	p := Playlist{
		id:           id,
		url:          url,
		title:        title,
		videoCount:   videoCount,
		lastSyncedAt: copyTime(lastSyncedAt),
	}
	if err := p.Validate(); err != nil {
		return Playlist{}, err
	}
	return p, nil
}

func (p Playlist) ID() string      { return p.id }
func (p Playlist) URL() string     { return p.url }
func (p Playlist) Title() string   { return p.title }
func (p Playlist) VideoCount() int { return p.videoCount }

// LastSyncedAt returns nil until the first sync completes.
func (p Playlist) LastSyncedAt() *time.Time { return copyTime(p.lastSyncedAt) }

// DisplayTitle falls back to the id when the playlist has no title.
func (p Playlist) DisplayTitle() string {
	if p.title == "" {
		return p.id
	}
	return p.title
}

// Validate checks the required fields.
func (p Playlist) Validate() error {
	if p.id == "" {
		return fmt.Errorf("%w: id is required", shared.ErrInvalidPlaylist)
	}
	if p.url == "" {
		return fmt.Errorf("%w: url is required", shared.ErrInvalidPlaylist)
	}
	if p.videoCount < 0 {
		return fmt.Errorf("%w: video count must not be negative, got %d", shared.ErrInvalidPlaylist, p.videoCount)
	}
	return nil
}

// WithSync returns a copy with the sync timestamp and item count updated together.
func (p Playlist) WithSync(at time.Time, videoCount int) Playlist {
	if videoCount < 0 {
		videoCount = 0
	}
	next := p
	next.videoCount = videoCount
	next.lastSyncedAt = &at
	return next
}

// Equal compares playlists by id.
func (p Playlist) Equal(other Playlist) bool {
	return p.id == other.id
}

func (p Playlist) String() string {
	return fmt.Sprintf("Playlist{id=%s, title=%q, videos=%d}", p.id, p.title, p.videoCount)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
