package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/ytsync/internal/shared"
)

// Video is a single playlist item.
//
// Only the downloaded flag and its timestamp ever change, and only from (false, nil) to (true, t).
type Video struct {
	id           string
	title        string
	url          string
	playlistID   string
	publishedAt  *time.Time
	downloaded   bool
	downloadedAt *time.Time
}

// NewVideo builds an item that has not been downloaded.
func NewVideo(id, title, url, playlistID string, publishedAt *time.Time) (Video, error) {
	return RestoreVideo(id, title, url, playlistID, publishedAt, nil)
}

// RestoreVideo rebuilds an item from stored fields. A non-nil downloadedAt marks it downloaded.
func RestoreVideo(id, title, url, playlistID string, publishedAt, downloadedAt *time.Time) (Video, error) {
	v := Video{
		id:           id,
		title:        title,
		url:          url,
		playlistID:   playlistID,
		publishedAt:  copyTime(publishedAt),
		downloaded:   downloadedAt != nil,
		downloadedAt: copyTime(downloadedAt),
	}
	if err := v.Validate(); err != nil {
		return Video{}, err
	}
	return v, nil
}

func (v Video) ID() string              { return v.id }
func (v Video) Title() string           { return v.title }
func (v Video) URL() string             { return v.url }
func (v Video) PlaylistID() string      { return v.playlistID }
func (v Video) PublishedAt() *time.Time { return copyTime(v.publishedAt) }
func (v Video) Downloaded() bool        { return v.downloaded }

// DownloadedAt is nil while the item is pending.
func (v Video) DownloadedAt() *time.Time { return copyTime(v.downloadedAt) }

// Validate checks the required fields.
func (v Video) Validate() error {
	switch {
	case v.id == "":
		return fmt.Errorf("%w: id is required", shared.ErrInvalidVideo)
	case v.url == "":
		return fmt.Errorf("%w: url is required", shared.ErrInvalidVideo)
	case v.playlistID == "":
		return fmt.Errorf("%w: playlist id is required", shared.ErrInvalidVideo)
	}
	return nil
}

// MarkDownloaded returns a downloaded copy. An already downloaded item is returned unchanged.
func (v Video) MarkDownloaded(at time.Time) Video {
	if v.downloaded {
		return v
	}
	next := v
	next.downloaded = true
	next.downloadedAt = &at
	return next
}

// Equal compares items by id.
func (v Video) Equal(other Video) bool {
	return v.id == other.id
}

func (v Video) String() string {
	return fmt.Sprintf("Video{id=%s, title=%q, downloaded=%t}", v.id, v.title, v.downloaded)
}

// RemoteVideo is an item as reported by the fetcher.
type RemoteVideo struct {
	ID          string
	Title       string
	URL         string
	PublishedAt *time.Time
}

// ToVideo converts the remote item into a pending [Video] owned by playlistID.
func (r RemoteVideo) ToVideo(playlistID string) (Video, error) {
	return NewVideo(r.ID, r.Title, r.URL, playlistID, r.PublishedAt)
}

// UnknownTitle is the metadata title used when the remote playlist could not be described.
const UnknownTitle = "Unknown"

// PlaylistMetadata describes a remote playlist without listing its items.
type PlaylistMetadata struct {
	ID         string
	Title      string
	VideoCount int
}

// UnknownMetadata is the sentinel returned when metadata could not be fetched.
func UnknownMetadata(id string) PlaylistMetadata {
	return PlaylistMetadata{ID: id, Title: UnknownTitle, VideoCount: 0}
}

// Empty reports whether the metadata carries no items.
func (m PlaylistMetadata) Empty() bool {
	return m.VideoCount <= 0
}
