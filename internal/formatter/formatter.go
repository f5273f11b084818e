// package formatter renders a playlist and its videos to export formats (CSV, Markdown, plain text, JSON, YAML)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
	"gopkg.in/yaml.v3"
)

// Format names an export format.
type Format string

const (
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "txt"
	JSON     Format = "json"
	YAML     Format = "yaml"
)

// Formats lists every supported format.
var Formats = []Format{CSV, Markdown, Text, JSON, YAML}

// ParseFormat accepts a format name or one of its common aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, nil
	case "md", "markdown":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidInput, s)
	}
}

// Extension is the file extension used for the format, without the dot.
func (f Format) Extension() string {
	switch f {
	case Markdown:
		return "md"
	default:
		return string(f)
	}
}

// PlaylistExport is a playlist with its videos and download counts.
type PlaylistExport struct {
	Playlist models.Playlist
	Videos   []models.Video
	Stats    models.PlaylistStats
}

// NewPlaylistExport counts the videos by download state.
func NewPlaylistExport(p models.Playlist, videos []models.Video) PlaylistExport {
	downloaded := 0
	for _, v := range videos {
		if v.Downloaded() {
			downloaded++
		}
	}
	return PlaylistExport{
		Playlist: p,
		Videos:   videos,
		Stats:    models.NewPlaylistStats(len(videos), downloaded),
	}
}

// ExportToCSV converts a PlaylistExport to CSV format with columns: ID, Title, URL, Published, Downloaded, Downloaded At
func ExportToCSV(export PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "URL", "Published", "Downloaded", "Downloaded At"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, v := range export.Videos {
		record := []string{
			v.ID(),
			v.Title(),
			v.URL(),
			formatDate(v.PublishedAt()),
			strconv.FormatBool(v.Downloaded()),
			formatTimestamp(v.DownloadedAt()),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a PlaylistExport to Markdown with a checklist of videos
func ExportToMarkdown(export PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	p := export.Playlist

	fmt.Fprintf(&buf, "# %s\n\n", p.DisplayTitle())
	fmt.Fprintf(&buf, "**Source**: <%s>\n\n", p.URL())
	fmt.Fprintf(&buf, "**Videos**: %d (%d downloaded, %d pending)\n", export.Stats.Total, export.Stats.Downloaded, export.Stats.Pending)
	fmt.Fprintf(&buf, "**Last synced**: %s\n\n", lastSynced(p))

	buf.WriteString("## Videos\n\n")
	for _, v := range export.Videos {
		mark := " "
		if v.Downloaded() {
			mark = "x"
		}
		fmt.Fprintf(&buf, "- [%s] [%s](%s)", mark, escapeMarkdown(v.Title()), v.URL())
		if published := formatDate(v.PublishedAt()); published != "" {
			fmt.Fprintf(&buf, " (%s)", published)
		}
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text format
func ExportToText(export PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	p := export.Playlist

	fmt.Fprintf(&buf, "Playlist: %s\n", p.DisplayTitle())
	fmt.Fprintf(&buf, "URL: %s\n", p.URL())
	fmt.Fprintf(&buf, "Videos: %d (%d downloaded)\n", export.Stats.Total, export.Stats.Downloaded)
	fmt.Fprintf(&buf, "Last synced: %s\n\n", lastSynced(p))

	for i, v := range export.Videos {
		state := "pending"
		if v.Downloaded() {
			state = "downloaded"
		}
		fmt.Fprintf(&buf, "%d. %s [%s]\n", i+1, v.Title(), state)
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the export as indented JSON
func ExportToJSON(export PlaylistExport) ([]byte, error) {
	data, err := json.MarshalIndent(newDocument(export), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToYAML renders the export as a YAML document
func ExportToYAML(export PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(newDocument(export)); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// Render dispatches to the exporter for format.
func Render(export PlaylistExport, format Format) ([]byte, error) {
	switch format {
	case CSV:
		return ExportToCSV(export)
	case Markdown:
		return ExportToMarkdown(export)
	case Text:
		return ExportToText(export)
	case JSON:
		return ExportToJSON(export)
	case YAML:
		return ExportToYAML(export)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidInput, format)
	}
}

// FileName is the default export file name: the sanitized playlist title, or its id, plus the format's extension.
func FileName(p models.Playlist, format Format, ascii bool) string {
	name := shared.SanitizePathSegment(p.Title(), ascii)
	if name == "" || name == models.UnknownTitle {
		name = shared.SanitizePathSegment(p.ID(), ascii)
	}
	return name + "." + format.Extension()
}

// WriteExport renders the export and writes it to path, creating parent directories.
//
// Defaults to [FileName] in the working directory when path is empty.
func WriteExport(export PlaylistExport, format Format, path string) (string, error) {
	if path == "" {
		path = FileName(export.Playlist, format, false)
	}

	data, err := Render(export, format)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return path, nil
}

// ManifestEntry records the outcome of exporting one playlist.
type ManifestEntry struct {
	PlaylistID string `json:"playlist_id"`
	Title      string `json:"title"`
	File       string `json:"file,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// Manifest summarizes a bulk export.
type Manifest struct {
	ExportedAt time.Time       `json:"exported_at"`
	Format     Format          `json:"format"`
	Total      int             `json:"total"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
	Entries    []ManifestEntry `json:"entries"`
}

// WriteManifest writes the manifest as indented JSON.
func WriteManifest(m Manifest, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

type document struct {
	ID           string               `json:"id" yaml:"id"`
	Title        string               `json:"title" yaml:"title"`
	URL          string               `json:"url" yaml:"url"`
	VideoCount   int                  `json:"video_count" yaml:"video_count"`
	LastSyncedAt *time.Time           `json:"last_synced_at,omitempty" yaml:"last_synced_at,omitempty"`
	Stats        models.PlaylistStats `json:"stats" yaml:"stats"`
	Videos       []videoDocument      `json:"videos" yaml:"videos"`
}

type videoDocument struct {
	ID           string     `json:"id" yaml:"id"`
	Title        string     `json:"title" yaml:"title"`
	URL          string     `json:"url" yaml:"url"`
	PublishedAt  *time.Time `json:"published_at,omitempty" yaml:"published_at,omitempty"`
	Downloaded   bool       `json:"downloaded" yaml:"downloaded"`
	DownloadedAt *time.Time `json:"downloaded_at,omitempty" yaml:"downloaded_at,omitempty"`
}

func newDocument(export PlaylistExport) document {
	p := export.Playlist
	doc := document{
		ID:           p.ID(),
		Title:        p.Title(),
		URL:          p.URL(),
		VideoCount:   p.VideoCount(),
		LastSyncedAt: p.LastSyncedAt(),
		Stats:        export.Stats,
		Videos:       make([]videoDocument, 0, len(export.Videos)),
	}
	for _, v := range export.Videos {
		doc.Videos = append(doc.Videos, videoDocument{
			ID:           v.ID(),
			Title:        v.Title(),
			URL:          v.URL(),
			PublishedAt:  v.PublishedAt(),
			Downloaded:   v.Downloaded(),
			DownloadedAt: v.DownloadedAt(),
		})
	}
	return doc
}

func lastSynced(p models.Playlist) string {
	if at := p.LastSyncedAt(); at != nil {
		return at.UTC().Format(time.DateTime)
	}
	return "never"
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}

func formatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

var markdownEscaper = strings.NewReplacer(`[`, `\[`, `]`, `\]`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
