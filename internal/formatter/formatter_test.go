package formatter

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
	th "github.com/desertthunder/ytsync/internal/testing"
	"gopkg.in/yaml.v3"
)

func testExport(t *testing.T) PlaylistExport {
	t.Helper()

	synced := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	published := time.Date(2023, 11, 5, 0, 0, 0, 0, time.UTC)

	p, err := models.RestorePlaylist("PL1", "https://www.youtube.com/playlist?list=PL1", "Road Trip", 2, &synced)
	if err != nil {
		t.Fatalf("RestorePlaylist failed: %v", err)
	}
	v1, err := models.RestoreVideo("v1", "Song [Live]", "https://www.youtube.com/watch?v=v1", "PL1", &published, &synced)
	if err != nil {
		t.Fatalf("RestoreVideo failed: %v", err)
	}
	v2, err := models.NewVideo("v2", "Song, Two", "https://www.youtube.com/watch?v=v2", "PL1", nil)
	if err != nil {
		t.Fatalf("NewVideo failed: %v", err)
	}
	return NewPlaylistExport(p, []models.Video{v1, v2})
}

func TestNewPlaylistExport(t *testing.T) {
	export := testExport(t)
	want := models.PlaylistStats{Total: 2, Downloaded: 1, Pending: 1}
	if export.Stats != want {
		t.Errorf("expected stats %+v, got %+v", want, export.Stats)
	}
}

func TestExporters(t *testing.T) {
	export := testExport(t)

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(export)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}
		output := string(data)

		if !strings.HasPrefix(output, "ID,Title,URL,Published,Downloaded,Downloaded At\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "v1,Song [Live],https://www.youtube.com/watch?v=v1,2023-11-05,true,2024-03-01T12:00:00Z") {
			t.Errorf("CSV missing v1 record, got: %s", output)
		}
		if !strings.Contains(output, `v2,"Song, Two",https://www.youtube.com/watch?v=v2,,false,`) {
			t.Errorf("CSV should quote titles with commas, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(export)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		output := string(data)

		for _, want := range []string{
			"# Road Trip",
			"**Videos**: 2 (1 downloaded, 1 pending)",
			"**Last synced**: 2024-03-01 12:00:00",
			`- [x] [Song \[Live\]](https://www.youtube.com/watch?v=v1) (2023-11-05)`,
			"- [ ] [Song, Two](https://www.youtube.com/watch?v=v2)\n",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(export)
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		output := string(data)

		if !strings.Contains(output, "Playlist: Road Trip") {
			t.Errorf("text missing title, got: %s", output)
		}
		if !strings.Contains(output, "1. Song [Live] [downloaded]") {
			t.Errorf("text missing first video, got: %s", output)
		}
		if !strings.Contains(output, "2. Song, Two [pending]") {
			t.Errorf("text missing second video, got: %s", output)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(export)
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if doc["id"] != "PL1" {
			t.Errorf("expected id PL1, got %v", doc["id"])
		}
		videos, ok := doc["videos"].([]any)
		if !ok || len(videos) != 2 {
			t.Fatalf("expected 2 videos, got %v", doc["videos"])
		}
		second := videos[1].(map[string]any)
		if _, has := second["downloaded_at"]; has {
			t.Error("pending video should omit downloaded_at")
		}
	})

	t.Run("ExportToYAML", func(t *testing.T) {
		data, err := ExportToYAML(export)
		if err != nil {
			t.Fatalf("ExportToYAML failed: %v", err)
		}

		var doc struct {
			Title  string `yaml:"title"`
			Stats  struct{ Pending int }
			Videos []struct {
				ID         string `yaml:"id"`
				Downloaded bool   `yaml:"downloaded"`
			} `yaml:"videos"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			t.Fatalf("output is not valid YAML: %v", err)
		}
		if doc.Title != "Road Trip" {
			t.Errorf("expected title Road Trip, got %q", doc.Title)
		}
		if doc.Stats.Pending != 1 {
			t.Errorf("expected 1 pending, got %d", doc.Stats.Pending)
		}
		if len(doc.Videos) != 2 || !doc.Videos[0].Downloaded || doc.Videos[1].Downloaded {
			t.Errorf("unexpected videos: %+v", doc.Videos)
		}
	})

	t.Run("EmptyPlaylist", func(t *testing.T) {
		p, _ := models.NewPlaylist("PL2", "https://x/?list=PL2", "", 0)
		empty := NewPlaylistExport(p, nil)

		for _, format := range Formats {
			data, err := Render(empty, format)
			if err != nil {
				t.Errorf("%s: unexpected error: %v", format, err)
			}
			if len(data) == 0 {
				t.Errorf("%s: expected output", format)
			}
		}

		data, _ := ExportToText(empty)
		if !strings.Contains(string(data), "Playlist: PL2") {
			t.Errorf("untitled playlist should display its id, got: %s", data)
		}
		if !strings.Contains(string(data), "Last synced: never") {
			t.Errorf("expected never synced, got: %s", data)
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"csv", CSV},
		{"md", Markdown},
		{"Markdown", Markdown},
		{"text", Text},
		{"txt", Text},
		{"", JSON},
		{"yml", YAML},
		{" yaml ", YAML},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	t.Run("Unknown", func(t *testing.T) {
		_, err := ParseFormat("xml")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestFileName(t *testing.T) {
	p, _ := models.NewPlaylist("PL1", "https://x/?list=PL1", "AC/DC: Best of", 0)
	if got := FileName(p, Markdown, false); got != "AC_DC_ Best of.md" {
		t.Errorf("unexpected file name %q", got)
	}

	unknown, _ := models.NewPlaylist("PL9", "https://x/?list=PL9", models.UnknownTitle, 0)
	if got := FileName(unknown, YAML, false); got != "PL9.yaml" {
		t.Errorf("unknown title should fall back to the id, got %q", got)
	}
}

func TestWriteExport(t *testing.T) {
	export := testExport(t)

	t.Run("CreatesParentDirectories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "out.csv")

		written, err := WriteExport(export, CSV, path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if written != path {
			t.Errorf("expected %s, got %s", path, written)
		}
		th.AssertFileExists(t, path)
		if content := th.MustReadFile(t, path); !strings.Contains(content, "v1,") {
			t.Errorf("unexpected content: %s", content)
		}
	})

	t.Run("DefaultsToTitle", func(t *testing.T) {
		t.Chdir(t.TempDir())

		written, err := WriteExport(export, Markdown, "")
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if written != "Road Trip.md" {
			t.Errorf("expected Road Trip.md, got %s", written)
		}
		th.AssertFileExists(t, written)
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		_, err := WriteExport(export, Format("xml"), filepath.Join(t.TempDir(), "out.xml"))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestWriteManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export_manifest.json")
	m := Manifest{
		ExportedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Format:     CSV,
		Total:      2,
		Succeeded:  1,
		Failed:     1,
		Entries: []ManifestEntry{
			{PlaylistID: "PL1", Title: "One", File: "One.csv", Success: true},
			{PlaylistID: "PL2", Title: "Two", Error: "boom"},
		},
	}

	if err := WriteManifest(m, path); err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got Manifest
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	if got.Failed != 1 || len(got.Entries) != 2 || got.Entries[1].Error != "boom" {
		t.Errorf("unexpected manifest: %+v", got)
	}
}
