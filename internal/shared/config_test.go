package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Download.Directory != "./downloads" {
			t.Errorf("expected download directory ./downloads, got %s", config.Download.Directory)
		}

		if config.Sync.Interval() != time.Hour {
			t.Errorf("expected interval 1h, got %v", config.Sync.Interval())
		}

		if config.Sync.Warmup() != time.Minute {
			t.Errorf("expected warmup 1m, got %v", config.Sync.Warmup())
		}

		if config.Storage.Backend != "snapshot" {
			t.Errorf("expected snapshot backend, got %s", config.Storage.Backend)
		}

		if config.Download.AudioFormat != "mp3" || config.Download.AudioQuality != "320" {
			t.Errorf("unexpected audio settings %s/%s", config.Download.AudioFormat, config.Download.AudioQuality)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should be valid: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Server.Addr() != DefaultConfig().Server.Addr() {
			t.Errorf("created config server address doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[download]
directory = "/music"
audio_format = "opus"

[sync]
interval_minutes = 15

[storage]
backend = "sqlite"
sqlite_path = "/var/lib/ytsync.db"

[server]
port = 9000
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Download.Directory != "/music" {
			t.Errorf("expected directory /music, got %s", config.Download.Directory)
		}

		if config.Download.AudioQuality != "320" {
			t.Errorf("expected default quality to survive partial config, got %s", config.Download.AudioQuality)
		}

		if config.Sync.Interval() != 15*time.Minute {
			t.Errorf("expected 15m interval, got %v", config.Sync.Interval())
		}

		if config.Server.Addr() != "127.0.0.1:9000" {
			t.Errorf("expected 127.0.0.1:9000, got %s", config.Server.Addr())
		}
	})

	t.Run("LoadConfig validation", func(t *testing.T) {
		tc := []struct {
			name   string
			config string
		}{
			{name: "zero interval", config: "[sync]\ninterval_minutes = 0\n"},
			{name: "unknown backend", config: "[storage]\nbackend = \"redis\"\n"},
			{name: "unknown audio format", config: "[download]\naudio_format = \"midi\"\n"},
			{name: "cookies without browser", config: "[ytdlp]\ncookies_enabled = true\ncookies_browser = \"\"\n"},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				configPath := filepath.Join(t.TempDir(), "config.toml")
				if err := os.WriteFile(configPath, []byte(tt.config), 0644); err != nil {
					t.Fatalf("failed to write test config: %v", err)
				}

				_, err := LoadConfig(configPath)
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		if !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}
