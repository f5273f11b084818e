package shared

import (
	_ "embed"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Download DownloadConfig `toml:"download"`
	Sync     SyncConfig     `toml:"sync"`
	YtDlp    YtDlpConfig    `toml:"ytdlp"`
	Storage  StorageConfig  `toml:"storage"`
	Server   ServerConfig   `toml:"server"`
	Logging  LoggingConfig  `toml:"logging"`
}

// DownloadConfig controls where and how items are materialized.
type DownloadConfig struct {
	Directory    string `toml:"directory" validate:"required"`
	AudioFormat  string `toml:"audio_format" validate:"required,oneof=best aac alac flac m4a mp3 opus vorbis wav"`
	AudioQuality string `toml:"audio_quality" validate:"required"`
	ASCIIPaths   bool   `toml:"ascii_paths"`
}

// SyncConfig contains scheduler timings.
type SyncConfig struct {
	IntervalMinutes    int `toml:"interval_minutes" validate:"gte=1"`
	WarmupSeconds      int `toml:"warmup_seconds" validate:"gte=0"`
	StopTimeoutSeconds int `toml:"stop_timeout_seconds" validate:"gte=0"`
}

func (c SyncConfig) Interval() time.Duration    { return time.Duration(c.IntervalMinutes) * time.Minute }
func (c SyncConfig) Warmup() time.Duration      { return time.Duration(c.WarmupSeconds) * time.Second }
func (c SyncConfig) StopTimeout() time.Duration { return time.Duration(c.StopTimeoutSeconds) * time.Second }

// YtDlpConfig configures the yt-dlp executable shared by fetcher and downloader.
type YtDlpConfig struct {
	Path              string  `toml:"path" validate:"required"`
	CookiesEnabled    bool    `toml:"cookies_enabled"`
	CookiesBrowser    string  `toml:"cookies_browser" validate:"required_if=CookiesEnabled true"`
	RequestsPerSecond float64 `toml:"requests_per_second" validate:"gte=0"`
}

// StorageConfig selects the store backend.
type StorageConfig struct {
	Backend      string `toml:"backend" validate:"oneof=snapshot sqlite"`
	DataDir      string `toml:"data_dir" validate:"required_if=Backend snapshot"`
	SQLitePath   string `toml:"sqlite_path" validate:"required_if=Backend sqlite"`
	MaxOpenConns int    `toml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `toml:"max_idle_conns" validate:"gte=0"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"gte=1,lte=65535"`
}

// Addr joins host and port.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// LoggingConfig contains log level and output format.
type LoggingConfig struct {
	Level  string `toml:"level" validate:"omitempty,oneof=debug info warn error fatal"`
	Format string `toml:"format" validate:"omitempty,oneof=text json logfmt"`
}

// LoadConfig reads, parses and validates a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
