package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/repositories"
	"github.com/desertthunder/ytsync/internal/server"
	"github.com/desertthunder/ytsync/internal/services"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/desertthunder/ytsync/internal/tasks"
	"github.com/desertthunder/ytsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// Downloader is the download collaborator plus its availability probes.
type Downloader interface {
	services.Downloader
	services.Prober
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Stores and collaborators are built from the loaded config on first use unless injected.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	palette    *ui.Palette
	httpClient *http.Client
	stores     *repositories.Stores
	fetcher    services.Fetcher
	downloader Downloader
	metrics    *server.Metrics
	engine     *tasks.PlaylistEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	HTTPClient *http.Client
	Stores     *repositories.Stores
	Fetcher    services.Fetcher
	Downloader Downloader
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		palette:    ui.Styles(),
		httpClient: opts.HTTPClient,
		stores:     opts.Stores,
		fetcher:    opts.Fetcher,
		downloader: opts.Downloader,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, playlistCommand, syncCommand, daemonCommand, statusCommand, doctorCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the config named by --config, falling back to defaults when the file does not exist,
// and applies its logging settings.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.configPath == "" {
		r.configPath = cmd.String("config")
	}

	if r.config == nil {
		config, err := shared.LoadConfig(r.configPath)
		switch {
		case err == nil:
			r.config = config
		case errors.Is(err, shared.ErrMissingConfig):
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
			r.config = shared.DefaultConfig()
		default:
			return ctx, err
		}
	}

	logging := r.config.Logging
	if level := cmd.String("log-level"); level != "" {
		logging.Level = level
	}
	if err := shared.ConfigureLogger(r.logger, logging); err != nil {
		return ctx, err
	}
	return ctx, nil
}

// After releases the stores opened by a command.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	if r.stores == nil {
		return nil
	}
	return r.stores.Close()
}

func (r *Runner) cfg() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

// Engine builds the sync engine, opening the configured stores and yt-dlp collaborators as needed.
func (r *Runner) Engine() (*tasks.PlaylistEngine, error) {
	if r.engine != nil {
		return r.engine, nil
	}
	cfg := r.cfg()

	if r.stores == nil {
		stores, err := repositories.Open(cfg.Storage, r.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s stores: %w", cfg.Storage.Backend, err)
		}
		r.stores = stores
	}
	if r.fetcher == nil {
		r.fetcher = services.NewYtDlpFetcher(cfg.YtDlp, r.logger)
	}

	opts := tasks.EngineOpts{
		Playlists:   r.stores.Playlists,
		Videos:      r.stores.Videos,
		Fetcher:     r.fetcher,
		Downloader:  r.prober(),
		DownloadDir: cfg.Download.Directory,
		ASCIIPaths:  cfg.Download.ASCIIPaths,
		Logger:      r.logger,
	}
	if r.metrics != nil {
		opts.Recorder = r.metrics
	}

	r.engine = tasks.NewPlaylistEngine(opts)
	return r.engine, nil
}

func (r *Runner) prober() Downloader {
	if r.downloader == nil {
		cfg := r.cfg()
		r.downloader = services.NewYtDlpDownloader(cfg.YtDlp, cfg.Download, r.logger)
	}
	return r.downloader
}

// drainProgress prints progress messages until the channel closes, then closes done.
func (r *Runner) drainProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	defer close(done)
	for u := range progress {
		switch u.Phase {
		case tasks.Resolve:
			if u.Total > 1 {
				r.writePlain("%s\n", r.palette.Title(u.Message))
			}
		case tasks.Download:
			r.writePlain("  %s %s\n", ui.Bar(u.Step, u.Total, 20), u.Message)
		default:
			r.writePlain("  %s\n", u.Message)
		}
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", r.palette.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
