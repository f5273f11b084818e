package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/desertthunder/ytsync/internal/server"
	"github.com/urfave/cli/v3"
)

// Status asks a running daemon for its scheduler state.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	if addr == "" {
		addr = r.cfg().Server.Addr()
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(addr, "/")+"/status", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var status server.StatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return fmt.Errorf("failed to decode status: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlainHeader("Daemon status")
	for _, line := range status.Info {
		r.writePlain("%s\n", line)
	}
	if res := status.LastResult; res != nil {
		r.writePlain("Last result: %d playlists, %d new, %d downloaded, %d failed\n",
			res.Playlists, res.NewItems, res.Downloaded, len(res.Failures))
	}
	return nil
}

// Doctor reports whether yt-dlp runs and where config and data live.
func (r *Runner) Doctor(ctx context.Context, cmd *cli.Command) error {
	cfg := r.cfg()
	downloader := r.prober()

	r.writePlainHeader("ytsync doctor")

	healthy := true
	if version, err := downloader.Version(ctx); err != nil {
		healthy = false
		r.writePlain("%s yt-dlp (%s): %v\n", r.palette.Err("✗"), cfg.YtDlp.Path, err)
	} else {
		r.writePlain("%s yt-dlp %s\n", r.palette.OK("✓"), version)
	}

	cookies := "disabled"
	if cfg.YtDlp.CookiesEnabled {
		cookies = "from " + cfg.YtDlp.CookiesBrowser
	}
	r.writePlain("  cookies: %s\n", cookies)

	if _, err := os.Stat(r.configPath); err == nil {
		r.writePlain("%s config: %s\n", r.palette.OK("✓"), r.configPath)
	} else {
		r.writePlain("%s config: %s (using defaults)\n", r.palette.Warn("!"), r.configPath)
	}

	storage := cfg.Storage.DataDir
	if cfg.Storage.Backend == "sqlite" {
		storage = cfg.Storage.SQLitePath
	}
	for _, entry := range [][2]string{{"downloads", cfg.Download.Directory}, {"storage", storage}} {
		_, err := os.Stat(entry[1])
		r.writePlain("%s: %s\n", r.palette.Check(err == nil, entry[0]), entry[1])
		if err != nil {
			healthy = false
		}
	}
	r.writePlain("  backend: %s\n", cfg.Storage.Backend)

	if !healthy {
		r.writePlainln("%s", r.palette.Help("Run 'ytsync setup' and install yt-dlp to fix the problems above"))
	}
	return nil
}
