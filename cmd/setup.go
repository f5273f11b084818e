package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/ytsync/internal/repositories"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file if it is missing, the download and data directories, and the store.
//
// Opening the sqlite backend runs its migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); err == nil {
		r.logger.Info("config file exists", "path", r.configPath)
	} else {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return err
		}
	}

	config, err := shared.LoadConfig(r.configPath)
	if err != nil {
		return err
	}
	r.config = config

	dirs := []string{config.Download.Directory}
	if config.Storage.Backend == "sqlite" {
		dirs = append(dirs, filepath.Dir(config.Storage.SQLitePath))
	} else {
		dirs = append(dirs, config.Storage.DataDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		r.logger.Debug("directory ready", "path", dir)
	}

	if r.stores == nil {
		stores, err := repositories.Open(config.Storage, r.logger)
		if err != nil {
			return fmt.Errorf("failed to open %s stores: %w", config.Storage.Backend, err)
		}
		r.stores = stores
	}

	r.writePlain("%s config: %s\n", r.palette.OK("✓"), r.configPath)
	r.writePlain("%s downloads: %s\n", r.palette.OK("✓"), config.Download.Directory)
	r.writePlain("%s storage: %s (%s)\n", r.palette.OK("✓"), dirs[1], r.stores.Backend)
	r.writePlainln("Next: ytsync playlist add <url>")
	return nil
}
