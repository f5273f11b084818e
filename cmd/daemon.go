package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/ytsync/internal/server"
	"github.com/desertthunder/ytsync/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// Daemon runs the scheduler and the HTTP API until interrupted.
//
// On shutdown the server drains first, then the scheduler stops and waits for an in-flight cycle.
func (r *Runner) Daemon(ctx context.Context, cmd *cli.Command) error {
	cfg := r.cfg()
	if !cmd.Bool("no-metrics") && r.metrics == nil {
		r.metrics = server.NewMetrics()
	}

	engine, err := r.Engine()
	if err != nil {
		return err
	}

	downloader := r.prober()
	if !downloader.Available(ctx) {
		r.logger.Warn("yt-dlp is not available, downloads will fail", "path", cfg.YtDlp.Path)
	}

	interval := cfg.Sync.Interval()
	if d := cmd.Duration("interval"); d > 0 {
		interval = d
	}
	scheduler := tasks.NewScheduler(engine, tasks.SchedulerOpts{
		Interval:    interval,
		Warmup:      cfg.Sync.Warmup(),
		StopTimeout: cfg.Sync.StopTimeout(),
		Logger:      r.logger,
	})

	addr := cmd.String("addr")
	if addr == "" {
		addr = cfg.Server.Addr()
	}
	srv := server.New(server.Options{
		Addr:      addr,
		Engine:    engine,
		Scheduler: scheduler,
		Prober:    downloader,
		Metrics:   r.metrics,
		Logger:    r.logger,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	scheduler.Start()
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})

	r.logger.Info("daemon started", "addr", addr, "interval", interval)
	err = g.Wait()
	r.logger.Info("daemon stopped")
	return err
}
