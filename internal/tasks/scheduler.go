package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
)

const (
	DefaultInterval    = time.Hour
	DefaultWarmup      = time.Minute
	DefaultStopTimeout = 10 * time.Second
)

// SchedulerOpts configures a [Scheduler]. Zero durations fall back to the defaults.
type SchedulerOpts struct {
	Interval    time.Duration
	Warmup      time.Duration
	StopTimeout time.Duration
	Logger      *log.Logger
}

// SchedulerStatus is a snapshot of the scheduler's state.
type SchedulerStatus struct {
	Running    bool                  `json:"running"`
	Interval   time.Duration         `json:"interval"`
	LastRunAt  *time.Time            `json:"last_run_at,omitempty"`
	LastRunID  string                `json:"last_run_id,omitempty"`
	LastResult *models.SyncAllResult `json:"last_result,omitempty"`
}

// Scheduler runs [AllSyncer.SyncAllPlaylists] at a fixed rate.
//
// The first firing happens after the warm-up delay and the following ones every interval, measured
// start to start. Firings run in their own goroutine, so a slow cycle can overlap the next one.
// Stop prevents future firings and waits up to the stop timeout for in-flight ones.
type Scheduler struct {
	engine      AllSyncer
	interval    time.Duration
	warmup      time.Duration
	stopTimeout time.Duration
	logger      *log.Logger

	mu         sync.Mutex
	running    bool
	stopCh     chan struct{}
	loopDone   chan struct{}
	inflight   *sync.WaitGroup
	lastRunAt  *time.Time
	lastRunID  string
	lastResult *models.SyncAllResult
	now        func() time.Time
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(engine AllSyncer, opts SchedulerOpts) *Scheduler {
	s := &Scheduler{
		engine:      engine,
		interval:    opts.Interval,
		warmup:      opts.Warmup,
		stopTimeout: opts.StopTimeout,
		logger:      opts.Logger,
		now:         time.Now,
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.warmup <= 0 {
		s.warmup = DefaultWarmup
	}
	if s.stopTimeout <= 0 {
		s.stopTimeout = DefaultStopTimeout
	}
	if s.logger == nil {
		s.logger = shared.NewLogger(nil)
	}
	return s
}

// Start arms the timer. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Info("scheduler already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.loopDone = make(chan struct{})
	s.inflight = &sync.WaitGroup{}

	go s.loop(s.stopCh, s.loopDone, s.inflight)
	s.logger.Info("scheduler started", "interval", s.interval, "warmup", s.warmup)
}

// Stop cancels future firings and waits for in-flight ones up to the stop timeout.
// Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Info("scheduler not running")
		return
	}
	s.running = false
	stopCh, loopDone, inflight := s.stopCh, s.loopDone, s.inflight
	s.mu.Unlock()

	close(stopCh)
	<-loopDone

	done := make(chan struct{})
	go func() {
		inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
	case <-time.After(s.stopTimeout):
		s.logger.Warn("scheduler stopped, abandoning in-flight sync", "timeout", s.stopTimeout)
	}
}

// Running reports whether the scheduler is armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns the scheduler's current state.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SchedulerStatus{
		Running:   s.running,
		Interval:  s.interval,
		LastRunID: s.lastRunID,
	}
	if s.lastRunAt != nil {
		at := *s.lastRunAt
		status.LastRunAt = &at
	}
	if s.lastResult != nil {
		res := *s.lastResult
		status.LastResult = &res
	}
	return status
}

// StatusInfo renders the status as display lines.
func (s *Scheduler) StatusInfo() []string {
	status := s.Status()

	state := "stopped"
	if status.Running {
		state = "running"
	}
	last := "never"
	if status.LastRunAt != nil {
		last = status.LastRunAt.Format(time.DateTime)
	}
	return []string{
		fmt.Sprintf("Scheduler: %s", state),
		fmt.Sprintf("Interval: %s", status.Interval),
		fmt.Sprintf("Last run: %s", last),
	}
}

func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}, inflight *sync.WaitGroup) {
	defer close(done)

	warmup := time.NewTimer(s.warmup)
	defer warmup.Stop()
	select {
	case <-stop:
		return
	case <-warmup.C:
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		default:
		}

		inflight.Add(1)
		go s.fire(inflight)

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// fire runs one cycle. The cycle is not tied to Stop, so it always runs to completion.
func (s *Scheduler) fire(inflight *sync.WaitGroup) {
	defer inflight.Done()

	at := s.now()
	s.mu.Lock()
	s.lastRunAt = &at
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled sync panicked", "panic", r)
		}
	}()

	res, err := s.engine.SyncAllPlaylists(context.Background(), nil)
	if err != nil {
		s.logger.Error("scheduled sync failed", "error", err)
		return
	}

	s.mu.Lock()
	s.lastRunID = res.RunID
	s.lastResult = &res
	s.mu.Unlock()
}
