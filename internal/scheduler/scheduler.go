// Package scheduler implements the release scheduler: it decouples "item
// admitted" from "item visible on the target feed" by persisting admitted
// items with a jittered release time and publishing them one at a time from
// a polling loop.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"feedmirror/internal/config"
	"feedmirror/internal/filtering"
	"feedmirror/internal/logging"
	"feedmirror/internal/publisher"
	"feedmirror/internal/store"
)

// Scheduler owns the queue tick loop. At most one publish attempt is in
// flight at any time; everything else is re-read from the store per tick.
type Scheduler struct {
	store        *store.Store
	engine       *filtering.Engine
	pub          publisher.Publisher
	logger       *slog.Logger
	pollInterval time.Duration
	grace        time.Duration

	inFlight atomic.Bool

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs a scheduler. The publisher is injected so this package
// never depends on a specific network client.
func New(cfg *config.Config, st *store.Store, engine *filtering.Engine, pub publisher.Publisher, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:        st,
		engine:       engine,
		pub:          pub,
		logger:       logging.NewComponentLogger(logger, "scheduler"),
		pollInterval: time.Duration(cfg.Queue.PollIntervalSeconds) * time.Second,
		grace:        time.Duration(cfg.Queue.ShutdownGraceSeconds) * time.Second,
	}
}

// Start launches the recurring tick. Calling Start while running is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Debug("start ignored; scheduler already running")
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.run(runCtx, s.done)
	s.logger.Info("release scheduler started", logging.Duration("poll_interval", s.pollInterval))
}

// Stop cancels the recurring tick. An in-flight publish attempt is allowed
// to finish; Stop waits for it up to the configured grace period.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Debug("stop ignored; scheduler not running")
		return
	}
	cancel := s.cancel
	done := s.done
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(s.grace):
		s.logger.Warn("shutdown grace elapsed with publish still in flight",
			logging.Duration("grace", s.grace),
			logging.String(logging.FieldEventType, "shutdown_grace_elapsed"),
		)
	}
}

// Stats returns queue record counts grouped by status.
func (s *Scheduler) Stats(ctx context.Context) (map[store.Status]int, error) {
	return s.store.CountByStatus(ctx)
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := s.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("scheduler tick failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "tick_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}
	}
}
