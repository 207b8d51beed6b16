// Package daemon wires the long-running feedmirror process: the release
// scheduler and the reload watcher run as independent periodic loops, with
// an optional message source feeding the ingestion pipeline.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gofrs/flock"

	"feedmirror/internal/config"
	"feedmirror/internal/filtering"
	"feedmirror/internal/ingest"
	"feedmirror/internal/logging"
	"feedmirror/internal/publisher"
	"feedmirror/internal/reload"
	"feedmirror/internal/scheduler"
	"feedmirror/internal/store"
)

// ErrAlreadyRunning indicates another daemon instance holds the lock file.
var ErrAlreadyRunning = errors.New("another feedmirror instance is already running")

// Daemon owns the background loops and their shared filtering engine.
type Daemon struct {
	cfg      *config.Config
	store    *store.Store
	logger   *slog.Logger
	engine   *filtering.Engine
	sched    *scheduler.Scheduler
	watcher  *reload.Watcher
	pipeline *ingest.Pipeline
	source   ingest.Source
	lock     *flock.Flock

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures optional daemon behavior.
type Option func(*Daemon)

// WithSource attaches a message source whose output feeds the pipeline.
func WithSource(source ingest.Source) Option {
	return func(d *Daemon) {
		d.source = source
	}
}

// New constructs the daemon and its components around a shared store.
func New(cfg *config.Config, st *store.Store, pub publisher.Publisher, logger *slog.Logger, opts ...Option) *Daemon {
	engine := filtering.NewEngine(nil)
	sched := scheduler.New(cfg, st, engine, pub, logger)
	d := &Daemon{
		cfg:      cfg,
		store:    st,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		engine:   engine,
		sched:    sched,
		watcher:  reload.New(cfg, st, engine, logger),
		pipeline: ingest.New(st, engine, sched, logger),
		lock:     flock.New(cfg.LockPath()),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Pipeline exposes the ingestion pipeline for callers that push messages
// directly (tests, manual injection).
func (d *Daemon) Pipeline() *ingest.Pipeline {
	return d.pipeline
}

// Engine exposes the live filtering engine.
func (d *Daemon) Engine() *filtering.Engine {
	return d.engine
}

// Start acquires the instance lock, loads the initial rule set and launches
// the background loops. A store failure here is fatal: running without rules
// would admit nothing and queue nothing, silently.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("daemon already running")
	}

	locked, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}

	reset, err := d.store.ResetStuckProcessing(ctx)
	if err != nil {
		d.unlock()
		return fmt.Errorf("reset stuck posts: %w", err)
	}
	if reset > 0 {
		d.logger.Warn("posts reclaimed from interrupted run",
			logging.Int64("count", reset),
			logging.String(logging.FieldEventType, "stuck_posts_reset"),
		)
	}

	ruleSet, err := d.store.CurrentRuleSet(ctx)
	if err != nil {
		d.unlock()
		return fmt.Errorf("load initial rule set: %w", err)
	}
	snapshot, err := filtering.BuildSnapshot(ruleSet, d.logger)
	if err != nil {
		d.unlock()
		return fmt.Errorf("compile initial rule set: %w", err)
	}
	d.engine.Swap(snapshot)

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true

	d.sched.Start(runCtx)
	d.watcher.Start(runCtx)

	if d.source != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.source.Run(runCtx, d.handleMessage); err != nil && runCtx.Err() == nil {
				d.logger.Error("message source stopped",
					logging.Error(err),
					logging.String(logging.FieldEventType, "source_stopped"),
				)
			}
		}()
	}

	d.logger.Info("daemon started",
		logging.Int("whitelist_entries", snapshot.Channels.Size()),
		logging.Int("suppression_rules", snapshot.Ads.RuleCount()),
		logging.Bool("queue_enabled", snapshot.QueueEnabled),
	)
	return nil
}

func (d *Daemon) handleMessage(ctx context.Context, msg ingest.Message) error {
	_, err := d.pipeline.Handle(ctx, msg)
	return err
}

// Stop shuts the loops down. The watcher exits promptly; the scheduler
// allows an in-flight publish a bounded grace period to finish.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	d.running = false
	d.cancel = nil
	d.mu.Unlock()

	cancel()
	d.watcher.Stop()
	d.sched.Stop()
	d.wg.Wait()
	d.unlock()
	d.logger.Info("daemon stopped")
}

func (d *Daemon) unlock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("instance lock not released", logging.Error(err))
	}
}
