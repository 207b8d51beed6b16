// Package reload makes out-of-band configuration changes visible to the
// running daemon. It polls the store's reload flag and, when raised, rebuilds
// the filtering snapshot and swaps it in atomically.
package reload

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"feedmirror/internal/config"
	"feedmirror/internal/filtering"
	"feedmirror/internal/logging"
	"feedmirror/internal/store"
)

// Watcher polls the shared reload flag on a fixed interval.
type Watcher struct {
	store    *store.Store
	engine   *filtering.Engine
	logger   *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs a reload watcher.
func New(cfg *config.Config, st *store.Store, engine *filtering.Engine, logger *slog.Logger) *Watcher {
	return &Watcher{
		store:    st,
		engine:   engine,
		logger:   logging.NewComponentLogger(logger, "reload"),
		interval: time.Duration(cfg.Reload.PollIntervalSeconds) * time.Second,
	}
}

// Start launches the polling loop. Calling Start while running is a no-op.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		w.logger.Debug("start ignored; reload watcher already running")
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true
	go w.run(runCtx, w.done)
	w.logger.Info("reload watcher started", logging.Duration("poll_interval", w.interval))
}

// Stop cancels the polling loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.logger.Debug("stop ignored; reload watcher not running")
		return
	}
	cancel := w.cancel
	done := w.done
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	<-done
}

func (w *Watcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		w.Tick(ctx)
	}
}

// Tick checks the reload flag and reloads when it is raised. Reload failures
// only log; the flag stays set so the next tick retries, and the daemon keeps
// running on the previous snapshot. The flag is cleared only after the new
// snapshot is live.
func (w *Watcher) Tick(ctx context.Context) {
	needed, err := w.store.NeedsReload(ctx)
	if err != nil {
		w.logger.Error("reload flag check failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "reload_check_failed"),
		)
		return
	}
	if !needed {
		return
	}

	ruleSet, err := w.store.CurrentRuleSet(ctx)
	if err != nil {
		w.logger.Error("configuration reload failed; keeping previous rules",
			logging.Error(err),
			logging.String(logging.FieldEventType, "reload_failed"),
			logging.String(logging.FieldErrorHint, "flag stays raised; reload retries next tick"),
		)
		return
	}

	snapshot, err := filtering.BuildSnapshot(ruleSet, w.logger)
	if err != nil {
		w.logger.Error("configuration reload rejected; keeping previous rules",
			logging.Error(err),
			logging.String(logging.FieldEventType, "reload_rejected"),
			logging.String(logging.FieldErrorHint, "fix the stored settings; reload retries next tick"),
		)
		return
	}

	w.engine.Swap(snapshot)

	if err := w.store.ClearReloadFlag(ctx); err != nil {
		// New rules are live; a set flag only causes a redundant reload.
		w.logger.Warn("reload flag not cleared",
			logging.Error(err),
			logging.String(logging.FieldEventType, "reload_flag_clear_failed"),
		)
	}

	w.logger.Info("configuration reloaded",
		logging.Int("whitelist_entries", snapshot.Channels.Size()),
		logging.Int("suppression_rules", snapshot.Ads.RuleCount()),
		logging.Bool("queue_enabled", snapshot.QueueEnabled),
		logging.Duration("min_interval", snapshot.MinInterval),
		logging.Duration("max_interval", snapshot.MaxInterval),
	)
}
