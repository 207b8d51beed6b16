// Package testsupport provides shared helpers for package tests: temp-backed
// configurations and stores.
package testsupport

import (
	"path/filepath"
	"testing"

	"feedmirror/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test
// and fast loop cadences.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.MediaDir = filepath.Join(base, "media")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Queue.PollIntervalSeconds = 1
	cfg.Queue.ShutdownGraceSeconds = 5
	cfg.Reload.PollIntervalSeconds = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithIntervals overrides the seeded release interval bounds.
func WithIntervals(minSeconds, maxSeconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Queue.MinIntervalSeconds = minSeconds
		cfg.Queue.MaxIntervalSeconds = maxSeconds
	}
}

// WithInlineLimit overrides the payload offload threshold in KiB.
func WithInlineLimit(kib int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Queue.InlinePayloadLimitKiB = kib
	}
}
