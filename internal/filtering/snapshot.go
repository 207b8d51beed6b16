package filtering

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// RuleSet is the raw, store-shaped mirror configuration a snapshot is built
// from: whitelist specifiers, suppression rules, release interval bounds and
// the target feed identifier.
type RuleSet struct {
	Whitelist          []string
	AdRules            []Rule
	MinIntervalSeconds int
	MaxIntervalSeconds int
	TargetChatID       string
	QueueEnabled       bool
}

// Snapshot is an immutable compiled view of a RuleSet. Consumers read a
// snapshot through an Engine and never observe a half-updated rule list.
type Snapshot struct {
	Channels     *ChannelMatcher
	Ads          *AdFilter
	MinInterval  time.Duration
	MaxInterval  time.Duration
	TargetChatID string
	QueueEnabled bool
}

// BuildSnapshot compiles a rule set. Interval bounds are validated here so a
// bad ordering is rejected at reload time instead of surfacing during
// scheduling.
func BuildSnapshot(rs RuleSet, logger *slog.Logger) (*Snapshot, error) {
	if rs.MinIntervalSeconds < 0 {
		return nil, fmt.Errorf("min interval must be >= 0, got %d", rs.MinIntervalSeconds)
	}
	if rs.MaxIntervalSeconds < rs.MinIntervalSeconds {
		return nil, fmt.Errorf("max interval %d is below min interval %d",
			rs.MaxIntervalSeconds, rs.MinIntervalSeconds)
	}
	return &Snapshot{
		Channels:     NewChannelMatcher(rs.Whitelist),
		Ads:          NewAdFilter(rs.AdRules, logger),
		MinInterval:  time.Duration(rs.MinIntervalSeconds) * time.Second,
		MaxInterval:  time.Duration(rs.MaxIntervalSeconds) * time.Second,
		TargetChatID: rs.TargetChatID,
		QueueEnabled: rs.QueueEnabled,
	}, nil
}

// Engine holds the live snapshot behind a single atomically swappable
// reference. Reload replaces the whole snapshot; matcher internals are never
// mutated in place.
type Engine struct {
	current atomic.Pointer[Snapshot]
}

// NewEngine returns an engine primed with the given snapshot.
func NewEngine(snapshot *Snapshot) *Engine {
	e := &Engine{}
	if snapshot != nil {
		e.current.Store(snapshot)
	}
	return e
}

// Current returns the live snapshot. Before the first Swap an empty,
// deny-everything snapshot is returned so callers never see nil.
func (e *Engine) Current() *Snapshot {
	if snap := e.current.Load(); snap != nil {
		return snap
	}
	return &Snapshot{
		Channels: NewChannelMatcher(nil),
		Ads:      NewAdFilter(nil, nil),
	}
}

// Swap atomically replaces the live snapshot.
func (e *Engine) Swap(snapshot *Snapshot) {
	if snapshot == nil {
		return
	}
	e.current.Store(snapshot)
}
