// Package publisher defines the publish capability used to emit admitted
// items to the target feed, and its Bot API backed implementation. The core
// pipeline depends only on the Publisher interface so no specific network
// client leaks into scheduling or ingestion.
package publisher

import (
	"context"

	"feedmirror/internal/media"
)

// Result reports a successful publish.
type Result struct {
	TargetMessageID int64
}

// Publisher emits a media item to a target feed.
type Publisher interface {
	Publish(ctx context.Context, item media.Item, targetChatID string) (Result, error)
}

// Noop discards publishes. Used when no bot token is configured so the
// pipeline can run end to end without a live target.
type Noop struct{}

func (Noop) Publish(context.Context, media.Item, string) (Result, error) {
	return Result{}, nil
}
