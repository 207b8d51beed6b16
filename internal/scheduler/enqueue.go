package scheduler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"feedmirror/internal/logging"
	"feedmirror/internal/media"
	"feedmirror/internal/store"
)

// Enqueue persists an admitted item as a pending post. The release time is
// max(now, latest pending release) plus a uniform jitter within the live
// interval bounds, so schedules are non-decreasing within a session even
// when items arrive back to back.
func (s *Scheduler) Enqueue(ctx context.Context, item media.Item, fp string, sourceChannelID, sourceMessageID int64) (*store.Post, error) {
	snap := s.engine.Current()

	base := time.Now()
	latest, err := s.store.LatestPendingScheduledAt(ctx)
	if err != nil {
		return nil, fmt.Errorf("compute schedule base: %w", err)
	}
	if latest != nil && latest.After(base) {
		base = *latest
	}
	scheduledAt := base.Add(jitter(snap.MinInterval, snap.MaxInterval))

	post, err := s.store.InsertPending(ctx, store.PendingPost{
		Item:            item,
		Fingerprint:     fp,
		SourceChannelID: sourceChannelID,
		SourceMessageID: sourceMessageID,
		ScheduledAt:     scheduledAt,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("post queued for release",
		logging.Int64(logging.FieldPostID, post.ID),
		logging.String(logging.FieldFingerprint, fp),
		logging.Int64(logging.FieldChannelID, sourceChannelID),
		logging.Time("scheduled_at", post.ScheduledAt),
	)
	return post, nil
}

// PublishImmediate bypasses the queue: publish now, then archive. Used when
// queuing is disabled in the live settings.
func (s *Scheduler) PublishImmediate(ctx context.Context, item media.Item, fp string, sourceChannelID, sourceMessageID int64) error {
	snap := s.engine.Current()

	res, err := s.pub.Publish(ctx, item, snap.TargetChatID)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	archived := store.ArchivedPost{
		Fingerprint:     fp,
		SourceChannelID: sourceChannelID,
		SourceMessageID: sourceMessageID,
	}
	if res.TargetMessageID != 0 {
		archived.TargetMessageID = &res.TargetMessageID
	}
	if err := s.store.AppendArchived(ctx, archived); err != nil {
		return err
	}

	s.logger.Info("post published immediately",
		logging.String(logging.FieldFingerprint, fp),
		logging.Int64(logging.FieldChannelID, sourceChannelID),
		logging.Int64("target_message_id", res.TargetMessageID),
	)
	return nil
}

// jitter draws a uniform delay from [min, max]. Equal bounds yield exactly
// min, which tests rely on for deterministic schedules.
func jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)+1))
}
