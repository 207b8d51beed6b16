package scheduler

import (
	"context"
	"fmt"
	"time"

	"feedmirror/internal/logging"
	"feedmirror/internal/store"
)

// Tick performs one unit of queue work: claim the single oldest due post and
// attempt its publish. If a publish is already in flight the tick is a no-op,
// so ticks firing faster than a slow publish never overlap.
func (s *Scheduler) Tick(ctx context.Context) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil
	}
	defer s.inFlight.Store(false)

	post, err := s.store.NextDue(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("fetch due post: %w", err)
	}
	if post == nil {
		return nil
	}

	claimed, err := s.store.MarkProcessing(ctx, post.ID)
	if err != nil {
		return fmt.Errorf("claim post %d: %w", post.ID, err)
	}
	if !claimed {
		// Deleted out of band between fetch and claim; nothing to do.
		s.logger.Debug("due post vanished before claim", logging.Int64(logging.FieldPostID, post.ID))
		return nil
	}

	s.release(ctx, post)
	return nil
}

// release runs the publish side effect for a claimed post. The attempt is
// detached from loop cancellation so a shutdown mid-publish lets it finish.
func (s *Scheduler) release(ctx context.Context, post *store.Post) {
	ctx = context.WithoutCancel(ctx)

	item, err := s.store.LoadItem(post)
	if err != nil {
		s.fail(ctx, post, err)
		return
	}

	snap := s.engine.Current()
	res, err := s.pub.Publish(ctx, item, snap.TargetChatID)
	if err != nil {
		s.fail(ctx, post, err)
		return
	}

	archived := store.ArchivedPost{
		Fingerprint:     post.Fingerprint,
		SourceChannelID: post.SourceChannelID,
		SourceMessageID: post.SourceMessageID,
		FilePath:        post.PayloadPath,
	}
	if res.TargetMessageID != 0 {
		archived.TargetMessageID = &res.TargetMessageID
	}
	if err := s.store.AppendArchived(ctx, archived); err != nil {
		s.fail(ctx, post, err)
		return
	}

	if _, err := s.store.MarkCompleted(ctx, post.ID, time.Now()); err != nil {
		s.logger.Error("post published but completion not recorded",
			logging.Int64(logging.FieldPostID, post.ID),
			logging.Error(err),
			logging.String(logging.FieldEventType, "completion_record_failed"),
		)
		return
	}

	s.logger.Info("post released",
		logging.Int64(logging.FieldPostID, post.ID),
		logging.String(logging.FieldFingerprint, post.Fingerprint),
		logging.Int64(logging.FieldChannelID, post.SourceChannelID),
		logging.Int64("target_message_id", res.TargetMessageID),
	)
}

// fail marks a post terminally failed. There is no automatic retry: a
// permanently bad payload must not wedge the queue, and operators can
// re-submit failed posts explicitly.
func (s *Scheduler) fail(ctx context.Context, post *store.Post, cause error) {
	if _, err := s.store.MarkFailed(ctx, post.ID, time.Now(), cause.Error()); err != nil {
		s.logger.Error("failed post status not recorded",
			logging.Int64(logging.FieldPostID, post.ID),
			logging.Error(err),
			logging.String(logging.FieldEventType, "failure_record_failed"),
		)
	}
	s.logger.Error("publish failed; post marked failed",
		logging.Int64(logging.FieldPostID, post.ID),
		logging.String(logging.FieldFingerprint, post.Fingerprint),
		logging.Int64(logging.FieldChannelID, post.SourceChannelID),
		logging.Error(cause),
		logging.String(logging.FieldEventType, "publish_failed"),
		logging.String(logging.FieldErrorHint, "inspect the post and re-submit with 'feedmirror queue retry'"),
	)
}
