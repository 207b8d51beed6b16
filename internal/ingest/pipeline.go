// Package ingest composes the admission filter, fingerprinter, deduplicator
// and release scheduler into the message handling pipeline. The wire client
// that produces messages is an external collaborator behind the Source
// interface.
package ingest

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"feedmirror/internal/dedup"
	"feedmirror/internal/filtering"
	"feedmirror/internal/logging"
	"feedmirror/internal/media"
	"feedmirror/internal/scheduler"
	"feedmirror/internal/store"
)

// Message is a raw ingested message from a source feed.
type Message struct {
	ChannelID       int64
	ChannelUsername string
	MessageID       int64
	Text            string
	Caption         string
	Media           []media.Item
}

// Source streams raw messages into a handler. Implementations own
// authentication and transport; the pipeline never sees either.
type Source interface {
	Run(ctx context.Context, handle func(ctx context.Context, msg Message) error) error
}

// Outcome summarizes how one message was classified.
type Outcome struct {
	ChannelRejected bool
	Suppressed      bool
	Queued          int
	Published       int
	Duplicates      int
}

// Pipeline decides, for each incoming message, whether it is admitted,
// whether its media has been seen before, and how accepted items are
// released.
type Pipeline struct {
	store  *store.Store
	engine *filtering.Engine
	sched  *scheduler.Scheduler
	logger *slog.Logger
}

// New constructs the ingestion pipeline.
func New(st *store.Store, engine *filtering.Engine, sched *scheduler.Scheduler, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:  st,
		engine: engine,
		sched:  sched,
		logger: logging.NewComponentLogger(logger, "ingest"),
	}
}

// Handle classifies one message: whitelist check, suppression rule check,
// dedup against the batch and the archive, then enqueue or immediate publish
// per the live settings. A dedup oracle failure aborts the whole batch with
// nothing enqueued.
func (p *Pipeline) Handle(ctx context.Context, msg Message) (Outcome, error) {
	snap := p.engine.Current()
	logger := p.logger.With(
		logging.String(logging.FieldBatchID, uuid.NewString()),
		logging.Int64(logging.FieldChannelID, msg.ChannelID),
		logging.Int64(logging.FieldMessageID, msg.MessageID),
	)

	if !snap.Channels.IsAllowed(msg.ChannelID, msg.ChannelUsername) {
		logger.Debug("message rejected; channel not whitelisted")
		return Outcome{ChannelRejected: true}, nil
	}

	if snap.Ads.IsSuppressed(msg.Text, msg.Caption) {
		logger.Info("message suppressed by rule")
		return Outcome{Suppressed: true}, nil
	}

	partitioned, err := dedup.Partition(ctx, msg.Media, p.store.HasFingerprint)
	if err != nil {
		logger.Error("dedup aborted; batch not enqueued",
			logging.Error(err),
			logging.String(logging.FieldEventType, "dedup_aborted"),
			logging.String(logging.FieldErrorHint, "check archive database access"),
		)
		return Outcome{}, err
	}

	outcome := Outcome{Duplicates: partitioned.DuplicateCount}
	for _, candidate := range partitioned.Admitted {
		if snap.QueueEnabled {
			if _, err := p.sched.Enqueue(ctx, candidate.Item, candidate.Fingerprint, msg.ChannelID, msg.MessageID); err != nil {
				return outcome, err
			}
			outcome.Queued++
			continue
		}
		if err := p.sched.PublishImmediate(ctx, candidate.Item, candidate.Fingerprint, msg.ChannelID, msg.MessageID); err != nil {
			return outcome, err
		}
		outcome.Published++
	}

	if outcome.Duplicates > 0 {
		logger.Debug("duplicates skipped", logging.Int("count", outcome.Duplicates))
	}
	return outcome, nil
}
