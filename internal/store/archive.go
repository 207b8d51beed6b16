package store

import (
	"context"
	"fmt"
	"time"
)

// AppendArchived records a permanently published post. The fingerprint is
// globally unique; appending one that already exists is a no-op, so a
// concurrent duplicate insert and "already archived" are equivalent outcomes.
func (s *Store) AppendArchived(ctx context.Context, post ArchivedPost) error {
	var targetID any
	if post.TargetMessageID != nil {
		targetID = *post.TargetMessageID
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO archived_posts (
            fingerprint, source_channel_id, source_message_id,
            target_message_id, file_path, created_at
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		post.Fingerprint,
		post.SourceChannelID,
		post.SourceMessageID,
		targetID,
		nullableString(post.FilePath),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("append archived post: %w", err)
	}
	return nil
}

// HasFingerprint reports whether a fingerprint has been archived. A lookup
// failure propagates to the caller; it is never treated as "not a duplicate".
func (s *Store) HasFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	var count int
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM archived_posts WHERE fingerprint = ?`,
		fingerprint,
	)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("fingerprint lookup: %w", err)
	}
	return count > 0, nil
}

// ArchivedCount returns the total number of archived posts.
func (s *Store) ArchivedCount(ctx context.Context) (int64, error) {
	var count int64
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM archived_posts`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("archived count: %w", err)
	}
	return count, nil
}
