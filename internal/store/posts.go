package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"feedmirror/internal/media"
)

// PendingPost describes a new queue record before insertion.
type PendingPost struct {
	Item            media.Item
	Fingerprint     string
	SourceChannelID int64
	SourceMessageID int64
	ScheduledAt     time.Time
}

// InsertPending persists a new pending post with its computed release time.
// The record id is assigned by the database so concurrent enqueuers get a
// total order without client-side coordination.
func (s *Store) InsertPending(ctx context.Context, pending PendingPost) (*Post, error) {
	if pending.Fingerprint == "" {
		return nil, errors.New("fingerprint is required")
	}

	inline, payloadPath, err := s.encodePayload(pending.Item.Payload)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO queue_posts (
            fingerprint, source_channel_id, source_message_id,
            file_name, mime_type, payload, payload_path,
            status, scheduled_at, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pending.Fingerprint,
		pending.SourceChannelID,
		pending.SourceMessageID,
		nullableString(pending.Item.FileName),
		nullableString(pending.Item.MimeType),
		inline,
		nullableString(payloadPath),
		StatusPending,
		formatTime(pending.ScheduledAt),
		formatTime(time.Now()),
	)
	if err != nil {
		s.discardPayloadFile(payloadPath)
		return nil, fmt.Errorf("insert pending post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetPost(ctx, id)
}

// GetPost fetches a post by identifier. Returns (nil, nil) when the record
// no longer exists, which legitimately happens after out-of-band deletion.
func (s *Store) GetPost(ctx context.Context, id int64) (*Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM queue_posts WHERE id = ?`, id)
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

// NextDue returns the oldest pending post whose release time has passed,
// breaking ties by ascending scheduled time then ascending id. Returns
// (nil, nil) when nothing is due.
func (s *Store) NextDue(ctx context.Context, now time.Time) (*Post, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+postColumns+` FROM queue_posts
         WHERE status = ? AND scheduled_at <= ?
         ORDER BY scheduled_at, id LIMIT 1`,
		StatusPending,
		formatTime(now),
	)
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next due post: %w", err)
	}
	return post, nil
}

// MarkProcessing claims a pending post for publishing. The status guard in
// the WHERE clause makes the claim atomic; a false return means the record
// was deleted or already claimed.
func (s *Store) MarkProcessing(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_posts SET status = ? WHERE id = ? AND status = ?`,
		StatusProcessing, id, StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("mark processing: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkCompleted finalizes a successfully published post.
func (s *Store) MarkCompleted(ctx context.Context, id int64, processedAt time.Time) (bool, error) {
	return s.finalize(ctx, id, StatusCompleted, processedAt, "")
}

// MarkFailed finalizes a post whose publish attempt failed. Failed posts are
// terminal; they stay in the queue for operator inspection.
func (s *Store) MarkFailed(ctx context.Context, id int64, processedAt time.Time, errorMessage string) (bool, error) {
	return s.finalize(ctx, id, StatusFailed, processedAt, errorMessage)
}

func (s *Store) finalize(ctx context.Context, id int64, status Status, processedAt time.Time, errorMessage string) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_posts
         SET status = ?, processed_at = ?, error_message = ?
         WHERE id = ? AND status = ?`,
		status,
		formatTime(processedAt),
		nullableString(errorMessage),
		id,
		StatusProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("set status %s: %w", status, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// LatestPendingScheduledAt returns the most distant release time among
// pending posts, or nil when the queue holds none. New schedules build on
// this value so release times stay non-decreasing within a session.
func (s *Store) LatestPendingScheduledAt(ctx context.Context) (*time.Time, error) {
	var raw sql.NullString
	row := s.db.QueryRowContext(
		ctx,
		`SELECT MAX(scheduled_at) FROM queue_posts WHERE status = ?`,
		StatusPending,
	)
	if err := row.Scan(&raw); err != nil {
		return nil, fmt.Errorf("latest pending scheduled_at: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	t, err := parseTimeString(raw.String)
	if err != nil {
		return nil, fmt.Errorf("parse scheduled_at %q: %w", raw.String, err)
	}
	return &t, nil
}

// CountByStatus returns post counts grouped by status.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM queue_posts GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// ListPosts returns posts filtered by status set (or all posts when no
// status is provided), ordered by scheduled release time.
func (s *Store) ListPosts(ctx context.Context, statuses ...Status) ([]*Post, error) {
	baseQuery := `SELECT ` + postColumns + ` FROM queue_posts`
	orderClause := ` ORDER BY scheduled_at, id`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []*Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// RemovePost deletes a post and its offloaded payload file, if any.
func (s *Store) RemovePost(ctx context.Context, id int64) (bool, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return false, err
	}
	if post == nil {
		return false, nil
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_posts WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		s.discardPayloadFile(post.PayloadPath)
	}
	return affected > 0, nil
}

// RetryFailed moves failed posts back to pending with an immediate release
// time. With no ids, every failed post is re-submitted.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	now := formatTime(time.Now())
	if len(ids) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE queue_posts
             SET status = ?, scheduled_at = ?, processed_at = NULL, error_message = NULL
             WHERE status = ?`,
			StatusPending, now, StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed posts: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+3)
	args = append(args, StatusPending, now)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, StatusFailed)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_posts
         SET status = ?, scheduled_at = ?, processed_at = NULL, error_message = NULL
         WHERE id IN (`+placeholders+`) AND status = ?`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("retry selected posts: %w", err)
	}
	return res.RowsAffected()
}

// ResetStuckProcessing returns posts left in processing by a crashed run to
// pending. Their scheduled time is preserved so they release promptly.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_posts SET status = ? WHERE status = ?`,
		StatusPending, StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck posts: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes failed posts from the queue.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	return s.clearByStatus(ctx, StatusFailed)
}

// ClearCompleted removes completed posts from the queue.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	return s.clearByStatus(ctx, StatusCompleted)
}

func (s *Store) clearByStatus(ctx context.Context, status Status) (int64, error) {
	posts, err := s.ListPosts(ctx, status)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_posts WHERE status = ?`, status)
	if err != nil {
		return 0, fmt.Errorf("clear %s posts: %w", status, err)
	}
	for _, post := range posts {
		s.discardPayloadFile(post.PayloadPath)
	}
	return res.RowsAffected()
}

const postColumns = "id, fingerprint, source_channel_id, source_message_id, file_name, mime_type, payload, payload_path, status, scheduled_at, created_at, processed_at, error_message"

func scanPost(scanner interface{ Scan(dest ...any) error }) (*Post, error) {
	var (
		id           int64
		fp           string
		srcChannel   int64
		srcMessage   int64
		fileName     sql.NullString
		mimeType     sql.NullString
		payload      []byte
		payloadPath  sql.NullString
		statusStr    string
		scheduledRaw string
		createdRaw   string
		processedRaw sql.NullString
		errorMessage sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&fp,
		&srcChannel,
		&srcMessage,
		&fileName,
		&mimeType,
		&payload,
		&payloadPath,
		&statusStr,
		&scheduledRaw,
		&createdRaw,
		&processedRaw,
		&errorMessage,
	); err != nil {
		return nil, err
	}

	post := &Post{
		ID:              id,
		Fingerprint:     fp,
		SourceChannelID: srcChannel,
		SourceMessageID: srcMessage,
		FileName:        fileName.String,
		MimeType:        mimeType.String,
		PayloadInline:   payload,
		PayloadPath:     payloadPath.String,
		Status:          Status(statusStr),
		ErrorMessage:    errorMessage.String,
	}

	scheduled, err := parseTimeString(scheduledRaw)
	if err != nil {
		return nil, fmt.Errorf("parse scheduled_at: %w", err)
	}
	post.ScheduledAt = scheduled

	created, err := parseTimeString(createdRaw)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	post.CreatedAt = created

	if processedRaw.Valid {
		if processed, err := parseTimeString(processedRaw.String); err == nil {
			post.ProcessedAt = &processed
		}
	}
	return post, nil
}
