package store

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queued post.
//
//	pending --(picked up at/after scheduled time)--> processing
//	processing --(publish succeeds)--> completed
//	processing --(publish fails)--> failed
//
// completed and failed are terminal. Failed posts are never retried
// automatically; operators re-submit them explicitly.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Post is a queued unit of scheduled work persisted in SQLite. The payload
// lives either inline or as a file under the media directory; LoadItem
// resolves it either way.
type Post struct {
	ID              int64
	Fingerprint     string
	SourceChannelID int64
	SourceMessageID int64
	FileName        string
	MimeType        string
	PayloadInline   []byte
	PayloadPath     string
	Status          Status
	ScheduledAt     time.Time
	CreatedAt       time.Time
	ProcessedAt     *time.Time
	ErrorMessage    string
}

// ArchivedPost is the durable record of a permanently published item. The
// fingerprint is globally unique; inserting a duplicate is a no-op.
type ArchivedPost struct {
	ID              int64
	Fingerprint     string
	SourceChannelID int64
	SourceMessageID int64
	TargetMessageID *int64
	FilePath        string
	CreatedAt       time.Time
}

// Settings is the admin-managed mirror configuration row.
type Settings struct {
	TargetChatID       string
	QueueEnabled       bool
	MinIntervalSeconds int
	MaxIntervalSeconds int
	NeedsReload        bool
}
