// Package media defines the in-memory unit of work flowing through the
// mirror pipeline. Items are transient: they exist from ingestion until
// classification and are never retained beyond that.
package media

import "strings"

// Kind groups MIME types into the upload classes the target feed understands.
type Kind string

const (
	KindPhoto    Kind = "photo"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

// Item is a single media payload extracted from a source message.
type Item struct {
	Payload  []byte
	FileName string
	MimeType string
}

// Kind classifies the item by its MIME type. Unknown or missing types
// fall back to document uploads, which every target accepts.
func (i Item) Kind() Kind {
	mime := strings.ToLower(strings.TrimSpace(i.MimeType))
	switch {
	case strings.HasPrefix(mime, "image/"):
		return KindPhoto
	case strings.HasPrefix(mime, "video/"):
		return KindVideo
	default:
		return KindDocument
	}
}

// Size returns the payload length in bytes.
func (i Item) Size() int {
	return len(i.Payload)
}
