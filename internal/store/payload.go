package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"feedmirror/internal/media"
)

// encodePayload is the single boundary between in-memory payload bytes and
// their persisted form. Payloads up to the inline limit are stored as a blob
// column; larger ones go to a uuid-named file under the media directory.
func (s *Store) encodePayload(payload []byte) ([]byte, string, error) {
	if len(payload) <= s.inlineLimit {
		return payload, "", nil
	}
	if s.mediaDir == "" {
		return nil, "", errors.New("media directory not configured for payload offload")
	}
	if err := os.MkdirAll(s.mediaDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("ensure media directory: %w", err)
	}
	path := filepath.Join(s.mediaDir, uuid.NewString()+".bin")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return nil, "", fmt.Errorf("write payload file: %w", err)
	}
	return nil, path, nil
}

// LoadItem resolves a post's media item, reading the payload from the blob
// column or the offloaded file.
func (s *Store) LoadItem(post *Post) (media.Item, error) {
	if post == nil {
		return media.Item{}, errors.New("post is nil")
	}
	item := media.Item{
		FileName: post.FileName,
		MimeType: post.MimeType,
	}
	if post.PayloadPath == "" {
		item.Payload = post.PayloadInline
		return item, nil
	}
	payload, err := os.ReadFile(post.PayloadPath)
	if err != nil {
		return media.Item{}, fmt.Errorf("read payload file: %w", err)
	}
	item.Payload = payload
	return item, nil
}

func (s *Store) discardPayloadFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		// Leaked files are harmless; the next clear pass can sweep them.
		_ = err
	}
}
