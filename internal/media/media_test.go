package media_test

import (
	"testing"

	"feedmirror/internal/media"
)

func TestItemKind(t *testing.T) {
	cases := []struct {
		mimeType string
		want     media.Kind
	}{
		{"image/jpeg", media.KindPhoto},
		{"image/png", media.KindPhoto},
		{"IMAGE/PNG", media.KindPhoto},
		{"video/mp4", media.KindVideo},
		{"application/pdf", media.KindDocument},
		{"audio/ogg", media.KindDocument},
		{"", media.KindDocument},
	}

	for _, tc := range cases {
		item := media.Item{MimeType: tc.mimeType}
		if got := item.Kind(); got != tc.want {
			t.Errorf("Kind(%q) = %s, want %s", tc.mimeType, got, tc.want)
		}
	}
}

func TestItemSize(t *testing.T) {
	item := media.Item{Payload: make([]byte, 1234)}
	if item.Size() != 1234 {
		t.Fatalf("Size = %d, want 1234", item.Size())
	}
}
