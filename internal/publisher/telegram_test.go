package publisher_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"feedmirror/internal/media"
	"feedmirror/internal/publisher"
)

func TestPublishUploadsMultipartByKind(t *testing.T) {
	cases := []struct {
		name       string
		mimeType   string
		wantMethod string
		wantField  string
	}{
		{"photo", "image/jpeg", "sendPhoto", "photo"},
		{"video", "video/mp4", "sendVideo", "video"},
		{"document", "application/pdf", "sendDocument", "document"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotPath string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				if err := r.ParseMultipartForm(1 << 20); err != nil {
					t.Errorf("parse multipart: %v", err)
				}
				if chat := r.FormValue("chat_id"); chat != "@mirror" {
					t.Errorf("chat_id = %q, want @mirror", chat)
				}
				file, header, err := r.FormFile(tc.wantField)
				if err != nil {
					t.Errorf("form file %q: %v", tc.wantField, err)
				} else {
					defer file.Close()
					data, _ := io.ReadAll(file)
					if string(data) != "payload-bytes" {
						t.Errorf("payload = %q", data)
					}
					if header.Filename != "item.bin" {
						t.Errorf("filename = %q", header.Filename)
					}
				}
				io.WriteString(w, `{"ok":true,"result":{"message_id":321}}`)
			}))
			defer srv.Close()

			bot := publisher.NewBotAPI(srv.URL, "token-123", srv.Client())
			result, err := bot.Publish(context.Background(), media.Item{
				Payload:  []byte("payload-bytes"),
				FileName: "item.bin",
				MimeType: tc.mimeType,
			}, "@mirror")
			if err != nil {
				t.Fatalf("Publish failed: %v", err)
			}
			if result.TargetMessageID != 321 {
				t.Fatalf("TargetMessageID = %d, want 321", result.TargetMessageID)
			}
			if want := "/bottoken-123/" + tc.wantMethod; gotPath != want {
				t.Fatalf("request path = %q, want %q", gotPath, want)
			}
		})
	}
}

func TestPublishSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"ok":false,"error_code":400,"description":"chat not found"}`)
	}))
	defer srv.Close()

	bot := publisher.NewBotAPI(srv.URL, "token-123", srv.Client())
	_, err := bot.Publish(context.Background(), media.Item{Payload: []byte("x")}, "@missing")
	if err == nil {
		t.Fatal("expected error for rejected publish")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("error should carry the API description, got %v", err)
	}
}

func TestPublishRequiresTargetChat(t *testing.T) {
	bot := publisher.NewBotAPI("http://127.0.0.1:1", "token", nil)
	if _, err := bot.Publish(context.Background(), media.Item{Payload: []byte("x")}, "  "); err == nil {
		t.Fatal("expected error when target chat is empty")
	}
}
